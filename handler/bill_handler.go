package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hakimzulkifli/tnb-bill-extractor/dto"
	"github.com/hakimzulkifli/tnb-bill-extractor/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type BillHandler struct {
	billService   *service.BillService
	exportService *service.ExportService
}

func NewBillHandler(billService *service.BillService, exportService *service.ExportService) *BillHandler {
	return &BillHandler{
		billService:   billService,
		exportService: exportService,
	}
}

// ExtractBills handles the POST /bills/extract endpoint
func (h *BillHandler) ExtractBills(c *gin.Context) {
	log.Println("Received bill extraction request")

	request, ok := h.parseRequest(c)
	if !ok {
		return
	}

	log.Printf("Processing %d files", len(request.Files))

	response, err := h.billService.ExtractBills(request)
	if err != nil {
		if errors.Is(err, dto.ErrNoBillData) {
			h.sendNoData(c, response, err)
			return
		}
		h.sendError(c, http.StatusInternalServerError, "Failed to extract bill data", err)
		return
	}

	log.Println("Bill extraction completed successfully")
	c.JSON(http.StatusOK, response)
}

// ExportBills handles the POST /bills/export endpoint. The default mode is
// the flat table; ?mode=pivot produces the two pivot sheets instead.
func (h *BillHandler) ExportBills(c *gin.Context) {
	log.Println("Received bill export request")

	request, ok := h.parseRequest(c)
	if !ok {
		return
	}

	response, err := h.billService.ExtractBills(request)
	if err != nil {
		if errors.Is(err, dto.ErrNoBillData) {
			h.sendNoData(c, response, err)
			return
		}
		h.sendError(c, http.StatusInternalServerError, "Failed to extract bill data", err)
		return
	}

	var workbook []byte
	if c.DefaultQuery("mode", "table") == "pivot" {
		workbook, err = h.exportService.BuildPivotWorkbook(response.Timeline)
	} else {
		workbook, err = h.exportService.BuildWorkbook(response.Timeline)
	}
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	filename := h.exportService.ExportFilename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, workbook)
}

func (h *BillHandler) parseRequest(c *gin.Context) (*dto.BillExtractionRequest, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Failed to parse multipart form", err)
		return nil, false
	}

	files := form.File["files[]"]
	if len(files) == 0 {
		h.sendError(c, http.StatusBadRequest, "No files provided", nil)
		return nil, false
	}

	request := &dto.BillExtractionRequest{Files: files}
	if err := request.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error(), err)
		return nil, false
	}
	return request, true
}

// sendNoData sends the distinct "no data found" notice, carrying any
// per-document warnings so a fully failed batch still names its documents
func (h *BillHandler) sendNoData(c *gin.Context, response *dto.BillExtractionResponse, err error) {
	var warnings []string
	if response != nil {
		warnings = response.Warnings
	}
	log.Printf("Error: No data found - %v", err)

	c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
		Error:    "NO_DATA_FOUND",
		Message:  err.Error(),
		Code:     http.StatusUnprocessableEntity,
		Warnings: warnings,
	})
}

// sendError sends a structured error response
func (h *BillHandler) sendError(c *gin.Context, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		log.Printf("Error: %s - %v", message, err)
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   "EXTRACTION_FAILED",
		Message: errorMsg,
		Code:    statusCode,
	})
}
