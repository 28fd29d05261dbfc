package service

import (
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/hakimzulkifli/tnb-bill-extractor/config"
	"github.com/hakimzulkifli/tnb-bill-extractor/dto"
	"github.com/hakimzulkifli/tnb-bill-extractor/utils"
)

// OCRClient is the OCR boundary: rasterized page image in, text out.
type OCRClient interface {
	ExtractTextFromImage(img image.Image) (string, error)
}

type BillService struct {
	ocrClient    OCRClient
	pdfProcessor PDFProcessor
	cfg          *config.Config
}

func NewBillService(ocrClient OCRClient, pdfProcessor PDFProcessor, cfg *config.Config) *BillService {
	return &BillService{
		ocrClient:    ocrClient,
		pdfProcessor: pdfProcessor,
		cfg:          cfg,
	}
}

// ExtractBills processes every uploaded document in order, reconciles the
// per-month records across all of them and completes the monthly timeline.
// A document that cannot be read becomes a named warning; the batch continues.
func (s *BillService) ExtractBills(req *dto.BillExtractionRequest) (*dto.BillExtractionResponse, error) {
	var documents []dto.DocumentResult
	var allRecords []dto.BillRecord
	var warnings []string

	for _, fileHeader := range req.Files {
		result, err := s.processFile(fileHeader)
		if err != nil {
			log.Printf("Error processing %s: %v", fileHeader.Filename, err)
			warnings = append(warnings, fmt.Sprintf("Error processing %s: %v", fileHeader.Filename, err))
			continue
		}
		documents = append(documents, *result)
		allRecords = append(allRecords, result.Records...)
	}

	if len(allRecords) == 0 {
		// The caller still needs to know which documents failed and why
		return &dto.BillExtractionResponse{
			Warnings:    warnings,
			ProcessedAt: time.Now().Format(time.RFC3339),
		}, dto.ErrNoBillData
	}

	timeline := CompleteTimeline(Aggregate(allRecords))
	summary, missingMonths := Summarize(timeline)

	return &dto.BillExtractionResponse{
		Documents:     documents,
		Timeline:      timeline,
		Summary:       summary,
		MissingMonths: missingMonths,
		Warnings:      warnings,
		ProcessedAt:   time.Now().Format(time.RFC3339),
	}, nil
}

func (s *BillService) processFile(fileHeader *multipart.FileHeader) (*dto.DocumentResult, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	pdfData, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return s.ProcessDocument(fileHeader.Filename, pdfData)
}

// ProcessDocument runs the extractor over every page of one document and
// merges same-month records across its pages. A later page only overwrites a
// stored field when it carries a nonzero reading.
func (s *BillService) ProcessDocument(filename string, pdfData []byte) (*dto.DocumentResult, error) {
	pageCount, err := s.pdfProcessor.PageCount(pdfData)
	if err != nil {
		return nil, fmt.Errorf("unreadable PDF: %w", err)
	}

	records := make(map[dto.MonthKey]*dto.BillRecord)
	var order []dto.MonthKey
	paymentRef := ""

	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := s.pageText(pdfData, pageNum, filename, &paymentRef)

		if rec := utils.ExtractBillData(text); rec != nil {
			key := rec.Key()
			if existing, ok := records[key]; ok {
				if rec.KWh > 0 {
					existing.KWh = rec.KWh
				}
				if rec.RM > 0 {
					existing.RM = rec.RM
				}
				existing.Status = dto.StatusFound
			} else {
				records[key] = rec
				order = append(order, key)
			}
		}

		// Bound peak memory on large scanned batches
		if pageNum%s.cfg.GCPageInterval == 0 {
			debug.FreeOSMemory()
		}
	}

	result := &dto.DocumentResult{Filename: filename, PaymentRef: paymentRef}
	for _, key := range order {
		result.Records = append(result.Records, *records[key])
	}
	return result, nil
}

// pageText tries the embedded text layer first and falls back to rasterizing
// the single page for OCR when the layer is absent or implausibly short.
func (s *BillService) pageText(pdfData []byte, pageNum int, filename string, paymentRef *string) string {
	text, err := s.pdfProcessor.ExtractPageText(pdfData, pageNum)
	if err != nil {
		log.Printf("Text layer extraction failed for %s page %d: %v", filename, pageNum, err)
	}
	if len(strings.TrimSpace(text)) >= s.cfg.MinDirectTextLen {
		return text
	}

	log.Printf("Page %d of %s seems to be scanned, attempting OCR", pageNum, filename)

	img, imgErr := s.pdfProcessor.ExtractPageImage(pdfData, pageNum)
	if imgErr != nil {
		log.Printf("Failed to extract page image from %s page %d: %v", filename, pageNum, imgErr)
		return text
	}

	if *paymentRef == "" {
		*paymentRef = decodePaymentRef(img)
	}

	ocrText, ocrErr := s.ocrClient.ExtractTextFromImage(img)
	if ocrErr != nil {
		log.Printf("OCR failed for %s page %d: %v", filename, pageNum, ocrErr)
		return text
	}
	return ocrText
}

// JomPAY Ref-1 on TNB bills is the 12-digit account number
var accountRefRe = regexp.MustCompile(`\d{12}`)

// decodePaymentRef scans a rasterized page for the JomPAY payment QR and
// pulls the account reference out of its payload. Pages without a decodable
// QR yield an empty string.
func decodePaymentRef(img image.Image) string {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return ""
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return ""
	}

	return accountRefRe.FindString(result.GetText())
}
