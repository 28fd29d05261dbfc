package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/hakimzulkifli/tnb-bill-extractor/client"
	"github.com/hakimzulkifli/tnb-bill-extractor/config"
	"github.com/hakimzulkifli/tnb-bill-extractor/handler"
	"github.com/hakimzulkifli/tnb-bill-extractor/service"
)

func main() {
	// Initialize configuration
	cfg := config.LoadConfig()

	// Tesseract v5 resolves its models through this variable
	os.Setenv("TESSDATA_PREFIX", cfg.TesseractDataPath)
	log.Println("TESSDATA_PREFIX set to:", os.Getenv("TESSDATA_PREFIX"))

	// Initialize Tesseract client
	tesseractClient := client.NewTesseractClient(cfg.TesseractDataPath, cfg.OCRLanguage)
	defer tesseractClient.Close()

	// Initialize PDF processor
	pdfProcessor := service.NewPDFProcessor()

	// Initialize service layer
	billService := service.NewBillService(tesseractClient, pdfProcessor, cfg)
	exportService := service.NewExportService()

	// Initialize handler layer
	billHandler := handler.NewBillHandler(billService, exportService)

	// Setup Gin router
	router := gin.Default()

	// Configure max multipart memory
	router.MaxMultipartMemory = cfg.MaxFileSize

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "TNB Bill Extractor",
		})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		bills := api.Group("/bills")
		{
			bills.POST("/extract", billHandler.ExtractBills)
			bills.POST("/export", billHandler.ExportBills)
		}
	}

	// Start server
	log.Printf("Starting TNB Bill Extractor Service on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
