package service

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strconv"

	_ "image/jpeg"
	_ "image/png"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFProcessor is the boundary to the PDF libraries: the embedded text layer
// and single-page image extraction for the OCR fallback.
type PDFProcessor interface {
	PageCount(pdfData []byte) (int, error)
	ExtractPageText(pdfData []byte, pageNum int) (string, error)
	ExtractPageImage(pdfData []byte, pageNum int) (image.Image, error)
}

type pdfProcessor struct{}

func NewPDFProcessor() PDFProcessor {
	return &pdfProcessor{}
}

func (p *pdfProcessor) PageCount(pdfData []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// ExtractPageText returns the embedded text layer of a single page, empty
// when the page is a pure scan.
func (p *pdfProcessor) ExtractPageText(pdfData []byte, pageNum int) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return "", err
	}
	if pageNum < 1 || pageNum > r.NumPage() {
		return "", fmt.Errorf("page %d out of range", pageNum)
	}

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}

	var textBuilder bytes.Buffer
	rows, _ := page.GetTextByRow()
	for _, row := range rows {
		for _, word := range row.Content {
			textBuilder.WriteString(word.S)
		}
		textBuilder.WriteString("\n")
	}
	return textBuilder.String(), nil
}

// ExtractPageImage pulls the scanned image of one page and converts it to
// grayscale for OCR. Only the requested page is touched to keep memory flat
// on large batches.
func (p *pdfProcessor) ExtractPageImage(pdfData []byte, pageNum int) (image.Image, error) {
	tempDir, err := os.MkdirTemp("", "tnb_page_images")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir) // Cleanup

	tempFile, err := os.CreateTemp("", "bill-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name()) // Cleanup file

	if _, err := tempFile.Write(pdfData); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write pdf data: %w", err)
	}
	tempFile.Close()

	conf := model.NewDefaultConfiguration()
	selectedPages := []string{strconv.Itoa(pageNum)}

	if err := api.ExtractImagesFile(tempFile.Name(), tempDir, selectedPages, conf); err != nil {
		return nil, fmt.Errorf("failed to extract page image: %w", err)
	}

	files, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		imgFile, err := os.Open(filepath.Join(tempDir, file.Name()))
		if err != nil {
			continue
		}

		img, _, err := image.Decode(imgFile)
		imgFile.Close()
		if err != nil {
			continue
		}
		return toGrayscale(img), nil
	}

	return nil, fmt.Errorf("page %d contains no decodable image", pageNum)
}

func toGrayscale(src image.Image) image.Image {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, src, bounds.Min, draw.Src)
	return gray
}
