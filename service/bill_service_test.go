package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"mime/multipart"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakimzulkifli/tnb-bill-extractor/config"
	"github.com/hakimzulkifli/tnb-bill-extractor/dto"
)

// stubProcessor serves canned page texts keyed by document content, so
// reconciliation is exercised without real PDFs.
type stubProcessor struct {
	docs   map[string][]string
	images map[string]map[int]image.Image
}

func (s *stubProcessor) PageCount(pdfData []byte) (int, error) {
	pages, ok := s.docs[string(pdfData)]
	if !ok {
		return 0, errors.New("not a PDF")
	}
	return len(pages), nil
}

func (s *stubProcessor) ExtractPageText(pdfData []byte, pageNum int) (string, error) {
	return s.docs[string(pdfData)][pageNum-1], nil
}

func (s *stubProcessor) ExtractPageImage(pdfData []byte, pageNum int) (image.Image, error) {
	if imgs, ok := s.images[string(pdfData)]; ok {
		if img, ok := imgs[pageNum]; ok {
			return img, nil
		}
	}
	return nil, errors.New("no page image")
}

type stubOCR struct {
	queue []string
	calls int
}

func (s *stubOCR) ExtractTextFromImage(img image.Image) (string, error) {
	s.calls++
	if len(s.queue) == 0 {
		return "", errors.New("ocr backend unavailable")
	}
	text := s.queue[0]
	s.queue = s.queue[1:]
	return text, nil
}

func newTestService(proc *stubProcessor, ocr *stubOCR) *BillService {
	return NewBillService(ocr, proc, config.LoadConfig())
}

func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("files[]", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	return form.File["files[]"][0]
}

const janPageText = `TENAGA NASIONAL BERHAD
Tempoh Bil : 01.01.2023 - 31.01.2023
Jumlah Penggunaan Anda (1,000 kWh)
Caj Semasa RM 500.00`

const marPageText = `TENAGA NASIONAL BERHAD
Tempoh Bil : 01.03.2023 - 31.03.2023
Jumlah Penggunaan Anda (800 kWh)
Caj Semasa RM 400.00`

const blankPageText = `Mukasurat ini sengaja dibiarkan tanpa maklumat penggunaan tenaga elektrik.`

func TestProcessDocumentMergesPagesOfSameMonth(t *testing.T) {
	kwhOnlyPage := `TENAGA NASIONAL BERHAD
Tempoh Bil : 01.03.2023 - 31.03.2023
Kegunaan kWh
500.00
Bacaan meter semasa disahkan oleh pegawai kawasan`

	rmOnlyPage := `TENAGA NASIONAL BERHAD
Tempoh Bil : 01.03.2023 - 31.03.2023
Caj Semasa RM 300.00
Bayaran boleh dibuat di mana-mana Kedai Tenaga`

	proc := &stubProcessor{docs: map[string][]string{
		"doc": {kwhOnlyPage, rmOnlyPage},
	}}
	svc := newTestService(proc, &stubOCR{})

	result, err := svc.ProcessDocument("march.pdf", []byte("doc"))

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, 2023, rec.Year)
	assert.Equal(t, 3, rec.MonthNum)
	assert.Equal(t, 500.0, rec.KWh)
	assert.Equal(t, 300.0, rec.RM)
	assert.Equal(t, dto.StatusFound, rec.Status)
}

func TestProcessDocumentOCRFallbackForScannedPage(t *testing.T) {
	scannedBillText := `TENAGA NASIONAL BERHAD
Tarikh Bil
01.04.2023
30.04.2023
No. Invois 20230455512
Kegunaan kVVh
650.00
Jumlah Perlu Bayar
320.50`

	proc := &stubProcessor{
		docs: map[string][]string{"scan": {""}},
		images: map[string]map[int]image.Image{
			"scan": {1: image.NewGray(image.Rect(0, 0, 32, 32))},
		},
	}
	ocr := &stubOCR{queue: []string{scannedBillText}}
	svc := newTestService(proc, ocr)

	result, err := svc.ProcessDocument("scan.pdf", []byte("scan"))

	require.NoError(t, err)
	assert.Equal(t, 1, ocr.calls)
	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, 4, rec.MonthNum)
	assert.Equal(t, 650.0, rec.KWh)
	assert.Equal(t, 320.50, rec.RM)
}

// qrImage renders a QR code payload as a grayscale page image
func qrImage(t *testing.T, content string) image.Image {
	t.Helper()

	matrix, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	require.NoError(t, err)

	img := image.NewGray(image.Rect(0, 0, matrix.GetWidth(), matrix.GetHeight()))
	for y := 0; y < matrix.GetHeight(); y++ {
		for x := 0; x < matrix.GetWidth(); x++ {
			if matrix.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestProcessDocumentDecodesJomPayAccountRef(t *testing.T) {
	scannedBillText := `TENAGA NASIONAL BERHAD
Tempoh Bil : 01.05.2023 - 31.05.2023
Jumlah Penggunaan Anda (900 kWh)
Caj Semasa RM 430.00`

	proc := &stubProcessor{
		docs: map[string][]string{"scan": {""}},
		images: map[string]map[int]image.Image{
			"scan": {1: qrImage(t, "JomPAY|5454|220001234567|RB")},
		},
	}
	ocr := &stubOCR{queue: []string{scannedBillText}}
	svc := newTestService(proc, ocr)

	result, err := svc.ProcessDocument("scan.pdf", []byte("scan"))

	require.NoError(t, err)
	assert.Equal(t, "220001234567", result.PaymentRef)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 5, result.Records[0].MonthNum)
}

func TestProcessDocumentSkipsOCRWhenTextLayerIsLongEnough(t *testing.T) {
	proc := &stubProcessor{docs: map[string][]string{"doc": {janPageText}}}
	ocr := &stubOCR{}
	svc := newTestService(proc, ocr)

	result, err := svc.ProcessDocument("jan.pdf", []byte("doc"))

	require.NoError(t, err)
	assert.Equal(t, 0, ocr.calls)
	require.Len(t, result.Records, 1)
}

func TestExtractBillsEndToEnd(t *testing.T) {
	proc := &stubProcessor{docs: map[string][]string{
		"doc1": {janPageText, blankPageText},
		"doc2": {marPageText},
	}}
	svc := newTestService(proc, &stubOCR{})

	req := &dto.BillExtractionRequest{Files: []*multipart.FileHeader{
		makeFileHeader(t, "jan_feb.pdf", []byte("doc1")),
		makeFileHeader(t, "march.pdf", []byte("doc2")),
	}}

	resp, err := svc.ExtractBills(req)

	require.NoError(t, err)
	require.Len(t, resp.Timeline, 3)

	assert.Equal(t, dto.StatusFound, resp.Timeline[0].Status)
	assert.Equal(t, 1000.0, resp.Timeline[0].KWh)
	assert.Equal(t, 500.0, resp.Timeline[0].RM)

	assert.Equal(t, dto.StatusMissing, resp.Timeline[1].Status)
	assert.Equal(t, "Feb", resp.Timeline[1].Month)

	assert.Equal(t, dto.StatusFound, resp.Timeline[2].Status)
	assert.Equal(t, 800.0, resp.Timeline[2].KWh)
	assert.Equal(t, 400.0, resp.Timeline[2].RM)

	assert.Equal(t, 1800.0, resp.Summary.TotalKWh)
	assert.Equal(t, 900.0, resp.Summary.TotalRM)
	assert.Equal(t, 0.5, resp.Summary.AvgRMPerKWh)
	assert.Equal(t, []string{"Feb 2023"}, resp.MissingMonths)
	assert.Len(t, resp.Documents, 2)
	assert.Empty(t, resp.Warnings)
}

func TestExtractBillsReportsUnreadableDocument(t *testing.T) {
	proc := &stubProcessor{docs: map[string][]string{
		"good": {janPageText},
	}}
	svc := newTestService(proc, &stubOCR{})

	req := &dto.BillExtractionRequest{Files: []*multipart.FileHeader{
		makeFileHeader(t, "broken.pdf", []byte("garbage")),
		makeFileHeader(t, "good.pdf", []byte("good")),
	}}

	resp, err := svc.ExtractBills(req)

	require.NoError(t, err)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "broken.pdf")
	require.Len(t, resp.Timeline, 1)
	assert.Equal(t, 1, resp.Timeline[0].MonthNum)
}

func TestExtractBillsNoData(t *testing.T) {
	proc := &stubProcessor{docs: map[string][]string{
		"doc": {blankPageText},
	}}
	svc := newTestService(proc, &stubOCR{})

	req := &dto.BillExtractionRequest{Files: []*multipart.FileHeader{
		makeFileHeader(t, "empty.pdf", []byte("doc")),
	}}

	resp, err := svc.ExtractBills(req)

	assert.ErrorIs(t, err, dto.ErrNoBillData)
	require.NotNil(t, resp)
	assert.Empty(t, resp.Warnings)
	assert.Empty(t, resp.Timeline)
}

func TestExtractBillsAllDocumentsFailNamesEachOne(t *testing.T) {
	proc := &stubProcessor{docs: map[string][]string{}}
	svc := newTestService(proc, &stubOCR{})

	req := &dto.BillExtractionRequest{Files: []*multipart.FileHeader{
		makeFileHeader(t, "broken1.pdf", []byte("garbage1")),
		makeFileHeader(t, "broken2.pdf", []byte("garbage2")),
	}}

	resp, err := svc.ExtractBills(req)

	assert.ErrorIs(t, err, dto.ErrNoBillData)
	require.NotNil(t, resp)
	require.Len(t, resp.Warnings, 2)
	assert.Contains(t, resp.Warnings[0], "broken1.pdf")
	assert.Contains(t, resp.Warnings[1], "broken2.pdf")
}
