package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hakimzulkifli/tnb-bill-extractor/dto"
)

// ExportService renders a completed timeline as a styled XLSX workbook.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

const dataSheet = "TNB_Data"

// numFmt 4 is the built-in "#,##0.00" format
const amountNumFmt = 4

// BuildWorkbook writes one sheet with columns Year, Month, kWh, RM,
// Production Data and Status. kWh, RM and Production Data carry a two-decimal
// number format; MISSING rows are highlighted. Production Data is an editable
// column defaulted to 0.0 for downstream planning sheets.
func (e *ExportService) BuildWorkbook(timeline []dto.BillRecord) ([]byte, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return nil, err
	}

	headers := []string{"Year", "Month", "kWh", "RM", "Production Data", "Status"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(dataSheet, cell, h)
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		return nil, err
	}
	missingFill := excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1}
	missingFont := &excelize.Font{Color: "9C0006"}
	missingStyle, err := f.NewStyle(&excelize.Style{Fill: missingFill, Font: missingFont})
	if err != nil {
		return nil, err
	}
	missingAmountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt, Fill: missingFill, Font: missingFont})
	if err != nil {
		return nil, err
	}

	row := 2
	for _, rec := range timeline {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(dataSheet, cell, v)
		}

		write(1, rec.Year)
		write(2, rec.Month)
		write(3, rec.KWh)
		write(4, rec.RM)
		write(5, 0.0) // Production Data, filled in by hand after export
		write(6, string(rec.Status))

		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(headers), row)
		amountFirst, _ := excelize.CoordinatesToCellName(3, row)
		amountLast, _ := excelize.CoordinatesToCellName(5, row)
		if rec.Status == dto.StatusMissing {
			_ = f.SetCellStyle(dataSheet, first, last, missingStyle)
			_ = f.SetCellStyle(dataSheet, amountFirst, amountLast, missingAmountStyle)
		} else {
			_ = f.SetCellStyle(dataSheet, amountFirst, amountLast, amountStyle)
		}

		row++
	}

	_ = f.SetColWidth(dataSheet, "A", "B", 10)
	_ = f.SetColWidth(dataSheet, "C", "E", 20)
	_ = f.SetColWidth(dataSheet, "F", "F", 15)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildPivotWorkbook writes the pivot variant: months as rows, years as
// columns, one sheet for kWh and one for RM. It pivots the aggregated
// records, so duplicate (year, month) readings have already been merged by
// the same max policy as the table export.
func (e *ExportService) BuildPivotWorkbook(timeline []dto.BillRecord) ([]byte, error) {
	f := excelize.NewFile()

	years := make([]int, 0)
	seen := make(map[int]bool)
	for _, rec := range timeline {
		if !seen[rec.Year] {
			seen[rec.Year] = true
			years = append(years, rec.Year)
		}
	}
	sort.Ints(years)

	kwhByKey := make(map[dto.MonthKey]float64, len(timeline))
	rmByKey := make(map[dto.MonthKey]float64, len(timeline))
	for _, rec := range timeline {
		kwhByKey[rec.Key()] = rec.KWh
		rmByKey[rec.Key()] = rec.RM
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		return nil, err
	}

	writePivot := func(sheet string, values map[dto.MonthKey]float64) error {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		_ = f.SetCellValue(sheet, "A1", "Month")
		for i, year := range years {
			cell, _ := excelize.CoordinatesToCellName(i+2, 1)
			_ = f.SetCellValue(sheet, cell, year)
		}

		for month := 1; month <= 12; month++ {
			labelCell, _ := excelize.CoordinatesToCellName(1, month+1)
			_ = f.SetCellValue(sheet, labelCell, dto.MonthAbbrev(month))
			for i, year := range years {
				if v, ok := values[dto.MonthKey{Year: year, Month: month}]; ok {
					cell, _ := excelize.CoordinatesToCellName(i+2, month+1)
					_ = f.SetCellValue(sheet, cell, v)
					_ = f.SetCellStyle(sheet, cell, cell, amountStyle)
				}
			}
		}

		lastCol, _ := excelize.ColumnNumberToName(len(years) + 1)
		_ = f.SetColWidth(sheet, "A", "A", 10)
		if len(years) > 0 {
			_ = f.SetColWidth(sheet, "B", lastCol, 16)
		}
		return nil
	}

	if err := writePivot("kWh_Pivot", kwhByKey); err != nil {
		return nil, err
	}
	if err := writePivot("RM_Pivot", rmByKey); err != nil {
		return nil, err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename carries a generation timestamp so repeated exports never
// overwrite each other.
func (e *ExportService) ExportFilename(now time.Time) string {
	return fmt.Sprintf("TNB_Data_Export_%s.xlsx", now.Format("20060102_150405"))
}
