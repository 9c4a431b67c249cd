package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"worksheet-backend/internal/models"
)

const xlsxSheet = "Worksheet"

// XLSXExporter writes one row per question.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter { return &XLSXExporter{} }

func (XLSXExporter) Format() string { return "xlsx" }
func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXExporter) Export(w io.Writer, ws *models.Worksheet, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	f.SetCellValue(xlsxSheet, "A1", ws.Title)
	f.SetCellValue(xlsxSheet, "A2", headerLine(ws))

	headers := []string{"No.", "Question", "Type", "Options"}
	if opts.WithSolutions {
		headers = append(headers, "Answer", "Solution")
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(xlsxSheet, cell, header)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 4)
		f.SetCellStyle(xlsxSheet, "A1", "A1", bold)
		f.SetCellStyle(xlsxSheet, "A4", last, bold)
	}

	for i, q := range ws.Questions {
		row := []interface{}{i + 1, q.Question, string(q.Type), formatOptions(q.Options)}
		if opts.WithSolutions {
			row = append(row, q.Answer, q.Solution)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+5)
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write question %d: %w", q.ID, err)
		}
	}

	f.SetColWidth(xlsxSheet, "B", "B", 60)
	f.SetColWidth(xlsxSheet, "D", "D", 40)
	if opts.WithSolutions {
		f.SetColWidth(xlsxSheet, "F", "F", 60)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func formatOptions(options []string) string {
	parts := make([]string, len(options))
	for i, o := range options {
		parts[i] = fmt.Sprintf("(%s) %s", optionLetter(i), o)
	}
	return strings.Join(parts, "\n")
}
