// Package export renders expense reports into spreadsheets for accountants.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/period"
)

const sheetName = "Fiche"

// ExcelWriter implements port.SheetWriter with excelize
type ExcelWriter struct {
	logger *zap.Logger
}

// NewExcelWriter creates a new spreadsheet writer
func NewExcelWriter(logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{logger: logger}
}

// Write lays the report out on a single sheet:
// header block, flat-rate table, itemized table, then the total.
func (ew *ExcelWriter) Write(sheet *port.ReportSheet, w io.Writer) error {
	if sheet == nil || sheet.Report == nil || sheet.Visitor == nil {
		return fmt.Errorf("incomplete report sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	month, err := period.ParseMonth(sheet.Report.Month)
	if err != nil {
		return err
	}

	report := sheet.Report
	ew.setCell(f, "A1", "Fiche de frais")
	ew.setCell(f, "A2", "Visiteur")
	ew.setCell(f, "B2", sheet.Visitor.FullName())
	ew.setCell(f, "C2", sheet.Visitor.ID)
	ew.setCell(f, "A3", "Mois")
	ew.setCell(f, "B3", month.Num()+"/"+month.Year())
	ew.setCell(f, "A4", "Etat")
	ew.setCell(f, "B4", report.StateLabel)
	ew.setCell(f, "A5", "Justificatifs")
	ew.setCell(f, "B5", report.JustificationCount)
	if !report.ModifiedAt.IsZero() {
		ew.setCell(f, "A6", "Modifiée le")
		ew.setCell(f, "B6", period.FormatFrenchDate(report.ModifiedAt))
	}

	row := 8
	ew.setRow(f, row, "Frais forfaitisés", "Quantité", "Montant unitaire", "Total")
	ew.styleRow(f, row, bold)
	row++
	for _, line := range sheet.FlatRates {
		ew.setRow(f, row, line.Label, line.Quantity, line.UnitPrice().StringFixed(2), line.LineTotal().StringFixed(2))
		row++
	}

	row++
	ew.setRow(f, row, "Frais hors forfait", "Date", "Montant", "")
	ew.styleRow(f, row, bold)
	row++
	for _, line := range sheet.Itemized {
		ew.setRow(f, row, line.Label, period.FormatFrenchDate(line.Date), line.Amount.StringFixed(2), "")
		row++
	}

	row++
	ew.setCell(f, cell("A", row), "Total")
	ew.setCell(f, cell("D", row), sheet.Total.StringFixed(2))
	ew.styleRow(f, row, bold)

	if err := f.SetColWidth(sheetName, "A", "A", 40); err != nil {
		ew.logger.Warn("Failed to set column width", zap.Error(err))
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	ew.logger.Info("Report sheet written",
		zap.String("visitor_id", report.VisitorID),
		zap.String("month", report.Month),
		zap.Int("flat_rate_lines", len(sheet.FlatRates)),
		zap.Int("itemized_lines", len(sheet.Itemized)))
	return nil
}

func (ew *ExcelWriter) setRow(f *excelize.File, row int, values ...interface{}) {
	for i, value := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		ew.setCell(f, cell(col, row), value)
	}
}

func (ew *ExcelWriter) styleRow(f *excelize.File, row, style int) {
	if err := f.SetCellStyle(sheetName, cell("A", row), cell("D", row), style); err != nil {
		ew.logger.Warn("Failed to style row", zap.Int("row", row), zap.Error(err))
	}
}

// setCell sets a cell value, logging rather than failing on bad coordinates
func (ew *ExcelWriter) setCell(f *excelize.File, axis string, value interface{}) {
	if err := f.SetCellValue(sheetName, axis, value); err != nil {
		ew.logger.Warn("Failed to set cell value",
			zap.String("cell", axis),
			zap.Error(err))
	}
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

var _ port.SheetWriter = (*ExcelWriter)(nil)
