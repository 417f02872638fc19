package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/correction"
	"github.com/andresuchdata/vivero-po/internal/planning/numeric"
)

const (
	orderSheet   = "Pedido"
	summarySheet = "Resumen"
	headerColor  = "2E7D32"
)

// Writer renders order lines to CSV and XLSX files in a directory.
type Writer struct {
	dir    string
	format Format
}

// NewWriter creates a writer for dir.
func NewWriter(dir string, format Format) *Writer {
	return &Writer{dir: dir, format: format}
}

// FileName is the base name of the order of a section, without extension:
// pedido_semana_WW_<section>_<monday>.
func FileName(week int, section domain.Section, monday time.Time) string {
	return fmt.Sprintf("pedido_semana_%02d_%s_%s", week, section, monday.Format("2006-01-02"))
}

// SummaryName is the base name of the weekly summary.
func SummaryName(week int, monday time.Time) string {
	return fmt.Sprintf("resumen_semana_%02d_%s", week, monday.Format("2006-01-02"))
}

// WriteSection writes the order of one section as CSV and XLSX and returns
// the written paths.
func (w *Writer) WriteSection(week int, monday time.Time, section domain.Section, lines []domain.OrderLine) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	sorted := make([]domain.OrderLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Article.Code < sorted[j].Article.Code })

	fields := fieldsFor(w.format)
	rows := selectLines(w.format, sorted)
	base := filepath.Join(w.dir, FileName(week, section, monday))

	csvPath := base + ".csv"
	if err := writeCSV(csvPath, fields, rows); err != nil {
		return nil, err
	}
	xlsxPath := base + ".xlsx"
	if err := writeXLSX(xlsxPath, fields, rows); err != nil {
		return nil, err
	}

	log.Info().
		Str("section", string(section)).
		Int("week", week).
		Int("lines", len(rows)).
		Str("file", xlsxPath).
		Msg("order written")
	return []string{csvPath, xlsxPath}, nil
}

func writeCSV(path string, fields []field, lines []domain.OrderLine) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := encodeCSV(f, fields, lines); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func encodeCSV(w io.Writer, fields []field, lines []domain.OrderLine) error {
	buf := bufio.NewWriter(w)
	// BOM so spreadsheet programs pick up UTF-8 accents
	if _, err := buf.WriteString("\xef\xbb\xbf"); err != nil {
		return err
	}

	cw := csv.NewWriter(buf)
	cw.Comma = ';'

	header := make([]string, len(fields))
	for i, fd := range fields {
		header[i] = fd.header
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(fields))
	for _, l := range lines {
		for i, fd := range fields {
			record[i] = fd.text(l)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
}

func writeXLSX(path string, fields []field, lines []domain.OrderLine) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), orderSheet); err != nil {
		return err
	}

	style, err := headerStyle(f)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(fields))
	for i, fd := range fields {
		header[i] = fd.header
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(orderSheet, col, col, fd.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(orderSheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(fields), 1)
	if err := f.SetCellStyle(orderSheet, "A1", last, style); err != nil {
		return err
	}

	for r, l := range lines {
		values := make([]interface{}, len(fields))
		for i, fd := range fields {
			values[i] = fd.value(l)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(orderSheet, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetPanes(orderSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteSummary writes the per section totals and the correction metrics of
// a run to one workbook.
func (w *Writer) WriteSummary(week int, monday time.Time, totals map[domain.Section]domain.SectionTotals, metrics correction.Metrics) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return "", err
	}
	style, err := headerStyle(f)
	if err != nil {
		return "", err
	}

	header := []interface{}{"Sección", "Semana", "Total artículos", "Total unidades", "Total importe"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return "", err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "E1", style); err != nil {
		return "", err
	}
	if err := f.SetColWidth(summarySheet, "A", "E", 18); err != nil {
		return "", err
	}

	sections := make([]domain.Section, 0, len(totals))
	for s := range totals {
		sections = append(sections, s)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i] < sections[j] })

	row := 2
	for _, s := range sections {
		t := totals[s]
		values := []interface{}{string(s), week, t.Articles, t.Units, numeric.Round(t.Amount, 2)}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return "", err
		}
		row++
	}

	if metrics.Articles > 0 {
		row++
		stats := [][]interface{}{
			{"Artículos corregidos", metrics.Corrected},
			{"Pedidos aumentados", metrics.Increased},
			{"Pedidos reducidos", metrics.Reduced},
			{"Sin cambio", metrics.Unchanged},
			{"Uds. teóricas", metrics.TheoreticalUnits},
			{"Uds. finales", metrics.FinalUnits},
			{"Variación %", numeric.Round(metrics.PercentChange, 1)},
			{"Precisión ventas %", numeric.Round(metrics.Precision, 1)},
		}
		for _, values := range stats {
			if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &values); err != nil {
				return "", err
			}
			row++
		}
	}

	path := filepath.Join(w.dir, SummaryName(week, monday)+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}
