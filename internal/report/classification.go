package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/abc"
	"github.com/andresuchdata/vivero-po/internal/planning/numeric"
)

const classificationSheet = "ABC"

var classificationHeader = []interface{}{
	"Código artículo", "Nombre artículo", "Sección", "Categoría",
	"Ventas", "Ventas periodo anterior", "% ventas", "% acumulado", "Variación %",
}

// ClassificationName is the base name of the ABC workbook of a section. The
// header is readable back as an ABC input file.
func ClassificationName(section domain.Section) string {
	return fmt.Sprintf("clasificacion_abc_%s", section)
}

// WriteClassification writes the ABC classification of one section.
func (w *Writer) WriteClassification(section domain.Section, rows []abc.Classification) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), classificationSheet); err != nil {
		return "", err
	}
	style, err := headerStyle(f)
	if err != nil {
		return "", err
	}
	if err := f.SetSheetRow(classificationSheet, "A1", &classificationHeader); err != nil {
		return "", err
	}
	last, _ := excelize.CoordinatesToCellName(len(classificationHeader), 1)
	if err := f.SetCellStyle(classificationSheet, "A1", last, style); err != nil {
		return "", err
	}
	if err := f.SetColWidth(classificationSheet, "A", "A", 16); err != nil {
		return "", err
	}
	if err := f.SetColWidth(classificationSheet, "B", "B", 36); err != nil {
		return "", err
	}

	for i, c := range rows {
		values := []interface{}{
			c.Code,
			c.Name,
			string(c.Section),
			string(c.Category),
			numeric.Round(c.Sales, 2),
			numeric.Round(c.PriorSales, 2),
			numeric.Round(c.Share, 2),
			numeric.Round(c.CumulativeShare, 2),
			numeric.Round(c.Variation, 1),
		}
		if err := f.SetSheetRow(classificationSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return "", err
		}
	}

	path := filepath.Join(w.dir, ClassificationName(section)+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}

	counts := abc.Counts(rows)
	log.Info().
		Str("section", string(section)).
		Int("a", counts[domain.CategoryA]).
		Int("b", counts[domain.CategoryB]).
		Int("c", counts[domain.CategoryC]).
		Int("d", counts[domain.CategoryD]).
		Str("file", path).
		Msg("classification written")
	return path, nil
}
