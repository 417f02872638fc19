package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/correction"
)

var monday = time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)

func sampleLines() []domain.OrderLine {
	return []domain.OrderLine{
		{
			Week:             15,
			Article:          domain.Article{Code: "8000000002", Name: "Olivo", Section: domain.SectionNursery, Category: domain.CategoryB, UnitCost: 12.5, UnitPrice: 25},
			TheoreticalOrder: 0,
			FinalOrder:       0,
		},
		{
			Week:             15,
			Article:          domain.Article{Code: "8000000001", Name: "Ficus", Section: domain.SectionNursery, Category: domain.CategoryA, UnitCost: 1000, UnitPrice: 2000, Supplier: "Viveros Sur"},
			TheoreticalOrder: 263,
			Corrected:        true,
			CorrectedOrder:   265,
			FinalOrder:       265,
			Scenario:         "SUP_IGU_DEF",
			Alerts:           []domain.AlertCode{domain.AlertStockCritical},
		},
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "pedido_semana_05_vivero_2025-04-07", FileName(5, domain.SectionNursery, monday))
	assert.Equal(t, "resumen_semana_15_2025-04-07", SummaryName(15, monday))
}

func TestWriteSectionOrderFormat(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, FormatOrder)

	paths, err := w.WriteSection(15, monday, domain.SectionNursery, sampleLines())
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "pedido_semana_15_vivero_2025-04-07.csv"), paths[0])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	content := strings.TrimPrefix(string(data), "\xef\xbb\xbf")
	lines := strings.Split(strings.TrimSpace(content), "\n")

	require.Len(t, lines, 2, "lines without units are left out")
	assert.Equal(t, "Código artículo;Nombre artículo;Unidades;PVP;Coste pedido;Proveedor;Categoría", lines[0])
	assert.Equal(t, "8000000001;Ficus;265;2.000;265.000;Viveros Sur;A", lines[1])
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestEncodeCSVReportsWriteError(t *testing.T) {
	err := encodeCSV(failingWriter{}, fieldsFor(FormatComplete), sampleLines())
	assert.ErrorContains(t, err, "disk full")
}

func TestWriteCSVReportsShortWrite(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full on this system")
	}
	err := writeCSV("/dev/full", fieldsFor(FormatComplete), sampleLines())
	assert.ErrorContains(t, err, "/dev/full")
}

func TestWriteSectionCompleteXLSX(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, FormatComplete)

	paths, err := w.WriteSection(15, monday, domain.SectionNursery, sampleLines())
	require.NoError(t, err)

	f, err := excelize.OpenFile(paths[1])
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(orderSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Código artículo", rows[0][0])
	assert.Equal(t, "8000000001", rows[1][0], "sorted by code")
	assert.Equal(t, "8000000002", rows[2][0])

	var scenarioCol, alertCol int
	for i, h := range rows[0] {
		switch h {
		case "Escenario":
			scenarioCol = i
		case "Alertas":
			alertCol = i
		}
	}
	assert.Equal(t, "SUP_IGU_DEF", rows[1][scenarioCol])
	assert.Equal(t, "STOCK_CRITICO", rows[1][alertCol])
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, FormatComplete)

	totals := map[domain.Section]domain.SectionTotals{
		domain.SectionNursery:  {Articles: 2, Units: 265, Amount: 265000},
		domain.SectionInterior: {Articles: 1, Units: 3, Amount: 30},
	}
	path, err := w.WriteSummary(15, monday, totals, correction.Summarize(sampleLines()))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "interior", rows[1][0])
	assert.Equal(t, "vivero", rows[2][0])
	assert.Equal(t, "265", rows[2][3])
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatOrder, ParseFormat("order"))
	assert.Equal(t, FormatComplete, ParseFormat("complete"))
	assert.Equal(t, FormatComplete, ParseFormat(""))
}
