package main

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/pipeline"
)

func testContext(t *testing.T, args ...string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	a := &cli.App{Writer: &buf}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.Bool("yes", false, "")
	require.NoError(t, set.Parse(args))
	return cli.NewContext(a, set, nil), &buf
}

func TestPrintResult(t *testing.T) {
	c, buf := testContext(t)
	printResult(c, &pipeline.Result{
		Week:   11,
		Period: "P1",
		Monday: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Sections: map[domain.Section]domain.SectionTotals{
			domain.SectionNursery: {Articles: 2, Units: 391, Amount: 1955},
		},
		Advisories: pipeline.Advisories{"no sales history, section targets are not split by article"},
		Files:      []string{"out/pedido_semana_11_vivero_2025-03-10.xlsx"},
	})

	out := buf.String()
	assert.Contains(t, out, "Week 11 (P1), monday 2025-03-10")
	assert.Contains(t, out, "vivero")
	assert.Contains(t, out, "391")
	assert.Contains(t, out, "1.955")
	assert.Contains(t, out, "! no sales history")
	assert.Contains(t, out, "pedido_semana_11_vivero_2025-03-10.xlsx")
}

func TestResetNeedsYes(t *testing.T) {
	c, _ := testContext(t)
	err := resetState(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestFromContextWithoutApp(t *testing.T) {
	c, _ := testContext(t, "--yes")
	_, err := fromContext(c)
	assert.Error(t, err)
}
