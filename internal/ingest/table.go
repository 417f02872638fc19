package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when no file exists for a dataset.
var ErrNotFound = errors.New("input file not found")

var extensions = []string{".xlsx", ".csv"}

// findFile looks for <dir>/<base>.xlsx then <dir>/<base>.csv.
func findFile(dir, base string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s.{xlsx,csv} in %s", ErrNotFound, base, dir)
}

// readTable returns every row of a CSV file or of the first sheet of an
// XLSX workbook, header included.
func readTable(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv", ".txt":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported file type %s", path)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	// Raw values: numbers are not run through the cell's display format.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	return records, nil
}

// detectDelimiter picks ';' when the header uses it, as spreadsheets in a
// Spanish locale export that way.
func detectDelimiter(data []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if scanner.Scan() {
		header := scanner.Text()
		if strings.Count(header, ";") > strings.Count(header, ",") {
			return ';'
		}
	}
	return ','
}

// column describes one logical field and the header names accepted for it.
type column struct {
	name     string
	aliases  []string
	required bool
}

// mapHeader resolves the position of every column. Header names are
// compared after folding case, accents and separators.
func mapHeader(dataset string, header []string, cols []column) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := foldHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	out := make(map[string]int, len(cols))
	for _, c := range cols {
		found := false
		for _, alias := range append([]string{c.name}, c.aliases...) {
			if i, ok := index[foldHeader(alias)]; ok {
				out[c.name] = i
				found = true
				break
			}
		}
		if !found && c.required {
			return nil, fmt.Errorf("%s: missing column %q (header: %v)", dataset, c.name, header)
		}
	}
	return out, nil
}

func foldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.TrimSpace(out))
	return strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(out)
}

// localizedNumbers reports whether numbers in the file are written by hand
// or exported as text in the store's locale. XLSX cells are read raw.
func localizedNumbers(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return false
	default:
		return true
	}
}

// row gives typed access to one record.
type row struct {
	dataset   string
	line      int
	cells     []string
	cols      map[string]int
	localized bool
}

func (r row) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r row) num(name string) (float64, error) {
	v, err := parseNumber(r.str(name), r.localized)
	if err != nil {
		return 0, fmt.Errorf("%s row %d: column %s: %w", r.dataset, r.line, name, err)
	}
	return v, nil
}

func (r row) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// thousandsOnly matches "1.500" or "12.345.678": dots grouping three digits
// and no decimal comma.
var thousandsOnly = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+$`)

// parseNumber accepts "1234.5", "1.234,5", "1234,5", "12 €" and "". With
// localized set, a dot followed by groups of three digits is a thousands
// separator, so "1.500" is 1500. Empty cells exported as "nan" read as
// blank; infinities are rejected.
func parseNumber(raw string, localized bool) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if s == "" || s == "-" {
		return 0, nil
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	case localized && thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	switch {
	case math.IsNaN(v):
		return 0, nil
	case math.IsInf(v, 0):
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01-02-06",
	time.RFC3339,
}

// parseDate accepts the usual layouts and Excel serial dates.
func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
