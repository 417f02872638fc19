package ingest

import (
	"fmt"
	"time"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

// ABCRow is one article of the ABC classification file.
type ABCRow struct {
	Code     string
	Name     string
	Section  domain.Section
	Category domain.Category
	Action   string
}

// CostRow carries the prices of one article.
type CostRow struct {
	Code      string
	UnitCost  float64
	UnitPrice float64
	Supplier  string
}

// SalesRecord is one line of the sales history.
type SalesRecord struct {
	Code     string
	Date     time.Time
	Quantity float64
	Amount   float64
	Section  domain.Section
}

var abcColumns = []column{
	{name: "code", aliases: []string{"codigo", "articulo", "cod_articulo", "codigo_articulo"}, required: true},
	{name: "category", aliases: []string{"categoria", "clasificacion", "clase", "abc"}, required: true},
	{name: "name", aliases: []string{"nombre", "nombre_articulo", "descripcion", "denominacion"}},
	{name: "section", aliases: []string{"seccion", "familia_seccion"}},
	{name: "action", aliases: []string{"accion", "accion_sugerida", "recomendacion"}},
}

var costColumns = []column{
	{name: "code", aliases: []string{"codigo", "articulo", "cod_articulo", "codigo_articulo"}, required: true},
	{name: "unit_price", aliases: []string{"pvp", "precio", "precio_venta", "precio_unitario"}, required: true},
	{name: "unit_cost", aliases: []string{"coste", "coste_unitario", "coste_unidad", "precio_coste"}},
	{name: "supplier", aliases: []string{"proveedor"}},
}

var salesColumns = []column{
	{name: "code", aliases: []string{"codigo", "articulo", "cod_articulo", "codigo_articulo"}, required: true},
	{name: "date", aliases: []string{"fecha", "fecha_venta"}, required: true},
	{name: "amount", aliases: []string{"importe", "importe_neto", "total", "ventas"}, required: true},
	{name: "quantity", aliases: []string{"cantidad", "unidades", "uds"}},
	{name: "section", aliases: []string{"seccion"}},
}

var quantityColumns = []column{
	{name: "code", aliases: []string{"codigo", "articulo", "cod_articulo", "codigo_articulo"}, required: true},
	{name: "quantity", aliases: []string{"cantidad", "unidades", "uds", "stock", "existencias", "stock_real", "ventas", "compras", "recibido"}, required: true},
}

// table is the header-resolved content of one file.
type table struct {
	dataset string
	rows    []row
}

func loadTable(dataset, path string, cols []column) (*table, error) {
	records, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s must have header and at least one data row", dataset)
	}

	index, err := mapHeader(dataset, records[0], cols)
	if err != nil {
		return nil, err
	}

	localized := localizedNumbers(path)
	t := &table{dataset: dataset}
	for i, rec := range records[1:] {
		r := row{dataset: dataset, line: i + 2, cells: rec, cols: index, localized: localized}
		if r.blank() {
			continue
		}
		t.rows = append(t.rows, r)
	}
	return t, nil
}

// ReadABC loads the ABC classification. A row without section is placed by
// its code prefix. Rows with an unknown category or no section are not
// fatal: they are described in rejected and left out.
func ReadABC(path string, livePetFamilies []string) (rows []ABCRow, rejected []string, err error) {
	t, err := loadTable("ABC", path, abcColumns)
	if err != nil {
		return nil, nil, err
	}

	for _, r := range t.rows {
		code := domain.NormalizeCode(r.str("code"))
		if code == "" {
			return nil, nil, fmt.Errorf("ABC row %d: empty code", r.line)
		}
		category, err := domain.ParseCategory(r.str("category"))
		if err != nil {
			rejected = append(rejected, fmt.Sprintf("ABC row %d: %v", r.line, err))
			continue
		}

		section := domain.SectionForCode(code, livePetFamilies)
		if raw := r.str("section"); raw != "" {
			if section, err = domain.ParseSection(raw); err != nil {
				rejected = append(rejected, fmt.Sprintf("ABC row %d: %v", r.line, err))
				continue
			}
		}
		if section == "" {
			rejected = append(rejected, fmt.Sprintf("ABC row %d: article %s has no known section", r.line, code))
			continue
		}

		rows = append(rows, ABCRow{
			Code:     code,
			Name:     r.str("name"),
			Section:  section,
			Category: category,
			Action:   r.str("action"),
		})
	}
	return rows, rejected, nil
}

// ReadCosts loads unit cost and sale price per article.
func ReadCosts(path string) ([]CostRow, error) {
	t, err := loadTable("costs", path, costColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]CostRow, 0, len(t.rows))
	for _, r := range t.rows {
		code := domain.NormalizeCode(r.str("code"))
		if code == "" {
			return nil, fmt.Errorf("costs row %d: empty code", r.line)
		}
		price, err := r.num("unit_price")
		if err != nil {
			return nil, err
		}
		cost, err := r.num("unit_cost")
		if err != nil {
			return nil, err
		}
		rows = append(rows, CostRow{Code: code, UnitCost: cost, UnitPrice: price, Supplier: r.str("supplier")})
	}
	return rows, nil
}

// ReadSalesHistory loads the sales history. Sections come from the file or
// from the code prefix.
func ReadSalesHistory(path string, livePetFamilies []string) ([]SalesRecord, error) {
	t, err := loadTable("sales history", path, salesColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]SalesRecord, 0, len(t.rows))
	for _, r := range t.rows {
		code := domain.NormalizeCode(r.str("code"))
		if code == "" {
			continue
		}
		date, err := parseDate(r.str("date"))
		if err != nil {
			return nil, fmt.Errorf("sales history row %d: %w", r.line, err)
		}
		amount, err := r.num("amount")
		if err != nil {
			return nil, err
		}
		qty, err := r.num("quantity")
		if err != nil {
			return nil, err
		}

		section := domain.SectionForCode(code, livePetFamilies)
		if raw := r.str("section"); raw != "" {
			if parsed, err := domain.ParseSection(raw); err == nil {
				section = parsed
			}
		}

		rows = append(rows, SalesRecord{Code: code, Date: date, Quantity: qty, Amount: amount, Section: section})
	}
	return rows, nil
}

// ReadQuantities loads a code/quantity file. Repeated codes are summed.
func ReadQuantities(dataset, path string) (map[string]float64, error) {
	t, err := loadTable(dataset, path, quantityColumns)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(t.rows))
	for _, r := range t.rows {
		code := domain.NormalizeCode(r.str("code"))
		if code == "" {
			return nil, fmt.Errorf("%s row %d: empty code", dataset, r.line)
		}
		qty, err := r.num("quantity")
		if err != nil {
			return nil, err
		}
		out[code] += qty
	}
	return out, nil
}
