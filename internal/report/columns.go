package report

import (
	"strconv"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/numeric"
)

// Format selects the columns of the order files.
type Format string

const (
	// FormatComplete writes every intermediate value of the calculation.
	FormatComplete Format = "complete"
	// FormatOrder writes what the supplier needs, only lines with units.
	FormatOrder Format = "order"
)

// ParseFormat accepts "complete" and "order"; anything else is complete.
func ParseFormat(raw string) Format {
	if Format(raw) == FormatOrder {
		return FormatOrder
	}
	return FormatComplete
}

// field renders one column of an order line. text is used in CSV files and
// value in spreadsheets, where numbers stay numeric.
type field struct {
	header string
	width  float64
	text   func(l domain.OrderLine) string
	value  func(l domain.OrderLine) interface{}
}

func str(header string, width float64, get func(l domain.OrderLine) string) field {
	return field{
		header: header,
		width:  width,
		text:   get,
		value:  func(l domain.OrderLine) interface{} { return get(l) },
	}
}

func num(header string, width float64, decimals int32, get func(l domain.OrderLine) float64) field {
	return field{
		header: header,
		width:  width,
		text:   func(l domain.OrderLine) string { return numeric.FormatES(get(l), decimals) },
		value:  func(l domain.OrderLine) interface{} { return numeric.Round(get(l), decimals) },
	}
}

func units(header string, width float64, get func(l domain.OrderLine) int) field {
	return field{
		header: header,
		width:  width,
		text:   func(l domain.OrderLine) string { return strconv.Itoa(get(l)) },
		value:  func(l domain.OrderLine) interface{} { return get(l) },
	}
}

var orderFields = []field{
	str("Código artículo", 14, func(l domain.OrderLine) string { return l.Article.Code }),
	str("Nombre artículo", 40, func(l domain.OrderLine) string { return l.Article.Name }),
	units("Unidades", 11, func(l domain.OrderLine) int { return l.FinalOrder }),
	num("PVP", 10, 2, func(l domain.OrderLine) float64 { return l.Article.UnitPrice }),
	num("Coste pedido", 12, 2, func(l domain.OrderLine) float64 { return l.Amount() }),
	str("Proveedor", 27, func(l domain.OrderLine) string { return l.Article.Supplier }),
	str("Categoría", 10, func(l domain.OrderLine) string { return string(l.Article.Category) }),
}

var completeFields = []field{
	str("Código artículo", 14, func(l domain.OrderLine) string { return l.Article.Code }),
	str("Nombre artículo", 40, func(l domain.OrderLine) string { return l.Article.Name }),
	str("Sección", 14, func(l domain.OrderLine) string { return string(l.Article.Section) }),
	str("Categoría", 10, func(l domain.OrderLine) string { return string(l.Article.Category) }),
	str("Proveedor", 27, func(l domain.OrderLine) string { return l.Article.Supplier }),
	str("Acción aplicada", 18, func(l domain.OrderLine) string { return l.Article.Action }),
	num("PVP", 10, 2, func(l domain.OrderLine) float64 { return l.Article.UnitPrice }),
	num("Coste unitario", 12, 2, func(l domain.OrderLine) float64 { return l.Article.UnitCost }),
	num("Cuota", 9, 4, func(l domain.OrderLine) float64 { return l.Share }),
	num("Factor acción", 9, 2, func(l domain.OrderLine) float64 { return l.ActionFactor }),
	num("Objetivo semana", 13, 2, func(l domain.OrderLine) float64 { return l.TargetAmount }),
	num("Objetivo ajustado", 13, 2, func(l domain.OrderLine) float64 { return l.AdjustedTarget }),
	num("Ventas objetivo", 12, 2, func(l domain.OrderLine) float64 { return l.Demand }),
	num("Uds. objetivo", 11, 2, func(l domain.OrderLine) float64 { return l.DemandUnits }),
	num("Stock mínimo", 11, 2, func(l domain.OrderLine) float64 { return l.MinStock }),
	num("Stock acumulado", 12, 2, func(l domain.OrderLine) float64 { return l.AccumulatedStock }),
	units("Pedido teórico", 12, func(l domain.OrderLine) int { return l.TheoreticalOrder }),
	num("Stock real", 11, 2, func(l domain.OrderLine) float64 { return l.RealStock }),
	num("Uds. vtas. reales", 12, 2, func(l domain.OrderLine) float64 { return l.RealSales }),
	num("Uds. recibidas", 12, 2, func(l domain.OrderLine) float64 { return l.RealPurchases }),
	num("Stock mínimo objetivo", 14, 2, func(l domain.OrderLine) float64 { return l.StockMinTarget }),
	num("Diferencia stock", 12, 2, func(l domain.OrderLine) float64 { return l.StockGap }),
	units("Pedido corregido stock", 14, func(l domain.OrderLine) int { return l.CorrectedOrder }),
	units("Tendencia consumo", 12, func(l domain.OrderLine) int { return l.TrendIncrement }),
	units("Pedido final", 12, func(l domain.OrderLine) int { return l.FinalOrder }),
	num("Coste pedido", 12, 2, func(l domain.OrderLine) float64 { return l.Amount() }),
	str("Escenario", 14, func(l domain.OrderLine) string { return l.Scenario }),
	str("Motivo", 36, func(l domain.OrderLine) string { return l.Reason }),
	str("Alertas", 24, func(l domain.OrderLine) string { return domain.JoinAlerts(l.Alerts) }),
	str("Nota", 30, func(l domain.OrderLine) string { return l.Note }),
}

func fieldsFor(f Format) []field {
	if f == FormatOrder {
		return orderFields
	}
	return completeFields
}

// selectLines drops lines without units from the short format.
func selectLines(f Format, lines []domain.OrderLine) []domain.OrderLine {
	if f != FormatOrder {
		return lines
	}
	out := make([]domain.OrderLine, 0, len(lines))
	for _, l := range lines {
		if l.FinalOrder > 0 {
			out = append(out, l)
		}
	}
	return out
}
