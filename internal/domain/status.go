package domain

import "strings"

// AlertCode flags an order line for human review. Alerts never change the
// order itself.
type AlertCode string

const (
	AlertStockCritical      AlertCode = "STOCK_CRITICO"
	AlertSignificantChanges AlertCode = "CAMBIOS_SIGNIFICATIVOS"
	AlertNoSales            AlertCode = "SIN_VENTAS"
	AlertLowStock           AlertCode = "STOCK_BAJO"
)

var alertLabels = map[AlertCode]string{
	AlertStockCritical:      "Real stock is zero or negative",
	AlertSignificantChanges: "Corrected order differs from theoretical by more than the threshold",
	AlertNoSales:            "Stock on hand but no sales this week",
	AlertLowStock:           "Real stock at or below the low-stock threshold",
}

// AlertLabel returns a human-readable description of an alert code.
func AlertLabel(code AlertCode) string {
	if label, ok := alertLabels[code]; ok {
		return label
	}

	return string(code)
}

// ParseAlert returns the alert code for a given label (case-insensitive).
func ParseAlert(raw string) (AlertCode, bool) {
	code := AlertCode(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := alertLabels[code]

	return code, ok
}

// JoinAlerts renders alerts as a comma separated list.
func JoinAlerts(alerts []AlertCode) string {
	parts := make([]string, len(alerts))
	for i, a := range alerts {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}
