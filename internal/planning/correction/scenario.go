package correction

import (
	"fmt"
	"strings"
)

// SalesLevel compares real sales with the weekly target.
type SalesLevel string

// PurchaseLevel compares received purchases with the suggested order.
type PurchaseLevel string

// StockLevel compares real stock with the minimum stock target.
type StockLevel string

const (
	SalesAbove SalesLevel = "SUPERIOR"
	SalesEqual SalesLevel = "IGUAL"
	SalesBelow SalesLevel = "INFERIOR"

	PurchasesExcess   PurchaseLevel = "EXCESO"
	PurchasesEqual    PurchaseLevel = "IGUAL"
	PurchasesShortage PurchaseLevel = "DEFECTO"

	StockSurplus StockLevel = "EXCEDENTE"
	StockOptimal StockLevel = "OPTIMO"
	StockDeficit StockLevel = "DEFICIT"
)

var (
	salesLevels    = []SalesLevel{SalesAbove, SalesEqual, SalesBelow}
	purchaseLevels = []PurchaseLevel{PurchasesExcess, PurchasesEqual, PurchasesShortage}
	stockLevels    = []StockLevel{StockSurplus, StockOptimal, StockDeficit}
)

// Scenario is the diagnostic triple of one correction.
type Scenario struct {
	Sales     SalesLevel
	Purchases PurchaseLevel
	Stock     StockLevel
}

// Code renders the scenario as SSS_PPP_TTT using the first three letters of
// every level, e.g. SUP_IGU_DEF.
func (s Scenario) Code() string {
	return abbrev(string(s.Sales)) + "_" + abbrev(string(s.Purchases)) + "_" + abbrev(string(s.Stock))
}

func (s Scenario) String() string {
	return s.Code()
}

func abbrev(level string) string {
	if len(level) < 3 {
		return level
	}
	return level[:3]
}

// ParseScenario decodes a scenario code.
func ParseScenario(code string) (Scenario, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(code)), "_")
	if len(parts) != 3 {
		return Scenario{}, fmt.Errorf("invalid scenario code %q", code)
	}

	var s Scenario
	for _, l := range salesLevels {
		if abbrev(string(l)) == parts[0] {
			s.Sales = l
		}
	}
	for _, l := range purchaseLevels {
		if abbrev(string(l)) == parts[1] {
			s.Purchases = l
		}
	}
	for _, l := range stockLevels {
		if abbrev(string(l)) == parts[2] {
			s.Stock = l
		}
	}
	if s.Sales == "" || s.Purchases == "" || s.Stock == "" {
		return Scenario{}, fmt.Errorf("invalid scenario code %q", code)
	}
	return s, nil
}

// AllScenarios enumerates the 27 scenarios.
func AllScenarios() []Scenario {
	out := make([]Scenario, 0, len(salesLevels)*len(purchaseLevels)*len(stockLevels))
	for _, sl := range salesLevels {
		for _, pl := range purchaseLevels {
			for _, st := range stockLevels {
				out = append(out, Scenario{Sales: sl, Purchases: pl, Stock: st})
			}
		}
	}
	return out
}

// Explanation describes the scenario for the buyer. Every valid scenario has
// its own text; an invalid one returns "".
func (s Scenario) Explanation() string {
	switch s.Code() {
	case "SUP_EXC_EXC":
		return "Sales above target and purchases above suggestion left surplus stock; the order is reduced by the surplus."
	case "SUP_EXC_OPT":
		return "Sales above target were covered by extra purchases; stock sits at the minimum and the order is kept."
	case "SUP_EXC_DEF":
		return "Sales above target outran even the extra purchases; the order is increased to restore minimum stock."
	case "SUP_IGU_EXC":
		return "Sales above target with purchases as suggested, yet stock is above the minimum; the order is reduced by the surplus."
	case "SUP_IGU_OPT":
		return "Sales above target with purchases as suggested; stock sits at the minimum and the order is kept."
	case "SUP_IGU_DEF":
		return "Sales above target consumed the suggested purchases; the order is increased to restore minimum stock."
	case "SUP_DEF_EXC":
		return "Sales above target and short purchases, but stock on hand still exceeds the minimum; the order is reduced by the surplus."
	case "SUP_DEF_OPT":
		return "Sales above target and short purchases left stock exactly at the minimum; the order is kept."
	case "SUP_DEF_DEF":
		return "Sales above target combined with short purchases caused a deficit; the order is increased to restore minimum stock."
	case "IGU_EXC_EXC":
		return "Sales on target but purchases above suggestion built surplus stock; the order is reduced by the surplus."
	case "IGU_EXC_OPT":
		return "Sales on target and extra purchases still left stock at the minimum; the order is kept."
	case "IGU_EXC_DEF":
		return "Sales on target and extra purchases, yet stock is below the minimum; the order is increased to restore it."
	case "IGU_IGU_EXC":
		return "Sales and purchases as planned, with stock above the minimum; the order is reduced by the surplus."
	case "IGU_IGU_OPT":
		return "Sales, purchases and stock all as planned; the order is kept."
	case "IGU_IGU_DEF":
		return "Sales and purchases as planned but stock below the minimum; the order is increased to restore it."
	case "IGU_DEF_EXC":
		return "Sales on target and short purchases, with stock still above the minimum; the order is reduced by the surplus."
	case "IGU_DEF_OPT":
		return "Sales on target and short purchases left stock at the minimum; the order is kept."
	case "IGU_DEF_DEF":
		return "Sales on target and short purchases caused a deficit; the order is increased to restore minimum stock."
	case "INF_EXC_EXC":
		return "Sales below target and purchases above suggestion built surplus stock; the order is reduced by the surplus."
	case "INF_EXC_OPT":
		return "Sales below target and extra purchases, with stock at the minimum; the order is kept."
	case "INF_EXC_DEF":
		return "Sales below target and extra purchases, yet stock is below the minimum; the order is increased to restore it."
	case "INF_IGU_EXC":
		return "Sales below target with purchases as suggested left surplus stock; the order is reduced by the surplus."
	case "INF_IGU_OPT":
		return "Sales below target with purchases as suggested, stock at the minimum; the order is kept."
	case "INF_IGU_DEF":
		return "Sales below target with purchases as suggested, yet stock is below the minimum; the order is increased to restore it."
	case "INF_DEF_EXC":
		return "Sales below target and short purchases, with stock above the minimum; the order is reduced by the surplus."
	case "INF_DEF_OPT":
		return "Sales below target and short purchases balanced out at the minimum stock; the order is kept."
	case "INF_DEF_DEF":
		return "Sales below target but short purchases caused a deficit; the order is increased to restore minimum stock."
	}
	return ""
}
