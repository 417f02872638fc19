package abc

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type actionRule struct {
	pattern string
	factor  float64
}

// Checked in order; the first substring hit wins.
var reductionRules = []actionRule{
	{"reducir compras 70%", 0.50},
	{"reducir compras 50%", 0.50},
	{"reducir compras 40%", 0.60},
	{"reducir compras 35%", 0.65},
	{"reducir compras 30%", 0.65},
	{"reducir compras 25%", 0.75},
	{"reducir compras 20%", 0.80},
	{"reducir compras 15%", 0.85},
	{"aplicar descuento 20%", 0.80},
	{"implementar promocion del 15%", 0.85},
}

var keepRules = []string{
	"mantener el nivel de compras actual",
	"mantener nivel de compras",
}

var increaseRules = []actionRule{
	{"aumentar compras 50%", 1.50},
	{"aumentar compras 40%", 1.40},
	{"incrementar compras 30%", 1.30},
	{"aumentar compras 30%", 1.30},
	{"aumentar compras 25%", 1.25},
	{"incrementar compras 20%", 1.20},
	{"aumentar compras 15%", 1.15},
}

var discountPattern = regexp.MustCompile(`aplicar descuento\s*(\d+(?:[.,]\d+)?)%`)

// ActionFactor turns the suggested action written by the ABC classification
// into a multiplier of the article's demand: 0 drops the article, 1 keeps
// the computed demand, above 1 buys more. Unknown text keeps demand as is.
func ActionFactor(action string) float64 {
	text := fold(action)
	if text == "" {
		return 1.0
	}

	if strings.Contains(text, "eliminar del catalogo") {
		return 0.0
	}
	for _, r := range reductionRules {
		if strings.Contains(text, r.pattern) {
			return r.factor
		}
	}
	if m := discountPattern.FindStringSubmatch(text); m != nil {
		if pct, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			return 1.0 - pct/100.0
		}
	}
	for _, p := range keepRules {
		if strings.Contains(text, p) {
			return 1.0
		}
	}
	for _, r := range increaseRules {
		if strings.Contains(text, r.pattern) {
			return r.factor
		}
	}
	return 1.0
}

// fold lower-cases and strips accents so "Catálogo" matches "catalogo".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
