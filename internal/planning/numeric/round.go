package numeric

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// noisePlaces absorbs binary float noise (262.49999999999997) before a
// half-unit decision is made.
const noisePlaces = 9

var half = decimal.NewFromFloat(0.5)

// dec converts v, reading NaN and infinities as zero. decimal panics on them.
func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// RoundHalfUp rounds v to the nearest integer, with .5 going towards
// positive infinity (2.5 -> 3, -2.5 -> -2). Non-finite input gives 0.
func RoundHalfUp(v float64) int {
	d := dec(v).Round(noisePlaces)
	return int(d.Add(half).Floor().IntPart())
}

// Round rounds v to the given number of decimal places.
func Round(v float64, decimals int32) float64 {
	if decimals < 0 {
		decimals = 0
	}
	f, _ := dec(v).Round(decimals).Float64()
	return f
}

// Sum adds money amounts without accumulating float error.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(dec(v))
	}
	f, _ := total.Float64()
	return f
}

// FormatES formats a number using Spanish conventions: dot as thousands
// separator and comma as decimal separator. Trailing zero decimals are
// dropped. Example: 1234.5 (2 decimals) => "1.234,50"; 1000.0 => "1.000".
func FormatES(v float64, decimals int32) string {
	if decimals < 0 {
		decimals = 0
	}
	d := dec(v).Round(decimals)
	neg := d.IsNegative()
	d = d.Abs()

	fixed := d.StringFixed(decimals)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	prefix := ""
	if neg {
		prefix = "-"
	}
	if decimals == 0 || strings.Trim(fracPart, "0") == "" {
		return prefix + b.String()
	}
	return fmt.Sprintf("%s%s,%s", prefix, b.String(), fracPart)
}
