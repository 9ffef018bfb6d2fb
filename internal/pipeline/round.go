package pipeline

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Round2 rounds x to two decimal places. Exact halves round away from
// zero. Negative zero collapses to 0.
func Round2(x float64) float64 {
	r, _ := strconv.ParseFloat(fixed2(x), 64)
	if r == 0 {
		return 0
	}
	return r
}

// FormatVariance returns (value-base)/base*100 with exactly two decimals, or
// "0.00" when base is zero. A tiny negative variance that rounds to zero is
// reported as "0.00" rather than "-0.00".
func FormatVariance(value, base float64) string {
	if base == 0 {
		return "0.00"
	}
	s := fixed2((value - base) / base * 100)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

// fixed2 formats x with two decimals, choosing the nearer cent of the exact
// binary value and the larger magnitude on a tie. strconv rounds ties to
// even, which turns 1.125 into 1.12.
func fixed2(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) >= 1e21 {
		return strconv.FormatFloat(x, 'f', 2, 64)
	}

	// |x|*100 + 0.5 is exact at this precision for any |x| < 1e21.
	y := new(big.Float).SetPrec(256).SetFloat64(math.Abs(x))
	y.Mul(y, big.NewFloat(100))
	y.Add(y, big.NewFloat(0.5))
	cents, _ := y.Int(nil)

	digits := cents.String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	s := digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	if x < 0 {
		s = "-" + s
	}
	return s
}
