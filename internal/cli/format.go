// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"strconv"
	"strings"
)

// FormatValue formats an allocation value with comma separators and two
// decimals. e.g., 1234567.5 -> "1,234,567.50"
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		// Beyond int64; leave ungrouped.
		return strconv.FormatFloat(v, 'f', 2, 64)
	}

	out := FormatNumber(n) + "." + frac
	if neg && out != "0.00" {
		out = "-" + out
	}
	return out
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatVariance renders a variance string for display: a sign for
// positive values and a percent suffix. e.g., "25.00" -> "+25.00%"
func FormatVariance(variance string) string {
	switch {
	case variance == "" || variance == "0.00":
		return "0.00%"
	case strings.HasPrefix(variance, "-"):
		return variance + "%"
	default:
		return "+" + variance + "%"
	}
}

// FormatDelta formats the difference between a value and its baseline with
// an explicit sign.
func FormatDelta(current, baseline float64) string {
	delta := current - baseline
	s := FormatValue(delta)
	if s == "0.00" || strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}

// VarianceSign returns -1, 0 or 1 for a variance string.
func VarianceSign(variance string) int {
	switch {
	case variance == "" || variance == "0.00":
		return 0
	case strings.HasPrefix(variance, "-"):
		return -1
	default:
		return 1
	}
}
