package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Prefer a full two-decimal amount, e.g. "1,036,378.47"
	twoDecimalRe = regexp.MustCompile(`[\d,.]*\d+\.\d{2}`)
	// Fallback for integers or malformed fragments
	digitRunRe = regexp.MustCompile(`[\d,.]+`)
)

// CleanAmount safely extracts the first valid number from a string.
// It never fails: adversarial OCR fragments yield 0.0.
func CleanAmount(raw string) float64 {
	if raw == "" {
		return 0.0
	}

	match := twoDecimalRe.FindString(raw)
	if match == "" {
		match = digitRunRe.FindString(raw)
	}
	if match == "" {
		return 0.0
	}

	var b strings.Builder
	for _, c := range match {
		if (c >= '0' && c <= '9') || c == '.' {
			b.WriteRune(c)
		}
	}
	clean := b.String()

	// Merge artifacts like "12.345.67": the last dot is the decimal separator
	if strings.Count(clean, ".") > 1 {
		parts := strings.Split(clean, ".")
		clean = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}

	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0.0
	}
	return value
}
