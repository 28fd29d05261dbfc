package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/hakimzulkifli/tnb-bill-extractor/dto"
)

// Bills issued outside this window are treated as extraction noise.
const (
	minBillYear = 2010
	maxBillYear = 2030
)

var (
	// Date patterns, most reliable first
	tempohBilRe = regexp.MustCompile(`(?i)Tempoh\s*Bil\s*:\s*.*?\s*(\d{2}[./-]\d{2}[./-]\d{4})`)
	headerRe    = regexp.MustCompile(`(?is)Tarikh\s*Bil(.*?)No\.\s*Invois`)
	dateTokenRe = regexp.MustCompile(`\d{2}[./-]\d{2}[./-]\d{4}`)

	// kWh patterns: current layout first, then the legacy row.
	// "kVVh" is a common Tesseract misread of "kWh".
	newKWhRe = regexp.MustCompile(`(?i)Jumlah\s*Penggunaan\s*Anda\s*\(([\d\s,.]+)\s*kWh\)`)
	oldKWhRe = regexp.MustCompile(`(?is)Kegunaan\s*(?:kWh|kVVh).*?([\d\s,.]+\d{2})`)

	// RM patterns: current layout, legacy layout, then the last labeled amount anywhere
	newRMRe    = regexp.MustCompile(`(?i)Caj\s*Semasa\s*(?:RM)?\s*([\d\s,.]+\d{2})`)
	oldRMRe    = regexp.MustCompile(`(?is)Jumlah\s*Perlu\s*Bayar.*?([\d\s,.]+\d{2})`)
	backupRMRe = regexp.MustCompile(`(?is)(?:Jumlah|Total|Caj).*?([\d\s,.]+\d{2})`)
)

// ExtractBillData extracts Year, Month, kWh and RM from raw page text.
// Returns nil when the page holds no usable billing data; absence is an
// expected outcome, not an error.
func ExtractBillData(text string) *dto.BillRecord {
	dt, ok := resolveBillingDate(text)
	if !ok || dt.Year() < minBillYear || dt.Year() > maxBillYear {
		return nil
	}

	kwh := extractKWh(text)
	rm := extractRM(text)

	// A date with no figures is not useful
	if kwh <= 0 && rm <= 0 {
		return nil
	}

	return &dto.BillRecord{
		Year:     dt.Year(),
		Month:    dt.Format("Jan"),
		MonthNum: int(dt.Month()),
		KWh:      kwh,
		RM:       rm,
		Status:   dto.StatusFound,
	}
}

// resolveBillingDate runs the date cascade: labeled "Tempoh Bil" line, then
// the Tarikh Bil / No. Invois header section, then any two dates in the text.
// A parse failure at one step falls through to the next.
func resolveBillingDate(text string) (time.Time, bool) {
	if m := tempohBilRe.FindStringSubmatch(text); len(m) > 1 {
		if dt, err := parsePeriodDate(m[1]); err == nil {
			return dt, true
		}
	}

	if m := headerRe.FindStringSubmatch(text); len(m) > 1 {
		dates := dateTokenRe.FindAllString(m[1], -1)
		if len(dates) >= 2 {
			// The second date in the header is the billing period end
			if dt, err := parsePeriodDate(dates[1]); err == nil {
				return dt, true
			}
		}
	}

	dates := dateTokenRe.FindAllString(text, -1)
	if len(dates) >= 2 {
		if dt, err := parsePeriodDate(dates[1]); err == nil {
			return dt, true
		}
	}

	return time.Time{}, false
}

func parsePeriodDate(raw string) (time.Time, error) {
	normalized := strings.NewReplacer("-", ".", "/", ".").Replace(raw)
	return time.Parse("02.01.2006", normalized)
}

func extractKWh(text string) float64 {
	if m := newKWhRe.FindStringSubmatch(text); len(m) > 1 {
		return CleanAmount(m[1])
	}
	if m := oldKWhRe.FindStringSubmatch(text); len(m) > 1 {
		return CleanAmount(m[1])
	}
	return 0.0
}

func extractRM(text string) float64 {
	if m := newRMRe.FindStringSubmatch(text); len(m) > 1 {
		if v := CleanAmount(m[1]); v > 0 {
			return v
		}
	}
	if m := oldRMRe.FindStringSubmatch(text); len(m) > 1 {
		if v := CleanAmount(m[1]); v > 0 {
			return v
		}
	}
	// Fallback for different layouts: take the last labeled amount
	if all := backupRMRe.FindAllStringSubmatch(text, -1); len(all) > 0 {
		return CleanAmount(all[len(all)-1][1])
	}
	return 0.0
}
