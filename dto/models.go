package dto

import "time"

type RecordStatus string

const (
	StatusFound   RecordStatus = "Found"
	StatusMissing RecordStatus = "MISSING"
)

// MonthKey identifies one billing period. It is the natural key used when
// merging records across pages and documents.
type MonthKey struct {
	Year  int
	Month int
}

// BillRecord holds the figures extracted for one billing month.
// KWh and RM are 0.0 when the value was not found on the page, not when the
// bill genuinely reads zero.
type BillRecord struct {
	Year     int          `json:"year"`
	Month    string       `json:"month"`
	MonthNum int          `json:"month_num"`
	KWh      float64      `json:"kwh"`
	RM       float64      `json:"rm"`
	Status   RecordStatus `json:"status"`
}

func (r BillRecord) Key() MonthKey {
	return MonthKey{Year: r.Year, Month: r.MonthNum}
}

// MonthAbbrev returns the three-letter label for a 1-12 month number.
func MonthAbbrev(month int) string {
	return time.Month(month).String()[:3]
}

// DocumentResult is the outcome of reconciling one uploaded document.
type DocumentResult struct {
	Filename   string       `json:"filename"`
	Records    []BillRecord `json:"records"`
	PaymentRef string       `json:"payment_ref,omitempty"`
}

// Summary carries the headline metrics computed over Found records only.
type Summary struct {
	TotalKWh    float64 `json:"total_kwh"`
	TotalRM     float64 `json:"total_rm"`
	AvgRMPerKWh float64 `json:"avg_rm_per_kwh"`
}
