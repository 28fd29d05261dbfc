package dto

import "errors"

// Custom errors
var (
	ErrNoFiles    = errors.New("at least one bill PDF is required")
	ErrNoBillData = errors.New("no valid TNB data patterns found in the uploaded files")
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Code     int      `json:"code"`
	Warnings []string `json:"warnings,omitempty"`
}

// BillExtractionResponse is the final response structure
type BillExtractionResponse struct {
	Documents     []DocumentResult `json:"documents"`
	Timeline      []BillRecord     `json:"timeline"`
	Summary       Summary          `json:"summary"`
	MissingMonths []string         `json:"missing_months"`
	Warnings      []string         `json:"warnings"`
	ProcessedAt   string           `json:"processed_at"`
}
