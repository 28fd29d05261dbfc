package dto

import (
	"mime/multipart"
)

// BillExtractionRequest represents the incoming multipart upload
type BillExtractionRequest struct {
	Files []*multipart.FileHeader `form:"files[]" binding:"required"`
}

// Validate performs basic validation on the request
func (r *BillExtractionRequest) Validate() error {
	if len(r.Files) == 0 {
		return ErrNoFiles
	}
	return nil
}
