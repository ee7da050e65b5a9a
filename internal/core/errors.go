package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before touching the store.
	ErrValidation = errors.New("required field missing")

	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicatePhone is returned by CreateLead when a stored lead already
	// carries the same normalized phone.
	ErrDuplicatePhone = errors.New("lead with this phone number already exists")

	// ErrInvalidSheetLink is returned when a link does not point at a spreadsheet.
	ErrInvalidSheetLink = errors.New("invalid sheet link")

	// ErrUnparseableSheetLink is returned when no sheet id can be extracted.
	ErrUnparseableSheetLink = errors.New("could not parse sheet link")

	// ErrIngestFailed wraps any failure inside the ingestion transaction.
	// Nothing from the batch is persisted when it is returned.
	ErrIngestFailed = errors.New("lead ingestion failed")
)

// SourceError reports a failed remote sheet download.
type SourceError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sheet fetch failed: %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("sheet fetch failed: %s: %v", e.URL, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
