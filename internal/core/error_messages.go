package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// # Error Codes Reference
//
// Errors returned to clients carry a code so support staff can find the
// cause quickly. Domain errors are matched by identity first; anything else
// falls back to case-insensitive message patterns.
//
// # Lead Errors (LEAD001-LEAD099)
//
//	LEAD001 - Duplicate phone: Lead with this phone number already exists
//	          Action: Search for the existing lead instead of adding a new one
//	          Match: ErrDuplicatePhone
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL003 - Required field: Required field is empty
//	         Action: Fill in every required field
//	         Match: ErrValidation, "required field"
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Invalid link: Invalid Google Sheets link
//	         Action: Paste the share link of a Google spreadsheet
//	         Match: ErrInvalidSheetLink
//
//	SRC002 - Fetch failed: Could not download the spreadsheet
//	         Action: Make sure the sheet is shared with anyone who has the link
//	         Match: *SourceError
//
//	SRC003 - Unparseable link: Could not parse Google Sheets link
//	         Action: Use a link of the form .../spreadsheets/d/<id>/edit
//	         Match: ErrUnparseableSheetLink
//
// # Ingestion and Upload Errors
//
//	ING001 - Ingestion failed: No leads were saved
//	         Action: Fix the file and upload it again
//	         Match: ErrIngestFailed
//
//	UPL002 - System busy: Too many uploads in progress
//	         Action: Please wait a moment and try again
//	         Match: ErrTooManyUploads
//
//	NF001 - Not found: The record does not exist
//	        Action: Refresh the page and try again
//	        Match: ErrNotFound
//
// # Database Errors (DB001-DB099)
//
//	DB002 - Unique constraint: This value must be unique but already exists
//	DB003 - Foreign key: Referenced record does not exist
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// When a user reports ERR000, check the application logs for the original
// error.

import (
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgDuplicatePhone = UserMessage{
		Message: "Lead with this phone number already exists",
		Action:  "Search for the existing lead instead of adding a new one",
		Code:    "LEAD001",
	}
	msgRequired = UserMessage{
		Message: "Required field is empty",
		Action:  "Fill in every required field",
		Code:    "VAL003",
	}
	msgInvalidSheetLink = UserMessage{
		Message: "Invalid Google Sheets link",
		Action:  "Paste the share link of a Google spreadsheet",
		Code:    "SRC001",
	}
	msgSheetFetch = UserMessage{
		Message: "Could not download the spreadsheet",
		Action:  "Make sure the sheet is shared with anyone who has the link",
		Code:    "SRC002",
	}
	msgUnparseableSheetLink = UserMessage{
		Message: "Could not parse Google Sheets link",
		Action:  "Use a link of the form .../spreadsheets/d/<id>/edit",
		Code:    "SRC003",
	}
	msgIngestFailed = UserMessage{
		Message: "No leads were saved",
		Action:  "Fix the file and upload it again",
		Code:    "ING001",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgNotFound = UserMessage{
		Message: "The record does not exist",
		Action:  "Refresh the page and try again",
		Code:    "NF001",
	}
)

// sentinelMessages is checked in order with errors.Is. ErrIngestFailed is
// matched separately, after *SourceError, so a wrapped cause wins.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrDuplicatePhone, msgDuplicatePhone},
	{ErrValidation, msgRequired},
	{ErrInvalidSheetLink, msgInvalidSheetLink},
	{ErrUnparseableSheetLink, msgUnparseableSheetLink},
	{ErrTooManyUploads, msgBusy},
	{ErrNotFound, msgNotFound},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check that the team, location or user still exists",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "required field",
		msg:     msgRequired,
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("create lead: %w", ErrDuplicatePhone))
//	// msg.Code == "LEAD001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return msgSheetFetch
	}

	if errors.Is(err, ErrIngestFailed) {
		return msgIngestFailed
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
