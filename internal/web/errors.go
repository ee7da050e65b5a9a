package web

// errors.go provides unified error response handling for the web layer.
//
// Every failed request is:
//   - Logged with full technical details and the request ID (server-side)
//   - Answered with a JSON body carrying the handler's error line plus the
//     mapped user message, action and code from core.MapError
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err, failure{...})
//  3. statusFor picks the HTTP status from the error class
//  4. failure.text picks the "error" line for that class
//  5. Technical error + context is logged for correlation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/leadcrm/internal/core"
	"github.com/JonMunkholm/leadcrm/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

// failure holds the error lines a handler reports. Empty fields fall back
// to the mapped user message; fallback is used for every 5xx.
type failure struct {
	fallback   string
	validation string
	notFound   string
}

func (f failure) text(err error, status int, msg core.UserMessage) string {
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		return f.fallback
	case errors.Is(err, core.ErrValidation) && f.validation != "":
		return f.validation
	case errors.Is(err, core.ErrNotFound) && f.notFound != "":
		return f.notFound
	}
	return msg.Message
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrDuplicatePhone),
		errors.Is(err, core.ErrInvalidSheetLink),
		errors.Is(err, core.ErrUnparseableSheetLink):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and writes a JSON
// error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, f failure) {
	msg := core.MapError(err)
	status := statusFor(err)

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request error")
	} else {
		logger.Warn("request rejected")
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "15")
	}

	writeJSONStatus(w, status, ErrorResponse{
		Error:   f.text(err, status, msg),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeError writes a JSON error response with only the error line.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSONStatus(w, status, ErrorResponse{Error: message})
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
