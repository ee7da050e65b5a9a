package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/JonMunkholm/leadcrm/internal/core"
	"github.com/JonMunkholm/leadcrm/internal/logging"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

const sheetRequestLimit = 64 << 10

const msgUploadSuccess = "Leads uploaded successfully (duplicates skipped)"

// UploadResponse is the body returned after a successful import.
type UploadResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports database reachability and import slot usage.
type HealthResponse struct {
	Status  string                   `json:"status"`
	Uploads core.UploadLimiterStatus `json:"uploads"`
}

// handleUploadLeads imports the CSV sent in the "file" form field.
func (s *Server) handleUploadLeads(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to upload leads"})
		return
	}

	logging.FromContext(r.Context()).Info("lead file received",
		"filename", header.Filename,
		"size", header.Size,
	)

	if _, err := s.service.ImportLeadsCSV(r.Context(), data); err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to upload leads"})
		return
	}
	writeJSONStatus(w, http.StatusCreated, UploadResponse{Message: msgUploadSuccess})
}

// handleUploadSheet imports the spreadsheet behind a shared link.
func (s *Server) handleUploadSheet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SheetLink string `json:"sheetLink"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, sheetRequestLimit)
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid Google Sheets link")
		return
	}

	if _, err := s.service.ImportLeadsFromSheet(r.Context(), body.SheetLink); err != nil {
		fallback := "Failed to process Google Sheets link"
		var srcErr *core.SourceError
		if errors.As(err, &srcErr) || errors.Is(err, core.ErrIngestFailed) {
			fallback = "Failed to upload leads from Google Sheets"
		}
		s.respondError(w, r, err, failure{fallback: fallback})
		return
	}
	writeJSONStatus(w, http.StatusCreated, UploadResponse{Message: msgUploadSuccess})
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Uploads: s.service.Limiter().Status(),
	}

	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		resp.Status = "unavailable"
		writeJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, resp)
}
