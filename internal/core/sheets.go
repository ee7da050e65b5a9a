package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/leadcrm/internal/logging"
	"github.com/cenkalti/backoff/v4"
)

// DefaultSheetsBaseURL is the spreadsheet host used for CSV exports.
const DefaultSheetsBaseURL = "https://docs.google.com/spreadsheets"

const sheetLinkMarker = "docs.google.com/spreadsheets"

var sheetIDPattern = regexp.MustCompile(`/d/(.*?)/`)

// SheetSource downloads a shared spreadsheet as CSV.
type SheetSource struct {
	Client      *http.Client
	BaseURL     string
	MaxAttempts int
	MaxBytes    int64

	// InitialInterval is the first retry delay (default: 500ms).
	InitialInterval time.Duration
}

// NewSheetSource returns a source exporting from baseURL. Each attempt is
// bounded by timeout.
func NewSheetSource(baseURL string, timeout time.Duration, maxAttempts int, maxBytes int64) *SheetSource {
	if baseURL == "" {
		baseURL = DefaultSheetsBaseURL
	}
	return &SheetSource{
		Client:      &http.Client{Timeout: timeout},
		BaseURL:     strings.TrimRight(baseURL, "/"),
		MaxAttempts: maxAttempts,
		MaxBytes:    maxBytes,
	}
}

// ExtractSheetID returns the spreadsheet id embedded in a share link.
func ExtractSheetID(link string) (string, error) {
	if !strings.Contains(link, sheetLinkMarker) {
		return "", ErrInvalidSheetLink
	}
	m := sheetIDPattern.FindStringSubmatch(link)
	if m == nil || m[1] == "" {
		return "", ErrUnparseableSheetLink
	}
	return m[1], nil
}

// ExportURL builds the CSV export URL for a sheet id.
func (s *SheetSource) ExportURL(id string) string {
	return fmt.Sprintf("%s/d/%s/export?format=csv", s.BaseURL, url.PathEscape(id))
}

// Fetch downloads the sheet behind link as CSV. Network errors, 5xx and 429
// responses are retried with exponential backoff; other failures are final.
func (s *SheetSource) Fetch(ctx context.Context, link string) ([]byte, error) {
	id, err := ExtractSheetID(link)
	if err != nil {
		return nil, err
	}
	exportURL := s.ExportURL(id)
	logger := logging.WithFields(ctx, "sheet_id", id)

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		data, err := s.get(ctx, exportURL)
		if err != nil {
			var srcErr *SourceError
			if errors.As(err, &srcErr) && !retryableStatus(srcErr.StatusCode) {
				return backoff.Permanent(err)
			}
			logger.Warn("sheet fetch attempt failed", "attempt", attempt, "error", err)
			return err
		}
		body = data
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(s.newBackoff(), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *SheetSource) newBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if s.InitialInterval > 0 {
		bo.InitialInterval = s.InitialInterval
	}
	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(bo, uint64(attempts-1))
}

func (s *SheetSource) get(ctx context.Context, exportURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, backoff.Permanent(&SourceError{URL: exportURL, Err: err})
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &SourceError{URL: exportURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &SourceError{URL: exportURL, StatusCode: resp.StatusCode}
	}

	reader := io.Reader(resp.Body)
	if s.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, s.MaxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &SourceError{URL: exportURL, Err: err}
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, backoff.Permanent(&SourceError{
			URL: exportURL,
			Err: fmt.Errorf("file too large: exceeds %d bytes", s.MaxBytes),
		})
	}
	return data, nil
}

// retryableStatus reports whether a response status is worth retrying.
// Zero means no response was received.
func retryableStatus(code int) bool {
	return code == 0 || code == http.StatusTooManyRequests || code >= 500
}
