package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/leadcrm/internal/logging"
)

// DefaultUploadTimeout is the maximum duration for one lead import.
const DefaultUploadTimeout = 5 * time.Minute

// Service provides the lead CRM business logic.
type Service struct {
	db       DBTX
	store    LeadStore
	ingestor *Ingestor
	sheets   *SheetSource
	limiter  *UploadLimiter
	validate *Validator

	uploadTimeout time.Duration
}

// ServiceOptions tunes imports. Zero values select defaults.
type ServiceOptions struct {
	Sheets        *SheetSource
	Limiter       *UploadLimiter
	UploadTimeout time.Duration

	// SerializeIngestion makes bulk imports take an advisory lock.
	SerializeIngestion bool
}

// NewService creates a Service. db serves the CRUD queries and store the
// bulk import transactions; a *pgxpool.Pool can back both.
func NewService(db DBTX, store LeadStore, opts ServiceOptions) *Service {
	if opts.Sheets == nil {
		opts.Sheets = NewSheetSource(DefaultSheetsBaseURL, 30*time.Second, 3, 0)
	}
	if opts.Limiter == nil {
		opts.Limiter = NewUploadLimiter(0, 0)
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}

	return &Service{
		db:            db,
		store:         store,
		ingestor:      &Ingestor{Serialize: opts.SerializeIngestion},
		sheets:        opts.Sheets,
		limiter:       opts.Limiter,
		validate:      NewValidator(),
		uploadTimeout: opts.UploadTimeout,
	}
}

// Limiter returns the import limiter, for shutdown drain and health output.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// ImportLeadsCSV ingests an uploaded CSV file.
func (s *Service) ImportLeadsCSV(ctx context.Context, data []byte) (IngestResult, error) {
	result, err := s.runImport(ctx, SourceCSV, func(context.Context) ([]byte, error) {
		return data, nil
	})
	recordImport(SourceCSV, err)
	return result, err
}

// ImportLeadsFromSheet downloads a shared spreadsheet and ingests it.
// Link errors are reported before an import slot is taken.
func (s *Service) ImportLeadsFromSheet(ctx context.Context, link string) (IngestResult, error) {
	if _, err := ExtractSheetID(link); err != nil {
		return IngestResult{}, err
	}
	result, err := s.runImport(ctx, SourceSheet, func(ctx context.Context) ([]byte, error) {
		return s.sheets.Fetch(ctx, link)
	})
	recordImport(SourceSheet, err)
	return result, err
}

// runImport holds an import slot while loading, parsing and ingesting.
func (s *Service) runImport(ctx context.Context, source string, load func(context.Context) ([]byte, error)) (IngestResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return IngestResult{}, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	logger := logging.WithFields(ctx, "source", source)

	data, err := load(ctx)
	if err != nil {
		logger.Warn("lead import source failed", "error", err)
		return IngestResult{}, err
	}

	rows, err := ParseRows(data)
	if err != nil {
		logger.Warn("lead import parse failed", "error", err)
		return IngestResult{}, fmt.Errorf("%w: %w", ErrIngestFailed, err)
	}

	result, err := s.ingestor.Ingest(ctx, s.store, rows)
	if err != nil {
		logger.Error("lead import failed", "error", err)
		return IngestResult{}, err
	}

	logAudit(ctx, ActionLeadImport,
		"source", source,
		"rows", result.Total,
		"inserted", result.Inserted,
		"skipped", result.SkippedInvalid+result.SkippedDuplicate,
	)
	return result, nil
}
