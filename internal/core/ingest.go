package core

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/JonMunkholm/leadcrm/internal/logging"
	"github.com/google/uuid"
)

// RawRow maps a column label to its cell value for one input row.
type RawRow map[string]string

// PhoneSet holds normalized phone numbers.
type PhoneSet map[string]struct{}

// Has reports whether the normalized phone is in the set.
func (s PhoneSet) Has(phone string) bool {
	_, ok := s[phone]
	return ok
}

// Add inserts a normalized phone.
func (s PhoneSet) Add(phone string) {
	s[phone] = struct{}{}
}

// NormalizePhone strips every character that is not an ASCII digit.
// No length or prefix checks are applied.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizedLead is a row that passed field resolution and is ready to insert.
type NormalizedLead struct {
	FullName          string
	Email             string
	Phone             string
	AltNumber         string
	Notes             string
	DeematAccountName string
	Profession        string
	StateName         string
	Capital           string
	Segment           string
	TeamID            *string
}

// fieldRule binds a lead field to the column labels it may arrive under.
// Labels are tried in order; the first non-empty value wins.
type fieldRule struct {
	labels []string
	set    func(*NormalizedLead, string)
}

var fieldRules = []fieldRule{
	{[]string{"Full Name", "fullName"}, func(l *NormalizedLead, v string) { l.FullName = v }},
	{[]string{"Email", "email"}, func(l *NormalizedLead, v string) { l.Email = v }},
	{[]string{"Phone", "phone"}, func(l *NormalizedLead, v string) { l.Phone = NormalizePhone(v) }},
	{[]string{"Alternate Number", "altNumber"}, func(l *NormalizedLead, v string) { l.AltNumber = v }},
	{[]string{"Notes", "notes"}, func(l *NormalizedLead, v string) { l.Notes = v }},
	{[]string{"Deemat Account Name", "deematAccountName"}, func(l *NormalizedLead, v string) { l.DeematAccountName = v }},
	{[]string{"Profession", "profession"}, func(l *NormalizedLead, v string) { l.Profession = v }},
	{[]string{"State Name", "stateName"}, func(l *NormalizedLead, v string) { l.StateName = v }},
	{[]string{"Capital", "capital"}, func(l *NormalizedLead, v string) { l.Capital = v }},
	{[]string{"Segment", "segment"}, func(l *NormalizedLead, v string) { l.Segment = v }},
	{[]string{"Team ID", "team_id", "teamId"}, func(l *NormalizedLead, v string) { l.TeamID = nullableID(v) }},
}

// pick returns the first non-empty value among labels.
func (r RawRow) pick(labels []string) string {
	for _, label := range labels {
		if v := r[label]; v != "" {
			return v
		}
	}
	return ""
}

// nullableID returns nil for blank or whitespace-only identifiers.
func nullableID(v string) *string {
	v = strings.TrimFunc(v, unicode.IsSpace)
	if v == "" {
		return nil
	}
	return &v
}

// SkipReason explains why a row was not inserted.
type SkipReason int

const (
	NotSkipped SkipReason = iota
	SkipMissingField
	SkipExistingPhone
	SkipBatchDuplicate
)

func (r SkipReason) String() string {
	switch r {
	case NotSkipped:
		return "accepted"
	case SkipMissingField:
		return "missing_field"
	case SkipExistingPhone:
		return "existing_phone"
	case SkipBatchDuplicate:
		return "batch_duplicate"
	default:
		return fmt.Sprintf("SkipReason(%d)", int(r))
	}
}

// RowOutcome is the decision for one input row. Lead is set when Accepted.
type RowOutcome struct {
	Lead   NormalizedLead
	Reason SkipReason
}

// Accepted reports whether the row should be inserted.
func (o RowOutcome) Accepted() bool {
	return o.Reason == NotSkipped
}

// IngestResult summarizes a committed ingestion.
type IngestResult struct {
	Total            int
	Inserted         int
	SkippedInvalid   int
	SkippedDuplicate int
}

// Ingestor turns raw rows into stored leads, suppressing duplicates by
// normalized phone and inserting a batch all-or-nothing.
type Ingestor struct {
	// Serialize takes a transaction-scoped lock before the phone snapshot so
	// two ingestions cannot interleave.
	Serialize bool
}

// ResolveRow extracts and normalizes the lead fields of a single row and
// applies required-field gating. Duplicate checks are not done here.
func (in *Ingestor) ResolveRow(row RawRow) RowOutcome {
	var lead NormalizedLead
	for _, rule := range fieldRules {
		rule.set(&lead, row.pick(rule.labels))
	}

	if lead.FullName == "" || lead.Email == "" || lead.Phone == "" {
		return RowOutcome{Reason: SkipMissingField}
	}
	return RowOutcome{Lead: lead}
}

// Classify decides every row in order against the existing phone snapshot.
// The first accepted occurrence of a phone wins; later ones are batch
// duplicates. existing is not modified.
func (in *Ingestor) Classify(rows []RawRow, existing PhoneSet) []RowOutcome {
	seen := make(PhoneSet)
	outcomes := make([]RowOutcome, len(rows))
	for i, row := range rows {
		outcomes[i] = classifyRow(in.ResolveRow(row), existing, seen)
	}
	return outcomes
}

// classifyRow applies the duplicate checks to a resolved row and records
// accepted phones in seen.
func classifyRow(out RowOutcome, existing, seen PhoneSet) RowOutcome {
	if !out.Accepted() {
		return out
	}
	phone := out.Lead.Phone
	switch {
	case existing.Has(phone):
		return RowOutcome{Reason: SkipExistingPhone}
	case seen.Has(phone):
		return RowOutcome{Reason: SkipBatchDuplicate}
	}
	seen.Add(phone)
	return out
}

// Ingest stores every accepted row in one transaction. Either all accepted
// rows are committed or none are; any failure is returned wrapped in
// ErrIngestFailed.
func (in *Ingestor) Ingest(ctx context.Context, store LeadStore, rows []RawRow) (IngestResult, error) {
	logger := logging.WithFields(ctx, "ingest_id", uuid.NewString(), "rows", len(rows))
	start := time.Now()
	result := IngestResult{Total: len(rows)}

	tx, err := store.Begin(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: begin transaction: %w", ErrIngestFailed, err)
	}
	defer tx.Rollback(ctx)

	if in.Serialize {
		if err := tx.LockIngestion(ctx); err != nil {
			return IngestResult{}, fmt.Errorf("%w: lock ingestion: %w", ErrIngestFailed, err)
		}
	}

	stored, err := tx.ExistingPhones(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: read existing phones: %w", ErrIngestFailed, err)
	}
	existing := make(PhoneSet, len(stored))
	for _, p := range stored {
		if n := NormalizePhone(p); n != "" {
			existing.Add(n)
		}
	}

	seen := make(PhoneSet)
	for i, row := range rows {
		out := classifyRow(in.ResolveRow(row), existing, seen)
		switch out.Reason {
		case SkipMissingField:
			result.SkippedInvalid++
			continue
		case SkipExistingPhone, SkipBatchDuplicate:
			result.SkippedDuplicate++
			continue
		}

		if err := tx.InsertLead(ctx, out.Lead); err != nil {
			logger.Warn("lead insert failed, rolling back batch", "row", i+1, "error", err)
			return IngestResult{}, fmt.Errorf("%w: insert row %d: %w", ErrIngestFailed, i+1, err)
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return IngestResult{}, fmt.Errorf("%w: commit: %w", ErrIngestFailed, err)
	}

	recordIngestion(result)
	logger.Info("lead ingestion committed",
		"inserted", result.Inserted,
		"skipped_invalid", result.SkippedInvalid,
		"skipped_duplicate", result.SkippedDuplicate,
		"duration", time.Since(start),
	)
	return result, nil
}
