package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ingestLockKey is the advisory lock key shared by all bulk ingestions.
const ingestLockKey int64 = 0x6c656164 // "lead"

// LeadStore opens ingestion transactions.
type LeadStore interface {
	Begin(ctx context.Context) (IngestTx, error)
}

// IngestTx is the transactional view a bulk ingestion needs.
// Rollback after Commit is a no-op.
type IngestTx interface {
	LockIngestion(ctx context.Context) error
	ExistingPhones(ctx context.Context) ([]string, error)
	InsertLead(ctx context.Context, lead NormalizedLead) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// PgLeadStore is a LeadStore backed by a pgx pool.
type PgLeadStore struct {
	pool *pgxpool.Pool
}

// NewPgLeadStore returns a LeadStore over pool.
func NewPgLeadStore(pool *pgxpool.Pool) *PgLeadStore {
	return &PgLeadStore{pool: pool}
}

// Begin starts a READ COMMITTED transaction.
func (s *PgLeadStore) Begin(ctx context.Context) (IngestTx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &pgIngestTx{tx: tx}, nil
}

type pgIngestTx struct {
	tx pgx.Tx
}

func (t *pgIngestTx) LockIngestion(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", ingestLockKey)
	return err
}

func (t *pgIngestTx) ExistingPhones(ctx context.Context) ([]string, error) {
	rows, err := t.tx.Query(ctx, "SELECT phone FROM leads WHERE phone IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("query phones: %w", err)
	}
	phones, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan phones: %w", err)
	}
	return phones, nil
}

const insertLeadSQL = `
INSERT INTO leads (
	full_name, email, phone, alt_number, notes, deemat_account_name,
	profession, state_name, capital, segment, team_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (t *pgIngestTx) InsertLead(ctx context.Context, l NormalizedLead) error {
	_, err := t.tx.Exec(ctx, insertLeadSQL,
		l.FullName, l.Email, l.Phone, l.AltNumber, l.Notes, l.DeematAccountName,
		l.Profession, l.StateName, l.Capital, l.Segment, l.TeamID,
	)
	return err
}

func (t *pgIngestTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgIngestTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
