package core

import (
	"context"
	"errors"
	"sync"
)

var errInsertFailed = errors.New("insert failed")

// memStore is an in-memory LeadStore. Inserts become visible only on commit.
type memStore struct {
	mu        sync.Mutex
	phones    []string
	committed []NormalizedLead

	failOnInsert int // 1-based insert that fails within a transaction; 0 never
	beginErr     error
	phonesErr    error
	commitErr    error

	begins    int
	locks     int
	commits   int
	rollbacks int
}

func (s *memStore) Begin(ctx context.Context) (IngestTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begins++
	return &memTx{store: s}, nil
}

func (s *memStore) leads() []NormalizedLead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]NormalizedLead(nil), s.committed...)
}

type memTx struct {
	store   *memStore
	pending []NormalizedLead
	inserts int
	closed  bool
}

func (t *memTx) LockIngestion(ctx context.Context) error {
	t.store.mu.Lock()
	t.store.locks++
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) ExistingPhones(ctx context.Context) ([]string, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.phonesErr != nil {
		return nil, t.store.phonesErr
	}
	return append([]string(nil), t.store.phones...), nil
}

func (t *memTx) InsertLead(ctx context.Context, lead NormalizedLead) error {
	t.inserts++
	if t.store.failOnInsert == t.inserts {
		return errInsertFailed
	}
	t.pending = append(t.pending, lead)
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	for _, l := range t.pending {
		t.store.committed = append(t.store.committed, l)
		t.store.phones = append(t.store.phones, l.Phone)
	}
	t.store.commits++
	t.closed = true
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.pending = nil
	t.store.mu.Lock()
	t.store.rollbacks++
	t.store.mu.Unlock()
	return nil
}
