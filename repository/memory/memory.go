// Package memory keeps the transaction slot and journal in process memory. It
// backs the "memory" store driver and the use case tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/repository"
)

// TransactionStore holds the encoded record so callers never share a snapshot
// with the store.
type TransactionStore struct {
	mu      sync.Mutex
	raw     []byte
	saves   int
	saveErr error
	loadErr error
}

var _ repository.TransactionRepository = (*TransactionStore)(nil)

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

func (s *TransactionStore) Load(ctx context.Context) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.raw == nil {
		return nil, nil
	}
	tx, err := domain.Decode(s.raw)
	if err != nil {
		return nil, nil
	}
	return tx, nil
}

func (s *TransactionStore) Save(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := domain.Encode(tx)
	if err != nil {
		return err
	}
	s.raw = raw
	s.saves++
	return nil
}

func (s *TransactionStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = nil
	return nil
}

// Put stores raw bytes as-is, e.g. a record written by an older release.
func (s *TransactionStore) Put(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append([]byte(nil), raw...)
}

// SetSaveError makes every following Save fail with err until cleared with nil.
func (s *TransactionStore) SetSaveError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *TransactionStore) SetLoadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// Saves counts successful writes.
func (s *TransactionStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type JournalStore struct {
	mu     sync.Mutex
	events map[string][]json.RawMessage
}

var _ repository.JournalRepository = (*JournalStore)(nil)

func NewJournalStore() *JournalStore {
	return &JournalStore{events: make(map[string][]json.RawMessage)}
}

func (s *JournalStore) Append(ctx context.Context, event domain.Event) error {
	if event.TransactionID == "" {
		return domain.ErrInvalidPayload
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TransactionID] = append(s.events[event.TransactionID], raw)
	return nil
}

func (s *JournalStore) List(ctx context.Context, transactionID string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, 0, len(s.events[transactionID]))
	for _, raw := range s.events[transactionID] {
		var ev domain.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *JournalStore) Clear(ctx context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, transactionID)
	return nil
}
