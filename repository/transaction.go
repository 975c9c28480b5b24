package repository

import (
	"context"
	"time"

	"github.com/fastygo/boatclosers/domain"
)

// TransactionRepository keeps the single active transaction slot.
//
// Load returns (nil, nil) when nothing usable is stored; unreadable records are
// treated as absent. Save may reject stale writes with domain.ErrVersionConflict.
type TransactionRepository interface {
	Load(ctx context.Context) (*domain.Transaction, error)
	Save(ctx context.Context, tx *domain.Transaction) error
	Reset(ctx context.Context) error
}

// JournalRepository records the events applied to a transaction in order.
type JournalRepository interface {
	Append(ctx context.Context, event domain.Event) error
	List(ctx context.Context, transactionID string) ([]domain.Event, error)
	Clear(ctx context.Context, transactionID string) error
}

type ArchiveFilter struct {
	ClosedAfter time.Time
	Limit       int
	Offset      int
}

// ArchivedTransaction is a closed transaction as kept in long-term storage.
type ArchivedTransaction struct {
	Transaction *domain.Transaction
	ArchivedAt  time.Time
}

// ArchiveRepository stores closed transactions together with their journal.
type ArchiveRepository interface {
	Archive(ctx context.Context, tx *domain.Transaction, events []domain.Event) error
	Get(ctx context.Context, id string) (*ArchivedTransaction, error)
	List(ctx context.Context, filter ArchiveFilter) ([]ArchivedTransaction, error)
	Events(ctx context.Context, id string) ([]domain.Event, error)
}
