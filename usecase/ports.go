package usecase

import (
	"context"

	"github.com/fastygo/boatclosers/domain"
)

// Archiver hands closed transactions to long-term storage so use cases stay
// storage-agnostic. Implementations must not block on the archive backend.
type Archiver interface {
	ArchiveTransaction(ctx context.Context, tx *domain.Transaction, events []domain.Event) error
}

// EventPublisher fans applied events out to the other party's sessions.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
