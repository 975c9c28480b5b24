package bolt

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/infrastructure/boltdb"
	"github.com/fastygo/boatclosers/repository"
)

type journalRepository struct {
	db     *boltdb.DB
	logger *zap.Logger
}

// NewJournalRepository stores events keyed by transaction id and insertion order.
func NewJournalRepository(db *boltdb.DB, logger *zap.Logger) repository.JournalRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &journalRepository{db: db, logger: logger}
}

func (r *journalRepository) Append(ctx context.Context, event domain.Event) error {
	if event.TransactionID == "" {
		return domain.ErrInvalidPayload
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.db.Append(boltdb.BucketJournal, prefix(event.TransactionID), raw)
}

func (r *journalRepository) List(ctx context.Context, transactionID string) ([]domain.Event, error) {
	events := []domain.Event{}
	err := r.db.Scan(boltdb.BucketJournal, prefix(transactionID), func(key, value []byte) error {
		var ev domain.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			r.logger.Warn("skipping unreadable journal entry", zap.ByteString("key", key), zap.Error(err))
			return nil
		}
		events = append(events, ev)
		return nil
	})
	return events, err
}

func (r *journalRepository) Clear(ctx context.Context, transactionID string) error {
	return r.db.DeletePrefix(boltdb.BucketJournal, prefix(transactionID))
}

func prefix(transactionID string) string {
	return transactionID + "/"
}
