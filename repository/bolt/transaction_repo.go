package bolt

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/infrastructure/boltdb"
	"github.com/fastygo/boatclosers/repository"
)

// DefaultKey is the fixed slot of the active transaction.
const DefaultKey = "boatclosers_transaction"

type transactionRepository struct {
	db     *boltdb.DB
	key    string
	logger *zap.Logger
}

// NewTransactionRepository returns the local single-slot store.
func NewTransactionRepository(db *boltdb.DB, key string, logger *zap.Logger) repository.TransactionRepository {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transactionRepository{db: db, key: key, logger: logger}
}

func (r *transactionRepository) Load(ctx context.Context) (*domain.Transaction, error) {
	raw, err := r.db.Get(boltdb.BucketTransactions, r.key)
	if err != nil {
		r.logger.Warn("transaction slot unreadable", zap.String("key", r.key), zap.Error(err))
		return nil, nil
	}
	if raw == nil {
		return nil, nil
	}
	tx, err := domain.Decode(raw)
	if err != nil {
		r.logger.Warn("discarding corrupt transaction record", zap.String("key", r.key), zap.Error(err))
		return nil, nil
	}
	return tx, nil
}

func (r *transactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil {
		return domain.ErrInvalidPayload
	}
	raw, err := domain.Encode(tx)
	if err != nil {
		return err
	}
	return r.db.Put(boltdb.BucketTransactions, r.key, raw)
}

func (r *transactionRepository) Reset(ctx context.Context) error {
	return r.db.Delete(boltdb.BucketTransactions, r.key)
}
