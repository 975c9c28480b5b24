package redis

import (
	"context"
	"errors"

	redislib "github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/repository"
)

const maxWatchRetries = 3

type transactionRepository struct {
	client *redislib.Client
	key    string
	logger *zap.Logger
}

// NewTransactionRepository creates the shared-record store. Both parties read and write the
// same key; Save refuses to overwrite a newer version of the same transaction.
func NewTransactionRepository(client *redislib.Client, key string, logger *zap.Logger) repository.TransactionRepository {
	if key == "" {
		key = "boatclosers_transaction"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transactionRepository{
		client: client,
		key:    "transaction:" + key,
		logger: logger,
	}
}

func (r *transactionRepository) Load(ctx context.Context) (*domain.Transaction, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, err
	}
	tx, err := domain.Decode(raw)
	if err != nil {
		r.logger.Warn("discarding corrupt transaction record", zap.String("key", r.key), zap.Error(err))
		return nil, nil
	}
	return tx, nil
}

func (r *transactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.ID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := domain.Encode(tx)
	if err != nil {
		return err
	}

	apply := func(rtx *redislib.Tx) error {
		current, err := rtx.Get(ctx, r.key).Bytes()
		if err != nil && !errors.Is(err, redislib.Nil) {
			return err
		}
		if err == nil && isNewerOrSame(current, tx) {
			return domain.ErrVersionConflict
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.Set(ctx, r.key, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := r.client.Watch(ctx, apply, r.key)
		if errors.Is(err, redislib.TxFailedErr) {
			r.logger.Debug("transaction key changed during save, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}
	return domain.ErrVersionConflict
}

func (r *transactionRepository) Reset(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// isNewerOrSame reports whether the stored record is the same transaction at a version
// the incoming write has not moved past.
func isNewerOrSame(stored []byte, incoming *domain.Transaction) bool {
	if gjson.GetBytes(stored, "id").String() != incoming.ID {
		return false
	}
	return gjson.GetBytes(stored, "version").Int() >= incoming.Version
}
