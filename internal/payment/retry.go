package payment

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/internal/metrics"
)

type RetryConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Retrying bounds every gateway attempt with a timeout and retries temporary
// failures with jittered exponential backoff. The idempotency key is reused
// across attempts so a retried charge is never collected twice.
type Retrying struct {
	next    Gateway
	cfg     RetryConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRetrying(next Gateway, cfg RetryConfig, logger *zap.Logger, m *metrics.Metrics) *Retrying {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, cfg: cfg, logger: logger, metrics: m}
}

func (r *Retrying) Charge(ctx context.Context, req ChargeRequest) (Receipt, error) {
	var receipt Receipt

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()

		res, err := r.next.Charge(attemptCtx, req)
		r.metrics.RecordPaymentAttempt(err)
		if err == nil {
			receipt = res
			return nil
		}
		if retryable(ctx, err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.BaseBackoff
	policy.MaxInterval = r.cfg.MaxBackoff
	policy.RandomizationFactor = 0.5
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("payment attempt failed, retrying",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.cfg.MaxAttempts-1)), ctx), notify)
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// retryable reports whether a failed attempt may be repeated. An attempt timeout is
// retryable; cancellation of the caller's context is not.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, ErrTemporary) || errors.Is(err, context.DeadlineExceeded)
}
