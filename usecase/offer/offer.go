package offer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/internal/payment"
	"github.com/fastygo/boatclosers/usecase/session"
)

// Session is the part of the session container the offer workflow needs.
type Session interface {
	Current(ctx context.Context) (*domain.Transaction, error)
	Mutate(ctx context.Context, change session.Change, fn session.MutateFunc) (*domain.Transaction, error)
	Now() time.Time
}

// StatusResult carries the new snapshot and whether the payment unlock must be
// shown to the user before the accepted offer can be used.
type StatusResult struct {
	Transaction     *domain.Transaction `json:"transaction"`
	PaymentRequired bool                `json:"paymentRequired"`
}

type UseCase struct {
	session Session
	gateway payment.Gateway
	plans   payment.Plans
	metrics *metrics.Metrics
	logger  *zap.Logger

	// serializes payments so two callers cannot charge with different keys
	payMu sync.Mutex
}

func New(s Session, gateway payment.Gateway, plans payment.Plans, m *metrics.Metrics, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		session: s,
		gateway: gateway,
		plans:   plans,
		metrics: m,
		logger:  logger,
	}
}

// Missing lists the fields that still block offer generation.
func (uc *UseCase) Missing(ctx context.Context) ([]string, error) {
	tx, err := uc.session.Current(ctx)
	if err != nil {
		return nil, err
	}
	missing := domain.MissingOfferFields(tx)
	if missing == nil {
		missing = []string{}
	}
	return missing, nil
}

func (uc *UseCase) CanGenerate(ctx context.Context) (bool, error) {
	tx, err := uc.session.Current(ctx)
	if err != nil {
		return false, err
	}
	return domain.CanGenerateOffer(tx), nil
}

// Generate snapshots the current terms into the offer. A regeneration moves the
// previous snapshot into the history; a status already past draft is kept.
func (uc *UseCase) Generate(ctx context.Context) (*domain.Transaction, error) {
	return uc.session.Mutate(ctx, session.Change{Event: domain.EventOfferGenerated, Path: "offer"}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		if missing := domain.MissingOfferFields(tx); len(missing) > 0 {
			return nil, &domain.IncompleteOfferError{Missing: missing}
		}

		now := uc.session.Now()
		next := copyOffer(tx.Offer)
		if next.Generated && next.GeneratedAt != nil {
			next.History = append(next.History, domain.OfferVersion{At: *next.GeneratedAt, Price: next.Price})
		}
		next.Generated = true
		next.GeneratedAt = &now
		next.Price = tx.Terms.Price
		if next.Status == "" || next.Status == domain.OfferDraft {
			next.Status = domain.OfferPending
		}
		return domain.Apply(tx, "offer", next)
	})
}

// SetStatus moves a generated offer to pending, accepted, countered or rejected.
// Accepted and rejected offers are final.
func (uc *UseCase) SetStatus(ctx context.Context, status domain.OfferStatus) (StatusResult, error) {
	if !status.Valid() || status == domain.OfferDraft {
		return StatusResult{}, fmt.Errorf("%w: cannot set offer status to %q", domain.ErrInvalidTransition, status)
	}

	tx, err := uc.session.Mutate(ctx, session.Change{Event: domain.EventOfferStatus, Path: "offer.status", Payload: status}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		if tx.Offer == nil || !tx.Offer.Generated {
			return nil, domain.ErrOfferNotGenerated
		}
		if final(tx.Offer.Status) && tx.Offer.Status != status {
			return nil, fmt.Errorf("%w: offer is already %s", domain.ErrInvalidTransition, tx.Offer.Status)
		}
		return domain.Apply(tx, "offer.status", status)
	})
	if err != nil {
		return StatusResult{}, err
	}

	res := StatusResult{Transaction: tx, PaymentRequired: status == domain.OfferAccepted && !tx.Offer.HasPaid}
	if res.PaymentRequired {
		uc.logger.Info("offer accepted, payment required", zap.String("transaction_id", tx.ID))
	}
	return res, nil
}

// paymentNamespace scopes the idempotency keys derived from transaction ids.
var paymentNamespace = uuid.MustParse("5d3f6a1e-8c2b-4f7a-9e41-0b6c2d7a9f13")

// PaymentKey is the idempotency key for the offer payment of transaction id.
// It is stable, so a charge that succeeded before its result was saved is
// returned again by the gateway instead of being collected twice.
func PaymentKey(transactionID string) string {
	return uuid.NewSHA1(paymentNamespace, []byte("offer-payment:"+transactionID)).String()
}

// RecordPayment unlocks the offer for plan. Paying twice is a no-op: an already
// paid offer is returned unchanged without contacting the gateway. A transaction
// is charged at most once; when a retry names another plan the settled receipt
// wins.
func (uc *UseCase) RecordPayment(ctx context.Context, plan domain.Plan) (*domain.Transaction, error) {
	amount, err := uc.plans.Price(plan)
	if err != nil {
		return nil, err
	}

	uc.payMu.Lock()
	defer uc.payMu.Unlock()

	tx, err := uc.session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if tx.Offer != nil && tx.Offer.HasPaid {
		uc.logger.Debug("offer already paid", zap.String("transaction_id", tx.ID), zap.String("plan", string(tx.Offer.SelectedPlan)))
		return tx, nil
	}
	if tx.IsClosed() {
		return nil, domain.ErrTransactionClosed
	}

	req := payment.ChargeRequest{
		IdempotencyKey: PaymentKey(tx.ID),
		TransactionID:  tx.ID,
		Plan:           plan,
		Amount:         amount,
	}
	start := time.Now()
	receipt, err := uc.gateway.Charge(ctx, req)
	uc.metrics.RecordPayment(string(plan), time.Since(start).Seconds(), err)
	if err != nil {
		uc.logger.Error("payment failed",
			zap.String("transaction_id", tx.ID),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err))
		return nil, paymentError(err)
	}

	if receipt.Plan != "" && receipt.Plan != plan {
		uc.logger.Warn("payment already settled for another plan",
			zap.String("transaction_id", tx.ID),
			zap.String("requested", string(plan)),
			zap.String("settled", string(receipt.Plan)))
		plan = receipt.Plan
	}

	uc.logger.Info("payment recorded",
		zap.String("transaction_id", tx.ID),
		zap.String("plan", string(plan)),
		zap.String("reference", receipt.Reference))

	return uc.session.Mutate(ctx, session.Change{Event: domain.EventOfferPaid, Path: "offer", Payload: receipt}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		paidAt := uc.session.Now()
		next := copyOffer(tx.Offer)
		next.HasPaid = true
		next.PaidAt = &paidAt
		next.SelectedPlan = plan
		next.PaymentRef = receipt.Reference
		return domain.Apply(tx, "offer", next)
	})
}

func final(s domain.OfferStatus) bool {
	return s == domain.OfferAccepted || s == domain.OfferRejected
}

func copyOffer(o *domain.Offer) *domain.Offer {
	if o == nil {
		return &domain.Offer{Status: domain.OfferDraft, SelectedPlan: domain.PlanStandard, History: []domain.OfferVersion{}}
	}
	next := *o
	next.History = append([]domain.OfferVersion{}, o.History...)
	return &next
}

func paymentError(err error) error {
	switch {
	case errors.Is(err, payment.ErrDeclined):
		return domain.WrapError(domain.ErrCodeInvalid, "payment was declined", err)
	case errors.Is(err, context.Canceled):
		return err
	}
	return domain.WrapError(domain.ErrCodeInternal, "payment could not be completed", err)
}
