package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fastygo/boatclosers/domain"
)

var (
	// ErrTemporary marks failures that are safe to retry with the same idempotency key.
	ErrTemporary = errors.New("payment: temporary failure")
	// ErrDeclined is final; retrying cannot succeed.
	ErrDeclined = errors.New("payment: declined")
)

// ChargeRequest asks the gateway to collect the plan fee once per idempotency key.
type ChargeRequest struct {
	IdempotencyKey string
	TransactionID  string
	Plan           domain.Plan
	Amount         decimal.Decimal
}

type Receipt struct {
	Reference      string          `json:"reference"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Plan           domain.Plan     `json:"plan"`
	Amount         decimal.Decimal `json:"amount"`
	ChargedAt      time.Time       `json:"chargedAt"`
}

// Gateway is the external payment collaborator.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (Receipt, error)
}

// Plans prices the unlockable offer plans.
type Plans struct {
	Standard decimal.Decimal
	Premium  decimal.Decimal
}

func DefaultPlans() Plans {
	return Plans{Standard: decimal.NewFromInt(149), Premium: decimal.NewFromInt(249)}
}

func (p Plans) Price(plan domain.Plan) (decimal.Decimal, error) {
	switch plan {
	case domain.PlanStandard:
		return p.Standard, nil
	case domain.PlanPremium:
		return p.Premium, nil
	}
	return decimal.Zero, domain.ErrInvalidPlan
}

// LocalGateway settles charges in-process. A repeated idempotency key returns the
// original receipt without charging again.
type LocalGateway struct {
	mu       sync.Mutex
	receipts map[string]Receipt
	charges  int
	failures int
	declined bool
	delay    time.Duration
	now      func() time.Time
}

func NewLocalGateway(delay time.Duration) *LocalGateway {
	return &LocalGateway{
		receipts: make(map[string]Receipt),
		delay:    delay,
		now:      time.Now,
	}
}

func (g *LocalGateway) Charge(ctx context.Context, req ChargeRequest) (Receipt, error) {
	if req.IdempotencyKey == "" {
		return Receipt{}, errors.New("payment: idempotency key is required")
	}
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return Receipt{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.receipts[req.IdempotencyKey]; ok {
		return r, nil
	}
	if g.declined {
		return Receipt{}, ErrDeclined
	}
	if g.failures > 0 {
		g.failures--
		return Receipt{}, ErrTemporary
	}

	r := Receipt{
		Reference:      "pay_" + uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		Plan:           req.Plan,
		Amount:         req.Amount,
		ChargedAt:      g.now().UTC(),
	}
	g.receipts[req.IdempotencyKey] = r
	g.charges++
	return r, nil
}

// FailNext makes the next n charges fail with ErrTemporary.
func (g *LocalGateway) FailNext(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = n
}

// Decline makes every new charge fail permanently.
func (g *LocalGateway) Decline(declined bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.declined = declined
}

// Charges returns how many distinct charges were settled.
func (g *LocalGateway) Charges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges
}
