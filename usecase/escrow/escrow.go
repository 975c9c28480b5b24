package escrow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/usecase/session"
)

type Session interface {
	Current(ctx context.Context) (*domain.Transaction, error)
	Mutate(ctx context.Context, change session.Change, fn session.MutateFunc) (*domain.Transaction, error)
}

type Stage struct {
	Status  domain.EscrowStatus `json:"status"`
	Label   string              `json:"label"`
	Done    bool                `json:"done"`
	Current bool                `json:"current"`
}

// Wire is the payment destination shown to the buyer. Notice is always set.
type Wire struct {
	AgentName     string `json:"agentName"`
	Company       string `json:"company"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	BankName      string `json:"bankName"`
	RoutingNumber string `json:"routingNumber"`
	AccountNumber string `json:"accountNumber"`
	Instructions  string `json:"instructions"`
	Notice        string `json:"notice"`
}

type UseCase struct {
	session Session
	logger  *zap.Logger
}

func New(s Session, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{session: s, logger: logger}
}

// Advance moves escrow forward to status. Stages may be skipped but never
// revisited; use Reset to roll back.
func (uc *UseCase) Advance(ctx context.Context, status domain.EscrowStatus) (*domain.Transaction, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown escrow status %q", domain.ErrInvalidTransition, status)
	}
	return uc.session.Mutate(ctx, session.Change{Event: domain.EventEscrowAdvanced, Path: "escrow.status", Payload: status}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		current := currentStatus(tx)
		if status.Index() < current.Index() {
			return nil, fmt.Errorf("%w: escrow is already %s", domain.ErrInvalidTransition, current)
		}
		return withStatus(tx, status)
	})
}

// Reset sets status directly, including backwards.
func (uc *UseCase) Reset(ctx context.Context, status domain.EscrowStatus) (*domain.Transaction, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown escrow status %q", domain.ErrInvalidTransition, status)
	}
	tx, err := uc.session.Mutate(ctx, session.Change{Event: domain.EventEscrowReset, Path: "escrow.status", Payload: status}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		return withStatus(tx, status)
	})
	if err == nil {
		uc.logger.Info("escrow status reset", zap.String("transaction_id", tx.ID), zap.String("status", string(status)))
	}
	return tx, err
}

func (uc *UseCase) Stages(ctx context.Context) ([]Stage, error) {
	tx, err := uc.session.Current(ctx)
	if err != nil {
		return nil, err
	}
	return Stages(tx), nil
}

// Stages lists every escrow stage with its completion relative to tx.
func Stages(tx *domain.Transaction) []Stage {
	current := currentStatus(tx)
	out := make([]Stage, 0, len(domain.EscrowStages()))
	for _, st := range domain.EscrowStages() {
		out = append(out, Stage{
			Status:  st,
			Label:   st.Label(),
			Done:    domain.StageDone(current, st),
			Current: st == current,
		})
	}
	return out
}

func (uc *UseCase) WireInstructions(ctx context.Context) (Wire, error) {
	tx, err := uc.session.Current(ctx)
	if err != nil {
		return Wire{}, err
	}
	w := Wire{Notice: domain.WireFraudNotice}
	if e := tx.Escrow; e != nil {
		w.AgentName = e.AgentName
		w.Company = e.Company
		w.Email = e.Email
		w.Phone = e.Phone
		w.BankName = e.BankName
		w.RoutingNumber = e.RoutingNumber
		w.AccountNumber = e.AccountNumber
		w.Instructions = e.WireInstructions
	}
	return w, nil
}

func currentStatus(tx *domain.Transaction) domain.EscrowStatus {
	if tx == nil || tx.Escrow == nil || !tx.Escrow.Status.Valid() {
		return domain.EscrowNotStarted
	}
	return tx.Escrow.Status
}

// withStatus writes the status together with the flags derived from it.
func withStatus(tx *domain.Transaction, status domain.EscrowStatus) (*domain.Transaction, error) {
	next := domain.Escrow{}
	if tx.Escrow != nil {
		next = *tx.Escrow
	}
	next.Status = status
	next.Funded = domain.StageDone(status, domain.EscrowFunded)
	next.ConditionsMet = domain.StageDone(status, domain.EscrowConditions)
	next.Released = domain.StageDone(status, domain.EscrowReleased)
	return domain.Apply(tx, "escrow", &next)
}
