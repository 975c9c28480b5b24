package deposit

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/usecase/session"
)

type Session interface {
	Current(ctx context.Context) (*domain.Transaction, error)
	Mutate(ctx context.Context, change session.Change, fn session.MutateFunc) (*domain.Transaction, error)
}

// Status is the derived view of the earnest money deposit.
type Status struct {
	Method            domain.DepositMethod `json:"method"`
	Reported          decimal.Decimal      `json:"reported"`
	Agreed            decimal.Decimal      `json:"agreed"`
	ConfirmedByBuyer  bool                 `json:"confirmedByBuyer"`
	ConfirmedBySeller bool                 `json:"confirmedBySeller"`
	Verified          bool                 `json:"verified"`
	Mismatch          bool                 `json:"mismatch"`
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

// Confirm sets one party's confirmation. Either party may set either flag: the
// shared record carries no identity, so the caller is trusted to act for party.
// The buyer's flag doubles as "deposit sent", the seller's as "deposit received".
func (uc *UseCase) Confirm(ctx context.Context, party domain.Role, confirmed bool) (*domain.Transaction, error) {
	var confirmPath, diligencePath string
	switch party {
	case domain.RoleBuyer:
		confirmPath, diligencePath = "depositVerification.confirmedByBuyer", "diligence.depositSent"
	case domain.RoleSeller:
		confirmPath, diligencePath = "depositVerification.confirmedBySeller", "diligence.depositReceived"
	default:
		return nil, domain.ErrInvalidRole
	}

	tx, err := uc.session.Mutate(ctx, session.Change{Event: domain.EventDepositConfirm, Path: confirmPath, Payload: confirmed}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		next, err := domain.Apply(tx, confirmPath, confirmed)
		if err != nil {
			return nil, err
		}
		return domain.Apply(next, diligencePath, confirmed)
	})
	if err != nil {
		return nil, err
	}

	if domain.DepositMismatch(tx) {
		uc.logger.Warn("deposit amount differs from agreed terms",
			zap.String("transaction_id", tx.ID),
			zap.String("reported", tx.DepositVerification.Amount.String()),
			zap.String("agreed", tx.Terms.Deposit.String()))
	}
	return tx, nil
}

func (uc *UseCase) Status(ctx context.Context) (Status, error) {
	tx, err := uc.session.Current(ctx)
	if err != nil {
		return Status{}, err
	}
	return Evaluate(tx), nil
}

func Evaluate(tx *domain.Transaction) Status {
	var st Status
	if tx == nil {
		return st
	}
	if tx.Terms != nil {
		st.Method = tx.Terms.DepositMethod
		st.Agreed = tx.Terms.Deposit
	}
	if dv := tx.DepositVerification; dv != nil {
		if dv.Method != "" {
			st.Method = dv.Method
		}
		st.Reported = dv.Amount
		st.ConfirmedByBuyer = dv.ConfirmedByBuyer
		st.ConfirmedBySeller = dv.ConfirmedBySeller
	}
	st.Verified = domain.DepositVerified(tx)
	st.Mismatch = domain.DepositMismatch(tx)
	return st
}
