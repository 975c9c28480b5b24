package offer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/payment"
	"github.com/fastygo/boatclosers/repository/memory"
	"github.com/fastygo/boatclosers/usecase/session"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func setup(t *testing.T) (*UseCase, *session.UseCase, *payment.LocalGateway, *clock) {
	t.Helper()
	ctx := context.Background()
	c := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := session.New(memory.NewTransactionStore(), nil, session.WithClock(c.Now))
	_, _, err := s.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	gw := payment.NewLocalGateway(0)
	retrying := payment.NewRetrying(gw, payment.RetryConfig{Timeout: time.Second, MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, nil, nil)
	return New(s, retrying, payment.DefaultPlans(), nil, nil), s, gw, c
}

func fill(t *testing.T, s *session.UseCase) {
	t.Helper()
	ctx := context.Background()
	for path, value := range map[string]any{
		"terms.price":       100000,
		"terms.closingDate": "2025-07-15",
		"buyer.name":        "Bea Buyer",
		"seller.name":       "Sam Seller",
		"vessel.make":       "Hinckley",
	} {
		_, err := s.Update(ctx, path, value)
		require.NoError(t, err, path)
	}
}

func TestGenerate_RejectsIncompleteOffer(t *testing.T) {
	uc, _, _, _ := setup(t)
	ctx := context.Background()

	ok, err := uc.CanGenerate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = uc.Generate(ctx)
	var incomplete *domain.IncompleteOfferError
	require.ErrorAs(t, err, &incomplete)
	assert.Contains(t, incomplete.Missing, "terms.price")
	assert.Contains(t, incomplete.Missing, "vessel.make")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	missing, err := uc.Missing(ctx)
	require.NoError(t, err)
	assert.Equal(t, incomplete.Missing, missing)
}

func TestGenerate_RegenerationKeepsHistory(t *testing.T) {
	uc, s, _, c := setup(t)
	ctx := context.Background()
	fill(t, s)

	first, err := uc.Generate(ctx)
	require.NoError(t, err)
	assert.True(t, first.Offer.Generated)
	assert.Equal(t, domain.OfferPending, first.Offer.Status)
	assert.Empty(t, first.Offer.History)
	firstAt := *first.Offer.GeneratedAt

	_, err = s.Update(ctx, "terms.price", 120000)
	require.NoError(t, err)
	c.advance(time.Hour)

	second, err := uc.Generate(ctx)
	require.NoError(t, err)
	require.Len(t, second.Offer.History, 1)
	assert.Equal(t, "100000", second.Offer.History[0].Price.String())
	assert.Equal(t, firstAt, second.Offer.History[0].At)
	assert.Equal(t, "120000", second.Offer.Price.String())
	assert.Equal(t, c.now, *second.Offer.GeneratedAt)

	assert.Empty(t, first.Offer.History, "previous snapshot must not change")
}

func TestGenerate_PreservesAdvancedStatus(t *testing.T) {
	uc, s, _, _ := setup(t)
	ctx := context.Background()
	fill(t, s)

	_, err := uc.Generate(ctx)
	require.NoError(t, err)
	_, err = uc.SetStatus(ctx, domain.OfferCountered)
	require.NoError(t, err)

	tx, err := uc.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferCountered, tx.Offer.Status)
}

func TestSetStatus(t *testing.T) {
	uc, s, _, _ := setup(t)
	ctx := context.Background()

	_, err := uc.SetStatus(ctx, domain.OfferAccepted)
	assert.ErrorIs(t, err, domain.ErrOfferNotGenerated)

	fill(t, s)
	_, err = uc.Generate(ctx)
	require.NoError(t, err)

	_, err = uc.SetStatus(ctx, domain.OfferDraft)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = uc.SetStatus(ctx, domain.OfferStatus("withdrawn"))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	res, err := uc.SetStatus(ctx, domain.OfferCountered)
	require.NoError(t, err)
	assert.False(t, res.PaymentRequired)

	res, err = uc.SetStatus(ctx, domain.OfferAccepted)
	require.NoError(t, err)
	assert.True(t, res.PaymentRequired)
	assert.Equal(t, domain.OfferAccepted, res.Transaction.Offer.Status)

	_, err = uc.SetStatus(ctx, domain.OfferRejected)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSetStatus_AcceptedAfterPaymentNeedsNoUnlock(t *testing.T) {
	uc, s, _, _ := setup(t)
	ctx := context.Background()
	fill(t, s)
	_, err := uc.Generate(ctx)
	require.NoError(t, err)

	_, err = uc.RecordPayment(ctx, domain.PlanStandard)
	require.NoError(t, err)

	res, err := uc.SetStatus(ctx, domain.OfferAccepted)
	require.NoError(t, err)
	assert.False(t, res.PaymentRequired)
}

func TestRecordPayment_IsIdempotent(t *testing.T) {
	uc, s, gw, c := setup(t)
	ctx := context.Background()
	gw.FailNext(1)

	tx, err := uc.RecordPayment(ctx, domain.PlanPremium)
	require.NoError(t, err)
	assert.True(t, tx.Offer.HasPaid)
	assert.Equal(t, domain.PlanPremium, tx.Offer.SelectedPlan)
	assert.Equal(t, c.now, *tx.Offer.PaidAt)
	assert.NotEmpty(t, tx.Offer.PaymentRef)
	assert.Equal(t, 1, gw.Charges())

	again, err := uc.RecordPayment(ctx, domain.PlanStandard)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.Charges())
	assert.Equal(t, domain.PlanPremium, again.Offer.SelectedPlan)
	assert.Equal(t, tx.Version, again.Version)

	current, err := s.Current(ctx)
	require.NoError(t, err)
	assert.True(t, current.Offer.HasPaid)
}

func TestRecordPayment_Failures(t *testing.T) {
	uc, s, gw, _ := setup(t)
	ctx := context.Background()

	_, err := uc.RecordPayment(ctx, domain.Plan("gold"))
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)

	gw.Decline(true)
	_, err = uc.RecordPayment(ctx, domain.PlanStandard)
	assert.ErrorIs(t, err, payment.ErrDeclined)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	gw.Decline(false)
	gw.FailNext(10)
	_, err = uc.RecordPayment(ctx, domain.PlanStandard)
	assert.ErrorIs(t, err, payment.ErrTemporary)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInternal))

	current, err := s.Current(ctx)
	require.NoError(t, err)
	assert.False(t, current.Offer.HasPaid)
	assert.Equal(t, 0, gw.Charges())
}

func TestRecordPayment_RetryAfterLostWriteDoesNotChargeTwice(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTransactionStore()
	s := session.New(store, nil, session.WithStrictPersistence(true))
	tx, _, err := s.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	gw := payment.NewLocalGateway(0)
	uc := New(s, gw, payment.DefaultPlans(), nil, nil)

	store.SetSaveError(errors.New("disk full"))
	_, err = uc.RecordPayment(ctx, domain.PlanStandard)
	require.Error(t, err)
	assert.Equal(t, 1, gw.Charges())

	current, err := s.Current(ctx)
	require.NoError(t, err)
	assert.False(t, current.Offer.HasPaid)

	store.SetSaveError(nil)
	paid, err := uc.RecordPayment(ctx, domain.PlanPremium)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.Charges())
	assert.True(t, paid.Offer.HasPaid)
	assert.Equal(t, domain.PlanStandard, paid.Offer.SelectedPlan, "the settled charge decides the plan")
	assert.NotEmpty(t, paid.Offer.PaymentRef)

	assert.Equal(t, PaymentKey(tx.ID), PaymentKey(tx.ID))
	assert.NotEqual(t, PaymentKey(tx.ID), PaymentKey("another-transaction"))
}
