package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx, err := New(RoleBuyer, testNow)
	require.NoError(t, err)
	return tx
}

func mustUpdate(t *testing.T, tx *Transaction, path string, value any) *Transaction {
	t.Helper()
	next, err := Update(tx, path, value)
	require.NoError(t, err, "update %s", path)
	return next
}

func mustApply(t *testing.T, tx *Transaction, path string, value any) *Transaction {
	t.Helper()
	next, err := Apply(tx, path, value)
	require.NoError(t, err, "apply %s", path)
	return next
}

func TestNew_Defaults(t *testing.T) {
	tx := newTestTransaction(t)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, SchemaVersion, tx.SchemaVersion)
	assert.Equal(t, RoleBuyer, tx.Role)
	assert.Equal(t, 0, tx.CurrentStep)
	assert.Equal(t, StatusDraft, tx.Status)
	assert.Equal(t, VesselPowerboat, tx.Vessel.Type)
	assert.Equal(t, ConditionUsed, tx.Vessel.Condition)
	assert.Equal(t, DepositEscrow, tx.Terms.DepositMethod)
	assert.Equal(t, FinancingCash, tx.Terms.Financing)
	assert.Equal(t, OfferDraft, tx.Offer.Status)
	assert.Equal(t, PlanStandard, tx.Offer.SelectedPlan)
	assert.Equal(t, EscrowNotStarted, tx.Escrow.Status)
	assert.Empty(t, tx.Signatures)
}

func TestNew_RejectsUnknownRole(t *testing.T) {
	_, err := New(Role("broker"), testNow)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestUpdate_PreservesSiblings(t *testing.T) {
	tx := newTestTransaction(t)
	tx = mustUpdate(t, tx, "buyer.name", "Ann Buyer")
	tx = mustUpdate(t, tx, "terms.price", 50000)

	buyerBefore, err := json.Marshal(tx.Buyer)
	require.NoError(t, err)
	termsBefore, err := json.Marshal(tx.Terms)
	require.NoError(t, err)

	next := mustUpdate(t, tx, "vessel.make", "Sea Ray")

	assert.Equal(t, "Sea Ray", next.Vessel.Make)
	assert.Equal(t, "", tx.Vessel.Make, "previous snapshot must not change")
	assert.NotSame(t, tx, next)
	assert.NotSame(t, tx.Vessel, next.Vessel)

	assert.Same(t, tx.Buyer, next.Buyer)
	assert.Same(t, tx.Seller, next.Seller)
	assert.Same(t, tx.Terms, next.Terms)
	assert.Same(t, tx.Offer, next.Offer)
	assert.Same(t, tx.Escrow, next.Escrow)

	buyerAfter, err := json.Marshal(next.Buyer)
	require.NoError(t, err)
	termsAfter, err := json.Marshal(next.Terms)
	require.NoError(t, err)
	assert.JSONEq(t, string(buyerBefore), string(buyerAfter))
	assert.JSONEq(t, string(termsBefore), string(termsAfter))
}

func TestUpdate_CopiesMapsAlongPath(t *testing.T) {
	tx := newTestTransaction(t)
	sig := Signature{Signed: true, Date: testNow, Signer: RoleSeller}

	next := mustApply(t, tx, "signatures.bill-of-sale", sig)

	assert.True(t, next.IsSigned("bill-of-sale"))
	assert.False(t, tx.IsSigned("bill-of-sale"))
	assert.Empty(t, tx.Signatures)

	again := mustApply(t, next, "signatures.bill-of-sale.mode", "typed")
	assert.Equal(t, "typed", again.Signatures["bill-of-sale"].Mode)
	assert.Equal(t, "", next.Signatures["bill-of-sale"].Mode)
	assert.True(t, again.IsSigned("bill-of-sale"))
}

func TestUpdate_RawDocumentState(t *testing.T) {
	tx := newTestTransaction(t)
	raw := json.RawMessage(`{"reviewed":true}`)

	next := mustUpdate(t, tx, "documents.lien-release", raw)

	assert.JSONEq(t, `{"reviewed":true}`, string(next.Documents["lien-release"]))
	raw[2] = 'X'
	assert.JSONEq(t, `{"reviewed":true}`, string(next.Documents["lien-release"]), "stored value must not alias the input")
}

func TestUpdate_SlicesAreCopied(t *testing.T) {
	tx := newTestTransaction(t)
	in := []string{"survey", "financing"}

	next := mustUpdate(t, tx, "terms.contingencies", in)
	in[0] = "changed"

	assert.Equal(t, []string{"survey", "financing"}, next.Terms.Contingencies)
}

func TestUpdate_ConvertsValues(t *testing.T) {
	tx := newTestTransaction(t)

	tx = mustUpdate(t, tx, "terms.price", 50000)
	tx = mustUpdate(t, tx, "terms.deposit", "5000.50")
	tx = mustUpdate(t, tx, "vessel.year", 2019)
	tx = mustUpdate(t, tx, "vessel.type", "sailboat")
	tx = mustUpdate(t, tx, "terms.depositMethod", DepositNone)

	assert.True(t, tx.Terms.Price.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, "5000.5", tx.Terms.Deposit.String())
	assert.Equal(t, 2019, tx.Vessel.Year)
	assert.Equal(t, VesselSailboat, tx.Vessel.Type)
	assert.Equal(t, DepositNone, tx.Terms.DepositMethod)
}

func TestUpdate_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value any
	}{
		{name: "unknown vessel type", path: "vessel.type", value: "submarine"},
		{name: "unknown condition", path: "vessel.condition", value: "wrecked"},
		{name: "unknown deposit method", path: "terms.depositMethod", value: "bitcoin"},
		{name: "unknown financing", path: "terms.financing", value: "lease"},
		{name: "non numeric year", path: "vessel.year", value: "nineteen"},
		{name: "non numeric price", path: "terms.price", value: "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newTestTransaction(t)
			_, err := Update(tx, tt.path, tt.value)
			require.Error(t, err)
			assert.True(t, IsDomainError(err, ErrCodeInvalid), "got %v", err)
		})
	}
}

func TestUpdate_InvalidPaths(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		reason string
	}{
		{name: "empty", path: "", reason: "path is empty"},
		{name: "empty segment", path: "vessel..make", reason: "empty segment"},
		{name: "unknown root", path: "boat.make", reason: "unknown field"},
		{name: "unknown leaf", path: "vessel.colour", reason: "unknown field"},
		{name: "descend into scalar", path: "vessel.make.first", reason: "cannot descend into a string"},
		{name: "missing map entry", path: "documents.bill-of-sale.reviewed", reason: "entry does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newTestTransaction(t)
			_, err := Update(tx, tt.path, "x")

			var pathErr *InvalidPathError
			require.True(t, errors.As(err, &pathErr), "got %v", err)
			assert.Contains(t, pathErr.Reason, tt.reason)
			assert.True(t, IsDomainError(err, ErrCodeInvalid))
		})
	}
}

func TestUpdate_MissingParentContainer(t *testing.T) {
	tx := newTestTransaction(t)
	tx.Offer = nil

	_, err := Update(tx, "offer.notes", "hello")

	var pathErr *InvalidPathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "offer.notes", pathErr.Path)
	assert.Equal(t, "notes", pathErr.Segment)
	assert.Nil(t, tx.Offer, "no sparse structure may be created")
}

func TestUpdate_GuardedFields(t *testing.T) {
	for _, path := range []string{"id", "role", "status", "version", "schemaVersion", "createdAt", "updatedAt", "closedAt"} {
		t.Run(path, func(t *testing.T) {
			tx := newTestTransaction(t)
			_, err := Update(tx, path, "closed")
			assert.ErrorIs(t, err, ErrImmutableField)
		})
	}
}

func TestUpdate_RejectsWorkflowFields(t *testing.T) {
	tests := []struct {
		path  string
		value any
		owned string
	}{
		{path: "signatures.bill-of-sale", value: Signature{Signed: true, Signer: RoleSeller}, owned: "signatures"},
		{path: "signatures.bill-of-sale.signed", value: true, owned: "signatures"},
		{path: "signatures", value: map[string]Signature{}, owned: "signatures"},
		{path: "offer.hasPaid", value: true, owned: "offer.hasPaid"},
		{path: "offer.status", value: "accepted", owned: "offer.status"},
		{path: "offer.generated", value: true, owned: "offer.generated"},
		{path: "offer.selectedPlan", value: "premium", owned: "offer.selectedPlan"},
		{path: "offer", value: Offer{HasPaid: true}, owned: "offer.generated"},
		{path: "escrow.status", value: "released", owned: "escrow.status"},
		{path: "escrow.funded", value: true, owned: "escrow.funded"},
		{path: "escrow.released", value: true, owned: "escrow.released"},
		{path: "escrow", value: Escrow{Status: EscrowReleased}, owned: "escrow.status"},
		{path: "depositVerification.confirmedByBuyer", value: true, owned: "depositVerification.confirmedByBuyer"},
		{path: "depositVerification.confirmedBySeller", value: true, owned: "depositVerification.confirmedBySeller"},
		{path: "diligence.depositSent", value: true, owned: "diligence.depositSent"},
		{path: "diligence", value: Diligence{DepositReceived: true}, owned: "diligence.depositSent"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tx := newTestTransaction(t)
			assert.Equal(t, tt.owned, WorkflowOwned(tt.path))

			next, err := Update(tx, tt.path, tt.value)
			assert.ErrorIs(t, err, ErrImmutableField)
			assert.Nil(t, next)
		})
	}
}

func TestUpdate_EditableSiblingsOfWorkflowFields(t *testing.T) {
	tx := newTestTransaction(t)
	for path, value := range map[string]any{
		"offer.notes":                   "net of survey findings",
		"escrow.bankName":               "First Marine Bank",
		"depositVerification.amount":    "5000",
		"depositVerification.reference": "WIRE-1",
		"diligence.survey":              true,
		"documents.bill-of-sale":        json.RawMessage(`{"notes":"x"}`),
	} {
		assert.Empty(t, WorkflowOwned(path), path)
		tx = mustUpdate(t, tx, path, value)
	}
	assert.Equal(t, "net of survey findings", tx.Offer.Notes)
	assert.True(t, tx.Diligence.Survey)
}

func TestApply_WritesWorkflowFields(t *testing.T) {
	tx := newTestTransaction(t)

	next := mustApply(t, tx, "escrow.status", EscrowOpened)
	assert.Equal(t, EscrowOpened, next.Escrow.Status)
	assert.Equal(t, EscrowNotStarted, tx.Escrow.Status)

	_, err := Apply(tx, "offer.status", "maybe")
	assert.True(t, IsDomainError(err, ErrCodeInvalid), "got %v", err)

	_, err = Apply(tx, "status", StatusClosed)
	assert.ErrorIs(t, err, ErrImmutableField)
}

func TestUpdate_CurrentStepIsClamped(t *testing.T) {
	tx := newTestTransaction(t)

	assert.Equal(t, 0, mustUpdate(t, tx, "currentStep", -5).CurrentStep)
	assert.Equal(t, 5, mustUpdate(t, tx, "currentStep", 99).CurrentStep)
	assert.Equal(t, 3, mustUpdate(t, tx, "currentStep", 3).CurrentStep)

	next, err := WithStep(tx, 42)
	require.NoError(t, err)
	assert.Equal(t, StepClosing, next.CurrentStep)
}

func TestUpdate_ClosedTransactionIsImmutable(t *testing.T) {
	tx := newTestTransaction(t)
	closed, err := MarkClosed(tx, testNow.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, closed.IsClosed())
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, testNow.Add(time.Hour), *closed.ClosedAt)
	assert.False(t, tx.IsClosed())

	_, err = Update(closed, "vessel.make", "Sea Ray")
	assert.ErrorIs(t, err, ErrTransactionClosed)

	_, err = MarkClosed(closed, testNow)
	assert.ErrorIs(t, err, ErrTransactionClosed)
}

func TestTouch(t *testing.T) {
	tx := newTestTransaction(t)
	later := testNow.Add(5 * time.Minute)

	next, err := Touch(tx, later)
	require.NoError(t, err)

	assert.Equal(t, int64(1), next.Version)
	assert.Equal(t, later, next.UpdatedAt)
	assert.Equal(t, int64(0), tx.Version)
	assert.Same(t, tx.Vessel, next.Vessel)
}

func TestField(t *testing.T) {
	tx := newTestTransaction(t)
	tx = mustUpdate(t, tx, "vessel.make", "Grady-White")
	tx = mustApply(t, tx, "signatures.bill-of-sale", Signature{Signed: true, Date: testNow, Signer: RoleBuyer})

	raw, err := Field(tx, "vessel.make")
	require.NoError(t, err)
	assert.Equal(t, `"Grady-White"`, string(raw))

	raw, err = Field(tx, "signatures.bill-of-sale.signed")
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))

	_, err = Field(tx, "vessel.colour")
	var pathErr *InvalidPathError
	assert.ErrorAs(t, err, &pathErr)

	_, err = Field(nil, "vessel.make")
	assert.ErrorIs(t, err, ErrNoTransaction)
}
