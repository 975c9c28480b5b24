package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offerReadyTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx := newTestTransaction(t)
	tx = mustUpdate(t, tx, "terms.price", 100000)
	tx = mustUpdate(t, tx, "terms.closingDate", "2025-07-15")
	tx = mustUpdate(t, tx, "buyer.name", "Ann Buyer")
	tx = mustUpdate(t, tx, "seller.name", "Sam Seller")
	tx = mustUpdate(t, tx, "vessel.make", "Boston Whaler")
	return tx
}

func TestClampStep(t *testing.T) {
	assert.Equal(t, 6, StepCount())
	assert.Equal(t, 0, ClampStep(-5))
	assert.Equal(t, 5, ClampStep(99))
	assert.Equal(t, 2, ClampStep(2))
}

func TestStepStates(t *testing.T) {
	tx := newTestTransaction(t)
	tx = mustUpdate(t, tx, "vessel.make", "Sea Ray")
	tx = mustUpdate(t, tx, "vessel.model", "Sundancer")
	tx = mustUpdate(t, tx, "vessel.year", 2018)
	tx = mustUpdate(t, tx, "currentStep", 2)

	states := StepStates(tx)
	require.Len(t, states, 6)

	assert.Equal(t, "vessel", states[0].ID)
	assert.True(t, states[0].Ready)
	assert.True(t, states[0].Visited)
	assert.False(t, states[1].Ready)
	assert.True(t, states[2].Current)
	assert.False(t, states[3].Visited)
	assert.False(t, states[5].Ready)
}

func TestCanGenerateOffer(t *testing.T) {
	assert.True(t, CanGenerateOffer(offerReadyTransaction(t)))

	tests := []struct {
		path  string
		value any
	}{
		{path: "terms.price", value: 0},
		{path: "terms.closingDate", value: ""},
		{path: "buyer.name", value: ""},
		{path: "seller.name", value: ""},
		{path: "vessel.make", value: ""},
		{path: "terms.depositMethod", value: ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tx := mustUpdate(t, offerReadyTransaction(t), tt.path, tt.value)
			assert.False(t, CanGenerateOffer(tx))
			assert.Equal(t, []string{tt.path}, MissingOfferFields(tx))
		})
	}
}

func TestCanGenerateOffer_IgnoresOtherFields(t *testing.T) {
	tx := offerReadyTransaction(t)
	tx = mustUpdate(t, tx, "vessel.model", "")
	tx = mustUpdate(t, tx, "buyer.email", "")
	tx = mustUpdate(t, tx, "terms.deposit", 0)

	assert.True(t, CanGenerateOffer(tx))
	assert.Empty(t, MissingOfferFields(tx))
}

func TestBalance(t *testing.T) {
	terms := &Terms{
		Price:         decimal.NewFromInt(50000),
		Deposit:       decimal.NewFromInt(5000),
		DepositMethod: DepositEscrow,
	}
	balance, ok := Balance(terms)
	require.True(t, ok)
	assert.True(t, balance.Equal(decimal.NewFromInt(45000)), balance.String())

	terms.DepositMethod = DepositNone
	balance, ok = Balance(terms)
	require.True(t, ok)
	assert.True(t, balance.Equal(decimal.NewFromInt(50000)), balance.String())

	_, ok = Balance(&Terms{})
	assert.False(t, ok)
}

func TestDepositMismatch(t *testing.T) {
	tx := newTestTransaction(t)
	tx = mustUpdate(t, tx, "terms.deposit", 5000)
	assert.False(t, DepositMismatch(tx), "unreported amount is not a mismatch")

	tx = mustUpdate(t, tx, "depositVerification.amount", 4500)
	assert.True(t, DepositMismatch(tx))

	tx = mustUpdate(t, tx, "depositVerification.amount", "5000.00")
	assert.False(t, DepositMismatch(tx))
}

func TestStageDone(t *testing.T) {
	for _, stage := range []EscrowStatus{EscrowNotStarted, EscrowOpened, EscrowFunded} {
		assert.True(t, StageDone(EscrowFunded, stage), stage)
	}
	for _, stage := range []EscrowStatus{EscrowConditions, EscrowReleased} {
		assert.False(t, StageDone(EscrowFunded, stage), stage)
	}
	assert.False(t, StageDone(EscrowStatus("lost"), EscrowOpened))
	assert.Equal(t, "Funds Deposited", EscrowFunded.Label())
}

func TestCatalog(t *testing.T) {
	docs := Catalog()
	require.Len(t, docs, 21)

	var required []string
	for _, def := range RequiredDocuments() {
		required = append(required, def.ID)
	}
	assert.Equal(t, []string{"purchase-agreement", "bill-of-sale", "closing-statement", "title-transfer", "platform-terms"}, required)

	def, ok := LookupDocument("lien-release")
	require.True(t, ok)
	assert.Equal(t, CategoryEscrow, def.Category)
	assert.Equal(t, "Escrow & Liens", def.Category.Label())

	_, ok = LookupDocument("nope")
	assert.False(t, ok)
}

func TestEvaluateReadiness(t *testing.T) {
	tx := newTestTransaction(t)
	r := EvaluateReadiness(tx)
	assert.Equal(t, 0, r.RequiredSigned)
	assert.Equal(t, 5, r.RequiredTotal)
	assert.False(t, r.CanClose)
	assert.Len(t, r.MissingRequired, 5)

	for _, def := range RequiredDocuments()[:4] {
		tx = mustApply(t, tx, "signatures."+def.ID, Signature{Signed: true, Date: testNow, Signer: RoleBuyer})
	}
	tx = mustUpdate(t, tx, "diligence.survey", true)
	tx = mustApply(t, tx, "diligence.depositSent", true)
	tx = mustUpdate(t, tx, "buyer.name", "Ann")
	tx = mustUpdate(t, tx, "buyer.email", "ann@example.com")

	r = EvaluateReadiness(tx)
	assert.Equal(t, 4, r.RequiredSigned)
	assert.Equal(t, []string{"platform-terms"}, r.MissingRequired)
	assert.Equal(t, 1, r.DiligenceDone)
	assert.Equal(t, 4, r.DiligenceTotal)
	assert.True(t, r.DepositSent)
	assert.False(t, r.DepositConfirmed)
	assert.True(t, r.BuyerComplete)
	assert.False(t, r.SellerComplete)
	assert.False(t, r.CanClose)

	tx = mustApply(t, tx, "signatures.platform-terms", Signature{Signed: true, Date: testNow, Signer: RoleBuyer})
	r = EvaluateReadiness(tx)
	assert.True(t, r.CanClose)
	assert.Empty(t, r.MissingRequired)
}

func TestEvaluateReadiness_UnsignedEntryDoesNotCount(t *testing.T) {
	tx := newTestTransaction(t)
	tx = mustApply(t, tx, "signatures.bill-of-sale", Signature{Signed: false, Date: testNow, Signer: RoleSeller})

	assert.False(t, tx.IsSigned("bill-of-sale"))
	assert.Equal(t, 0, EvaluateReadiness(tx).RequiredSigned)
}
