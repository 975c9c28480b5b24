package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const firstIterationRecord = `{
  "id": "6f1c2a8e-1111-4d5e-9a3b-000000000001",
  "role": "seller",
  "currentStep": 9,
  "status": "draft",
  "createdAt": "2024-03-01T10:00:00Z",
  "vessel": {"make": "Boston Whaler", "model": "Outrage", "year": "2019", "length": "", "hin": "BWC12345A919",
             "location": "Tampa, FL", "type": "powerboat", "condition": "used", "description": ""},
  "buyer": {"name": "Ann Buyer", "email": "ann@example.com", "phone": "", "address": "", "city": "", "state": "FL", "zip": ""},
  "seller": {"name": "Sam Seller", "email": "", "phone": "", "address": "", "city": "", "state": "GA", "zip": ""},
  "terms": {"price": "85000", "deposit": "", "depositHolder": "seller", "closingDate": "2024-04-01",
            "surveyDeadline": "", "financing": "cash", "contingencies": ["survey"]},
  "diligence": {"survey": true, "seaTrial": false, "titleSearch": false, "insurance": false,
                "mechInspection": false, "hullInspection": false, "depositSent": false, "depositReceived": false},
  "documents": {},
  "signatures": {"bill-of-sale": {"signed": true, "date": "2024-03-02T00:00:00Z", "signer": "seller"}}
}`

func TestDecode_MigratesFirstIteration(t *testing.T) {
	tx, err := Decode([]byte(firstIterationRecord))
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, tx.SchemaVersion)
	assert.Equal(t, RoleSeller, tx.Role)
	assert.Equal(t, StepClosing, tx.CurrentStep)
	assert.Equal(t, "BWC12345A919", tx.Vessel.HullID)
	assert.Equal(t, 2019, tx.Vessel.Year)
	assert.True(t, tx.Vessel.Length.IsZero())
	assert.True(t, tx.Terms.Price.Equal(decimal.NewFromInt(85000)))
	assert.True(t, tx.Terms.Deposit.IsZero())
	assert.Equal(t, DepositWire, tx.Terms.DepositMethod)
	assert.Equal(t, []string{"survey"}, tx.Terms.Contingencies)

	require.NotNil(t, tx.Offer)
	assert.Equal(t, OfferDraft, tx.Offer.Status)
	assert.Equal(t, PlanStandard, tx.Offer.SelectedPlan)
	assert.NotNil(t, tx.Offer.History)
	require.NotNil(t, tx.Escrow)
	assert.Equal(t, EscrowNotStarted, tx.Escrow.Status)
	assert.NotNil(t, tx.DepositVerification)

	assert.True(t, tx.IsSigned("bill-of-sale"))
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), tx.UpdatedAt.UTC())
}

func TestDecode_DepositHolderMapping(t *testing.T) {
	tests := map[string]DepositMethod{
		"escrow":      DepositEscrow,
		"third-party": DepositEscrow,
		"seller":      DepositWire,
		"buyer":       DepositNone,
		"unexpected":  DepositEscrow,
	}
	for holder, want := range tests {
		t.Run(holder, func(t *testing.T) {
			raw := `{"id":"x","role":"buyer","createdAt":"2024-01-01T00:00:00Z","terms":{"depositHolder":"` + holder + `"}}`
			tx, err := Decode([]byte(raw))
			require.NoError(t, err)
			assert.Equal(t, want, tx.Terms.DepositMethod)
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	tx := newTestTransaction(t)
	tx = mustUpdate(t, tx, "vessel.make", "Catalina")
	tx = mustUpdate(t, tx, "terms.price", "42000.50")
	tx = mustApply(t, tx, "signatures.bill-of-sale", Signature{Signed: true, Date: testNow, Signer: RoleBuyer, Mode: "typed"})

	raw, err := Encode(tx)
	require.NoError(t, err)
	got, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, "Catalina", got.Vessel.Make)
	assert.True(t, tx.Terms.Price.Equal(got.Terms.Price))
	assert.Equal(t, tx.Signatures, got.Signatures)
	assert.Equal(t, tx.CreatedAt, got.CreatedAt)
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"corrupt":        `{"id": `,
		"null":           `null`,
		"missing id":     `{"schemaVersion": 2, "role": "buyer"}`,
		"future version": `{"id": "x", "schemaVersion": 7}`,
		"bad enum":       `{"id": "x", "schemaVersion": 2, "role": "buyer", "vessel": {"type": 3}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestEncode_NilTransaction(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrNoTransaction)
}
