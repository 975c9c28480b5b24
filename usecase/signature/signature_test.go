package signature

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/repository/memory"
	"github.com/fastygo/boatclosers/usecase/session"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, role domain.Role) (*UseCase, *session.UseCase) {
	t.Helper()
	s := session.New(memory.NewTransactionStore(), nil, session.WithClock(func() time.Time { return testNow }))
	_, _, err := s.Start(context.Background(), role)
	require.NoError(t, err)
	return New(s, nil, nil), s
}

func TestCaptureValidity(t *testing.T) {
	tests := []struct {
		name    string
		capture Capture
		valid   bool
	}{
		{"empty freehand", Freehand{}, false},
		{"empty strokes", Freehand{Strokes: [][]Point{{}, {}}}, false},
		{"single point", Freehand{Strokes: [][]Point{{}, {{X: 1, Y: 2}}}}, true},
		{"empty typed", Typed{}, false},
		{"one letter", Typed{Name: "J"}, false},
		{"padded letter", Typed{Name: "  J  "}, false},
		{"initials", Typed{Name: "JD"}, true},
		{"multibyte", Typed{Name: "Zoë"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.capture.Valid())
		})
	}
}

func TestSign(t *testing.T) {
	uc, _ := setup(t, domain.RoleSeller)
	ctx := context.Background()

	tx, err := uc.Sign(ctx, "bill-of-sale", Typed{Name: "Sam Seller"})
	require.NoError(t, err)

	sig := tx.Signatures["bill-of-sale"]
	assert.True(t, sig.Signed)
	assert.Equal(t, domain.RoleSeller, sig.Signer)
	assert.Equal(t, testNow, sig.Date)
	assert.Equal(t, ModeTyped, sig.Mode)
	assert.True(t, tx.IsSigned("bill-of-sale"))
}

func TestSign_Errors(t *testing.T) {
	uc, s := setup(t, domain.RoleBuyer)
	ctx := context.Background()

	_, err := uc.Sign(ctx, "napkin", Typed{Name: "Bea"})
	assert.ErrorIs(t, err, domain.ErrUnknownDocument)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	_, err = uc.Sign(ctx, "bill-of-sale", Freehand{})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = uc.Sign(ctx, "bill-of-sale", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = uc.Sign(ctx, "bill-of-sale", Freehand{Strokes: [][]Point{{{X: 3, Y: 4}}}})
	require.NoError(t, err)

	_, err = uc.Sign(ctx, "bill-of-sale", Typed{Name: "Bea"})
	assert.ErrorIs(t, err, domain.ErrAlreadySigned)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))

	tx, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeFreehand, tx.Signatures["bill-of-sale"].Mode)
}
