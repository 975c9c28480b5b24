package domain

import "github.com/shopspring/decimal"

// Balance is the amount due at closing. The deposit is deducted unless no deposit
// is taken. ok is false while the price is still unknown.
func Balance(t *Terms) (balance decimal.Decimal, ok bool) {
	if t == nil || !t.Price.IsPositive() {
		return decimal.Zero, false
	}
	if t.DepositMethod == DepositNone {
		return t.Price, true
	}
	return t.Price.Sub(t.Deposit), true
}

// DepositMismatch flags a reported deposit amount that differs from the agreed one.
// It is advisory only and never blocks confirmation.
func DepositMismatch(tx *Transaction) bool {
	if tx == nil || tx.DepositVerification == nil || tx.Terms == nil {
		return false
	}
	reported, agreed := tx.DepositVerification.Amount, tx.Terms.Deposit
	if reported.IsZero() || agreed.IsZero() {
		return false
	}
	return !reported.Equal(agreed)
}

// DepositVerified is true once both parties confirmed the deposit.
func DepositVerified(tx *Transaction) bool {
	if tx == nil || tx.DepositVerification == nil {
		return false
	}
	return tx.DepositVerification.ConfirmedByBuyer && tx.DepositVerification.ConfirmedBySeller
}
