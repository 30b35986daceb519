package domain

import "github.com/shopspring/decimal"

// Balance is the server-confirmed view of a user's spendable funds.
// There is a single authoritative instance per authenticated user,
// owned by the balance store; the UI only reads it.
type Balance struct {
	Balance         decimal.Decimal
	CashbackBalance decimal.Decimal
	DataBonus       string
}

// Equal reports whether two balances are value-identical
func (b Balance) Equal(other Balance) bool {
	return b.Balance.Equal(other.Balance) &&
		b.CashbackBalance.Equal(other.CashbackBalance) &&
		b.DataBonus == other.DataBonus
}
