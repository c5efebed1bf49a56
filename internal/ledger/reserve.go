package ledger

import "github.com/shopspring/decimal"

// ReserveRate is the share of cumulative income held back as emergency reserve.
var ReserveRate = decimal.RequireFromString("0.15")

// RequiredReserve returns the emergency reserve for the given cumulative income.
func RequiredReserve(totalIncome decimal.Decimal) decimal.Decimal {
	return totalIncome.Mul(ReserveRate)
}

// AvailableFunds is the balance left once the reserve is set aside.
func AvailableFunds(balance, reserve decimal.Decimal) decimal.Decimal {
	return balance.Sub(reserve)
}
