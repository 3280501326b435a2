package domain

import "github.com/shopspring/decimal"

// Delta computes the signed amount to add to an account's balance when a
// transaction of the given kind and amount is applied to an account of the
// given class:
//
//	delta = kind.Sign() * class.Sign() * amount
//
// An expense reduces an asset (spending cash) but increases a liability
// (charging a card grows the debt); an income increases an asset but
// reduces a liability (a payment toward debt).
//
// This is the only place a balance delta is computed. Create, edit, and
// delete all reverse or apply effects through this function.
func Delta(kind TransactionKind, class AccountClass, amount decimal.Decimal) decimal.Decimal {
	if kind.Sign()*class.Sign() < 0 {
		return amount.Neg()
	}
	return amount
}
