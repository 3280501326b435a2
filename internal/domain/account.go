package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountClass identifies the accounting class of an account. The class
// decides how a transaction's amount is applied to the balance: assets grow
// with income, liabilities grow with expenses.
type AccountClass string

const (
	// ClassCurrentAsset represents liquid assets such as bank accounts and cash.
	ClassCurrentAsset AccountClass = "current_asset"
	// ClassFixedAsset represents long-lived assets such as property or vehicles.
	ClassFixedAsset AccountClass = "fixed_asset"
	// ClassCurrentLiability represents short-term debt such as credit cards.
	ClassCurrentLiability AccountClass = "current_liability"
	// ClassLongTermLiability represents long-term debt such as mortgages or loans.
	ClassLongTermLiability AccountClass = "long_term_liability"
)

// Valid reports whether c is one of the known account classes.
func (c AccountClass) Valid() bool {
	switch c {
	case ClassCurrentAsset, ClassFixedAsset, ClassCurrentLiability, ClassLongTermLiability:
		return true
	}
	return false
}

// Sign returns +1 for asset classes and -1 for liability classes.
// Every balance application goes through this single rule; there is no
// string matching on class names anywhere else.
func (c AccountClass) Sign() int {
	switch c {
	case ClassCurrentAsset, ClassFixedAsset:
		return 1
	case ClassCurrentLiability, ClassLongTermLiability:
		return -1
	default:
		return 0
	}
}

// Account is a named financial container with a materialized balance.
// The balance is owned exclusively by the account store: it is set at
// creation and changed only through delta application, never through a
// general update.
type Account struct {
	// ID is the unique identifier of the account.
	ID string `json:"id"`

	// Name is the user-facing name, e.g. "Checking".
	Name string `json:"name"`

	// Kind is a free-text label, e.g. "Bank Account". Not interpreted.
	Kind string `json:"kind,omitempty"`

	// Class decides the sign rule for applying transactions.
	Class AccountClass `json:"class"`

	// Balance is the materialized signed balance. It always equals the
	// initial balance plus the sum of deltas of all live transactions
	// linked to this account.
	Balance decimal.Decimal `json:"balance"`

	// CreatedAt is when the account was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the account was last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
