package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes money coming in from money going out.
type TransactionKind string

const (
	// KindIncome represents money received.
	KindIncome TransactionKind = "income"
	// KindExpense represents money spent.
	KindExpense TransactionKind = "expense"
)

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Sign returns +1 for income and -1 for expense.
func (k TransactionKind) Sign() int {
	switch k {
	case KindIncome:
		return 1
	case KindExpense:
		return -1
	default:
		return 0
	}
}

// Frequency is the recurrence frequency of a recurring transaction.
type Frequency string

const (
	// FrequencyWeekly repeats every 7 days.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyMonthly repeats every calendar month, clamping to the last
	// day of shorter months.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyYearly repeats every calendar year, clamping Feb 29 to
	// Feb 28 on non-leap years.
	FrequencyYearly Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Transaction is one ledger entry. Amount is always positive; the kind and
// the linked account's class decide the signed effect on the balance.
type Transaction struct {
	// ID is the unique identifier of the transaction.
	ID string `json:"id"`

	// Description is a short user-facing description. Required.
	Description string `json:"description"`

	// Amount is the unsigned amount. Always > 0.
	Amount decimal.Decimal `json:"amount"`

	// Kind is income or expense.
	Kind TransactionKind `json:"kind"`

	// AccountID links the transaction to an account. Empty means the
	// transaction is recorded without affecting any balance.
	AccountID string `json:"account_id,omitempty"`

	// IsRecurring marks the transaction for calendar projection.
	IsRecurring bool `json:"is_recurring"`

	// Frequency is required when IsRecurring is set.
	Frequency Frequency `json:"frequency,omitempty"`

	// Category is an opaque grouping label. Stored and returned unchanged.
	Category string `json:"category,omitempty"`

	// AreaID is an opaque area/project reference owned by the caller.
	AreaID string `json:"area_id,omitempty"`

	// Date is the day the transaction occurred.
	Date civil.Date `json:"date"`

	// CreatedAt is when the transaction was recorded.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the transaction was last edited.
	UpdatedAt time.Time `json:"updated_at"`
}

// SignedAmount returns the amount signed by the transaction kind: positive
// for income, negative for expense. This is the user-facing sign, not the
// balance delta (which also depends on the account class).
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Kind == KindExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
