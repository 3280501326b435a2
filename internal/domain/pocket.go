package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pocket is a named virtual sub-allocation of an account's balance, used
// for budgeting. A pocket only claims a portion of the balance
// conceptually; it never changes the account's balance itself.
type Pocket struct {
	// ID is the unique identifier of the pocket.
	ID string `json:"id"`

	// AccountID is the account whose balance this pocket partitions.
	AccountID string `json:"account_id"`

	// Name is the user-facing name, e.g. "Rent".
	Name string `json:"name"`

	// Allocated is the amount claimed by this pocket. Non-negative by
	// convention; the sum across pockets is not checked against the
	// account balance, so an account may be over-allocated.
	Allocated decimal.Decimal `json:"allocated"`

	// Target is an optional savings target for the pocket.
	Target *decimal.Decimal `json:"target,omitempty"`

	// AreaID is an opaque area/project reference owned by the caller.
	AreaID string `json:"area_id,omitempty"`

	// CreatedAt is when the pocket was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the pocket was last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
