package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/omnitrack/ledger/internal/domain"
)

type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED

	AccountName  string `bigquery:"account_name"`  // NULLABLE
	AccountKind  string `bigquery:"account_kind"`  // NULLABLE
	AccountClass string `bigquery:"account_class"` // REQUIRED

	Balance *big.Rat `bigquery:"balance"` // REQUIRED NUMERIC

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	AccountID   string `bigquery:"account_id"`  // NULLABLE (unlinked after account delete)
	Description string `bigquery:"description"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC
	Kind   string   `bigquery:"kind"`   // REQUIRED

	Category bigquery.NullString `bigquery:"category"` // NULLABLE
	AreaID   bigquery.NullString `bigquery:"area_id"`  // NULLABLE

	IsRecurring bigquery.NullBool   `bigquery:"is_recurring"`
	Frequency   bigquery.NullString `bigquery:"frequency"` // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// AccountToRow converts a domain account into its export row.
func AccountToRow(acc *domain.Account) *AccountRow {
	return &AccountRow{
		AccountID:    acc.ID,
		AccountName:  acc.Name,
		AccountKind:  acc.Kind,
		AccountClass: string(acc.Class),
		Balance:      acc.Balance.Rat(),
		CreatedTS:    acc.CreatedAt,
		UpdatedTS:    bigquery.NullTimestamp{Timestamp: acc.UpdatedAt, Valid: !acc.UpdatedAt.IsZero()},
	}
}

// TransactionToRow converts a domain transaction into its export row.
func TransactionToRow(tx *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   tx.ID,
		AccountID:       tx.AccountID,
		Description:     tx.Description,
		TransactionDate: tx.Date,
		Amount:          tx.Amount.Rat(),
		Kind:            string(tx.Kind),
		Category:        bigquery.NullString{StringVal: tx.Category, Valid: tx.Category != ""},
		AreaID:          bigquery.NullString{StringVal: tx.AreaID, Valid: tx.AreaID != ""},
		IsRecurring:     bigquery.NullBool{Bool: tx.IsRecurring, Valid: true},
		Frequency:       bigquery.NullString{StringVal: string(tx.Frequency), Valid: tx.Frequency != ""},
		CreatedTS:       tx.CreatedAt,
		UpdatedTS:       bigquery.NullTimestamp{Timestamp: tx.UpdatedAt, Valid: !tx.UpdatedAt.IsZero()},
	}
}
