package domain

import "cloud.google.com/go/civil"

// OriginTypeTransaction tags calendar events that were projected from a
// recurring transaction, so they can be located and cascade-deleted when
// the transaction is deleted.
const OriginTypeTransaction = "transaction"

// ProjectedEvent is one future calendar occurrence derived from a recurring
// transaction. Events are a write-only output of the ledger: the calendar
// collaborator owns them, and the ledger only guarantees cascade-delete by
// origin when the source transaction is deleted.
type ProjectedEvent struct {
	// Title is the display label: the transaction description plus the
	// signed amount.
	Title string `json:"title"`

	// Date is the day of the occurrence. Events are all-day.
	Date civil.Date `json:"date"`

	// AllDay is always true for projected occurrences.
	AllDay bool `json:"all_day"`

	// OriginType identifies the kind of source entity, currently always
	// OriginTypeTransaction.
	OriginType string `json:"origin_type"`

	// OriginID is the ID of the source transaction.
	OriginID string `json:"origin_id"`
}
