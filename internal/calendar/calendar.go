// Package calendar defines the contract with the calendar collaborator
// that receives projected occurrences of recurring transactions. The
// ledger core only writes events and cascade-deletes them by origin; it
// never reads them back for its own consistency.
package calendar

import (
	"context"

	"github.com/omnitrack/ledger/internal/domain"
)

// Calendar is the outbound interface to the calendar collaborator.
type Calendar interface {
	// CreateEvent stores one projected occurrence.
	CreateEvent(ctx context.Context, ev domain.ProjectedEvent) error

	// DeleteByOrigin removes every event carrying the given origin and
	// returns how many were removed.
	DeleteByOrigin(ctx context.Context, originType, originID string) (int, error)
}
