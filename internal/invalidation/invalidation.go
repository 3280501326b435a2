// Package invalidation carries the "affected views" signal the ledger core
// emits after successful mutations, so a caching or UI layer knows what to
// refresh. It is a notification list, not a pub/sub protocol.
package invalidation

import (
	"context"
	"sync"

	"github.com/omnitrack/ledger/internal/logger"
)

// Logical view identifiers emitted by the core.
const (
	ViewAccounts     = "accounts"
	ViewTransactions = "transactions"
	ViewPockets      = "pockets"
	ViewCalendar     = "calendar"
)

// Invalidator receives the set of views affected by a successful mutation.
// Implementations must not fail the mutation; the signal is advisory.
type Invalidator interface {
	Invalidate(ctx context.Context, views ...string)
}

// LogInvalidator logs affected views through the context logger. It is the
// default when no caching layer is wired.
type LogInvalidator struct{}

// Invalidate implements Invalidator.
func (LogInvalidator) Invalidate(ctx context.Context, views ...string) {
	log := logger.FromContext(ctx)
	log.Debug().
		Strs("views", views).
		Msg("Views invalidated")
}

// Recorder collects invalidation signals for inspection in tests.
type Recorder struct {
	mu    sync.Mutex
	calls [][]string
}

// Invalidate implements Invalidator.
func (r *Recorder) Invalidate(ctx context.Context, views ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), views...))
}

// Calls returns every recorded signal in order.
func (r *Recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Ensure implementations satisfy the interface.
var (
	_ Invalidator = LogInvalidator{}
	_ Invalidator = (*Recorder)(nil)
)
