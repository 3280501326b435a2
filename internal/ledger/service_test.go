package ledger

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	calmemory "github.com/omnitrack/ledger/internal/calendar/memory"
	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/invalidation"
	"github.com/omnitrack/ledger/internal/projection"
	"github.com/omnitrack/ledger/internal/recurrence"
	"github.com/omnitrack/ledger/internal/store"
	"github.com/omnitrack/ledger/internal/store/inmemory"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store    *inmemory.Store
	calendar *calmemory.Calendar
	ledger   *Service
	recorder *invalidation.Recorder
}

func newFixture() *fixture {
	st := inmemory.NewStore()
	cal := calmemory.New()
	rec := &invalidation.Recorder{}
	dispatcher := projection.NewSyncDispatcher(recurrence.NewProjector(cal))
	return &fixture{
		store:    st,
		calendar: cal,
		ledger:   NewService(st, dispatcher, cal, rec),
		recorder: rec,
	}
}

func (f *fixture) createAccount(t *testing.T, name string, class domain.AccountClass, balance string) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		ID:      name,
		Name:    name,
		Class:   class,
		Balance: dec(balance),
	}
	if err := f.store.Accounts().Insert(context.Background(), acc); err != nil {
		t.Fatalf("inserting account %s: %v", name, err)
	}
	return acc
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acc, err := f.store.Accounts().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("getting account %s: %v", id, err)
	}
	return acc.Balance
}

func expenseFields(account string, amount string) Fields {
	return Fields{
		Description: "Groceries",
		Amount:      dec(amount),
		Kind:        domain.KindExpense,
		AccountID:   account,
		Date:        civil.Date{Year: 2025, Month: 3, Day: 3},
	}
}

func TestCreate_ExpenseReducesAsset(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")

	if _, err := f.ledger.Create(context.Background(), expenseFields("checking", "200")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if got := f.balance(t, "checking"); got.String() != "800" {
		t.Errorf("balance = %s, want 800", got)
	}
}

func TestCreate_IncomeOverpaysLiability(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "creditcard", domain.ClassCurrentLiability, "300")

	fields := Fields{
		Description: "Payment",
		Amount:      dec("500"),
		Kind:        domain.KindIncome,
		AccountID:   "creditcard",
		Date:        civil.Date{Year: 2025, Month: 3, Day: 3},
	}
	if _, err := f.ledger.Create(context.Background(), fields); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Overpayment: the negative balance is permitted and reported as is.
	if got := f.balance(t, "creditcard"); got.String() != "-200" {
		t.Errorf("balance = %s, want -200", got)
	}
}

func TestCreate_ExpenseGrowsLiability(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "creditcard", domain.ClassCurrentLiability, "300")

	if _, err := f.ledger.Create(context.Background(), expenseFields("creditcard", "50")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if got := f.balance(t, "creditcard"); got.String() != "350" {
		t.Errorf("balance = %s, want 350", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")

	tests := []struct {
		name   string
		mutate func(*Fields)
	}{
		{"empty description", func(f *Fields) { f.Description = "  " }},
		{"zero amount", func(f *Fields) { f.Amount = decimal.Zero }},
		{"negative amount", func(f *Fields) { f.Amount = dec("-5") }},
		{"unknown kind", func(f *Fields) { f.Kind = "transfer" }},
		{"recurring without frequency", func(f *Fields) { f.IsRecurring = true }},
		{"invalid date", func(f *Fields) { f.Date = civil.Date{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := expenseFields("checking", "10")
			tt.mutate(&fields)

			_, err := f.ledger.Create(context.Background(), fields)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			// Nothing committed on a rejected create.
			if got := f.balance(t, "checking"); got.String() != "1000" {
				t.Errorf("balance changed to %s on failed create", got)
			}
		})
	}
}

func TestCreate_UnknownAccountAbortsAtomically(t *testing.T) {
	f := newFixture()

	_, err := f.ledger.Create(context.Background(), expenseFields("missing", "10"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	txs, err := f.store.Transactions().List(context.Background(), store.TransactionFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("transaction row persisted despite failed balance apply")
	}
}

func TestCreate_UnlinkedTransaction(t *testing.T) {
	f := newFixture()

	fields := expenseFields("", "25")
	tx, err := f.ledger.Create(context.Background(), fields)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := f.ledger.Get(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.AccountID != "" {
		t.Errorf("AccountID = %q, want empty", got.AccountID)
	}
}

func TestEdit_AmountReappliesFromOriginalBalance(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")

	tx, err := f.ledger.Create(context.Background(), expenseFields("checking", "200"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := f.balance(t, "checking"); got.String() != "800" {
		t.Fatalf("balance after create = %s, want 800", got)
	}

	fields := expenseFields("checking", "350")
	if _, err := f.ledger.Edit(context.Background(), tx.ID, fields); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	// 1000 - 350, not 800 - 350: the original effect is undone first.
	if got := f.balance(t, "checking"); got.String() != "650" {
		t.Errorf("balance = %s, want 650", got)
	}
}

func TestEdit_MoveBetweenAccounts(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")
	f.createAccount(t, "creditcard", domain.ClassCurrentLiability, "300")

	tx, err := f.ledger.Create(context.Background(), expenseFields("checking", "200"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.ledger.Edit(context.Background(), tx.ID, expenseFields("creditcard", "200")); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	if got := f.balance(t, "checking"); got.String() != "1000" {
		t.Errorf("original account balance = %s, want 1000 (fully restored)", got)
	}
	if got := f.balance(t, "creditcard"); got.String() != "500" {
		t.Errorf("new account balance = %s, want 500 (expense grows debt)", got)
	}
}

func TestEdit_KindFlip(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")

	tx, err := f.ledger.Create(context.Background(), expenseFields("checking", "200"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	fields := expenseFields("checking", "200")
	fields.Kind = domain.KindIncome
	if _, err := f.ledger.Edit(context.Background(), tx.ID, fields); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	if got := f.balance(t, "checking"); got.String() != "1200" {
		t.Errorf("balance = %s, want 1200", got)
	}
}

// Editing must produce the same balances as delete-then-recreate with the
// new fields.
func TestEdit_ReversalSymmetry(t *testing.T) {
	edited := newFixture()
	recreated := newFixture()

	for _, f := range []*fixture{edited, recreated} {
		f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")
		f.createAccount(t, "loan", domain.ClassLongTermLiability, "5000")
	}

	original := expenseFields("checking", "200")
	next := Fields{
		Description: "Loan payment",
		Amount:      dec("450"),
		Kind:        domain.KindIncome,
		AccountID:   "loan",
		Date:        civil.Date{Year: 2025, Month: 4, Day: 1},
	}

	tx1, err := edited.ledger.Create(context.Background(), original)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := edited.ledger.Edit(context.Background(), tx1.ID, next); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	tx2, err := recreated.ledger.Create(context.Background(), original)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := recreated.ledger.Delete(context.Background(), tx2.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := recreated.ledger.Create(context.Background(), next); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for _, id := range []string{"checking", "loan"} {
		a := edited.balance(t, id)
		b := recreated.balance(t, id)
		if a.Cmp(b) != 0 {
			t.Errorf("account %s: edited balance %s != delete+recreate balance %s", id, a, b)
		}
	}
}

func TestDelete_RestoresBalance(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")

	tx, err := f.ledger.Create(context.Background(), expenseFields("checking", "200"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := f.ledger.Delete(context.Background(), tx.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if got := f.balance(t, "checking"); got.String() != "1000" {
		t.Errorf("balance = %s, want 1000", got)
	}
	if _, err := f.ledger.Get(context.Background(), tx.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRecurring_ProjectionAndCascadeDelete(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")

	fields := expenseFields("checking", "30")
	fields.Description = "Gym"
	fields.IsRecurring = true
	fields.Frequency = domain.FrequencyWeekly
	fields.Date = mustDate(t, "2025-03-03")

	tx, err := f.ledger.Create(context.Background(), fields)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	events := f.calendar.EventsByOrigin(domain.OriginTypeTransaction, tx.ID)
	if len(events) != recurrence.OccurrenceCount {
		t.Fatalf("projected %d events, want %d", len(events), recurrence.OccurrenceCount)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Date != events[i-1].Date.AddDays(7) {
			t.Errorf("event %d dated %s, want 7 days after %s", i, events[i].Date, events[i-1].Date)
		}
	}

	if err := f.ledger.Delete(context.Background(), tx.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if left := f.calendar.EventsByOrigin(domain.OriginTypeTransaction, tx.ID); len(left) != 0 {
		t.Errorf("%d projected events remain after delete, want 0", len(left))
	}
}

// failingCalendar rejects every write, standing in for an unreachable
// calendar collaborator.
type failingCalendar struct{}

func (failingCalendar) CreateEvent(ctx context.Context, ev domain.ProjectedEvent) error {
	return errors.New("calendar unavailable")
}

func (failingCalendar) DeleteByOrigin(ctx context.Context, originType, originID string) (int, error) {
	return 0, errors.New("calendar unavailable")
}

func TestCreate_ProjectionFailureDoesNotFailCreate(t *testing.T) {
	st := inmemory.NewStore()
	cal := failingCalendar{}
	svc := NewService(st, projection.NewSyncDispatcher(recurrence.NewProjector(cal)), cal, invalidation.LogInvalidator{})

	acc := &domain.Account{ID: "checking", Name: "Checking", Class: domain.ClassCurrentAsset, Balance: dec("1000")}
	if err := st.Accounts().Insert(context.Background(), acc); err != nil {
		t.Fatalf("inserting account: %v", err)
	}

	fields := expenseFields("checking", "30")
	fields.IsRecurring = true
	fields.Frequency = domain.FrequencyWeekly

	tx, err := svc.Create(context.Background(), fields)
	if err != nil {
		t.Fatalf("Create failed despite best-effort projection: %v", err)
	}

	// The primary commit stands: row present, balance applied.
	if _, err := st.Transactions().Get(context.Background(), tx.ID); err != nil {
		t.Errorf("transaction missing after projection failure: %v", err)
	}
	got, err := st.Accounts().Get(context.Background(), "checking")
	if err != nil {
		t.Fatalf("Get account: %v", err)
	}
	if got.Balance.String() != "970" {
		t.Errorf("balance = %s, want 970", got.Balance)
	}
}

func TestDelete_CascadeFailureDoesNotFailDelete(t *testing.T) {
	st := inmemory.NewStore()
	cal := failingCalendar{}
	svc := NewService(st, projection.NewSyncDispatcher(recurrence.NewProjector(cal)), cal, invalidation.LogInvalidator{})

	acc := &domain.Account{ID: "checking", Name: "Checking", Class: domain.ClassCurrentAsset, Balance: dec("1000")}
	if err := st.Accounts().Insert(context.Background(), acc); err != nil {
		t.Fatalf("inserting account: %v", err)
	}

	tx, err := svc.Create(context.Background(), expenseFields("checking", "200"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The cascade cannot reach the calendar, but the deletion already
	// committed, so Delete must report success.
	if err := svc.Delete(context.Background(), tx.ID); err != nil {
		t.Fatalf("Delete failed on cascade error: %v", err)
	}

	if _, err := st.Transactions().Get(context.Background(), tx.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	got, err := st.Accounts().Get(context.Background(), "checking")
	if err != nil {
		t.Fatalf("Get account: %v", err)
	}
	if got.Balance.String() != "1000" {
		t.Errorf("balance = %s, want 1000 (reversal committed)", got.Balance)
	}

	// A repeated delete of the same row is an ordinary not-found, not a
	// retry path for the cascade.
	if err := svc.Delete(context.Background(), tx.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// The balance-fold invariant: after an arbitrary mix of operations, each
// balance equals the initial balance plus the fold of live deltas.
func TestBalanceFoldInvariant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")
	f.createAccount(t, "creditcard", domain.ClassCurrentLiability, "300")

	tx1, err := f.ledger.Create(ctx, expenseFields("checking", "120.50"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	tx2, err := f.ledger.Create(ctx, expenseFields("creditcard", "80"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	income := Fields{
		Description: "Salary",
		Amount:      dec("2500"),
		Kind:        domain.KindIncome,
		AccountID:   "checking",
		Date:        civil.Date{Year: 2025, Month: 3, Day: 25},
	}
	if _, err := f.ledger.Create(ctx, income); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.ledger.Edit(ctx, tx1.ID, expenseFields("creditcard", "99.99")); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if err := f.ledger.Delete(ctx, tx2.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	initial := map[string]decimal.Decimal{
		"checking":   dec("1000"),
		"creditcard": dec("300"),
	}
	classes := map[string]domain.AccountClass{
		"checking":   domain.ClassCurrentAsset,
		"creditcard": domain.ClassCurrentLiability,
	}

	for id, init := range initial {
		txs, err := f.store.Transactions().List(ctx, store.TransactionFilter{AccountID: id})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		want := init
		for _, tx := range txs {
			want = want.Add(domain.Delta(tx.Kind, classes[id], tx.Amount))
		}
		if got := f.balance(t, id); got.Cmp(want) != 0 {
			t.Errorf("account %s: balance %s != fold %s", id, got, want)
		}
	}
}

func TestInvalidationSignals(t *testing.T) {
	f := newFixture()
	f.createAccount(t, "checking", domain.ClassCurrentAsset, "1000")

	tx, err := f.ledger.Create(context.Background(), expenseFields("checking", "10"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.ledger.Delete(context.Background(), tx.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	calls := f.recorder.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d invalidation signals, want 2", len(calls))
	}
	for i, call := range calls {
		found := false
		for _, v := range call {
			if v == invalidation.ViewTransactions {
				found = true
			}
		}
		if !found {
			t.Errorf("signal %d %v missing %q", i, call, invalidation.ViewTransactions)
		}
	}
}
