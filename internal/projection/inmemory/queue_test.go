package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/projection"
)

func testJob(id string) *projection.Job {
	return &projection.Job{
		JobID: id,
		Transaction: &domain.Transaction{
			ID:          "tx-" + id,
			Description: "Rent",
			Amount:      decimal.NewFromInt(350),
			Kind:        domain.KindExpense,
		},
	}
}

func waitForStatus(t *testing.T, store *Store, jobID string, want projection.JobStatus) *projection.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueue_PublishAndProcess(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var mu sync.Mutex
	var handled []string
	err := q.Start(context.Background(), func(ctx context.Context, job *projection.Job) error {
		mu.Lock()
		handled = append(handled, job.Transaction.ID)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := q.Publish(context.Background(), testJob("a")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	job := waitForStatus(t, store, "a", projection.JobStatusCompleted)
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("expected started and completed timestamps on a finished job")
	}
	if job.Error != "" {
		t.Errorf("unexpected job error: %s", job.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != "tx-a" {
		t.Errorf("handled = %v, want [tx-a]", handled)
	}
}

func TestQueue_HandlerFailureRecordedNotRetried(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var mu sync.Mutex
	attempts := 0
	err := q.Start(context.Background(), func(ctx context.Context, job *projection.Job) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("calendar unavailable")
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := q.Publish(context.Background(), testJob("b")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	job := waitForStatus(t, store, "b", projection.JobStatusFailed)
	if job.Error != "calendar unavailable" {
		t.Errorf("job error = %q, want %q", job.Error, "calendar unavailable")
	}

	// Give the workers a chance to (incorrectly) pick the job up again.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if attempts != 1 {
		t.Errorf("handler ran %d times, want 1", attempts)
	}
}

func TestQueue_PublishFillsDefaults(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	job := testJob("")
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if job.JobID == "" {
		t.Error("expected a generated job ID")
	}
	if job.Status != projection.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(10, nil)
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := q.Publish(context.Background(), testJob("c")); err == nil {
		t.Error("expected Publish on a stopped queue to fail")
	}
	if err := q.Start(context.Background(), func(context.Context, *projection.Job) error { return nil }); err == nil {
		t.Error("expected Start on a stopped queue to fail")
	}
}

func TestQueue_StopWaitsForInFlight(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)

	release := make(chan struct{})
	started := make(chan struct{})
	err := q.Start(context.Background(), func(ctx context.Context, job *projection.Job) error {
		close(started)
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := q.Publish(context.Background(), testJob("d")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- q.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	job, err := store.GetJob(context.Background(), "d")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != projection.JobStatusCompleted {
		t.Errorf("status after Stop = %s, want completed", job.Status)
	}
}

func TestStore_SaveGetList(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.SaveJob(ctx, &projection.Job{}); err == nil {
		t.Error("expected SaveJob without an ID to fail")
	}

	a := testJob("a")
	a.Status = projection.JobStatusCompleted
	b := testJob("b")
	b.Status = projection.JobStatusFailed
	for _, job := range []*projection.Job{a, b} {
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	// Mutating the caller's copy must not affect the stored job.
	a.Status = projection.JobStatusPending
	got, err := store.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != projection.JobStatusCompleted {
		t.Errorf("stored status = %s, want completed", got.Status)
	}

	if _, err := store.GetJob(ctx, "nope"); err == nil {
		t.Error("expected GetJob on unknown ID to fail")
	}

	all, err := store.ListJobs(ctx, "")
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListJobs(all) returned %d jobs, want 2", len(all))
	}

	failed, err := store.ListJobs(ctx, projection.JobStatusFailed)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(failed) != 1 || failed[0].JobID != "b" {
		t.Errorf("ListJobs(failed) = %v, want only job b", failed)
	}
}
