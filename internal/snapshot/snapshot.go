// Package snapshot writes point-in-time JSON dumps of the ledger to a GCS
// bucket. Snapshots are for backup and offline inspection; they are never
// read back into a running instance.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/logger"
	"github.com/omnitrack/ledger/internal/store"
)

// Snapshot is the on-disk shape of one dump.
type Snapshot struct {
	TakenAt      time.Time             `json:"taken_at"`
	Accounts     []*domain.Account     `json:"accounts"`
	Transactions []*domain.Transaction `json:"transactions"`
	Pockets      []*domain.Pocket      `json:"pockets"`
}

// Writer uploads snapshots to a bucket. It assumes Application Default
// Credentials are configured.
type Writer struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewWriter creates a snapshot writer with its own storage client.
func NewWriter(ctx context.Context, bucket, prefix string) (*Writer, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewWriter: creating storage client: %w", err)
	}
	return &Writer{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Close closes the storage client.
func (w *Writer) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// Take reads the full ledger state from the store and uploads it as one
// JSON object. Returns the object name of the written snapshot.
func (w *Writer) Take(ctx context.Context, st store.Store) (string, error) {
	accounts, err := st.Accounts().List(ctx)
	if err != nil {
		return "", fmt.Errorf("Take: listing accounts: %w", err)
	}
	txs, err := st.Transactions().List(ctx, store.TransactionFilter{})
	if err != nil {
		return "", fmt.Errorf("Take: listing transactions: %w", err)
	}

	snap := Snapshot{
		TakenAt:      time.Now().UTC(),
		Accounts:     accounts,
		Transactions: txs,
	}
	for _, acc := range accounts {
		pockets, err := st.Pockets().ListByAccount(ctx, acc.ID)
		if err != nil {
			return "", fmt.Errorf("Take: listing pockets for %s: %w", acc.ID, err)
		}
		snap.Pockets = append(snap.Pockets, pockets...)
	}

	objectName := w.objectName(snap.TakenAt)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := w.client.Bucket(w.bucket).Object(objectName)
	ow := obj.NewWriter(ctx)
	ow.ContentType = "application/json"

	enc := json.NewEncoder(ow)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		_ = ow.Close()
		return "", fmt.Errorf("Take: encoding snapshot: %w", err)
	}
	if err := ow.Close(); err != nil {
		return "", fmt.Errorf("Take: finalize upload: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("bucket", w.bucket).
		Str("object", objectName).
		Int("accounts", len(accounts)).
		Int("transactions", len(txs)).
		Msg("Snapshot uploaded")
	return objectName, nil
}

// Fetch downloads a previously written snapshot by object name.
func (w *Writer) Fetch(ctx context.Context, objectName string) (*Snapshot, error) {
	rc, err := w.client.Bucket(w.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", w.bucket, objectName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("Fetch: decoding snapshot: %w", err)
	}
	return &snap, nil
}

func (w *Writer) objectName(ts time.Time) string {
	name := fmt.Sprintf("ledger-%s.json", ts.Format("20060102T150405Z"))
	if w.prefix == "" {
		return name
	}
	return w.prefix + "/" + name
}
