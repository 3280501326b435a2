// Package bigquery exports ledger state to BigQuery for analytics. The
// warehouse is a downstream copy; the in-process store stays the source of
// truth and the export never writes back.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/logger"
	"github.com/omnitrack/ledger/internal/store"
)

const (
	accountsTable     = "accounts"
	transactionsTable = "transactions"
	dateFormat        = "2006-01-02"
)

// Exporter pushes account and transaction rows into a BigQuery dataset.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewExporter creates an exporter with its own BigQuery client.
func NewExporter(ctx context.Context, projectID, datasetID string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}
	return &Exporter{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ExportAccounts inserts a batch of account rows.
func (e *Exporter) ExportAccounts(ctx context.Context, accounts []*domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	rows := make([]*AccountRow, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, AccountToRow(acc))
	}

	table := e.client.DatasetInProject(e.projectID, e.datasetID).Table(accountsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("ExportAccounts: inserting rows: %w", err)
	}
	return nil
}

// ExportTransactions inserts a batch of transaction rows.
func (e *Exporter) ExportTransactions(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, TransactionToRow(tx))
	}

	table := e.client.DatasetInProject(e.projectID, e.datasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("ExportTransactions: inserting rows: %w", err)
	}
	return nil
}

// ExportAll reads all accounts and transactions from the store and pushes
// them to the warehouse.
func (e *Exporter) ExportAll(ctx context.Context, st store.Store) error {
	accounts, err := st.Accounts().List(ctx)
	if err != nil {
		return fmt.Errorf("ExportAll: listing accounts: %w", err)
	}
	if err := e.ExportAccounts(ctx, accounts); err != nil {
		return err
	}

	txs, err := st.Transactions().List(ctx, store.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("ExportAll: listing transactions: %w", err)
	}
	if err := e.ExportTransactions(ctx, txs); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("accounts", len(accounts)).
		Int("transactions", len(txs)).
		Msg("Export completed")
	return nil
}

// QueryTransactionsByDateRange reads exported transactions back within the
// given date range, newest last.
func (e *Exporter) QueryTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*TransactionRow, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			account_id,
			description,
			transaction_date,
			amount,
			kind,
			category,
			area_id,
			is_recurring,
			frequency,
			created_ts,
			updated_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts
	`, e.projectID, e.datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: startDate.Format(dateFormat)},
		{Name: "end_date", Value: endDate.Format(dateFormat)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
