package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// TransactionRepository provides the warehouse operations used by the exporter.
type TransactionRepository interface {
	// InsertTransactions inserts a batch of TransactionRow into the warehouse.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// ExportedTransactionIDs returns the ids that are already in the warehouse.
	ExportedTransactionIDs(ctx context.Context) (map[string]bool, error)
}

// BigQueryTransactionRepository is the concrete implementation of
// TransactionRepository. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryTransactionRepository struct {
	client    *bigquery.Client
	datasetID string
}

// NewBigQueryTransactionRepository creates a repository bound to projectID and datasetID.
func NewBigQueryTransactionRepository(ctx context.Context, projectID, datasetID string) (*BigQueryTransactionRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryTransactionRepository: creating client: %w", err)
	}
	return &BigQueryTransactionRepository{
		client:    client,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryTransactionRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertTransactions delegates to InsertTransactionsWithClient with the shared client.
func (r *BigQueryTransactionRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, r.datasetID, rows)
}

// ExportedTransactionIDs delegates to ExportedTransactionIDsWithClient with the shared client.
func (r *BigQueryTransactionRepository) ExportedTransactionIDs(ctx context.Context) (map[string]bool, error) {
	return ExportedTransactionIDsWithClient(ctx, r.client, r.datasetID)
}
