package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const (
	// TransactionsTable is the warehouse table for exported transactions.
	TransactionsTable = "transactions"

	// insertBatchSize bounds the rows sent per streaming insert request.
	insertBatchSize = 500
)

// InsertTransactionsWithClient streams rows into dataset.transactions.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(TransactionsTable).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertTransactions: inserting rows %d-%d: %w", start, end, err)
		}
	}

	return nil
}

// ExportedTransactionIDsWithClient returns the set of transaction ids already
// present in dataset.transactions.
func ExportedTransactionIDsWithClient(ctx context.Context, client *bigquery.Client, datasetID string) (map[string]bool, error) {
	q := client.Query(fmt.Sprintf("SELECT DISTINCT transaction_id FROM `%s.%s`", datasetID, TransactionsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ExportedTransactionIDs: query read: %w", err)
	}

	ids := make(map[string]bool)
	for {
		var r struct {
			TransactionID string `bigquery:"transaction_id"`
		}
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ExportedTransactionIDs: iter next: %w", err)
		}
		ids[r.TransactionID] = true
	}

	return ids, nil
}
