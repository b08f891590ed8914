package export

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/fintrack/internal/domain"
	infra "github.com/dvloznov/fintrack/internal/infra/bigquery"
	"github.com/dvloznov/fintrack/internal/lent"
	"github.com/dvloznov/fintrack/internal/logger"
	"github.com/shopspring/decimal"
)

// WarehouseReport summarizes one BigQuery export run.
type WarehouseReport struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// BigQueryExporter appends transactions that are not yet in the warehouse.
type BigQueryExporter struct {
	repo infra.TransactionRepository
	now  func() time.Time
}

// NewBigQueryExporter creates an exporter over repo.
func NewBigQueryExporter(repo infra.TransactionRepository) *BigQueryExporter {
	return &BigQueryExporter{repo: repo, now: time.Now}
}

// Export inserts every transaction whose id is not already exported. Rows
// are append-only; later edits to an exported transaction are not synced.
func (e *BigQueryExporter) Export(ctx context.Context, txs []domain.Transaction, categories []domain.Category, methods []domain.PaymentMethod) (WarehouseReport, error) {
	log := logger.FromContext(ctx)

	existing, err := e.repo.ExportedTransactionIDs(ctx)
	if err != nil {
		return WarehouseReport{}, fmt.Errorf("BigQueryExporter.Export: %w", err)
	}

	now := e.now().UTC()
	var (
		rows   []*infra.TransactionRow
		report WarehouseReport
	)
	for i := range txs {
		if existing[txs[i].ID] {
			report.Skipped++
			continue
		}
		rows = append(rows, ToRow(&txs[i], categories, methods, now))
	}

	if err := e.repo.InsertTransactions(ctx, rows); err != nil {
		return WarehouseReport{}, fmt.Errorf("BigQueryExporter.Export: %w", err)
	}
	report.Inserted = len(rows)

	log.Info().Int("inserted", report.Inserted).Int("skipped", report.Skipped).Msg("Exported transactions to BigQuery")
	return report, nil
}

// ToRow maps a transaction onto the warehouse schema.
func ToRow(tx *domain.Transaction, categories []domain.Category, methods []domain.PaymentMethod, exportedAt time.Time) *infra.TransactionRow {
	row := &infra.TransactionRow{
		TransactionID:     tx.ID,
		TransactionDate:   civil.DateOf(tx.Date),
		BookedTS:          tx.Date,
		Type:              string(domain.NormalizeType(tx.Type)),
		Amount:            decimal.NewFromFloat(tx.Amount).Rat(),
		PaymentMethodID:   tx.PaymentMethodID,
		PaymentMethodName: domain.PaymentMethodLabel(methods, tx.PaymentMethodID),
		Note:              tx.Note,
		ExportedTS:        exportedAt,
	}

	if tx.CategoryID != "" {
		name, _ := domain.CategoryLabel(categories, tx.CategoryID)
		row.CategoryID = bigquery.NullString{StringVal: tx.CategoryID, Valid: true}
		row.CategoryName = bigquery.NullString{StringVal: name, Valid: true}
	}

	if tx.IsLent() {
		row.IsReturned = bigquery.NullBool{Bool: tx.IsReturned, Valid: true}
		row.Outstanding = lent.Outstanding(tx).Rat()
	}

	return row
}
