// Package export serializes the store as a JSON backup bundle, a CSV log or
// rows in the BigQuery warehouse.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/shopspring/decimal"
)

// BundleVersion is written into every JSON backup.
const BundleVersion = "2.5"

// Bundle is the JSON backup document.
type Bundle struct {
	Transactions   []domain.Transaction   `json:"transactions"`
	Categories     []domain.Category      `json:"categories"`
	PaymentMethods []domain.PaymentMethod `json:"paymentMethods"`
	ExportDate     time.Time              `json:"exportDate"`
	Version        string                 `json:"version"`
}

// NewBundle assembles a backup taken at now.
func NewBundle(txs []domain.Transaction, categories []domain.Category, methods []domain.PaymentMethod, now time.Time) Bundle {
	b := Bundle{
		Transactions:   txs,
		Categories:     categories,
		PaymentMethods: methods,
		ExportDate:     now.UTC(),
		Version:        BundleVersion,
	}
	if b.Transactions == nil {
		b.Transactions = []domain.Transaction{}
	}
	if b.Categories == nil {
		b.Categories = []domain.Category{}
	}
	if b.PaymentMethods == nil {
		b.PaymentMethods = []domain.PaymentMethod{}
	}
	return b
}

// WriteJSON writes b as indented JSON.
func WriteJSON(w io.Writer, b Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("WriteJSON: %w", err)
	}
	return nil
}

// CSVHeader is the first row of the CSV log.
var CSVHeader = []string{"Date", "Type", "Category", "Asset", "Amount", "Note"}

// WriteCSV writes one row per transaction. Missing or stale references are
// written as Unknown.
func WriteCSV(w io.Writer, txs []domain.Transaction, categories []domain.Category, methods []domain.PaymentMethod, loc *time.Location) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("WriteCSV: header: %w", err)
	}

	for _, tx := range txs {
		category, _ := domain.CategoryLabel(categories, tx.CategoryID)
		record := []string{
			tx.Date.In(loc).Format(time.DateOnly),
			string(domain.NormalizeType(tx.Type)),
			category,
			domain.PaymentMethodLabel(methods, tx.PaymentMethodID),
			decimal.NewFromFloat(tx.Amount).String(),
			tx.Note,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("WriteCSV: %s: %w", tx.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: flush: %w", err)
	}
	return nil
}

// BackupFileName is the conventional name of a JSON backup taken at now.
func BackupFileName(now time.Time) string {
	return "fintrack_backup_" + now.UTC().Format(time.DateOnly) + ".json"
}

// LogFileName is the conventional name of a CSV log written at now.
func LogFileName(now time.Time) string {
	return "fintrack_logs_" + now.UTC().Format(time.DateOnly) + ".csv"
}
