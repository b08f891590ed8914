package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRow is one exported transaction in the warehouse table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	BookedTS        time.Time  `bigquery:"booked_ts"`        // REQUIRED

	Type   string   `bigquery:"type"`   // REQUIRED: income | expense | lent
	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC

	CategoryID   bigquery.NullString `bigquery:"category_id"`   // NULLABLE, empty for lent
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE

	PaymentMethodID   string `bigquery:"payment_method_id"`   // REQUIRED
	PaymentMethodName string `bigquery:"payment_method_name"` // REQUIRED

	Note string `bigquery:"note"`

	// Lent-only columns.
	IsReturned  bigquery.NullBool `bigquery:"is_returned"`
	Outstanding *big.Rat          `bigquery:"outstanding"` // NULLABLE NUMERIC

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}
