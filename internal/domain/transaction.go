package domain

import (
	"strings"
	"time"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
	TypeLent    TransactionType = "lent"

	// TypeTransfer only appears in legacy exports and is normalized to TypeLent.
	TypeTransfer TransactionType = "transfer"
)

// NormalizeType maps a stored or imported type to one of the three canonical
// types. Unknown values are treated as expenses.
func NormalizeType(t TransactionType) TransactionType {
	switch TransactionType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case TypeIncome:
		return TypeIncome
	case TypeLent, TypeTransfer:
		return TypeLent
	default:
		return TypeExpense
	}
}

// PartialReturn is one repayment recorded against a lent transaction.
type PartialReturn struct {
	ID     string    `json:"id"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// Transaction is a single income, expense or lent record.
// For lent transactions Note holds the counterparty name and CategoryID is empty.
type Transaction struct {
	ID              string          `json:"id"`
	Amount          float64         `json:"amount" validate:"gt=0"`
	Type            TransactionType `json:"type" validate:"oneof=income expense lent"`
	CategoryID      string          `json:"categoryId,omitempty" validate:"required_unless=Type lent"`
	PaymentMethodID string          `json:"paymentMethodId" validate:"required"`
	Date            time.Time       `json:"date" validate:"required"`
	Note            string          `json:"note"`
	Images          []string        `json:"images,omitempty"`

	// Lent-only fields.
	IsReturned     bool            `json:"isReturned,omitempty"`
	ReturnedDate   *time.Time      `json:"returnedDate,omitempty"`
	PartialReturns []PartialReturn `json:"partialReturns,omitempty"`
}

// IsLent reports whether t is money lent to a third party.
func (t *Transaction) IsLent() bool {
	return NormalizeType(t.Type) == TypeLent
}

// Clone returns a deep copy of t.
func (t Transaction) Clone() Transaction {
	c := t
	if t.Images != nil {
		c.Images = append([]string(nil), t.Images...)
	}
	if t.PartialReturns != nil {
		c.PartialReturns = append([]PartialReturn(nil), t.PartialReturns...)
	}
	if t.ReturnedDate != nil {
		d := *t.ReturnedDate
		c.ReturnedDate = &d
	}
	return c
}

// FuelLogPoint is the mileage derived between two consecutive fuel purchases.
// It is computed on demand and never persisted.
type FuelLogPoint struct {
	Date          time.Time `json:"date"`
	Mileage       float64   `json:"mileage"`
	Liters        float64   `json:"liters"`
	PricePerLiter float64   `json:"pricePerLiter"`
	Odometer      int64     `json:"odometer"`
}

// FinancialInsight is a single tip produced by the insight service.
type FinancialInsight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"` // info | warning | success
}

// ReceiptScanResult is the structured output of a receipt scan.
type ReceiptScanResult struct {
	Merchant   string  `json:"merchant,omitempty"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}
