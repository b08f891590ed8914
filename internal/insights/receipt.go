package insights

import (
	"errors"
	"strings"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
)

var nowFunc = time.Now

var receiptDateLayouts = []string{
	time.RFC3339,
	time.DateOnly,
	"2006/01/02",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// TransactionFromReceipt turns a scan result into an expense. The category is
// the first whose name contains the suggested one (case-insensitive), falling
// back to the last category. The first payment method is used.
func TransactionFromReceipt(r domain.ReceiptScanResult, categories []domain.Category, methods []domain.PaymentMethod, now time.Time) (domain.Transaction, error) {
	if r.Amount <= 0 {
		return domain.Transaction{}, errors.New("receipt amount must be positive")
	}
	if len(categories) == 0 || len(methods) == 0 {
		return domain.Transaction{}, errors.New("no categories or payment methods to assign")
	}

	category := categories[len(categories)-1]
	hint := strings.ToLower(strings.TrimSpace(r.Category))
	for _, c := range categories {
		if strings.Contains(strings.ToLower(c.Name), hint) {
			category = c
			break
		}
	}

	note := "Scanned Receipt"
	if m := strings.TrimSpace(r.Merchant); m != "" {
		note = "Scanned: " + m
	}

	return domain.Transaction{
		Type:            domain.TypeExpense,
		Amount:          r.Amount,
		CategoryID:      category.ID,
		PaymentMethodID: methods[0].ID,
		Date:            parseReceiptDate(r.Date, now),
		Note:            note,
	}, nil
}

func parseReceiptDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	for _, layout := range receiptDateLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t
		}
	}
	return now
}
