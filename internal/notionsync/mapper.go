package notionsync

import (
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/dvloznov/fintrack/internal/lent"
	"github.com/jomei/notionapi"
)

// Property names of the lent ledger database.
const (
	PropCounterparty  = "Counterparty"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropReturned      = "Returned"
	PropOutstanding   = "Outstanding"
	PropStatus        = "Status"
	PropReturnedDate  = "Returned Date"
	PropPaymentMethod = "Payment Method"
	PropPartials      = "Partial Returns"
)

// LentToNotionProperties converts a lent transaction to Notion properties.
// The counterparty is the transaction note.
func LentToNotionProperties(tx domain.Transaction, methods []domain.PaymentMethod) notionapi.Properties {
	status := lent.StatusOf(&tx)

	counterparty := tx.Note
	if counterparty == "" {
		counterparty = domain.UnknownLabel
	}

	props := notionapi.Properties{
		PropCounterparty: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: counterparty},
				},
			},
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.ID},
				},
			},
		},
		PropDate:        dateProperty(tx.Date),
		PropAmount:      notionapi.NumberProperty{Number: tx.Amount},
		PropReturned:    notionapi.NumberProperty{Number: status.Returned.InexactFloat64()},
		PropOutstanding: notionapi.NumberProperty{Number: status.Remaining.InexactFloat64()},
		PropStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: statusLabel(status.State)},
		},
		PropPartials: notionapi.NumberProperty{Number: float64(len(tx.PartialReturns))},
	}

	if status.ReturnedDate != nil {
		props[PropReturnedDate] = dateProperty(*status.ReturnedDate)
	}

	props[PropPaymentMethod] = notionapi.SelectProperty{
		Select: notionapi.Option{Name: domain.PaymentMethodLabel(methods, tx.PaymentMethodID)},
	}

	return props
}

func statusLabel(s lent.State) string {
	if s == lent.StateReturned {
		return "Returned"
	}
	return "Outstanding"
}

func dateProperty(t time.Time) notionapi.DateProperty {
	y, m, d := t.Date()
	date := notionapi.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &date},
	}
}
