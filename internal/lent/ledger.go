// Package lent tracks repayment of money lent to third parties.
//
// A lent transaction carries two independent fields, IsReturned and
// PartialReturns. The manual toggle and crossing the amount through partial
// payments both lead to the returned state; the derived Status is computed on
// read and never stored.
package lent

import (
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotLent is returned when a ledger operation targets a non-lent transaction.
	ErrNotLent = errors.New("transaction is not a lent record")
	// ErrInvalidAmount is returned for non-positive partial return amounts.
	ErrInvalidAmount = errors.New("partial return amount must be positive")
)

// ToggleReturned flips the returned flag. Marking returned stamps now as the
// return date; un-marking clears it. Partial returns are left untouched.
func ToggleReturned(tx *domain.Transaction, now time.Time) error {
	if !tx.IsLent() {
		return fmt.Errorf("ToggleReturned: %s: %w", tx.ID, ErrNotLent)
	}

	tx.IsReturned = !tx.IsReturned
	if tx.IsReturned {
		d := now
		tx.ReturnedDate = &d
	} else {
		tx.ReturnedDate = nil
	}
	return nil
}

// AddPartialReturn appends a repayment. Once the cumulative repayments reach
// the lent amount the transaction is marked returned as of date. Over-payment
// is accepted as is. The appended record is returned.
func AddPartialReturn(tx *domain.Transaction, amount float64, date time.Time) (domain.PartialReturn, error) {
	if !tx.IsLent() {
		return domain.PartialReturn{}, fmt.Errorf("AddPartialReturn: %s: %w", tx.ID, ErrNotLent)
	}
	if amount <= 0 {
		return domain.PartialReturn{}, fmt.Errorf("AddPartialReturn: %v: %w", amount, ErrInvalidAmount)
	}

	pr := domain.PartialReturn{
		ID:     ulid.Make().String(),
		Amount: amount,
		Date:   date,
	}
	tx.PartialReturns = append(tx.PartialReturns, pr)

	if TotalReturned(tx).GreaterThanOrEqual(decimal.NewFromFloat(tx.Amount)) {
		tx.IsReturned = true
		d := date
		tx.ReturnedDate = &d
	}
	return pr, nil
}

// TotalReturned sums the recorded partial returns.
func TotalReturned(tx *domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, pr := range tx.PartialReturns {
		total = total.Add(decimal.NewFromFloat(pr.Amount))
	}
	return total
}

// Outstanding is the amount still owed: zero once returned, otherwise the
// lent amount minus partial returns, floored at zero.
func Outstanding(tx *domain.Transaction) decimal.Decimal {
	if tx.IsReturned {
		return decimal.Zero
	}
	remaining := decimal.NewFromFloat(tx.Amount).Sub(TotalReturned(tx))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// State is the derived repayment state of a lent transaction.
type State string

const (
	StateOutstanding State = "outstanding"
	StateReturned    State = "returned"
)

// Status is a read-only view over a lent transaction.
type Status struct {
	State        State           `json:"state"`
	Remaining    decimal.Decimal `json:"remaining"`
	Returned     decimal.Decimal `json:"returned"`
	ReturnedDate *time.Time      `json:"returnedDate,omitempty"`
}

// StatusOf derives the repayment status of tx.
func StatusOf(tx *domain.Transaction) Status {
	s := Status{
		Remaining: Outstanding(tx),
		Returned:  TotalReturned(tx),
	}
	if tx.IsReturned {
		s.State = StateReturned
		s.ReturnedDate = tx.ReturnedDate
	} else {
		s.State = StateOutstanding
	}
	return s
}

// Summary aggregates all lent transactions.
type Summary struct {
	Total    decimal.Decimal `json:"total"`
	Returned decimal.Decimal `json:"returned"`
	Pending  decimal.Decimal `json:"pending"`
	Count    int             `json:"count"`
}

// Summarize totals lent transactions. A returned transaction counts its full
// amount as returned; otherwise its partial returns count, uncapped.
func Summarize(txs []domain.Transaction) Summary {
	var s Summary
	for i := range txs {
		tx := &txs[i]
		if !tx.IsLent() {
			continue
		}
		amount := decimal.NewFromFloat(tx.Amount)
		s.Count++
		s.Total = s.Total.Add(amount)
		if tx.IsReturned {
			s.Returned = s.Returned.Add(amount)
		} else {
			s.Returned = s.Returned.Add(TotalReturned(tx))
		}
	}
	s.Pending = s.Total.Sub(s.Returned)
	return s
}

// Filter selects which lent transactions a listing shows.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterPending  Filter = "pending"
	FilterReturned Filter = "returned"
)

// ParseFilter maps a user-supplied value to a Filter, defaulting to all.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterPending, FilterReturned:
		return Filter(s)
	default:
		return FilterAll
	}
}

// List returns the lent transactions matching f, preserving input order.
func List(txs []domain.Transaction, f Filter) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for i := range txs {
		tx := &txs[i]
		if !tx.IsLent() {
			continue
		}
		switch {
		case f == FilterPending && tx.IsReturned,
			f == FilterReturned && !tx.IsReturned:
			continue
		}
		out = append(out, tx.Clone())
	}
	return out
}
