// Package stats computes the aggregate views over the transaction list:
// balance summary, category breakdown, daily trend, calendar and recent lists.
package stats

import (
	"sort"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/dvloznov/fintrack/internal/lent"
	"github.com/shopspring/decimal"
)

// Period selects a window relative to a reference time.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// ParsePeriod maps a user-supplied value to a Period, defaulting to month.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return p
	default:
		return PeriodMonth
	}
}

// InPeriod reports whether t falls in period p as seen from now. Weeks start
// on Sunday. Comparisons use now's location.
func InPeriod(t time.Time, p Period, now time.Time) bool {
	t = t.In(now.Location())
	switch p {
	case PeriodDay:
		return sameDay(t, now)
	case PeriodWeek:
		start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		return !t.Before(start)
	case PeriodMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()
	case PeriodYear:
		return t.Year() == now.Year()
	default:
		return true
	}
}

// FilterByPeriod keeps the transactions inside period p.
func FilterByPeriod(txs []domain.Transaction, p Period, now time.Time) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if InPeriod(tx.Date, p, now) {
			out = append(out, tx)
		}
	}
	return out
}

// Summary is the headline balance view.
type Summary struct {
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	LentPending decimal.Decimal `json:"lentPending"`
	Balance     decimal.Decimal `json:"balance"`
}

// Summarize totals income and expenses. Money lent and not yet returned is
// an outflow and reduces the balance.
func Summarize(txs []domain.Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		amount := decimal.NewFromFloat(tx.Amount)
		switch domain.NormalizeType(tx.Type) {
		case domain.TypeIncome:
			s.Income = s.Income.Add(amount)
		case domain.TypeExpense:
			s.Expenses = s.Expenses.Add(amount)
		}
	}
	s.LentPending = lent.Summarize(txs).Pending
	s.Balance = s.Income.Sub(s.Expenses).Sub(s.LentPending)
	return s
}

// CategoryTotal is one slice of the category breakdown.
type CategoryTotal struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Icon       string          `json:"icon"`
	Color      string          `json:"color"`
	Value      decimal.Decimal `json:"value"`
	Percentage float64         `json:"percentage"`
}

const unknownColor = "bg-slate-400"

// CategoryBreakdown totals transactions of type t per category, largest
// first. Stale category ids are labelled Unknown.
func CategoryBreakdown(txs []domain.Transaction, categories []domain.Category, t domain.TransactionType) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	var order []string
	grand := decimal.Zero

	for _, tx := range txs {
		if domain.NormalizeType(tx.Type) != t {
			continue
		}
		if _, seen := totals[tx.CategoryID]; !seen {
			order = append(order, tx.CategoryID)
		}
		amount := decimal.NewFromFloat(tx.Amount)
		totals[tx.CategoryID] = totals[tx.CategoryID].Add(amount)
		grand = grand.Add(amount)
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, id := range order {
		ct := CategoryTotal{
			ID:    id,
			Value: totals[id],
			Name:  domain.UnknownLabel,
			Icon:  domain.UnknownIcon,
			Color: unknownColor,
		}
		if c := domain.FindCategory(categories, id); c != nil {
			ct.Name, ct.Icon, ct.Color = c.Name, c.Icon, c.Color
		}
		if grand.IsPositive() {
			ct.Percentage = totals[id].Div(grand).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		out = append(out, ct)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out
}

// DayTotal is one bar of the daily trend.
type DayTotal struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// DailyTrend groups transactions per calendar day in loc, oldest first.
// Everything that is not income counts towards the expense bar.
func DailyTrend(txs []domain.Transaction, loc *time.Location) []DayTotal {
	byDay := make(map[string]*DayTotal)
	for _, tx := range txs {
		key := tx.Date.In(loc).Format(time.DateOnly)
		d, ok := byDay[key]
		if !ok {
			d = &DayTotal{Date: key}
			byDay[key] = d
		}
		amount := decimal.NewFromFloat(tx.Amount)
		if domain.NormalizeType(tx.Type) == domain.TypeIncome {
			d.Income = d.Income.Add(amount)
		} else {
			d.Expense = d.Expense.Add(amount)
		}
	}

	out := make([]DayTotal, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// CalendarDay marks the activity on one day of a month.
type CalendarDay struct {
	Date       string `json:"date"`
	HasIncome  bool   `json:"hasIncome"`
	HasExpense bool   `json:"hasExpense"`
	Count      int    `json:"count"`
}

// Month is the calendar view of a single month.
type Month struct {
	Year         int                  `json:"year"`
	Month        time.Month           `json:"month"`
	Days         []CalendarDay        `json:"days"`
	Transactions []domain.Transaction `json:"transactions"` // newest first
}

// Calendar builds the view for year/month in loc.
func Calendar(txs []domain.Transaction, year int, month time.Month, loc *time.Location) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysIn := first.AddDate(0, 1, -1).Day()

	m := Month{
		Year:         year,
		Month:        month,
		Days:         make([]CalendarDay, daysIn),
		Transactions: []domain.Transaction{},
	}
	for i := range m.Days {
		m.Days[i].Date = first.AddDate(0, 0, i).Format(time.DateOnly)
	}

	for _, tx := range txs {
		d := tx.Date.In(loc)
		if d.Year() != year || d.Month() != month {
			continue
		}
		day := &m.Days[d.Day()-1]
		day.Count++
		switch domain.NormalizeType(tx.Type) {
		case domain.TypeIncome:
			day.HasIncome = true
		case domain.TypeExpense:
			day.HasExpense = true
		}
		m.Transactions = append(m.Transactions, tx)
	}

	sortNewestFirst(m.Transactions)
	return m
}

// Recent returns up to limit transactions of type t (empty means all types),
// newest first. A non-positive limit returns every match.
func Recent(txs []domain.Transaction, t domain.TransactionType, limit int) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if t != "" && domain.NormalizeType(tx.Type) != t {
			continue
		}
		out = append(out, tx)
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortNewestFirst(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
