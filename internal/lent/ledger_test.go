package lent

import (
	"testing"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lentTx(amount float64) *domain.Transaction {
	return &domain.Transaction{
		ID:              "l1",
		Type:            domain.TypeLent,
		Amount:          amount,
		PaymentMethodID: "p1",
		Date:            time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Note:            "Rahul",
	}
}

func at(day int) time.Time {
	return time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC)
}

func TestAddPartialReturn_CompletesOnlyAtThreshold(t *testing.T) {
	tx := lentTx(1000)

	_, err := AddPartialReturn(tx, 400, at(5))
	require.NoError(t, err)
	assert.False(t, tx.IsReturned)
	assert.Nil(t, tx.ReturnedDate)
	assert.True(t, Outstanding(tx).Equal(decimal.NewFromInt(600)))

	_, err = AddPartialReturn(tx, 600, at(9))
	require.NoError(t, err)
	assert.True(t, tx.IsReturned)
	require.NotNil(t, tx.ReturnedDate)
	assert.Equal(t, at(9), *tx.ReturnedDate)
	assert.True(t, Outstanding(tx).IsZero())
	assert.Len(t, tx.PartialReturns, 2)
}

func TestAddPartialReturn_DecimalSums(t *testing.T) {
	tx := lentTx(0.3)

	_, err := AddPartialReturn(tx, 0.1, at(2))
	require.NoError(t, err)
	_, err = AddPartialReturn(tx, 0.2, at(3))
	require.NoError(t, err)

	assert.True(t, tx.IsReturned, "0.1 + 0.2 must reach 0.3")
}

func TestAddPartialReturn_OverPaymentAccepted(t *testing.T) {
	tx := lentTx(500)

	_, err := AddPartialReturn(tx, 800, at(2))
	require.NoError(t, err)

	assert.True(t, tx.IsReturned)
	assert.True(t, Outstanding(tx).IsZero())
	assert.True(t, TotalReturned(tx).Equal(decimal.NewFromInt(800)))
}

func TestAddPartialReturn_DoesNotClearManualReturn(t *testing.T) {
	tx := lentTx(1000)
	require.NoError(t, ToggleReturned(tx, at(1)))

	_, err := AddPartialReturn(tx, 100, at(2))
	require.NoError(t, err)

	assert.True(t, tx.IsReturned)
	assert.Equal(t, at(1), *tx.ReturnedDate)
}

func TestAddPartialReturn_Rejects(t *testing.T) {
	_, err := AddPartialReturn(lentTx(100), 0, at(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = AddPartialReturn(lentTx(100), -5, at(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	expense := &domain.Transaction{ID: "e1", Type: domain.TypeExpense, Amount: 100}
	_, err = AddPartialReturn(expense, 10, at(1))
	assert.ErrorIs(t, err, ErrNotLent)
	assert.Empty(t, expense.PartialReturns)
}

func TestAddPartialReturn_UniqueIDs(t *testing.T) {
	tx := lentTx(1000)
	a, err := AddPartialReturn(tx, 100, at(1))
	require.NoError(t, err)
	b, err := AddPartialReturn(tx, 100, at(1))
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestToggleReturned_KeepsPartialReturns(t *testing.T) {
	tx := lentTx(1000)
	_, err := AddPartialReturn(tx, 400, at(2))
	require.NoError(t, err)
	_, err = AddPartialReturn(tx, 600, at(3))
	require.NoError(t, err)
	require.True(t, tx.IsReturned)

	require.NoError(t, ToggleReturned(tx, at(4)))

	assert.False(t, tx.IsReturned)
	assert.Nil(t, tx.ReturnedDate)
	assert.Len(t, tx.PartialReturns, 2)
	// Partials sum to the full amount while un-marked; nothing is owed.
	assert.True(t, Outstanding(tx).IsZero())
}

func TestToggleReturned_SetsAndClearsDate(t *testing.T) {
	tx := lentTx(200)

	require.NoError(t, ToggleReturned(tx, at(7)))
	assert.True(t, tx.IsReturned)
	assert.Equal(t, at(7), *tx.ReturnedDate)

	require.NoError(t, ToggleReturned(tx, at(8)))
	assert.False(t, tx.IsReturned)
	assert.Nil(t, tx.ReturnedDate)

	income := &domain.Transaction{Type: domain.TypeIncome}
	assert.ErrorIs(t, ToggleReturned(income, at(1)), ErrNotLent)
}

func TestStatusOf(t *testing.T) {
	tx := lentTx(1000)
	_, err := AddPartialReturn(tx, 250, at(2))
	require.NoError(t, err)

	s := StatusOf(tx)
	assert.Equal(t, StateOutstanding, s.State)
	assert.True(t, s.Remaining.Equal(decimal.NewFromInt(750)))
	assert.True(t, s.Returned.Equal(decimal.NewFromInt(250)))

	require.NoError(t, ToggleReturned(tx, at(3)))
	s = StatusOf(tx)
	assert.Equal(t, StateReturned, s.State)
	assert.True(t, s.Remaining.IsZero())
	assert.Equal(t, at(3), *s.ReturnedDate)
}

func TestSummarize(t *testing.T) {
	returned := *lentTx(500)
	returned.ID = "l2"
	returned.IsReturned = true

	partial := *lentTx(1000)
	partial.ID = "l3"
	partial.PartialReturns = []domain.PartialReturn{{ID: "a", Amount: 300}}

	untouched := *lentTx(200)
	untouched.ID = "l4"

	expense := domain.Transaction{ID: "e1", Type: domain.TypeExpense, Amount: 999}

	s := Summarize([]domain.Transaction{returned, partial, untouched, expense})

	assert.Equal(t, 3, s.Count)
	assert.True(t, s.Total.Equal(decimal.NewFromInt(1700)))
	assert.True(t, s.Returned.Equal(decimal.NewFromInt(800)))
	assert.True(t, s.Pending.Equal(decimal.NewFromInt(900)))
}

func TestList(t *testing.T) {
	pending := *lentTx(100)
	pending.ID = "pending"
	done := *lentTx(100)
	done.ID = "done"
	done.IsReturned = true
	expense := domain.Transaction{ID: "exp", Type: domain.TypeExpense}

	txs := []domain.Transaction{pending, expense, done}

	ids := func(list []domain.Transaction) []string {
		out := make([]string, 0, len(list))
		for _, tx := range list {
			out = append(out, tx.ID)
		}
		return out
	}

	assert.Equal(t, []string{"pending", "done"}, ids(List(txs, FilterAll)))
	assert.Equal(t, []string{"pending"}, ids(List(txs, FilterPending)))
	assert.Equal(t, []string{"done"}, ids(List(txs, FilterReturned)))
	assert.Equal(t, FilterAll, ParseFilter("bogus"))
	assert.Equal(t, FilterPending, ParseFilter("pending"))
}
