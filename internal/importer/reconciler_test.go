package importer

import (
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	n := 0
	return Options{
		Now:      func() time.Time { return fixedNow },
		NewID:    func() string { n++; return fmt.Sprintf("id-%d", n) },
		Location: time.UTC,
	}
}

func TestParseLegacy_EndToEnd(t *testing.T) {
	text := "01-03-2024\tCash\tFood\t\tLunch\t250\tExpense\t\n" +
		"05-03-2024\tBank\tSalary\t\tPay\t50000\tIncome\t\n"

	res := ParseLegacy(text, nil, nil, testOptions())

	require.Len(t, res.Transactions, 2)
	require.Len(t, res.Categories, 2)
	require.Len(t, res.PaymentMethods, 2)
	assert.Empty(t, res.Skipped)

	lunch, pay := res.Transactions[0], res.Transactions[1]

	assert.Equal(t, 250.0, lunch.Amount)
	assert.Equal(t, domain.TypeExpense, lunch.Type)
	assert.Equal(t, "Lunch", lunch.Note)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), lunch.Date)

	assert.Equal(t, 50000.0, pay.Amount)
	assert.Equal(t, domain.TypeIncome, pay.Type)

	food := domain.FindCategory(res.Categories, lunch.CategoryID)
	require.NotNil(t, food)
	assert.Equal(t, "Food", food.Name)
	assert.Equal(t, "🍔", food.Icon)
	assert.Equal(t, domain.TypeExpense, food.Type)
	assert.True(t, food.IsCustom)

	salary := domain.FindCategory(res.Categories, pay.CategoryID)
	require.NotNil(t, salary)
	assert.Equal(t, "Salary", salary.Name)
	assert.Equal(t, domain.TypeIncome, salary.Type)

	assert.Equal(t, "Cash", domain.PaymentMethodLabel(res.PaymentMethods, lunch.PaymentMethodID))
	assert.Equal(t, "Bank", domain.PaymentMethodLabel(res.PaymentMethods, pay.PaymentMethodID))
	assert.Equal(t, "💳", res.PaymentMethods[0].Icon)
}

func TestParseLegacy_AmountIsNeverNegative(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"-500", 500},
		{"500", 500},
		{"₹1,250.50", 1250.5},
		{"-₹ 75.25", 75.25},
		{"0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			line := "01-03-2024\tCash\tFood\t\tLunch\t" + tt.raw + "\tExpense"
			res := ParseLegacy(line, nil, nil, testOptions())

			require.Len(t, res.Transactions, 1)
			assert.GreaterOrEqual(t, res.Transactions[0].Amount, 0.0)
			assert.InDelta(t, tt.want, res.Transactions[0].Amount, 1e-9)
		})
	}
}

func TestParseLegacy_InvalidAmountSkipsRow(t *testing.T) {
	res := ParseLegacy("01-03-2024\tCash\tFood\t\tLunch\tn/a\tExpense", nil, nil, testOptions())

	assert.Empty(t, res.Transactions)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 1, res.Skipped[0].Line)
}

func TestParseLegacy_TypeInference(t *testing.T) {
	tests := []struct {
		label string
		want  domain.TransactionType
	}{
		{"Transfer-out", domain.TypeLent},
		{"TRANSFER-OUT", domain.TypeLent},
		{"Lent", domain.TypeLent},
		{"lent", domain.TypeLent},
		{"Income", domain.TypeIncome},
		{"Other income", domain.TypeIncome},
		{"Expense", domain.TypeExpense},
		{"Refund", domain.TypeExpense},
		{"", domain.TypeExpense},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, inferType(tt.label))
		})
	}
}

func TestParseLegacy_LentRowHasNoCategory(t *testing.T) {
	res := ParseLegacy("02-03-2024\tCash\tPersonal\t\tRahul\t1000\tTransfer-out", nil, nil, testOptions())

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, domain.TypeLent, tx.Type)
	assert.Empty(t, tx.CategoryID)
	assert.Equal(t, "Rahul", tx.Note)

	// The category is still reconciled into the dictionary.
	require.Len(t, res.Categories, 1)
	assert.Equal(t, domain.TypeExpense, res.Categories[0].Type)
}

func TestParseLegacy_CategoryIdempotentAcrossImports(t *testing.T) {
	opts := testOptions()

	first := ParseLegacy("01-03-2024\tCash\tKirana\t\tRice\t300\tExpense", nil, nil, opts)
	require.Len(t, first.Categories, 1)

	second := ParseLegacy("02-03-2024\tcash\tKIRANA\t\tDal\t150\tExpense", first.Categories, first.PaymentMethods, opts)
	require.Len(t, second.Categories, 1)
	require.Len(t, second.PaymentMethods, 1)
	assert.Equal(t, first.Categories[0].ID, second.Transactions[0].CategoryID)
	assert.Equal(t, first.PaymentMethods[0].ID, second.Transactions[0].PaymentMethodID)
}

func TestParseLegacy_CategorySynonyms(t *testing.T) {
	defaults := domain.DefaultCategories()

	tests := []struct {
		imported string
		wantID   string
	}{
		{"Transportation", "3"},
		{"transport", "3"},
		{"Mobile Recharge", "7"},
		{"Electricity Bill", "7"},
		{"FOOD", "1"},
		{"food & dining", "1"},
		{"Salary", "8"},
	}

	for _, tt := range tests {
		t.Run(tt.imported, func(t *testing.T) {
			line := "01-03-2024\tCash\t" + tt.imported + "\t\tx\t10\tExpense"
			res := ParseLegacy(line, defaults, domain.DefaultPaymentMethods(), testOptions())

			require.Len(t, res.Transactions, 1)
			assert.Equal(t, tt.wantID, res.Transactions[0].CategoryID)
			assert.Len(t, res.Categories, len(defaults))
		})
	}
}

func TestParseLegacy_DoesNotMutateInputs(t *testing.T) {
	cats := domain.DefaultCategories()
	methods := domain.DefaultPaymentMethods()

	res := ParseLegacy("01-03-2024\tWallet\tPets\t\tFood bowl\t10\tExpense", cats, methods, testOptions())

	assert.Len(t, cats, 10)
	assert.Len(t, methods, 4)
	assert.Len(t, res.Categories, 11)
	assert.Len(t, res.PaymentMethods, 5)
}

func TestParseLegacy_MalformedLineContained(t *testing.T) {
	text := "01-03-2024\tCash\tFood\t\tLunch\t250\tExpense\n" +
		"02-03-2024\tCash\tFood\n" +
		"03-03-2024\tCash\tFood\t\tDinner\t400\tExpense\n"

	res := ParseLegacy(text, nil, nil, testOptions())

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "Lunch", res.Transactions[0].Note)
	assert.Equal(t, "Dinner", res.Transactions[1].Note)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Line)
}

func TestParseLegacy_HeaderSkipped(t *testing.T) {
	text := "Date\tAccount\tCategory\t\tNote\tAmount\tType\t\n" +
		"INR\t\t\t\t\t\t\t\n" +
		"01-03-2024\tCash\tFood\t\tLunch\t250\tExpense\n"

	res := ParseLegacy(text, nil, nil, testOptions())

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Lunch", res.Transactions[0].Note)
	assert.Empty(t, res.Skipped)
}

func TestParseLegacy_BlankLinesAndCRLF(t *testing.T) {
	text := "\r\n01-03-2024\tCash\tFood\t\tLunch\t250\tExpense\r\n   \r\n" +
		"02-03-2024\tCash\tFood\t\tTea\t20\tExpense\r\n"

	res := ParseLegacy(text, nil, nil, testOptions())

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "Tea", res.Transactions[1].Note)
}

func TestParseLegacy_NotePriority(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"note column", "01-03-2024\tCash\tFood\t\tLunch\t10\tExpense\tDesc", "Lunch"},
		{"description fallback", "01-03-2024\tCash\tFood\t\t\t10\tExpense\tDesc", "Desc"},
		{"category name fallback", "01-03-2024\tCash\tFood\t\t\t10\tExpense", "Food"},
		{"matched category name", "01-03-2024\tCash\tfood\t\t\t10\tExpense", "Food & Dining"},
		{"blank category", "01-03-2024\tCash\t\t\t\t10\tExpense", "Others"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cats []domain.Category
			if tt.name == "matched category name" {
				cats = domain.DefaultCategories()
			}
			res := ParseLegacy(tt.line, cats, nil, testOptions())
			require.Len(t, res.Transactions, 1)
			assert.Equal(t, tt.want, res.Transactions[0].Note)
		})
	}
}

func TestParseLegacy_EmptyAccountIsUnknown(t *testing.T) {
	res := ParseLegacy("01-03-2024\t\tFood\t\tLunch\t10\tExpense", nil, nil, testOptions())

	require.Len(t, res.PaymentMethods, 1)
	assert.Equal(t, domain.UnknownLabel, res.PaymentMethods[0].Name)
}

func TestParseDate(t *testing.T) {
	r := &reconciler{opts: testOptions().withDefaults()}

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"01-03-2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"1-3-2024 18:45", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"31-02-2024", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"2024/03/05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"03/05/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"Mar 5, 2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"aa-bb-cc", fixedNow},
		{"yesterday", fixedNow},
		{"", fixedNow},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, r.parseDate(tt.raw))
		})
	}
}

func TestBestIcon(t *testing.T) {
	tests := map[string]string{
		"Food":        "🍔",
		"Ice cream":   "🍦",
		"Petrol":      "⛽",
		"Car repair":  "🚗",
		"Kirana":      "🛒",
		"Hotel stay":  "🏨",
		"Misc":        domain.UnknownIcon,
		"Electricity": "💡",
	}

	for name, want := range tests {
		assert.Equal(t, want, BestIcon(name), name)
	}
}
