// Package importer ingests the legacy tab-separated export and reconciles it
// against the category and payment-method dictionaries.
package importer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/google/uuid"
)

// Column positions in the legacy export. Column 3 is unused.
const (
	colDate        = 0
	colAccount     = 1
	colCategory    = 2
	colNote        = 4
	colAmount      = 5
	colType        = 6
	colDescription = 7

	minColumns = 6
)

const (
	// DefaultCategoryName is used when the category column is blank.
	DefaultCategoryName = "Others"

	newCategoryColor = "bg-slate-500"
	newMethodIcon    = "💳"
)

var headerKeywords = []string{"date", "account", "category", "amount", "inr"}

// iconKeywords is checked in order; the first keyword contained in the
// category name wins.
var iconKeywords = []struct {
	keyword string
	icon    string
}{
	{"food", "🍔"},
	{"dining", "🍔"},
	{"restaurant", "🍔"},
	{"tea", "☕"},
	{"drink", "☕"},
	{"ice", "🍦"},
	{"transport", "🚗"},
	{"transportation", "🚗"},
	{"bike", "🚲"},
	{"car", "🚗"},
	{"auto", "🛺"},
	{"rapido", "🏍️"},
	{"ola", "🚕"},
	{"uber", "🚕"},
	{"fuel", "⛽"},
	{"petrol", "⛽"},
	{"repair", "🛠️"},
	{"shopping", "🛍️"},
	{"clothes", "👕"},
	{"kirana", "🛒"},
	{"grocery", "🛒"},
	{"groceries", "🛒"},
	{"household", "🏠"},
	{"home", "🏠"},
	{"electricity", "💡"},
	{"bill", "🧾"},
	{"utilities", "💡"},
	{"mobile", "📱"},
	{"recharge", "⚡"},
	{"internet", "🌐"},
	{"entertainment", "🎬"},
	{"movie", "🍿"},
	{"salary", "💰"},
	{"income", "📈"},
	{"health", "🏥"},
	{"medical", "💊"},
	{"medicine", "💊"},
	{"investment", "🏦"},
	{"gift", "🎁"},
	{"travel", "✈️"},
	{"hotel", "🏨"},
}

var (
	amountJunkRe   = regexp.MustCompile(`[^\d.-]`)
	leadingFloatRe = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
	leadingIntRe   = regexp.MustCompile(`^\s*[-+]?\d+`)
)

// Layouts tried for dates that are not in day-month-year form.
var genericDateLayouts = []string{
	"01/02/2006",
	"01/02/2006 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// LineError records a line that was skipped during parsing.
type LineError struct {
	Line   int    `json:"line"` // 1-based
	Reason string `json:"reason"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result is the outcome of parsing a legacy export. Categories and
// PaymentMethods are the input dictionaries extended with anything created
// during the pass.
type Result struct {
	Transactions   []domain.Transaction   `json:"transactions"`
	Categories     []domain.Category      `json:"categories"`
	PaymentMethods []domain.PaymentMethod `json:"paymentMethods"`
	Skipped        []LineError            `json:"skipped,omitempty"`
}

// Options customises ParseLegacy. The zero value uses wall-clock time, local
// dates and random UUIDs.
type Options struct {
	Now      func() time.Time
	NewID    func() string
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// ParseLegacy parses a tab-separated legacy export. The given dictionaries are
// copied, never modified. Malformed lines are skipped and reported in
// Result.Skipped; header lines are skipped silently.
func ParseLegacy(text string, categories []domain.Category, methods []domain.PaymentMethod, opts Options) Result {
	opts = opts.withDefaults()

	r := &reconciler{
		opts:       opts,
		categories: append([]domain.Category(nil), categories...),
		methods:    append([]domain.PaymentMethod(nil), methods...),
	}

	res := Result{Transactions: []domain.Transaction{}}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		tx, ok, err := r.parseLineSafe(line)
		if err != nil {
			res.Skipped = append(res.Skipped, LineError{Line: i + 1, Reason: err.Error()})
			continue
		}
		if ok {
			res.Transactions = append(res.Transactions, tx)
		}
	}

	res.Categories = r.categories
	res.PaymentMethods = r.methods
	return res
}

type reconciler struct {
	opts       Options
	categories []domain.Category
	methods    []domain.PaymentMethod
}

// parseLineSafe converts a panic on a single line into a skip.
func (r *reconciler) parseLineSafe(line string) (tx domain.Transaction, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			tx, ok, err = domain.Transaction{}, false, fmt.Errorf("recovered: %v", rec)
		}
	}()
	return r.parseLine(line)
}

// parseLine returns ok=false with a nil error for header rows.
func (r *reconciler) parseLine(line string) (domain.Transaction, bool, error) {
	cols := strings.Split(line, "\t")

	if isHeader(cols[colDate]) {
		return domain.Transaction{}, false, nil
	}
	if len(cols) < minColumns {
		return domain.Transaction{}, false, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(cols))
	}

	amount, err := parseAmount(cols[colAmount])
	if err != nil {
		return domain.Transaction{}, false, err
	}

	date := r.parseDate(cols[colDate])
	txType := inferType(column(cols, colType))

	categoryName := strings.TrimSpace(cols[colCategory])
	if categoryName == "" {
		categoryName = DefaultCategoryName
	}
	category := r.resolveCategory(categoryName, txType)

	account := strings.TrimSpace(cols[colAccount])
	if account == "" {
		account = domain.UnknownLabel
	}
	method := r.resolvePaymentMethod(account)

	tx := domain.Transaction{
		ID:              r.opts.NewID(),
		Amount:          amount,
		Type:            txType,
		PaymentMethodID: method.ID,
		Date:            date,
		Note:            firstNonEmpty(column(cols, colNote), column(cols, colDescription), category.Name),
		Images:          []string{},
	}
	if txType != domain.TypeLent {
		tx.CategoryID = category.ID
	}

	return tx, true, nil
}

func isHeader(first string) bool {
	lower := strings.ToLower(first)
	for _, k := range headerKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// parseAmount keeps digits, dots and minus signs, parses the leading number
// and returns its absolute value. Direction comes from the type column.
func parseAmount(raw string) (float64, error) {
	clean := amountJunkRe.ReplaceAllString(raw, "")
	num := leadingFloatRe.FindString(clean)
	if num == "" {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parseAmount: %w", err)
	}
	return math.Abs(v), nil
}

// parseDate reads DD-MM-YYYY (with an optional trailing time that is
// discarded) or any generic layout. Unparseable dates become now.
func (r *reconciler) parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)

	if strings.Contains(raw, "-") {
		datePart := strings.SplitN(raw, " ", 2)[0]
		parts := strings.Split(datePart, "-")
		if len(parts) == 3 {
			d, okD := leadingInt(parts[0])
			m, okM := leadingInt(parts[1])
			y, okY := leadingInt(parts[2])
			if okD && okM && okY {
				// Overflow such as 31-02 rolls into the next month.
				return time.Date(y, time.Month(m), d, 0, 0, 0, 0, r.opts.Location)
			}
			return r.opts.Now()
		}
	}

	for _, layout := range genericDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, r.opts.Location); err == nil {
			return t
		}
	}
	return r.opts.Now()
}

func leadingInt(s string) (int, bool) {
	m := leadingIntRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0, false
	}
	return v, true
}

// inferType maps the free-text type label. Transfer and lent labels are
// deliberately folded together.
func inferType(label string) domain.TransactionType {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "income"):
		return domain.TypeIncome
	case strings.Contains(lower, "transfer"), strings.Contains(lower, "lent"):
		return domain.TypeLent
	default:
		return domain.TypeExpense
	}
}

func (r *reconciler) resolveCategory(name string, txType domain.TransactionType) domain.Category {
	for _, c := range r.categories {
		if categoryMatches(c.Name, name) {
			return c
		}
	}

	catType := domain.TypeExpense
	if txType == domain.TypeIncome {
		catType = domain.TypeIncome
	}

	c := domain.Category{
		ID:       r.opts.NewID(),
		Name:     name,
		Icon:     BestIcon(name),
		Color:    newCategoryColor,
		Type:     catType,
		IsCustom: true,
	}
	r.categories = append(r.categories, c)
	return c
}

// categoryMatches compares an existing category name with an imported one,
// case-insensitively and through a small synonym table.
func categoryMatches(existing, imported string) bool {
	e := normalizeName(existing)
	i := normalizeName(imported)

	switch {
	case e == i:
		return true
	case e == "transport" && i == "transportation",
		e == "transportation" && i == "transport":
		return true
	case e == "bills & utilities" && (strings.Contains(i, "bill") || strings.Contains(i, "recharge")):
		return true
	case e == "food & dining" && i == "food":
		return true
	}
	return false
}

func (r *reconciler) resolvePaymentMethod(name string) domain.PaymentMethod {
	for _, m := range r.methods {
		if normalizeName(m.Name) == normalizeName(name) {
			return m
		}
	}

	m := domain.PaymentMethod{
		ID:   r.opts.NewID(),
		Name: name,
		Icon: newMethodIcon,
	}
	r.methods = append(r.methods, m)
	return m
}

// BestIcon picks an icon for a category name by keyword, falling back to the
// generic box.
func BestIcon(name string) string {
	lower := strings.ToLower(name)
	for _, k := range iconKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.icon
		}
	}
	return domain.UnknownIcon
}

// normalizeName normalizes a dictionary name for comparison.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func column(cols []string, i int) string {
	if i < len(cols) {
		return strings.TrimSpace(cols[i])
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
