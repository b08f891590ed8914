package domain

// Category groups transactions for reporting. Names are not guaranteed unique.
type Category struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Icon     string          `json:"icon"`
	Color    string          `json:"color"`
	Type     TransactionType `json:"type"` // income | expense
	IsCustom bool            `json:"isCustom,omitempty"`
}

// PaymentMethod is the account or instrument a transaction was paid with.
type PaymentMethod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Placeholders used when a transaction references a deleted category or
// payment method.
const (
	UnknownLabel = "Unknown"
	UnknownIcon  = "📦"
)

// DefaultCategories returns a fresh copy of the built-in category dictionary.
func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Food & Dining", Icon: "🍔", Color: "bg-orange-500", Type: TypeExpense},
		{ID: "2", Name: "Shopping", Icon: "🛍️", Color: "bg-pink-500", Type: TypeExpense},
		{ID: "3", Name: "Transport", Icon: "🚗", Color: "bg-blue-500", Type: TypeExpense},
		{ID: "4", Name: "Entertainment", Icon: "🎬", Color: "bg-purple-500", Type: TypeExpense},
		{ID: "5", Name: "Health", Icon: "🏥", Color: "bg-red-500", Type: TypeExpense},
		{ID: "6", Name: "Groceries", Icon: "🛒", Color: "bg-emerald-500", Type: TypeExpense},
		{ID: "7", Name: "Bills & Utilities", Icon: "💡", Color: "bg-yellow-500", Type: TypeExpense},
		{ID: "8", Name: "Salary", Icon: "💰", Color: "bg-green-600", Type: TypeIncome},
		{ID: "9", Name: "Investments", Icon: "📈", Color: "bg-indigo-600", Type: TypeIncome},
		{ID: "10", Name: "Others", Icon: "📦", Color: "bg-slate-500", Type: TypeExpense},
	}
}

// DefaultPaymentMethods returns a fresh copy of the built-in payment methods.
func DefaultPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		{ID: "p1", Name: "Cash", Icon: "💵"},
		{ID: "p2", Name: "Bank Account", Icon: "🏦"},
		{ID: "p3", Name: "Credit Card", Icon: "💳"},
		{ID: "p4", Name: "UPI", Icon: "📱"},
	}
}

// FindCategory returns the category with the given id, or nil.
func FindCategory(categories []Category, id string) *Category {
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i]
		}
	}
	return nil
}

// FindPaymentMethod returns the payment method with the given id, or nil.
func FindPaymentMethod(methods []PaymentMethod, id string) *PaymentMethod {
	for i := range methods {
		if methods[i].ID == id {
			return &methods[i]
		}
	}
	return nil
}

// CategoryLabel returns the display name and icon for id, falling back to
// placeholders for stale references.
func CategoryLabel(categories []Category, id string) (name, icon string) {
	if c := FindCategory(categories, id); c != nil {
		return c.Name, c.Icon
	}
	return UnknownLabel, UnknownIcon
}

// PaymentMethodLabel returns the display name for id, or UnknownLabel.
func PaymentMethodLabel(methods []PaymentMethod, id string) string {
	if m := FindPaymentMethod(methods, id); m != nil {
		return m.Name
	}
	return UnknownLabel
}
