// Package store holds the transaction collection and the category and
// payment-method dictionaries, persisting each as a whole JSON document after
// every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/dvloznov/fintrack/internal/logger"
	"github.com/google/uuid"
)

// Persisted document keys.
const (
	KeyCategories     = "fintrack_categories"
	KeyPaymentMethods = "fintrack_payment_methods"
	KeyTransactions   = "fintrack_transactions"
	KeyInsights       = "fintrack_insights"
	KeyTheme          = "fintrack_theme"
)

// Themes accepted by SetTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Store is the single-writer transaction store. Reads return copies.
type Store struct {
	mu  sync.RWMutex
	kv  KV
	now func() time.Time

	transactions []domain.Transaction
	categories   []domain.Category
	methods      []domain.PaymentMethod
	insights     []domain.FinancialInsight
	theme        string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for default transaction dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads every document from kv. Missing or corrupt documents fall back
// to defaults; only backend failures are returned as errors.
func Open(ctx context.Context, kv KV, opts ...Option) (*Store, error) {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	s.categories = domain.DefaultCategories()
	s.methods = domain.DefaultPaymentMethods()
	s.transactions = []domain.Transaction{}
	s.insights = []domain.FinancialInsight{}
	s.theme = ThemeLight

	if err := load(ctx, kv, KeyCategories, &s.categories, notNil[domain.Category]); err != nil {
		return nil, err
	}
	if err := load(ctx, kv, KeyPaymentMethods, &s.methods, notNil[domain.PaymentMethod]); err != nil {
		return nil, err
	}
	if err := load(ctx, kv, KeyTransactions, &s.transactions, notNil[domain.Transaction]); err != nil {
		return nil, err
	}
	if err := load(ctx, kv, KeyInsights, &s.insights, notNil[domain.FinancialInsight]); err != nil {
		return nil, err
	}
	if err := load(ctx, kv, KeyTheme, &s.theme, validTheme); err != nil {
		return nil, err
	}

	return s, nil
}

// load decodes key into dst. dst keeps its default when the document is
// missing, fails to decode or is rejected by ok.
func load[T any](ctx context.Context, kv KV, key string, dst *T, ok func(T) bool) error {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store.Open: %s: %w", key, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil || !ok(v) {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("key", key).Msg("Corrupt document, falling back to defaults")
		return nil
	}
	*dst = v
	return nil
}

func notNil[T any](v []T) bool {
	return v != nil
}

func (s *Store) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store: save %s: %w", key, err)
	}
	return nil
}

// write is one pending document change. A nil data removes the key.
type write struct {
	key  string
	data []byte
}

func marshalWrite(key string, v interface{}) (write, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return write{}, fmt.Errorf("store: marshal %s: %w", key, err)
	}
	return write{key: key, data: data}, nil
}

// commit applies writes in order. When one fails, the keys already written
// are restored to their previous contents before the error is returned.
func (s *Store) commit(ctx context.Context, writes []write) error {
	done := make([]write, 0, len(writes))
	for _, w := range writes {
		prev, err := s.kv.Get(ctx, w.key)
		if errors.Is(err, ErrNotFound) {
			prev = nil
		} else if err != nil {
			s.rollback(ctx, done)
			return fmt.Errorf("store: read %s: %w", w.key, err)
		}

		if w.data == nil {
			err = s.kv.Remove(ctx, w.key)
		} else {
			err = s.kv.Set(ctx, w.key, w.data)
		}
		if err != nil {
			s.rollback(ctx, done)
			return fmt.Errorf("store: save %s: %w", w.key, err)
		}
		done = append(done, write{key: w.key, data: prev})
	}
	return nil
}

func (s *Store) rollback(ctx context.Context, undo []write) {
	log := logger.FromContext(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		u := undo[i]
		var err error
		if u.data == nil {
			err = s.kv.Remove(ctx, u.key)
		} else {
			err = s.kv.Set(ctx, u.key, u.data)
		}
		if err != nil {
			log.Error().Err(err).Str("key", u.key).Msg("Failed to restore document")
		}
	}
}

// Transactions returns a copy of all transactions, newest insertions first.
func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTransactions(s.transactions)
}

// Transaction returns a copy of the transaction with the given id.
func (s *Store) Transaction(id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return s.transactions[i].Clone(), nil
}

// Categories returns a copy of the category dictionary.
func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Category(nil), s.categories...)
}

// PaymentMethods returns a copy of the payment-method dictionary.
func (s *Store) PaymentMethods() []domain.PaymentMethod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PaymentMethod(nil), s.methods...)
}

// Dictionaries returns copies of both dictionaries under one lock.
func (s *Store) Dictionaries() ([]domain.Category, []domain.PaymentMethod) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Category(nil), s.categories...), append([]domain.PaymentMethod(nil), s.methods...)
}

// AddTransaction validates tx, assigns an id and a date when missing, and
// stores it ahead of existing transactions.
func (s *Store) AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Date.IsZero() {
		tx.Date = s.now()
	}
	if err := domain.ValidateTransaction(&tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}
	if tx.Type == domain.TypeLent {
		tx.CategoryID = ""
	}
	if s.indexOf(tx.ID) >= 0 {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: duplicate id %s", tx.ID)
	}

	next := make([]domain.Transaction, 0, len(s.transactions)+1)
	next = append(next, tx.Clone())
	next = append(next, s.transactions...)

	if err := s.save(ctx, KeyTransactions, next); err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}
	s.transactions = next

	log := logger.FromContext(ctx)
	log.Debug().Str("transaction_id", tx.ID).Str("type", string(tx.Type)).Msg("Transaction added")
	return tx.Clone(), nil
}

// UpdateTransaction replaces the stored transaction with the same id.
func (s *Store) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := domain.ValidateTransaction(&tx); err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if tx.Type == domain.TypeLent {
		tx.CategoryID = ""
	}
	return s.replaceLocked(ctx, tx)
}

// Mutate applies fn to a copy of the transaction with the given id and
// persists the result. Nothing is written when fn fails.
func (s *Store) Mutate(ctx context.Context, id string, fn func(tx *domain.Transaction) error) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	tx := s.transactions[i].Clone()
	if err := fn(&tx); err != nil {
		return domain.Transaction{}, err
	}
	if err := s.replaceLocked(ctx, tx); err != nil {
		return domain.Transaction{}, err
	}
	return tx.Clone(), nil
}

func (s *Store) replaceLocked(ctx context.Context, tx domain.Transaction) error {
	i := s.indexOf(tx.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
	}

	next := cloneTransactions(s.transactions)
	next[i] = tx.Clone()

	if err := s.save(ctx, KeyTransactions, next); err != nil {
		return err
	}
	s.transactions = next
	return nil
}

// DeleteTransaction removes a transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	next := make([]domain.Transaction, 0, len(s.transactions)-1)
	next = append(next, s.transactions[:i]...)
	next = append(next, s.transactions[i+1:]...)

	if err := s.save(ctx, KeyTransactions, next); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	s.transactions = next
	return nil
}

// ApplyImport prepends imported transactions and replaces both dictionaries
// with the extended copies produced by the importer.
func (s *Store) ApplyImport(ctx context.Context, txs []domain.Transaction, categories []domain.Category, methods []domain.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Transaction, 0, len(txs)+len(s.transactions))
	next = append(next, cloneTransactions(txs)...)
	next = append(next, s.transactions...)

	cats := append([]domain.Category(nil), categories...)
	pms := append([]domain.PaymentMethod(nil), methods...)

	// Dictionaries are written before the transactions that reference them.
	writes := make([]write, 0, 3)
	for _, doc := range []struct {
		key string
		v   interface{}
	}{
		{KeyCategories, cats},
		{KeyPaymentMethods, pms},
		{KeyTransactions, next},
	} {
		w, err := marshalWrite(doc.key, doc.v)
		if err != nil {
			return fmt.Errorf("ApplyImport: %w", err)
		}
		writes = append(writes, w)
	}
	if err := s.commit(ctx, writes); err != nil {
		return fmt.Errorf("ApplyImport: %w", err)
	}
	s.categories = cats
	s.methods = pms
	s.transactions = next

	log := logger.FromContext(ctx)
	log.Info().
		Int("imported", len(txs)).
		Int("categories", len(cats)).
		Int("payment_methods", len(pms)).
		Msg("Import merged into store")
	return nil
}

// AddCategory stores a user-defined category.
func (s *Store) AddCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Name == "" {
		return domain.Category{}, fmt.Errorf("AddCategory: name is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Type != domain.TypeIncome {
		c.Type = domain.TypeExpense
	}
	if c.Icon == "" {
		c.Icon = domain.UnknownIcon
	}
	c.IsCustom = true

	next := append(append([]domain.Category(nil), s.categories...), c)
	if err := s.save(ctx, KeyCategories, next); err != nil {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", err)
	}
	s.categories = next
	return c, nil
}

// RemoveCategory deletes a category. Transactions keep the stale id.
func (s *Store) RemoveCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.ID != id {
			next = append(next, c)
		}
	}
	if len(next) == len(s.categories) {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}

	if err := s.save(ctx, KeyCategories, next); err != nil {
		return fmt.Errorf("RemoveCategory: %w", err)
	}
	s.categories = next
	return nil
}

// AddPaymentMethod stores a user-defined payment method.
func (s *Store) AddPaymentMethod(ctx context.Context, m domain.PaymentMethod) (domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Name == "" {
		return domain.PaymentMethod{}, fmt.Errorf("AddPaymentMethod: name is required")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Icon == "" {
		m.Icon = "💳"
	}

	next := append(append([]domain.PaymentMethod(nil), s.methods...), m)
	if err := s.save(ctx, KeyPaymentMethods, next); err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("AddPaymentMethod: %w", err)
	}
	s.methods = next
	return m, nil
}

// RemovePaymentMethod deletes a payment method. Transactions keep the stale id.
func (s *Store) RemovePaymentMethod(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.PaymentMethod, 0, len(s.methods))
	for _, m := range s.methods {
		if m.ID != id {
			next = append(next, m)
		}
	}
	if len(next) == len(s.methods) {
		return fmt.Errorf("payment method %s: %w", id, ErrNotFound)
	}

	if err := s.save(ctx, KeyPaymentMethods, next); err != nil {
		return fmt.Errorf("RemovePaymentMethod: %w", err)
	}
	s.methods = next
	return nil
}

// Insights returns the last stored insights.
func (s *Store) Insights() []domain.FinancialInsight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FinancialInsight(nil), s.insights...)
}

// SetInsights replaces the stored insights.
func (s *Store) SetInsights(ctx context.Context, insights []domain.FinancialInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]domain.FinancialInsight{}, insights...)
	if err := s.save(ctx, KeyInsights, next); err != nil {
		return fmt.Errorf("SetInsights: %w", err)
	}
	s.insights = next
	return nil
}

// Theme returns the stored theme preference.
func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme stores the theme preference (light or dark).
func (s *Store) SetTheme(ctx context.Context, theme string) error {
	if !validTheme(theme) {
		return fmt.Errorf("SetTheme: unknown theme %q", theme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, KeyTheme, theme); err != nil {
		return fmt.Errorf("SetTheme: %w", err)
	}
	s.theme = theme
	return nil
}

// Reset removes all transactions and insights. Dictionaries and the theme
// are kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, []write{{key: KeyTransactions}, {key: KeyInsights}}); err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	s.transactions = []domain.Transaction{}
	s.insights = []domain.FinancialInsight{}

	log := logger.FromContext(ctx)
	log.Info().Msg("Store reset")
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return i
		}
	}
	return -1
}

func validTheme(t string) bool {
	return t == ThemeLight || t == ThemeDark
}

func cloneTransactions(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	for i := range txs {
		out[i] = txs[i].Clone()
	}
	return out
}
