// Package insights runs the model-backed features: saving tips over the
// transaction list and receipt scanning.
package insights

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/dvloznov/fintrack/internal/logger"
)

var (
	// ErrBusy is returned when the same operation is already running.
	ErrBusy = errors.New("operation already in progress")
	// ErrEmptyResponse is returned when the model produced no usable output.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Analyzer is the model collaborator.
type Analyzer interface {
	AnalyzeFinances(ctx context.Context, txs []domain.Transaction, categories []domain.Category) ([]domain.FinancialInsight, error)
	ScanReceipt(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptScanResult, error)
}

// Store is the subset of the transaction store the service needs.
type Store interface {
	Transactions() []domain.Transaction
	Dictionaries() ([]domain.Category, []domain.PaymentMethod)
	SetInsights(ctx context.Context, insights []domain.FinancialInsight) error
	AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
}

// Service guards each operation so that only one call of a kind runs at a time.
type Service struct {
	analyzer Analyzer
	store    Store

	mu        sync.Mutex
	analyzing bool
	scanning  bool
}

// NewService wires an analyzer to a store.
func NewService(analyzer Analyzer, store Store) *Service {
	return &Service{analyzer: analyzer, store: store}
}

// RefreshInsights asks the analyzer for new tips and persists them. On any
// failure the previously stored insights are kept.
func (s *Service) RefreshInsights(ctx context.Context) ([]domain.FinancialInsight, error) {
	log := logger.FromContext(ctx)

	if !s.acquire(&s.analyzing) {
		return nil, ErrBusy
	}
	defer s.release(&s.analyzing)

	categories, _ := s.store.Dictionaries()
	txs := s.store.Transactions()

	out, err := s.analyzer.AnalyzeFinances(ctx, txs, categories)
	if err != nil {
		log.Warn().Err(err).Msg("insight analysis failed")
		return nil, fmt.Errorf("RefreshInsights: analyze: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("RefreshInsights: %w", ErrEmptyResponse)
	}

	if err := s.store.SetInsights(ctx, out); err != nil {
		return nil, fmt.Errorf("RefreshInsights: save insights: %w", err)
	}

	log.Info().Int("count", len(out)).Int("transactions", len(txs)).Msg("insights refreshed")
	return out, nil
}

// ScanReceipt extracts a receipt and records it as an expense.
func (s *Service) ScanReceipt(ctx context.Context, image []byte, mimeType string) (domain.Transaction, error) {
	log := logger.FromContext(ctx)

	if !s.acquire(&s.scanning) {
		return domain.Transaction{}, ErrBusy
	}
	defer s.release(&s.scanning)

	result, err := s.analyzer.ScanReceipt(ctx, image, mimeType)
	if err != nil {
		log.Warn().Err(err).Msg("receipt scan failed")
		return domain.Transaction{}, fmt.Errorf("ScanReceipt: scan: %w", err)
	}
	if result == nil {
		return domain.Transaction{}, fmt.Errorf("ScanReceipt: %w", ErrEmptyResponse)
	}

	categories, methods := s.store.Dictionaries()
	tx, err := TransactionFromReceipt(*result, categories, methods, nowFunc())
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ScanReceipt: %w", err)
	}

	saved, err := s.store.AddTransaction(ctx, tx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ScanReceipt: save transaction: %w", err)
	}

	log.Info().
		Str("transaction_id", saved.ID).
		Str("merchant", result.Merchant).
		Float64("amount", saved.Amount).
		Msg("receipt recorded")
	return saved, nil
}

func (s *Service) acquire(flag *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (s *Service) release(flag *bool) {
	s.mu.Lock()
	*flag = false
	s.mu.Unlock()
}
