package importer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/dvloznov/fintrack/internal/gcs"
	"github.com/dvloznov/fintrack/internal/logger"
)

// ErrNothingImported is returned when a source produced no transactions.
// The store is left untouched in that case.
var ErrNothingImported = errors.New("no valid records found")

// Store is the part of the transaction store the import pipeline needs.
type Store interface {
	Dictionaries() ([]domain.Category, []domain.PaymentMethod)
	ApplyImport(ctx context.Context, txs []domain.Transaction, categories []domain.Category, methods []domain.PaymentMethod) error
}

// PipelineStep represents a single step in the import pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Source string // local path or gs:// URI; empty when Raw is supplied directly
	Raw    []byte
	Result Result
}

// ReadSourceStep loads the export from a local file or a Cloud Storage object.
type ReadSourceStep struct {
	Storage gcs.StorageService
}

func (s *ReadSourceStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Raw) > 0 {
		return nil
	}
	if state.Source == "" {
		return fmt.Errorf("ReadSourceStep: no source given")
	}

	var (
		data []byte
		err  error
	)
	if gcs.IsGCSURI(state.Source) {
		if s.Storage == nil {
			return fmt.Errorf("ReadSourceStep: %s: cloud storage is not configured", state.Source)
		}
		data, err = s.Storage.FetchFromGCS(ctx, state.Source)
	} else {
		data, err = os.ReadFile(state.Source)
	}
	if err != nil {
		return fmt.Errorf("ReadSourceStep: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("ReadSourceStep: %s is empty: %w", state.Source, ErrNothingImported)
	}

	state.Raw = data
	return nil
}

// ParseStep reconciles the raw export against the current dictionaries.
type ParseStep struct {
	Store   Store
	Options Options
}

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	categories, methods := s.Store.Dictionaries()
	state.Result = ParseLegacy(string(state.Raw), categories, methods, s.Options)

	for _, skipped := range state.Result.Skipped {
		log.Debug().Int("line", skipped.Line).Str("reason", skipped.Reason).Msg("Skipped import line")
	}

	if len(state.Result.Transactions) == 0 {
		return ErrNothingImported
	}
	return nil
}

// CommitStep merges the parsed transactions and extended dictionaries into the store.
type CommitStep struct {
	Store Store
}

func (s *CommitStep) Execute(ctx context.Context, state *PipelineState) error {
	r := state.Result
	if err := s.Store.ApplyImport(ctx, r.Transactions, r.Categories, r.PaymentMethods); err != nil {
		return fmt.Errorf("CommitStep: %w", err)
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewLegacyImportPipeline creates the standard read, parse and commit pipeline.
func NewLegacyImportPipeline(store Store, storage gcs.StorageService, opts Options) *Pipeline {
	return NewPipeline(
		&ReadSourceStep{Storage: storage},
		&ParseStep{Store: store, Options: opts},
		&CommitStep{Store: store},
	)
}

// Importer runs legacy imports against a store.
type Importer struct {
	pipeline *Pipeline
	storage  gcs.StorageService
}

// New creates an Importer. storage may be nil when gs:// sources are not used.
func New(store Store, storage gcs.StorageService, opts Options) *Importer {
	return &Importer{pipeline: NewLegacyImportPipeline(store, storage, opts), storage: storage}
}

// ImportSource imports a local file or gs:// object.
func (im *Importer) ImportSource(ctx context.Context, source string) (*Result, error) {
	return im.run(ctx, &PipelineState{Source: source})
}

// ImportText imports an export that is already in memory.
func (im *Importer) ImportText(ctx context.Context, text []byte) (*Result, error) {
	if len(text) == 0 {
		return nil, ErrNothingImported
	}
	return im.run(ctx, &PipelineState{Raw: text})
}

func (im *Importer) run(ctx context.Context, state *PipelineState) (*Result, error) {
	fields := map[string]interface{}{}
	if state.Source != "" {
		fields["source"] = state.Source
	}
	if im.storage != nil && gcs.IsGCSURI(state.Source) {
		fields["file"] = im.storage.ExtractFilenameFromGCSURI(state.Source)
	}
	log := logger.WithFields(logger.FromContext(ctx), fields)
	ctx = logger.WithContext(ctx, log)

	if err := im.pipeline.Execute(ctx, state); err != nil {
		log.Warn().Err(err).Msg("Legacy import failed")
		return nil, err
	}

	log.Info().
		Int("transactions", len(state.Result.Transactions)).
		Int("skipped", len(state.Result.Skipped)).
		Msg("Legacy import committed")

	return &state.Result, nil
}
