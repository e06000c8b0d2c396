package qa

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/ragstack/medrag/medrag/config"
	"github.com/ragstack/medrag/medrag/qa/adapters"
	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// Factory creates and wires pipeline components from configuration.
type Factory struct {
	cfg    *config.Config
	db     *sql.DB // optional, for conversation persistence
	logger zerolog.Logger
}

// NewFactory creates a factory. db may be nil, in which case conversation
// history lives in memory only.
func NewFactory(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, db: db, logger: logger}
}

// CreateOrchestrator wires a fully configured Orchestrator around the given
// capability backends.
func (f *Factory) CreateOrchestrator(generator ports.Generator, retriever ports.Retriever, extractor ports.TextExtractor) *Orchestrator {
	tracer := f.createTracer()
	store := f.createStore()

	prompts := NewPromptBuilder(f.cfg.QA.MaxContextChars, f.cfg.QA.BaseDisclaimer)
	classifier := NewClassifier(generator, f.cfg.QA.ClassifierMaxTokens, f.logger)
	validator := NewValidator(generator, prompts, f.cfg.QA.MaxAnswerTokens, f.logger)
	history := NewHistoryManager(store, f.cfg.QA.MaxHistoryLength, f.logger)

	return NewOrchestrator(
		classifier,
		retriever,
		generator,
		extractor,
		prompts,
		validator,
		history,
		tracer,
		f.cfg.QA.RetrievalK,
		f.cfg.QA.MaxAnswerTokens,
		f.logger,
	)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.QA.EnableTracing {
		return &noOpTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}

func (f *Factory) createStore() ports.ConversationStore {
	if f.db == nil {
		return NewMemoryStore()
	}
	return adapters.NewLibSQLConversationStore(f.db)
}

// noOpTracer implements Tracer with no-op behavior for disabled tracing.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

var _ ports.Tracer = (*noOpTracer)(nil)
