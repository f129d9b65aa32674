package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/insights"
)

// Options tune a single annotation.
type Options struct {
	// SkipUpdate records an accepted decision without applying it to the catalog.
	SkipUpdate bool
	// Data is caller-supplied structured feedback for annotators that require it.
	Data map[string]any
	// Auth identifies the decision maker. Nil records a system decision.
	Auth *catalog.Auth
	// Automatic marks the decision as made without a human.
	Automatic bool
}

// Engine records annotation decisions and dispatches accepted insights to
// their annotator.
type Engine struct {
	tx       insights.Transactor
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine creates an Engine that opens its transactions on tx.
func NewEngine(tx insights.Transactor, registry *Registry, logger *slog.Logger) *Engine {
	return &Engine{
		tx:       tx,
		registry: registry,
		logger:   logger.With("system", "annotate"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Registry returns the annotator registry the engine dispatches through.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Annotate records decision on insight in its own transaction and, when the
// decision accepts the insight, applies it to the catalog.
//
// Latent insights are refused before a transaction is opened. Any error
// rolls the transaction back and leaves insight unchanged; on success the
// recorded fields are copied back into insight.
func (e *Engine) Annotate(ctx context.Context, insight *insights.Insight, decision int, opts Options) (Result, error) {
	if insight.Latent {
		return LatentInsight, nil
	}

	work := insight.Clone()
	var result Result

	err := e.tx.InTx(ctx, func(s insights.Store) error {
		var err error
		result, err = e.AnnotateTx(ctx, s, work, decision, opts)
		return err
	})
	if err != nil {
		e.logger.Error(
			"annotation rolled back",
			"id", insight.ID,
			"type", insight.Type,
			"barcode", insight.Barcode,
			"error", err,
		)
		return Result{}, err
	}

	*insight = *work
	return result, nil
}

// AnnotateByID loads the insight with the given id inside a transaction and
// annotates it there. Unlike Annotate it refuses insights that are already
// decided, since the row lock makes that check reliable.
func (e *Engine) AnnotateByID(ctx context.Context, id uuid.UUID, decision int, opts Options) (Result, error) {
	var result Result

	err := e.tx.InTx(ctx, func(s insights.Store) error {
		insight, err := s.Find(ctx, id)
		if err != nil {
			if errors.Is(err, insights.ErrNotFound) {
				result = UnknownInsight
				return nil
			}
			return fmt.Errorf("load insight %s: %w", id, err)
		}

		switch {
		case insight.Latent:
			result = LatentInsight
			return nil
		case insight.Decided():
			result = AlreadyAnnotated
			return nil
		}

		result, err = e.AnnotateTx(ctx, s, insight, decision, opts)
		return err
	})
	if err != nil {
		e.logger.Error("annotation rolled back", "id", id, "error", err)
		return Result{}, err
	}
	return result, nil
}

// AnnotateTx runs the annotation protocol inside a transaction owned by the
// caller, mutating insight in place. The caller must roll back on error.
func (e *Engine) AnnotateTx(
	ctx context.Context,
	s insights.Store,
	insight *insights.Insight,
	decision int,
	opts Options,
) (Result, error) {
	if insight.Latent {
		return LatentInsight, nil
	}

	annotator, ok := e.registry.Get(insight.Type)
	if !ok {
		e.logger.Warn("no annotator registered", "id", insight.ID, "type", insight.Type)
		return UnknownInsight, nil
	}

	if annotator.DataRequired() && opts.Data == nil {
		return DataRequired, nil
	}

	var username *string
	if opts.Auth != nil {
		username = opts.Auth.Username()
	}

	completedAt := e.now()
	insight.Username = username
	insight.Annotation = &decision
	insight.CompletedAt = &completedAt
	insight.AutomaticProcessing = opts.Automatic

	if err := s.Save(ctx, insight); err != nil {
		return Result{}, err
	}

	if decision != insights.Accepted || opts.SkipUpdate {
		e.log(insight, Saved)
		return Saved, nil
	}

	result, err := annotator.ProcessAnnotation(ctx, Request{
		Insight: insight,
		Data:    opts.Data,
		Auth:    opts.Auth,
		Store:   s,
	})
	if err != nil {
		return Result{}, fmt.Errorf("apply %s insight %s: %w", insight.Type, insight.ID, err)
	}

	e.log(insight, result)
	return result, nil
}

func (e *Engine) log(insight *insights.Insight, result Result) {
	e.logger.Info(
		"insight annotated",
		"id", insight.ID,
		"type", insight.Type,
		"barcode", insight.Barcode,
		"annotation", *insight.Annotation,
		"automatic", insight.AutomaticProcessing,
		"status", result.Status,
	)
}
