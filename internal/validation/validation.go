// Package validation decides which pending insights still need a human
// decision. Insights whose family reports no validation is needed become
// eligible for automatic application.
package validation

import (
	"context"
	"slices"
	"time"

	"github.com/JaimeStill/curator/internal/insights"
)

// Predicate reports whether an insight must be validated by a human.
type Predicate interface {
	NeedValidation(ctx context.Context, insight *insights.Insight) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(ctx context.Context, insight *insights.Insight) (bool, error)

func (f PredicateFunc) NeedValidation(ctx context.Context, insight *insights.Insight) (bool, error) {
	return f(ctx, insight)
}

var (
	// Never lets every insight of a family be applied automatically.
	Never Predicate = PredicateFunc(func(context.Context, *insights.Insight) (bool, error) {
		return false, nil
	})
	// Always keeps every insight of a family for human review.
	Always Predicate = PredicateFunc(func(context.Context, *insights.Insight) (bool, error) {
		return true, nil
	})
)

// AuthorizedLabels applies label insights automatically only when their tag
// is on the allow list.
type AuthorizedLabels struct {
	tags []string
}

// NewAuthorizedLabels returns a predicate allowing the given label tags.
func NewAuthorizedLabels(tags ...string) *AuthorizedLabels {
	return &AuthorizedLabels{tags: slices.Clone(tags)}
}

func (a *AuthorizedLabels) NeedValidation(_ context.Context, insight *insights.Insight) (bool, error) {
	return !slices.Contains(a.tags, insight.ValueTagString()), nil
}

// Evaluator is the automatic-processability check ImageGrounded relies on.
type Evaluator interface {
	IsAutomaticallyProcessable(ctx context.Context, barcode, sourceImage string, maxAge time.Duration) (bool, error)
}

// ImageGrounded applies an insight automatically only when its source image
// is recent or selected on the product. Errors from the evaluator, including
// invalid insights, are returned unchanged.
type ImageGrounded struct {
	evaluator Evaluator
	maxAge    time.Duration
}

// NewImageGrounded returns a predicate gated on evaluator.
func NewImageGrounded(evaluator Evaluator, maxAge time.Duration) *ImageGrounded {
	return &ImageGrounded{evaluator: evaluator, maxAge: maxAge}
}

func (g *ImageGrounded) NeedValidation(ctx context.Context, insight *insights.Insight) (bool, error) {
	ok, err := g.evaluator.IsAutomaticallyProcessable(ctx, insight.Barcode, insight.SourceImageString(), g.maxAge)
	if err != nil {
		return true, err
	}
	return !ok, nil
}

// Registry maps insight types to their validation predicate. A type with no
// predicate is never marked for automatic processing.
type Registry struct {
	predicates map[insights.Type]Predicate
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{predicates: make(map[insights.Type]Predicate)}
}

// Register binds p to t, replacing any previous binding.
func (r *Registry) Register(t insights.Type, p Predicate) {
	r.predicates[t] = p
}

// Get returns the predicate for t.
func (r *Registry) Get(t insights.Type) (Predicate, bool) {
	p, ok := r.predicates[t]
	return p, ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.predicates)
}
