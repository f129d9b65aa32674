package annotate

import (
	"context"

	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/insights"
)

// Request carries one accepted insight to its Annotator. Store is bound to
// the transaction the decision was recorded in.
type Request struct {
	Insight *insights.Insight
	Data    map[string]any
	Auth    *catalog.Auth
	Store   insights.Store
}

// Edit describes the catalog edit made on behalf of the request.
func (r Request) Edit() catalog.Edit {
	return catalog.Edit{
		Barcode:      r.Insight.Barcode,
		InsightID:    r.Insight.ID,
		ServerDomain: r.Insight.ServerDomain,
		Auth:         r.Auth,
	}
}

// Annotator applies one insight type to the catalog.
//
// ProcessAnnotation re-reads the relevant projection of the product, returns
// AlreadyAnnotated when the fact is present, and otherwise pushes it.
// Catalog failures are returned as errors so the enclosing transaction rolls
// back.
type Annotator interface {
	ProcessAnnotation(ctx context.Context, req Request) (Result, error)
	DataRequired() bool
}

// Base supplies the default DataRequired for annotators that infer
// everything from the insight.
type Base struct{}

func (Base) DataRequired() bool {
	return false
}
