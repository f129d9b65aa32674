package annotate

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/insights"
)

// Registry maps insight types to the annotator that applies them.
// It is populated at construction and read-only afterwards.
type Registry struct {
	annotators map[insights.Type]Annotator
}

// NewRegistry returns a registry with an annotator for every insight type
// that can be applied to the catalog.
func NewRegistry(client catalog.Client, logger *slog.Logger) *Registry {
	r := &Registry{annotators: make(map[insights.Type]Annotator)}

	r.Register(insights.TypeIngredientSpellcheck, &IngredientSpellcheck{
		client: client,
		logger: logger.With("annotator", string(insights.TypeIngredientSpellcheck)),
	})
	r.Register(insights.TypePackagerCode, &PackagerCode{client: client})
	r.Register(insights.TypeLabel, &Label{client: client})
	r.Register(insights.TypeCategory, &Category{client: client})
	r.Register(insights.TypeProductWeight, &ProductWeight{client: client})
	r.Register(insights.TypeExpirationDate, &ExpirationDate{client: client})
	r.Register(insights.TypeBrand, &Brand{client: client})
	r.Register(insights.TypeStore, &Store{client: client})
	r.Register(insights.TypePackaging, &Packaging{client: client})
	r.Register(insights.TypeNutritionImage, &NutritionImage{client: client})
	r.Register(insights.TypeNutritionTableStructure, NutritionTableStructure{})

	return r
}

// Register binds an annotator to t, replacing any previous binding.
// Not safe for use once the registry is shared.
func (r *Registry) Register(t insights.Type, a Annotator) {
	r.annotators[t] = a
}

// Get returns the annotator for t.
func (r *Registry) Get(t insights.Type) (Annotator, bool) {
	a, ok := r.annotators[t]
	return a, ok
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []insights.Type {
	return slices.Sorted(maps.Keys(r.annotators))
}
