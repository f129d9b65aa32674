package annotate_test

import (
	"context"
	"testing"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/catalog/catalogtest"
	"github.com/JaimeStill/curator/internal/insights"
)

func process(t *testing.T, fake *catalogtest.Fake, in *insights.Insight) annotate.Result {
	t.Helper()
	registry := annotate.NewRegistry(fake, discard())
	a, ok := registry.Get(in.Type)
	if !ok {
		t.Fatalf("no annotator for %s", in.Type)
	}
	result, err := a.ProcessAnnotation(context.Background(), annotate.Request{Insight: in})
	if err != nil {
		t.Fatalf("ProcessAnnotation: %v", err)
	}
	return result
}

func TestPackagerCodeNormalizedComparison(t *testing.T) {
	in := newInsight(insights.TypePackagerCode, "123", "EMB 35069")
	fake := catalogtest.New(map[string]catalog.Product{
		"123": {"emb_codes": "EMB 35069A"},
	})

	if got := process(t, fake, in); got != annotate.AlreadyAnnotated {
		t.Errorf("result = %+v, want AlreadyAnnotated", got)
	}
	if len(fake.Writes()) != 0 {
		t.Fatalf("unexpected writes: %+v", fake.Writes())
	}

	fake.SetProduct("123", catalog.Product{"emb_codes": "EMB 99999"})
	if got := process(t, fake, in); got != annotate.Updated {
		t.Errorf("result = %+v, want Updated", got)
	}

	writes := fake.Writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
	if writes[0].Value != "EMB 99999,EMB 35069" {
		t.Errorf("emb_codes = %q, want %q", writes[0].Value, "EMB 99999,EMB 35069")
	}
}

func TestVariantsIdempotent(t *testing.T) {
	withTag := func(in *insights.Insight, tag string) *insights.Insight {
		in.ValueTag = ptr(tag)
		return in
	}

	tests := []struct {
		name    string
		insight *insights.Insight
	}{
		{"packager code", newInsight(insights.TypePackagerCode, "123", "EMB 35069")},
		{"label", withTag(newInsight(insights.TypeLabel, "123", ""), "en:organic")},
		{"category", withTag(newInsight(insights.TypeCategory, "123", ""), "en:cheeses")},
		{"product weight", newInsight(insights.TypeProductWeight, "123", "500 g")},
		{"expiration date", newInsight(insights.TypeExpirationDate, "123", "2025-06-01")},
		{"brand", newInsight(insights.TypeBrand, "123", "Crème Brûlée Co")},
		{"store", newInsight(insights.TypeStore, "123", "Carrefour")},
		{"packaging", newInsight(insights.TypePackaging, "123", "Plastic bottle")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := catalogtest.New(map[string]catalog.Product{"123": {"code": "123"}})

			if got := process(t, fake, tt.insight); got != annotate.Updated {
				t.Fatalf("first result = %+v, want Updated", got)
			}
			if got := process(t, fake, tt.insight); got != annotate.AlreadyAnnotated {
				t.Errorf("second result = %+v, want AlreadyAnnotated", got)
			}
			if n := len(fake.Writes()); n != 1 {
				t.Errorf("writes = %d, want 1", n)
			}
		})
	}
}

func TestVariantsMissingProduct(t *testing.T) {
	for _, typ := range []insights.Type{
		insights.TypePackagerCode,
		insights.TypeLabel,
		insights.TypeProductWeight,
		insights.TypeBrand,
		insights.TypeNutritionImage,
	} {
		t.Run(string(typ), func(t *testing.T) {
			fake := catalogtest.New(nil)
			in := newInsight(typ, "404", "x")
			in.Data = map[string]any{"lang": "en", "text": "a", "corrected": "b"}

			if got := process(t, fake, in); got != annotate.MissingProduct {
				t.Errorf("result = %+v, want MissingProduct", got)
			}
			if len(fake.Writes()) != 0 {
				t.Error("unexpected write")
			}
		})
	}
}

func TestIngredientSpellcheckDrift(t *testing.T) {
	in := newInsight(insights.TypeIngredientSpellcheck, "123", "")
	in.Data = map[string]any{
		"lang":      "fr",
		"text":      "frise, sucre",
		"corrected": "fraise, sucre",
	}

	fake := catalogtest.New(map[string]catalog.Product{
		"123": {"ingredients_text_fr": "fraise, sucre, sel"},
	})

	if got := process(t, fake, in); got != annotate.UpdatedProduct {
		t.Errorf("result = %+v, want UpdatedProduct", got)
	}
	if len(fake.Writes()) != 0 {
		t.Errorf("writes = %d, want 0", len(fake.Writes()))
	}

	fake.SetProduct("123", catalog.Product{"ingredients_text_fr": "frise, sucre"})
	if got := process(t, fake, in); got != annotate.Updated {
		t.Errorf("result = %+v, want Updated", got)
	}
	writes := fake.Writes()
	if len(writes) != 1 || writes[0].Value != "fraise, sucre" {
		t.Errorf("writes = %+v, want corrected text", writes)
	}
}

func TestNutritionImage(t *testing.T) {
	newNutrition := func(source string) *insights.Insight {
		in := newInsight(insights.TypeNutritionImage, "123", "")
		in.ValueTag = ptr("fr")
		in.SourceImage = ptr(source)
		in.Data = map[string]any{"rotation": float64(90)}
		return in
	}

	t.Run("selects and is idempotent", func(t *testing.T) {
		fake := catalogtest.New(map[string]catalog.Product{
			"123": {"code": "123", "images": map[string]any{"3": map[string]any{"uploaded_t": "1600000000"}}},
		})
		in := newNutrition("/123/3.jpg")

		if got := process(t, fake, in); got != annotate.Updated {
			t.Fatalf("first result = %+v, want Updated", got)
		}
		if got := process(t, fake, in); got != annotate.AlreadyAnnotated {
			t.Errorf("second result = %+v, want AlreadyAnnotated", got)
		}
		writes := fake.Writes()
		if len(writes) != 1 || writes[0].Value != "nutrition_fr=3" {
			t.Errorf("writes = %+v", writes)
		}
	})

	t.Run("invalid image", func(t *testing.T) {
		fake := catalogtest.New(map[string]catalog.Product{"123": {"code": "123"}})

		if got := process(t, fake, newNutrition("/123/front_fr.jpg")); got != annotate.InvalidImage {
			t.Errorf("result = %+v, want InvalidImage", got)
		}
		if len(fake.Writes()) != 0 {
			t.Error("unexpected write")
		}
	})
}

func TestRegistry(t *testing.T) {
	registry := annotate.NewRegistry(catalogtest.New(nil), discard())

	for _, typ := range insights.Types {
		_, ok := registry.Get(typ)
		if want := typ != insights.TypeImageFlag; ok != want {
			t.Errorf("Get(%s) ok = %v, want %v", typ, ok, want)
		}
	}

	a, _ := registry.Get(insights.TypeNutritionTableStructure)
	if !a.DataRequired() {
		t.Error("nutrition table structure should require data")
	}
	b, _ := registry.Get(insights.TypeLabel)
	if b.DataRequired() {
		t.Error("label should not require data")
	}

	for _, typ := range insights.Types {
		a, ok := registry.Get(typ)
		if want := ok && !a.DataRequired(); typ.Automatable() != want {
			t.Errorf("%s Automatable() = %v, want %v", typ, typ.Automatable(), want)
		}
	}

	if n := len(registry.Types()); n != len(insights.Types)-1 {
		t.Errorf("Types() = %d entries, want %d", n, len(insights.Types)-1)
	}
}
