package annotate_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/catalog/catalogtest"
	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/internal/insights/insightstest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

func newInsight(t insights.Type, barcode, value string) *insights.Insight {
	return &insights.Insight{
		ID:           uuid.New(),
		Barcode:      barcode,
		Type:         t,
		ServerDomain: "api.openfoodfacts.org",
		Value:        ptr(value),
		Data:         map[string]any{},
		Timestamp:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	mem     *insightstest.Memory
	catalog *catalogtest.Fake
	engine  *annotate.Engine
}

func newFixture(products map[string]catalog.Product, seed ...*insights.Insight) *fixture {
	mem := insightstest.NewMemory(seed...)
	fake := catalogtest.New(products)
	registry := annotate.NewRegistry(fake, discard())
	return &fixture{
		mem:     mem,
		catalog: fake,
		engine:  annotate.NewEngine(mem, registry, discard()),
	}
}
