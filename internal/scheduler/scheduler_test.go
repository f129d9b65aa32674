package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/catalog/catalogtest"
	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/internal/insights/insightstest"
	"github.com/JaimeStill/curator/internal/scheduler"
	"github.com/JaimeStill/curator/internal/validation"
	"github.com/JaimeStill/curator/pkg/lifecycle"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

func newInsight(t insights.Type, value string) *insights.Insight {
	return &insights.Insight{
		ID:      uuid.New(),
		Barcode: "123",
		Type:    t,
		Value:   ptr(value),
		Data:    map[string]any{},
	}
}

type fixture struct {
	mem     *insightstest.Memory
	catalog *catalogtest.Fake
	sched   *scheduler.Scheduler
}

func newFixture(t *testing.T, registry *validation.Registry, snapshot *fakeSnapshot, seed ...*insights.Insight) *fixture {
	t.Helper()

	mem := insightstest.NewMemory(seed...)
	fake := catalogtest.New(map[string]catalog.Product{"123": {"code": "123"}})
	engine := annotate.NewEngine(mem, annotate.NewRegistry(fake, discard()), discard())

	cfg := &scheduler.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	deps := scheduler.Deps{
		Insights:   mem,
		Engine:     engine,
		Evaluator:  annotate.NewEvaluator(fake, discard()),
		Validation: registry,
		Logger:     discard(),
	}
	if snapshot != nil {
		deps.Dataset = snapshot
	}

	s, err := scheduler.New(deps, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{mem: mem, catalog: fake, sched: s}
}

type countingPredicate struct {
	need  bool
	calls atomic.Int32
}

func (p *countingPredicate) NeedValidation(context.Context, *insights.Insight) (bool, error) {
	p.calls.Add(1)
	return p.need, nil
}

type fakeSnapshot struct {
	changed bool
	err     error
	fetches int
}

func (f *fakeSnapshot) HasChanged(context.Context) (bool, error) {
	return f.changed, f.err
}

func (f *fakeSnapshot) Fetch(context.Context) error {
	f.fetches++
	f.changed = false
	return nil
}

func TestApplyEligible(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	due := newInsight(insights.TypeProductWeight, "500 g")
	due.ProcessAfter = &past
	unmarked := newInsight(insights.TypeProductWeight, "1 kg")
	later := newInsight(insights.TypeExpirationDate, "2025-01-01")
	later.ProcessAfter = &future
	latent := newInsight(insights.TypeExpirationDate, "2025-01-01")
	latent.ProcessAfter = &past
	latent.Latent = true

	f := newFixture(t, nil, nil, due, unmarked, later, latent)

	n, err := f.sched.ApplyEligible(context.Background())
	if err != nil {
		t.Fatalf("ApplyEligible: %v", err)
	}
	if n != 1 {
		t.Errorf("processed = %d, want 1", n)
	}

	got := f.mem.Get(due.ID)
	if got.Annotation == nil || *got.Annotation != insights.Accepted {
		t.Errorf("annotation = %v, want 1", got.Annotation)
	}
	if !got.AutomaticProcessing || got.CompletedAt == nil {
		t.Errorf("automatic = %v, completed_at = %v", got.AutomaticProcessing, got.CompletedAt)
	}
	for _, id := range []uuid.UUID{unmarked.ID, later.ID, latent.ID} {
		if f.mem.Get(id).Annotation != nil {
			t.Errorf("insight %s should not be annotated", id)
		}
	}
	if len(f.catalog.Writes()) != 1 {
		t.Errorf("writes = %d, want 1", len(f.catalog.Writes()))
	}

	n, err = f.sched.ApplyEligible(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second run = %d, %v; want 0, nil", n, err)
	}
}

func TestApplyEligibleRollsBackBatch(t *testing.T) {
	past := time.Now().Add(-time.Minute)

	good := newInsight(insights.TypeProductWeight, "500 g")
	good.ProcessAfter = &past
	broken := newInsight(insights.TypeIngredientSpellcheck, "")
	broken.ProcessAfter = &past

	f := newFixture(t, nil, nil, good, broken)

	if _, err := f.sched.ApplyEligible(context.Background()); !errors.Is(err, annotate.ErrMalformedInsight) {
		t.Fatalf("error = %v, want ErrMalformedInsight", err)
	}
	for _, id := range []uuid.UUID{good.ID, broken.ID} {
		if f.mem.Get(id).Annotation != nil {
			t.Errorf("insight %s annotated despite rollback", id)
		}
	}
}

func TestApplyEligibleCountsRecordedOnly(t *testing.T) {
	past := time.Now().Add(-time.Minute)

	due := newInsight(insights.TypeProductWeight, "500 g")
	due.ProcessAfter = &past
	flag := newInsight(insights.TypeImageFlag, "nsfw")
	flag.ProcessAfter = &past
	table := newInsight(insights.TypeNutritionTableStructure, "")
	table.ProcessAfter = &past

	f := newFixture(t, nil, nil, due, flag, table)

	for run := range 2 {
		n, err := f.sched.ApplyEligible(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		want := 0
		if run == 0 {
			want = 1
		}
		if n != want {
			t.Errorf("run %d processed = %d, want %d", run, n, want)
		}
	}

	for _, id := range []uuid.UUID{flag.ID, table.ID} {
		if f.mem.Get(id).Decided() {
			t.Errorf("insight %s decided without an annotator path", id)
		}
	}
}

func TestMarkEligible(t *testing.T) {
	auto := newInsight(insights.TypeProductWeight, "500 g")
	review := newInsight(insights.TypeBrand, "Acme")
	unregistered := newInsight(insights.TypeStore, "Carrefour")

	always := &countingPredicate{need: true}
	registry := validation.NewRegistry()
	registry.Register(insights.TypeProductWeight, validation.Never)
	registry.Register(insights.TypeBrand, always)

	f := newFixture(t, registry, nil, auto, review, unregistered)

	n, err := f.sched.MarkEligible(context.Background())
	if err != nil {
		t.Fatalf("MarkEligible: %v", err)
	}
	if n != 1 {
		t.Errorf("marked = %d, want 1", n)
	}
	if f.mem.Get(auto.ID).ProcessAfter == nil {
		t.Error("automatic insight not marked")
	}
	if f.mem.Get(review.ID).ProcessAfter != nil {
		t.Error("insight needing review was marked")
	}
	if f.mem.Get(unregistered.ID).ProcessAfter != nil {
		t.Error("insight without predicate was marked")
	}
	if !f.sched.Memo().Contains(review.ID) {
		t.Error("insight needing review not memoized")
	}

	if _, err := f.sched.MarkEligible(context.Background()); err != nil {
		t.Fatalf("second MarkEligible: %v", err)
	}
	if calls := always.calls.Load(); calls != 1 {
		t.Errorf("predicate calls = %d, want 1", calls)
	}
	if len(f.catalog.Writes()) != 0 {
		t.Error("marking must not touch the catalog")
	}
}

func TestMarkThenApply(t *testing.T) {
	in := newInsight(insights.TypeProductWeight, "500 g")
	registry := validation.NewRegistry()
	registry.Register(insights.TypeProductWeight, validation.Never)

	f := newFixture(t, registry, nil, in)

	marked, applied, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if marked != 1 || applied != 1 {
		t.Errorf("RunOnce = %d marked, %d applied; want 1, 1", marked, applied)
	}
	if f.mem.Get(in.ID).Annotation == nil {
		t.Error("insight not applied")
	}
}

func TestRefreshDataset(t *testing.T) {
	t.Run("changed", func(t *testing.T) {
		snap := &fakeSnapshot{changed: true}
		f := newFixture(t, nil, snap)

		fetched, err := f.sched.RefreshDataset(context.Background())
		if err != nil || !fetched {
			t.Fatalf("RefreshDataset = %v, %v; want true, nil", fetched, err)
		}
		fetched, err = f.sched.RefreshDataset(context.Background())
		if err != nil || fetched {
			t.Errorf("second RefreshDataset = %v, %v; want false, nil", fetched, err)
		}
		if snap.fetches != 1 {
			t.Errorf("fetches = %d, want 1", snap.fetches)
		}
	})

	t.Run("check error", func(t *testing.T) {
		f := newFixture(t, nil, &fakeSnapshot{err: errors.New("offline")})
		if _, err := f.sched.RefreshDataset(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		fetched, err := f.sched.RefreshDataset(context.Background())
		if err != nil || fetched {
			t.Errorf("RefreshDataset = %v, %v; want false, nil", fetched, err)
		}
	})
}

func TestApplyType(t *testing.T) {
	now := time.Now()
	images := map[string]any{
		"1": map[string]any{"uploaded_t": float64(now.Add(-48 * time.Hour).Unix())},
		"2": map[string]any{"uploaded_t": float64(now.Unix())},
	}

	withImage := func(in *insights.Insight, source string) *insights.Insight {
		in.SourceImage = ptr(source)
		return in
	}

	fresh := withImage(newInsight(insights.TypeExpirationDate, "2025-01-01"), "/123/2.jpg")
	missing := withImage(newInsight(insights.TypeExpirationDate, "2025-02-01"), "/123/9.jpg")
	noImage := newInsight(insights.TypeExpirationDate, "2025-03-01")
	otherType := withImage(newInsight(insights.TypeProductWeight, "1 kg"), "/123/2.jpg")

	f := newFixture(t, nil, nil, fresh, missing, noImage, otherType)
	f.catalog.SetProduct("123", catalog.Product{"code": "123", "images": images})

	n, err := f.sched.ApplyType(context.Background(), insights.TypeExpirationDate, 24*time.Hour)
	if err != nil {
		t.Fatalf("ApplyType: %v", err)
	}
	if n != 1 {
		t.Errorf("applied = %d, want 1", n)
	}
	if f.mem.Get(fresh.ID).Annotation == nil {
		t.Error("processable insight not applied")
	}
	for _, id := range []uuid.UUID{missing.ID, noImage.ID, otherType.ID} {
		if f.mem.Get(id).Annotation != nil {
			t.Errorf("insight %s should be skipped", id)
		}
	}
}

func TestApplyTypeLabels(t *testing.T) {
	images := map[string]any{"1": map[string]any{"uploaded_t": float64(time.Now().Unix())}}

	newLabel := func(tag string) *insights.Insight {
		in := newInsight(insights.TypeLabel, "")
		in.ValueTag = ptr(tag)
		in.SourceImage = ptr("/123/1.jpg")
		return in
	}

	authorized := newLabel("en:organic")
	other := newLabel("en:no-gluten")

	t.Run("without predicate", func(t *testing.T) {
		f := newFixture(t, nil, nil, authorized, other)
		f.catalog.SetProduct("123", catalog.Product{"images": images})

		n, err := f.sched.ApplyType(context.Background(), insights.TypeLabel, time.Hour)
		if err != nil || n != 0 {
			t.Errorf("ApplyType = %d, %v; want 0, nil", n, err)
		}
	})

	t.Run("authorized only", func(t *testing.T) {
		registry := validation.NewRegistry()
		registry.Register(insights.TypeLabel, validation.NewAuthorizedLabels("en:organic"))
		f := newFixture(t, registry, nil, authorized, other)
		f.catalog.SetProduct("123", catalog.Product{"images": images})

		n, err := f.sched.ApplyType(context.Background(), insights.TypeLabel, time.Hour)
		if err != nil || n != 1 {
			t.Fatalf("ApplyType = %d, %v; want 1, nil", n, err)
		}
		if f.mem.Get(authorized.ID).Annotation == nil {
			t.Error("authorized label not applied")
		}
		if f.mem.Get(other.ID).Annotation != nil {
			t.Error("unauthorized label applied")
		}
	})
}

// decidingPredicate records a decision on the insight it is asked about,
// as a concurrent annotator would between listing and applying.
type decidingPredicate struct {
	mem *insightstest.Memory
}

func (p *decidingPredicate) NeedValidation(_ context.Context, in *insights.Insight) (bool, error) {
	decided := in.Clone()
	decided.Annotation = ptr(insights.Accepted)
	p.mem.Put(decided)
	return false, nil
}

func TestApplyTypeSkipsConcurrentDecision(t *testing.T) {
	in := newInsight(insights.TypeLabel, "")
	in.ValueTag = ptr("en:organic")
	in.SourceImage = ptr("/123/1.jpg")

	registry := validation.NewRegistry()
	f := newFixture(t, registry, nil, in)
	registry.Register(insights.TypeLabel, &decidingPredicate{mem: f.mem})
	f.catalog.SetProduct("123", catalog.Product{
		"images": map[string]any{"1": map[string]any{"uploaded_t": float64(time.Now().Unix())}},
	})

	n, err := f.sched.ApplyType(context.Background(), insights.TypeLabel, time.Hour)
	if err != nil {
		t.Fatalf("ApplyType: %v", err)
	}
	if n != 0 {
		t.Errorf("applied = %d, want 0 for an insight decided elsewhere", n)
	}
	if len(f.catalog.Writes()) != 0 {
		t.Errorf("writes = %d, want 0", len(f.catalog.Writes()))
	}
}

func TestStartAndShutdown(t *testing.T) {
	f := newFixture(t, nil, nil)
	lc := lifecycle.New()

	if err := f.sched.Start(lc); err != nil {
		t.Fatalf("Start: %v", err)
	}
	lc.WaitForStartup()

	if !f.sched.Ready() {
		t.Error("scheduler not ready after startup")
	}
	if !lc.Ready() {
		t.Errorf("coordinator not ready: %v", lc.NotReady())
	}

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if f.sched.Ready() {
		t.Error("scheduler ready after shutdown")
	}
}

func TestMemo(t *testing.T) {
	m := scheduler.NewMemo(2)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	if !m.Add(a) || !m.Add(b) {
		t.Fatal("Add within capacity failed")
	}
	if !m.Add(a) {
		t.Error("re-adding a held id should report held")
	}
	if m.Add(c) {
		t.Error("Add beyond capacity should not be held")
	}
	if m.Contains(c) {
		t.Error("id beyond capacity remembered")
	}
	if !m.Contains(a) || !m.Contains(b) {
		t.Error("held ids evicted")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestConfigFinalize(t *testing.T) {
	cfg := &scheduler.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.IntervalDuration() != 2*time.Minute || cfg.JitterDuration() != 20*time.Second {
		t.Errorf("interval = %v, jitter = %v", cfg.IntervalDuration(), cfg.JitterDuration())
	}
	if cfg.Workers != 20 || cfg.DatasetSchedule != "0 3 * * *" {
		t.Errorf("workers = %d, dataset_schedule = %q", cfg.Workers, cfg.DatasetSchedule)
	}

	t.Setenv("TEST_SCHED_WORKERS", "4")
	t.Setenv("TEST_SCHED_DISABLED", "true")
	env := &scheduler.Env{Workers: "TEST_SCHED_WORKERS", Disabled: "TEST_SCHED_DISABLED"}
	cfg = &scheduler.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize with env: %v", err)
	}
	if cfg.Workers != 4 || !cfg.Disabled {
		t.Errorf("workers = %d, disabled = %v", cfg.Workers, cfg.Disabled)
	}

	bad := []scheduler.Config{
		{Interval: "never"},
		{Interval: "-1m"},
		{Jitter: "-5s"},
		{DatasetSchedule: "at three"},
	}
	for _, c := range bad {
		if err := c.Finalize(nil); err == nil {
			t.Errorf("Finalize(%+v): expected error", c)
		}
	}
}
