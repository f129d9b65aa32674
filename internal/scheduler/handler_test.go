package scheduler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/internal/scheduler"
	"github.com/JaimeStill/curator/pkg/routes"
)

func setupMux(f *fixture) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, scheduler.NewHandler(f.sched, discard()).Routes())
	return mux
}

func TestHandlerRun(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	due := newInsight(insights.TypeProductWeight, "500 g")
	due.ProcessAfter = &past

	f := newFixture(t, nil, nil, due)
	mux := setupMux(f)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/"+scheduler.JobApplyEligible, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body)
	}

	var result scheduler.RunResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Job != scheduler.JobApplyEligible || result.Processed != 1 {
		t.Errorf("result = %+v, want 1 processed", result)
	}
}

func TestHandlerRunRefresh(t *testing.T) {
	snap := &fakeSnapshot{changed: true}
	f := newFixture(t, nil, snap)

	rec := httptest.NewRecorder()
	setupMux(f).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/"+scheduler.JobRefreshDataset, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var result scheduler.RunResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Refreshed || snap.fetches != 1 {
		t.Errorf("result = %+v, fetches = %d", result, snap.fetches)
	}
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture(t, nil, nil)
	mux := setupMux(f)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown job", "/jobs/reindex", http.StatusNotFound},
		{"unknown type", "/jobs/apply/colour", http.StatusBadRequest},
		{"bad max age", "/jobs/apply/label?max_age=soon", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("status %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestHandlerApplyType(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := httptest.NewRecorder()
	setupMux(f).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/apply/product_weight?max_age=2w", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body)
	}

	var result scheduler.RunResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Job != "apply_product_weight" || result.Processed != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestHandlerStatus(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := httptest.NewRecorder()
	setupMux(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var status scheduler.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Running {
		t.Error("scheduler reported running before Start")
	}
	if len(status.Jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(status.Jobs))
	}
	for _, job := range status.Jobs {
		if job.NextRun != nil {
			t.Errorf("%s has a next run before Start", job.Name)
		}
	}
}
