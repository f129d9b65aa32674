package scheduler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/pkg/formatting"
	"github.com/JaimeStill/curator/pkg/handlers"
	"github.com/JaimeStill/curator/pkg/routes"
)

const defaultMaxAge = "30d"

// JobStatus describes one scheduled job.
type JobStatus struct {
	Name    string     `json:"name"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

// Status is the scheduler state reported by the jobs endpoint.
type Status struct {
	Running bool        `json:"running"`
	Memo    int         `json:"memo"`
	Jobs    []JobStatus `json:"jobs"`
}

// RunResult reports the outcome of a manually triggered job.
type RunResult struct {
	Job       string `json:"job"`
	Processed int    `json:"processed"`
	Refreshed bool   `json:"refreshed,omitempty"`
}

// Handler exposes manual job triggers over HTTP.
type Handler struct {
	sched  *Scheduler
	logger *slog.Logger
}

func NewHandler(sched *Scheduler, logger *slog.Logger) *Handler {
	return &Handler{
		sched:  sched,
		logger: logger.With("handler", "jobs"),
	}
}

// Routes returns the route group definition for job endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/jobs",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Status},
			{Method: "POST", Pattern: "/apply/{type}", Handler: h.ApplyType},
			{Method: "POST", Pattern: "/{name}", Handler: h.Run},
		},
	}
}

// Status reports whether the scheduler runs, the memo size, and the next
// run of each job.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Running: h.sched.Ready(),
		Memo:    h.sched.Memo().Len(),
	}
	for _, name := range []string{JobApplyEligible, JobMarkEligible, JobRefreshDataset} {
		job := JobStatus{Name: name}
		if next := h.sched.NextRun(name); !next.IsZero() {
			job.NextRun = &next
		}
		status.Jobs = append(status.Jobs, job)
	}

	handlers.RespondJSON(w, http.StatusOK, status)
}

// Run executes the named job once and waits for it to finish.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	result, err := h.sched.Run(r.Context(), name)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// ApplyType applies pending insights of one type. The optional max_age
// query parameter bounds how old the source image may be.
func (h *Handler) ApplyType(w http.ResponseWriter, r *http.Request) {
	t := insights.Type(r.PathValue("type"))
	if !t.Valid() {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, insights.ErrInvalidType)
		return
	}

	raw := r.URL.Query().Get("max_age")
	if raw == "" {
		raw = defaultMaxAge
	}
	maxAge, err := formatting.ParseAge(raw)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidMaxAge, err))
		return
	}

	applied, err := h.sched.ApplyType(r.Context(), t, maxAge)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, RunResult{Job: "apply_" + string(t), Processed: applied})
}
