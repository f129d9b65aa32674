package annotate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/pkg/handlers"
	"github.com/JaimeStill/curator/pkg/middleware"
	"github.com/JaimeStill/curator/pkg/routes"
)

const maxRequestBytes = 1 << 20

// Authenticator resolves the catalog credential of an HTTP caller.
// It returns nil without error for anonymous requests and an error wrapping
// ErrUnauthorized when presented credentials are rejected.
type Authenticator interface {
	Authenticate(r *http.Request) (*catalog.Auth, error)
}

// AnnotateRequest is the body of an annotation request.
type AnnotateRequest struct {
	Annotation *int           `json:"annotation"`
	Update     *bool          `json:"update,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Handler exposes the annotation engine over HTTP.
type Handler struct {
	engine *Engine
	auth   Authenticator
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil auth treats every caller as anonymous.
func NewHandler(engine *Engine, auth Authenticator, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		auth:   auth,
		logger: logger.With("handler", "annotate"),
	}
}

// Routes returns the route group definition for annotation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:     "/insights",
		Middleware: middleware.Stack{middleware.LimitBody(maxRequestBytes)},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/annotate", Handler: h.Annotate},
		},
	}
}

// Annotate records a decision on the insight named by the path and returns
// the annotation result.
func (h *Handler) Annotate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, insights.ErrInvalidID)
		return
	}

	var req AnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	if req.Annotation == nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: annotation is required", ErrInvalidRequest))
		return
	}

	var auth *catalog.Auth
	if h.auth != nil {
		auth, err = h.auth.Authenticate(r)
		if err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
	}

	opts := Options{
		SkipUpdate: req.Update != nil && !*req.Update,
		Data:       req.Data,
		Auth:       auth,
	}

	result, err := h.engine.AnnotateByID(r.Context(), id, *req.Annotation, opts)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
