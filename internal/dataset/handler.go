package dataset

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/curator/pkg/handlers"
	"github.com/JaimeStill/curator/pkg/routes"
	"github.com/JaimeStill/curator/pkg/storage"
)

// Handler reports on the held dataset snapshot.
type Handler struct {
	remote *Remote
	logger *slog.Logger
}

func NewHandler(remote *Remote, logger *slog.Logger) *Handler {
	return &Handler{
		remote: remote,
		logger: logger.With("handler", "dataset"),
	}
}

// Routes returns the route group definition for dataset endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/dataset",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Find},
		},
	}
}

// Find returns the stored snapshot's properties.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	props, err := h.remote.Stored(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, mapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, props)
}

func mapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEmptyKey), errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
