package api

import (
	"log/slog"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/infrastructure"
)

// Runtime is what the API handlers share beyond the domain: a logger scoped
// to the api module and the caller authenticator.
type Runtime struct {
	Logger *slog.Logger
	Auth   annotate.Authenticator
}

func newRuntime(infra *infrastructure.Infrastructure) *Runtime {
	rt := &Runtime{Logger: infra.Logger.With("module", "api")}
	if infra.Auth != nil {
		rt.Auth = infra.Auth
	}
	return rt
}
