package api

import (
	"net/http"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/dataset"
	"github.com/JaimeStill/curator/internal/scheduler"
	"github.com/JaimeStill/curator/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	groups := []routes.Group{
		domain.Insights.Handler().Routes(),
		annotate.NewHandler(domain.Engine, runtime.Auth, runtime.Logger).Routes(),
		scheduler.NewHandler(domain.Scheduler, runtime.Logger).Routes(),
	}
	if domain.Dataset != nil {
		groups = append(groups, dataset.NewHandler(domain.Dataset, runtime.Logger).Routes())
	}

	routes.Register(mux, groups...)
}
