package api

import (
	"fmt"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/config"
	"github.com/JaimeStill/curator/internal/dataset"
	"github.com/JaimeStill/curator/internal/infrastructure"
	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/internal/scheduler"
	"github.com/JaimeStill/curator/internal/validation"
	"github.com/JaimeStill/curator/pkg/pagination"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Insights   insights.System
	Engine     *annotate.Engine
	Evaluator  *annotate.Evaluator
	Validation *validation.Registry
	Dataset    *dataset.Remote
	Scheduler  *scheduler.Scheduler
}

// NewDomain creates all domain systems on top of infra. The scheduler is
// built but not started.
func NewDomain(cfg *config.Config, infra *infrastructure.Infrastructure, page pagination.Config) (*Domain, error) {
	insightsSystem := insights.New(
		infra.Database.Connection(),
		infra.Logger,
		page,
	)

	registry := annotate.NewRegistry(infra.Catalog, infra.Logger)
	engine := annotate.NewEngine(insightsSystem, registry, infra.Logger)
	evaluator := annotate.NewEvaluator(infra.Catalog, infra.Logger)

	rules := validation.NewRegistry()
	if cfg.Scheduler.Policy != "" {
		policy, err := validation.LoadPolicy(cfg.Scheduler.Policy)
		if err != nil {
			return nil, err
		}
		rules, err = policy.Registry(evaluator)
		if err != nil {
			return nil, fmt.Errorf("validation policy: %w", err)
		}
	}

	var (
		remote   *dataset.Remote
		snapshot dataset.Snapshot
	)
	if cfg.Dataset.Enabled() {
		var err error
		remote, err = dataset.NewRemote(&cfg.Dataset, infra.Storage, nil, infra.Logger)
		if err != nil {
			return nil, fmt.Errorf("dataset init failed: %w", err)
		}
		snapshot = remote
	}

	sched, err := scheduler.New(scheduler.Deps{
		Insights:   insightsSystem,
		Engine:     engine,
		Evaluator:  evaluator,
		Validation: rules,
		Dataset:    snapshot,
		Logger:     infra.Logger,
	}, &cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("scheduler init failed: %w", err)
	}

	return &Domain{
		Insights:   insightsSystem,
		Engine:     engine,
		Evaluator:  evaluator,
		Validation: rules,
		Dataset:    remote,
		Scheduler:  sched,
	}, nil
}
