package main

import (
	"time"

	"github.com/JaimeStill/curator/internal/api"
	"github.com/JaimeStill/curator/internal/config"
	"github.com/JaimeStill/curator/internal/infrastructure"
)

type Server struct {
	infra     *infrastructure.Infrastructure
	domain    *api.Domain
	modules   *Modules
	http      *httpServer
	scheduled bool
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	domain, err := api.NewDomain(cfg, infra, cfg.API.Pagination)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, domain, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	if err := modules.Mount(router); err != nil {
		return nil, err
	}

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"scheduler", !cfg.Scheduler.Disabled,
	)

	return &Server{
		infra:     infra,
		domain:    domain,
		modules:   modules,
		http:      newHTTPServer(&cfg.Server, router, infra.Logger),
		scheduled: !cfg.Scheduler.Disabled,
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if s.scheduled {
		if err := s.domain.Scheduler.Start(s.infra.Lifecycle); err != nil {
			return err
		}
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
