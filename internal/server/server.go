package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/brk3/steady/internal/config"
	"github.com/brk3/steady/internal/insight"
	"github.com/brk3/steady/internal/logger"
	"github.com/brk3/steady/internal/storage"
	"github.com/brk3/steady/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg           *config.Config
	store         storage.Store
	assembler     *view.Assembler
	insights      insight.Generator
	authProviders map[string]*AuthProvider
	sessionCookie *securecookie.SecureCookie
	now           func() time.Time
}

func New(cfg *config.Config, store storage.Store) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		store:     store,
		assembler: view.New(store, cfg.LookbackDays),
		now:       time.Now,
	}

	if cfg.AuthEnabled {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid auth config: %w", err)
		}
		providers, cookie, err := ConfigureOIDCProviders(cfg)
		if err != nil {
			return nil, err
		}
		s.authProviders = providers
		s.sessionCookie = cookie
	} else {
		logger.Warn("Authentication disabled, all requests act as the anonymous user")
	}

	return s, nil
}

// SetInsightGenerator enables the insight endpoints.
func (s *Server) SetInsightGenerator(g insight.Generator) {
	s.insights = g
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/version", s.getVersionInfo)
	r.Handle("/metrics", promhttp.Handler())

	if s.cfg.AuthEnabled {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.simpleLogin)
			r.Get("/login/{id}", s.login)
			r.Get("/callback/{id}", s.callback)
			r.Post("/logout", s.logout)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Get("/token", s.getAPIToken)
				r.Post("/api_keys", s.generateAPIKey)
				r.Get("/api_keys", s.listAPIKeys)
				r.Delete("/api_keys/{key_hash}", s.deleteAPIKey)
			})
		})
	}

	r.Route("/habits", func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
		}
		r.Use(s.userAwareMetricsMiddleware)

		r.Get("/", s.listHabits)
		r.Post("/", s.createHabit)
		r.Get("/{habit_id}", s.getHabit)
		r.Delete("/{habit_id}", s.deleteHabit)
		r.Post("/{habit_id}/completions", s.addCompletion)
		r.Post("/{habit_id}/insights", s.generateInsight)
		r.Get("/{habit_id}/insights", s.getInsight)
	})
	return r
}
