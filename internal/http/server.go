package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hperssn/steady/internal/assessment"
	"github.com/hperssn/steady/internal/domain"
	"github.com/hperssn/steady/internal/metrics"
	"github.com/hperssn/steady/internal/runner"
	"github.com/hperssn/steady/internal/storage"
)

type Options struct {
	Questions *assessment.Catalog
	Sessions  *domain.Catalog
	Manager   *runner.SessionManager

	// Optional. Without a repository nothing is persisted.
	Repo    storage.Repository
	Metrics *metrics.Metrics

	DevAuth bool
}

type Server struct {
	questions *assessment.Catalog
	sessions  *domain.Catalog
	manager   *runner.SessionManager
	repo      storage.Repository
	metrics   *metrics.Metrics
	devAuth   bool
}

func NewServer(opts Options) *Server {
	return &Server{
		questions: opts.Questions,
		sessions:  opts.Sessions,
		manager:   opts.Manager,
		repo:      opts.Repo,
		metrics:   opts.Metrics,
		devAuth:   opts.DevAuth,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(ExtractUser(s.devAuth))

		r.Get("/assessments/questions", s.listQuestions)
		r.Post("/assessments/score", s.scoreAssessment)
		r.Get("/assessments", s.listAssessments)

		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{id}", s.getSession)

		r.Post("/runs", s.startRun)
		r.Post("/runs/custom", s.startCustomRun)
		r.Get("/runs/current", s.currentRun)
		r.Post("/runs/current/{command}", s.runCommand)
		r.Get("/runs/current/events", s.streamRunEvents)
		r.Get("/runs/current/ws", s.runSocket)

		r.Get("/history/runs", s.runHistory)
		r.Get("/history/stats", s.runStats)
	})

	return r
}
