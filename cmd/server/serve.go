package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hperssn/steady/internal/assessment"
	"github.com/hperssn/steady/internal/config"
	"github.com/hperssn/steady/internal/domain"
	httpapi "github.com/hperssn/steady/internal/http"
	"github.com/hperssn/steady/internal/metrics"
	"github.com/hperssn/steady/internal/runner"
	"github.com/hperssn/steady/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. Configuration comes from STEADY_* environment
variables, optionally loaded from a .env file.

Examples:
  steady serve
  STEADY_STORAGE=sqlite steady serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	questions, err := assessment.LoadCatalogFile(cfg.QuestionsPath)
	if err != nil {
		return fmt.Errorf("load question catalog: %w", err)
	}
	sessions, err := domain.LoadCatalogFile(cfg.SessionsPath)
	if err != nil {
		return fmt.Errorf("load session catalog: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	if repo != nil {
		defer repo.Close()
	}

	m, err := metrics.New(ctx, metrics.Config{
		Endpoint: cfg.OTelEndpoint,
		Insecure: cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	observers := []runner.Observer{m.ObserveRun}
	if repo != nil {
		observers = append(observers, storage.NewRunRecorder(repo).Observe)
	}
	manager := runner.NewSessionManager(ctx, runner.IntervalTicks(cfg.TickInterval), observers...)

	api := httpapi.NewServer(httpapi.Options{
		Questions: questions,
		Sessions:  sessions,
		Manager:   manager,
		Repo:      repo,
		Metrics:   m,
		DevAuth:   cfg.DevAuth,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Closing run streams first lets SSE handlers return before Shutdown waits on them.
		manager.Shutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return m.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openRepository(cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Printf("storing history in sqlite at %s", cfg.SQLitePath)
		return repo, nil
	case config.StoragePostgres:
		repo, err := storage.NewPostgresRepository(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Println("storing history in postgres")
		return repo, nil
	default:
		log.Println("persistence disabled, history endpoints will return 503")
		return nil, nil
	}
}
