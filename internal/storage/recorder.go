package storage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hperssn/steady/internal/runner"
)

// RunRecorder persists every run that completes or is aborted.
type RunRecorder struct {
	repo Repository

	mu      sync.Mutex
	started map[string]time.Time
}

func NewRunRecorder(repo Repository) *RunRecorder {
	return &RunRecorder{
		repo:    repo,
		started: make(map[string]time.Time),
	}
}

// Observe is a runner.Observer.
func (rec *RunRecorder) Observe(userID string, ev runner.Event) {
	runID := ev.Snapshot.RunID

	switch ev.Kind {
	case runner.EventStarted:
		rec.mu.Lock()
		rec.started[runID] = time.Now()
		rec.mu.Unlock()

	case runner.EventCompleted, runner.EventAborted:
		rec.mu.Lock()
		startedAt, ok := rec.started[runID]
		delete(rec.started, runID)
		rec.mu.Unlock()

		if !ok {
			startedAt = time.Now().Add(-time.Duration(ev.Snapshot.ElapsedSeconds) * time.Second)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := rec.repo.SaveRun(ctx, FromRunEvent(userID, ev, startedAt)); err != nil {
			log.Printf("failed to record run %s for %s: %v", runID, userID, err)
		}
	}
}
