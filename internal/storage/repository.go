package storage

import (
	"context"
	"time"
)

type Repository interface {
	SaveRun(ctx context.Context, record *RunRecord) error

	GetRunsByUser(ctx context.Context, userID string) ([]RunRecord, error)

	GetRecentRuns(ctx context.Context, userID string, since time.Time) ([]RunRecord, error)

	GetRunStats(ctx context.Context, userID string) (*RunStats, error)

	SaveAssessment(ctx context.Context, record *AssessmentRecord) error

	GetAssessmentsByUser(ctx context.Context, userID string) ([]AssessmentRecord, error)

	Close() error
}

type RunStats struct {
	TotalRuns      int     `json:"totalRuns"`
	CompletedCount int     `json:"completedCount"`
	AbortedCount   int     `json:"abortedCount"`
	TotalSeconds   int     `json:"totalSeconds"`
	CompletionRate float64 `json:"completionRate"`
}
