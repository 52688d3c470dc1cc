package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/hperssn/steady/internal/assessment"
	"github.com/hperssn/steady/internal/runner"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeAborted   Outcome = "aborted"
)

// RunRecord is a finished guided session run.
type RunRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	SessionID     string    `json:"sessionId"`
	SessionName   string    `json:"sessionName"`
	Outcome       Outcome   `json:"outcome"`
	ExerciseIndex int       `json:"exerciseIndex"` // position when the run ended
	ExerciseCount int       `json:"exerciseCount"`
	ElapsedSec    int       `json:"elapsedSec"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// AssessmentRecord is an assessment the user chose to keep.
type AssessmentRecord struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId"`
	Answers    assessment.Answers `json:"answers"`
	Report     assessment.Report  `json:"report"`
	SafetyFlag bool               `json:"safetyFlag"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// FromRunEvent converts the final event of a run to a RunRecord.
func FromRunEvent(userID string, ev runner.Event, startedAt time.Time) *RunRecord {
	outcome := OutcomeCompleted
	if ev.Kind == runner.EventAborted {
		outcome = OutcomeAborted
	}

	s := ev.Snapshot
	return &RunRecord{
		ID:            s.RunID,
		UserID:        userID,
		SessionID:     s.SessionID,
		SessionName:   s.SessionName,
		Outcome:       outcome,
		ExerciseIndex: s.ExerciseIndex,
		ExerciseCount: s.ExerciseCount,
		ElapsedSec:    s.ElapsedSeconds,
		StartedAt:     startedAt.UTC(),
		FinishedAt:    time.Now().UTC(),
	}
}

func NewAssessmentRecord(userID string, answers assessment.Answers, report assessment.Report) *AssessmentRecord {
	return &AssessmentRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		Answers:    answers,
		Report:     report,
		SafetyFlag: report.SafetyFlag,
		CreatedAt:  time.Now().UTC(),
	}
}
