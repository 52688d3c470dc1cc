package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// sqlStore implements Repository over database/sql. The sqlite and postgres
// repositories differ only in schema types and placeholder style.
type sqlStore struct {
	db       *sql.DB
	numbered bool
}

func (r *sqlStore) bind(query string) string {
	if !r.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *sqlStore) SaveRun(ctx context.Context, record *RunRecord) error {
	query := `
		INSERT INTO runs (id, user_id, session_id, session_name, outcome, exercise_index, exercise_count, elapsed_sec, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.bind(query),
		record.ID,
		record.UserID,
		record.SessionID,
		record.SessionName,
		record.Outcome,
		record.ExerciseIndex,
		record.ExerciseCount,
		record.ElapsedSec,
		record.StartedAt,
		record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", record.ID, err)
	}
	return nil
}

const runColumns = `id, user_id, session_id, session_name, outcome, exercise_index, exercise_count, elapsed_sec, started_at, finished_at`

func (r *sqlStore) GetRunsByUser(ctx context.Context, userID string) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE user_id = ? ORDER BY finished_at DESC`

	rows, err := r.db.QueryContext(ctx, r.bind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

func (r *sqlStore) GetRecentRuns(ctx context.Context, userID string, since time.Time) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE user_id = ? AND finished_at >= ? ORDER BY finished_at DESC`

	rows, err := r.db.QueryContext(ctx, r.bind(query), userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

func (r *sqlStore) GetRunStats(ctx context.Context, userID string) (*RunStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'aborted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(elapsed_sec), 0)
		FROM runs
		WHERE user_id = ?
	`

	var stats RunStats
	err := r.db.QueryRowContext(ctx, r.bind(query), userID).Scan(
		&stats.TotalRuns,
		&stats.CompletedCount,
		&stats.AbortedCount,
		&stats.TotalSeconds,
	)
	if err != nil {
		return nil, err
	}

	if stats.TotalRuns > 0 {
		stats.CompletionRate = float64(stats.CompletedCount) / float64(stats.TotalRuns) * 100
	}

	return &stats, nil
}

func (r *sqlStore) SaveAssessment(ctx context.Context, record *AssessmentRecord) error {
	answersJSON, err := json.Marshal(record.Answers)
	if err != nil {
		return err
	}
	reportJSON, err := json.Marshal(record.Report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessments (id, user_id, answers_json, report_json, safety_flag, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.bind(query),
		record.ID,
		record.UserID,
		string(answersJSON),
		string(reportJSON),
		record.SafetyFlag,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save assessment %s: %w", record.ID, err)
	}
	return nil
}

func (r *sqlStore) GetAssessmentsByUser(ctx context.Context, userID string) ([]AssessmentRecord, error) {
	query := `
		SELECT id, user_id, answers_json, report_json, safety_flag, created_at
		FROM assessments
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.bind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AssessmentRecord
	for rows.Next() {
		var record AssessmentRecord
		var answersJSON, reportJSON []byte

		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&answersJSON,
			&reportJSON,
			&record.SafetyFlag,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(answersJSON, &record.Answers); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(reportJSON, &record.Report); err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *sqlStore) Close() error {
	return r.db.Close()
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	var records []RunRecord

	for rows.Next() {
		var record RunRecord

		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.SessionID,
			&record.SessionName,
			&record.Outcome,
			&record.ExerciseIndex,
			&record.ExerciseCount,
			&record.ElapsedSec,
			&record.StartedAt,
			&record.FinishedAt,
		)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}
