package storage

import (
	"database/sql"

	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	sqlStore
}

func NewPostgresRepository(connStr string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	repo := &PostgresRepository{sqlStore{db: db, numbered: true}}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *PostgresRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		session_name TEXT NOT NULL,
		outcome TEXT NOT NULL,
		exercise_index INTEGER NOT NULL,
		exercise_count INTEGER NOT NULL,
		elapsed_sec INTEGER NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_user_id ON runs(user_id);
	CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);

	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		answers_json JSONB NOT NULL,
		report_json JSONB NOT NULL,
		safety_flag BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_user_id ON assessments(user_id);
	`

	_, err := r.db.Exec(schema)
	return err
}
