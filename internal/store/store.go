// Data access layer for the job history, keeping SQL queries separate
// from the job controller.

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vrsandeep/turntable-go/internal/models"
)

// ErrJobRunNotFound is returned when no history row matches an id.
var ErrJobRunNotFound = errors.New("job run not found")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateJobRun inserts a history row for a freshly submitted job.
func (s *Store) CreateJobRun(run *models.JobRun) error {
	rounds, err := json.Marshal(run.Rounds)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO job_runs (id, rounds, total_images, captured, state, message, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(rounds), run.Total, run.Captured, run.State, run.Message, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert job run %s: %w", run.ID, err)
	}
	return nil
}

// FinishJobRun records the terminal state of a job.
func (s *Store) FinishJobRun(id, state, message string, captured int, finishedAt time.Time) error {
	res, err := s.db.Exec(
		"UPDATE job_runs SET state = ?, message = ?, captured = ?, finished_at = ? WHERE id = ?",
		state, message, captured, finishedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update job run %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobRunNotFound
	}
	return nil
}

// GetJobRun returns a single history row.
func (s *Store) GetJobRun(id string) (*models.JobRun, error) {
	row := s.db.QueryRow(
		`SELECT id, rounds, total_images, captured, state, message, started_at, finished_at
		 FROM job_runs WHERE id = ?`, id)
	run, err := scanJobRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrJobRunNotFound
	}
	return run, err
}

// ListJobRuns returns the most recent job runs, newest first.
func (s *Store) ListJobRuns(limit int) ([]*models.JobRun, error) {
	rows, err := s.db.Query(
		`SELECT id, rounds, total_images, captured, state, message, started_at, finished_at
		 FROM job_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.JobRun{}
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneJobRuns deletes finished runs that started before cutoff and
// returns the number of rows removed.
func (s *Store) PruneJobRuns(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM job_runs WHERE started_at < ? AND finished_at IS NOT NULL", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune job runs: %w", err)
	}
	return res.RowsAffected()
}

// MarkInterruptedJobRuns closes rows left running by a previous process.
func (s *Store) MarkInterruptedJobRuns(now time.Time) (int64, error) {
	res, err := s.db.Exec(
		"UPDATE job_runs SET state = ?, message = ?, finished_at = ? WHERE finished_at IS NULL",
		models.JobStateFailed, "Interrupted by server restart.", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJobRun(row scanner) (*models.JobRun, error) {
	var (
		run        models.JobRun
		rounds     string
		finishedAt sql.NullTime
	)
	if err := row.Scan(&run.ID, &rounds, &run.Total, &run.Captured, &run.State, &run.Message, &run.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rounds), &run.Rounds); err != nil {
		return nil, fmt.Errorf("corrupt rounds for job run %s: %w", run.ID, err)
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
