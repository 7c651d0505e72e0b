// Package manifest records the outcome of every request the fetcher makes,
// so that a later run knows what is known to be empty or has failed.
package manifest

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bbmp-grievances/internal/paramspace"
	"bbmp-grievances/lib/sqliteutil"

	"github.com/mazen160/go-random"
)

//go:embed schema.sql
var Schema string

type Outcome string

const (
	OutcomeSaved  Outcome = "saved"
	OutcomeEmpty  Outcome = "empty"
	OutcomeFailed Outcome = "failed"
)

// Result is the latest outcome for a key.
type Result struct {
	Key        string
	Params     paramspace.Params
	Outcome    Outcome
	StatusCode int
	Error      string
	FetchedAt  time.Time
	RunID      string
}

// Run is a single invocation of the fetcher.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Saved      int
	Empty      int
	Failed     int
	Skipped    int
}

type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the manifest database described by `config`.
func Open(config sqliteutil.Config) (Store, error) {
	db, err := config.OpenDB(Schema)
	if err != nil {
		return Store{}, err
	}
	return Store{db: db}, nil
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB) Store {
	return Store{db: db}
}

func (s Store) Close() error {
	return s.db.Close()
}

// StartRun creates a new run and returns its id.
func (s Store) StartRun(ctx context.Context, startedAt time.Time) (string, error) {
	id, err := random.String(8)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(
		ctx,
		"insert into fetch_run(id, started_at) values (?, ?)",
		id, startedAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counts of a run.
func (s Store) FinishRun(ctx context.Context, run Run) error {
	var finishedAt int64
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.Unix()
	}
	res, err := s.db.ExecContext(
		ctx,
		`update fetch_run set
			finished_at = ?, saved = ?, empty = ?, failed = ?, skipped = ?
		where id = ?`,
		finishedAt, run.Saved, run.Empty, run.Failed, run.Skipped,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("finish run: unknown run %q", run.ID)
	}
	return nil
}

// Record upserts the outcome of a key.
func (s Store) Record(ctx context.Context, result Result) error {
	params, err := json.Marshal(result.Params)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`insert into fetch_result(key, params, outcome, status_code, error, fetched_at, run_id)
		values (?, ?, ?, ?, ?, ?, ?)
		on conflict(key) do update set
			params = excluded.params,
			outcome = excluded.outcome,
			status_code = excluded.status_code,
			error = excluded.error,
			fetched_at = excluded.fetched_at,
			run_id = excluded.run_id`,
		result.Key,
		string(params),
		string(result.Outcome),
		result.StatusCode,
		result.Error,
		result.FetchedAt.Unix(),
		result.RunID,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", result.Key, err)
	}
	return nil
}

// Outcome returns the last recorded outcome of `key`, ok is false if the
// key was never requested.
func (s Store) Outcome(ctx context.Context, key string) (outcome Outcome, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, "select outcome from fetch_result where key = ?", key)
	var value string
	err = row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return Outcome(value), true, nil
}

// Result returns everything recorded about `key`.
func (s Store) Result(ctx context.Context, key string) (Result, error) {
	row := s.db.QueryRowContext(
		ctx,
		`select key, params, outcome, status_code, error, fetched_at, run_id
		from fetch_result where key = ?`,
		key,
	)
	var result Result
	var params, outcome string
	var fetchedAt int64
	err := row.Scan(
		&result.Key,
		&params,
		&outcome,
		&result.StatusCode,
		&result.Error,
		&fetchedAt,
		&result.RunID,
	)
	if err != nil {
		return Result{}, err
	}
	err = json.Unmarshal([]byte(params), &result.Params)
	if err != nil {
		return Result{}, fmt.Errorf("params of %s: %w", key, err)
	}
	result.Outcome = Outcome(outcome)
	result.FetchedAt = time.Unix(fetchedAt, 0)
	return result, nil
}

// Runs returns the most recent runs, newest first.
func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select id, started_at, finished_at, saved, empty, failed, skipped
		from fetch_run order by started_at desc, rowid desc limit ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var startedAt int64
		var finishedAt sql.NullInt64
		err := rows.Scan(
			&run.ID,
			&startedAt,
			&finishedAt,
			&run.Saved,
			&run.Empty,
			&run.Failed,
			&run.Skipped,
		)
		if err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(startedAt, 0)
		if finishedAt.Valid && finishedAt.Int64 > 0 {
			t := time.Unix(finishedAt.Int64, 0)
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
