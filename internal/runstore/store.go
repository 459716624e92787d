package runstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"markethealth/lib/sqliteutil"
)

//go:embed schema.sql
var Schema string

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeNoData    Outcome = "no_data"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

type QueryRun struct {
	Label    string
	Outcome  Outcome
	Rows     int
	Duration time.Duration
	Error    string
}

type BatchRun struct {
	Id           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	Succeeded    int
	NoData       int
	Failed       int
	WorkbookPath string
	PublishedUrl string
	// Error is the batch-fatal error, empty if the batch completed.
	Error   string
	Queries []QueryRun
}

type Store struct {
	db *sql.DB
}

func Open(path string) (Store, error) {
	database, err := sqliteutil.OpenDB(Schema, path)
	if err != nil {
		return Store{}, err
	}
	return NewStore(database), nil
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Close() error {
	return s.db.Close()
}

// Record saves a batch run and its per-query outcomes, returning the id of
// the new run.
func (s Store) Record(ctx context.Context, run BatchRun) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`insert into batch_run (
			started_at, finished_at, total, succeeded, no_data, failed,
			workbook_path, published_url, error
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
		run.Total,
		run.Succeeded,
		run.NoData,
		run.Failed,
		run.WorkbookPath,
		run.PublishedUrl,
		run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("insert batch run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, q := range run.Queries {
		_, err = tx.ExecContext(
			ctx,
			`insert into query_run (
				batch_run_id, label, outcome, row_count, duration_ms, error
			) values (?, ?, ?, ?, ?, ?)`,
			id,
			q.Label,
			string(q.Outcome),
			q.Rows,
			q.Duration.Milliseconds(),
			q.Error,
		)
		if err != nil {
			return 0, fmt.Errorf("insert query run %q: %w", q.Label, err)
		}
	}

	return id, tx.Commit()
}

// Recent returns up to `limit` of the latest batch runs, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]BatchRun, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select
			id, started_at, finished_at, total, succeeded, no_data, failed,
			workbook_path, published_url, error
		from batch_run
		order by started_at desc, id desc
		limit ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []BatchRun
	for rows.Next() {
		var run BatchRun
		var startedAt, finishedAt int64
		err = rows.Scan(
			&run.Id,
			&startedAt,
			&finishedAt,
			&run.Total,
			&run.Succeeded,
			&run.NoData,
			&run.Failed,
			&run.WorkbookPath,
			&run.PublishedUrl,
			&run.Error,
		)
		if err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(startedAt, 0)
		run.FinishedAt = time.Unix(finishedAt, 0)
		runs = append(runs, run)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	rows.Close()

	for i := range runs {
		runs[i].Queries, err = s.queryRuns(ctx, runs[i].Id)
		if err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s Store) queryRuns(ctx context.Context, batchId int64) ([]QueryRun, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select label, outcome, row_count, duration_ms, error
		from query_run
		where batch_run_id = ?
		order by rowid`,
		batchId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueryRun
	for rows.Next() {
		var q QueryRun
		var outcome string
		var durationMs int64
		err = rows.Scan(&q.Label, &outcome, &q.Rows, &durationMs, &q.Error)
		if err != nil {
			return nil, err
		}
		q.Outcome = Outcome(outcome)
		q.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, q)
	}
	return out, rows.Err()
}
