package db

import (
	"context"
	"time"
)

const getIngestionHealth = `-- name: GetIngestionHealth :one
SELECT id, status, data_source, success_count, total_runs, last_run, last_error, updated_at
FROM ingestion_health
WHERE id = 1
`

func (q *Queries) GetIngestionHealth(ctx context.Context) (IngestionHealth, error) {
	row := q.db.QueryRowContext(ctx, getIngestionHealth)
	var i IngestionHealth
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.DataSource,
		&i.SuccessCount,
		&i.TotalRuns,
		&i.LastRun,
		&i.LastError,
		&i.UpdatedAt,
	)
	return i, err
}

const recordIngestionRun = `-- name: RecordIngestionRun :exec
INSERT INTO ingestion_health (
    id, status, data_source, success_count, total_runs, last_run, last_error, updated_at
) VALUES (
    1, ?1, ?2, ?3, 1, ?4, ?5, ?4
)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    data_source = excluded.data_source,
    success_count = ingestion_health.success_count + excluded.success_count,
    total_runs = ingestion_health.total_runs + 1,
    last_run = excluded.last_run,
    last_error = excluded.last_error,
    updated_at = excluded.updated_at
`

type RecordIngestionRunParams struct {
	Status     string
	DataSource string
	Succeeded  int64
	RanAt      time.Time
	LastError  *string
}

func (q *Queries) RecordIngestionRun(ctx context.Context, arg RecordIngestionRunParams) error {
	_, err := q.db.ExecContext(ctx, recordIngestionRun,
		arg.Status,
		arg.DataSource,
		arg.Succeeded,
		arg.RanAt,
		arg.LastError,
	)
	return err
}

const setIngestionStatus = `-- name: SetIngestionStatus :execrows
UPDATE ingestion_health
SET status = ?, updated_at = ?
WHERE id = 1
`

type SetIngestionStatusParams struct {
	Status    string
	UpdatedAt time.Time
}

func (q *Queries) SetIngestionStatus(ctx context.Context, arg SetIngestionStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setIngestionStatus, arg.Status, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertIngestionHealth = `-- name: UpsertIngestionHealth :exec
INSERT INTO ingestion_health (
    id, status, data_source, success_count, total_runs, last_run, last_error, updated_at
) VALUES (
    1, ?, ?, ?, ?, ?, ?, ?
)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    data_source = excluded.data_source,
    success_count = MAX(ingestion_health.success_count, excluded.success_count),
    total_runs = MAX(ingestion_health.total_runs, excluded.total_runs),
    last_run = excluded.last_run,
    last_error = excluded.last_error,
    updated_at = excluded.updated_at
`

type UpsertIngestionHealthParams struct {
	Status       string
	DataSource   string
	SuccessCount int64
	TotalRuns    int64
	LastRun      *time.Time
	LastError    *string
	UpdatedAt    time.Time
}

func (q *Queries) UpsertIngestionHealth(ctx context.Context, arg UpsertIngestionHealthParams) error {
	_, err := q.db.ExecContext(ctx, upsertIngestionHealth,
		arg.Status,
		arg.DataSource,
		arg.SuccessCount,
		arg.TotalRuns,
		arg.LastRun,
		arg.LastError,
		arg.UpdatedAt,
	)
	return err
}
