package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"vct-predictor/internal/db"
	"vct-predictor/internal/domain"

	"github.com/rs/zerolog"
)

type HealthRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
	now     func() time.Time
}

func NewHealthRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *HealthRepository {
	return &HealthRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the singleton health row, or an unknown status with zero
// counters when no ingestion has run yet.
func (r *HealthRepository) Get(ctx context.Context) (domain.IngestionHealth, error) {
	row, err := r.queries.GetIngestionHealth(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IngestionHealth{Status: domain.HealthUnknown}, nil
	}
	if err != nil {
		return domain.IngestionHealth{}, fmt.Errorf("failed to get ingestion health: %w", err)
	}
	return toIngestionHealth(row), nil
}

// Record upserts the singleton row with explicit values. Counters never move
// backwards: a lower count than the stored one is ignored.
func (r *HealthRepository) Record(ctx context.Context, h domain.IngestionHealth) error {
	var lastError *string
	if h.LastError != "" {
		lastError = &h.LastError
	}
	err := r.queries.UpsertIngestionHealth(ctx, db.UpsertIngestionHealthParams{
		Status:       string(h.Status),
		DataSource:   string(h.DataSource),
		SuccessCount: int64(h.SuccessCount),
		TotalRuns:    int64(h.TotalRuns),
		LastRun:      h.LastRun,
		LastError:    lastError,
		UpdatedAt:    r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record ingestion health: %w", err)
	}
	return nil
}

// RecordRun counts one finished ingestion run and returns the updated row.
// Counters are incremented in SQL, not read-modify-written.
func (r *HealthRepository) RecordRun(ctx context.Context, status domain.HealthStatus, source domain.DataSource, runErr error) (domain.IngestionHealth, error) {
	var lastError *string
	if runErr != nil {
		msg := runErr.Error()
		lastError = &msg
	}
	var succeeded int64
	if status == domain.HealthSuccess {
		succeeded = 1
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.IngestionHealth{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	err = qtx.RecordIngestionRun(ctx, db.RecordIngestionRunParams{
		Status:     string(status),
		DataSource: string(source),
		Succeeded:  succeeded,
		RanAt:      r.now().UTC(),
		LastError:  lastError,
	})
	if err != nil {
		return domain.IngestionHealth{}, fmt.Errorf("failed to record ingestion run: %w", err)
	}

	row, err := qtx.GetIngestionHealth(ctx)
	if err != nil {
		return domain.IngestionHealth{}, fmt.Errorf("failed to read ingestion health: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.IngestionHealth{}, fmt.Errorf("failed to commit ingestion health: %w", err)
	}
	return toIngestionHealth(row), nil
}

// SetStatus changes only the status of an existing health row.
func (r *HealthRepository) SetStatus(ctx context.Context, status domain.HealthStatus) error {
	n, err := r.queries.SetIngestionStatus(ctx, db.SetIngestionStatusParams{
		Status:    string(status),
		UpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to set ingestion status: %w", err)
	}
	if n == 0 {
		r.logger.Debug().Str("status", string(status)).Msg("no ingestion health row yet, status not set")
	}
	return nil
}

func toIngestionHealth(row db.IngestionHealth) domain.IngestionHealth {
	h := domain.IngestionHealth{
		Status:       domain.HealthStatus(row.Status),
		DataSource:   domain.DataSource(row.DataSource),
		SuccessCount: int(row.SuccessCount),
		TotalRuns:    int(row.TotalRuns),
		LastRun:      row.LastRun,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.LastError != nil {
		h.LastError = *row.LastError
	}
	return h
}
