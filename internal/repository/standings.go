package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"vct-predictor/internal/constants"
	"vct-predictor/internal/database"
	"vct-predictor/internal/db"
	"vct-predictor/internal/domain"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("not found")

type StandingsRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
	now     func() time.Time
}

func NewStandingsRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *StandingsRepository {
	return &StandingsRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
		now:     time.Now,
	}
}

// Upsert replaces the row for (group, team) or inserts it, stamping
// last_updated with the current time.
func (r *StandingsRepository) Upsert(ctx context.Context, rec domain.StandingRecord) error {
	return r.queries.UpsertStanding(ctx, toUpsertParams(rec, r.now().UTC()))
}

// UpsertBatch writes every record inside one transaction so readers see
// either the previous snapshot or the whole new one.
func (r *StandingsRepository) UpsertBatch(ctx context.Context, records []domain.StandingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := r.now().UTC()

	for i := 0; i < len(records); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(records))
		for _, rec := range records[i:end] {
			if err := qtx.UpsertStanding(ctx, toUpsertParams(rec, now)); err != nil {
				return 0, fmt.Errorf("failed to upsert standing %s/%s: %w", rec.Group, rec.Team, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit standings: %w", err)
	}

	r.logger.Debug().Int("count", len(records)).Msg("standings upserted")
	return len(records), nil
}

func (r *StandingsRepository) ListAll(ctx context.Context) ([]domain.StandingRecord, error) {
	rows, err := r.queries.ListStandings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	return toStandingRecords(rows), nil
}

func (r *StandingsRepository) ListByGroup(ctx context.Context, group string) ([]domain.StandingRecord, error) {
	rows, err := r.queries.ListStandingsByGroup(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings for group %s: %w", group, err)
	}
	return toStandingRecords(rows), nil
}

// GetByTeam matches the team name case-insensitively. If a team appears in
// more than one group the most recently updated row wins.
func (r *StandingsRepository) GetByTeam(ctx context.Context, team string) (*domain.StandingRecord, error) {
	row, err := r.queries.GetStandingByTeam(ctx, team)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("standing for %q: %w", team, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get standing for %q: %w", team, err)
	}
	rec := toStandingRecord(row)
	return &rec, nil
}

func (r *StandingsRepository) Count(ctx context.Context) (int, error) {
	n, err := r.queries.CountStandings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count standings: %w", err)
	}
	return int(n), nil
}

// Clear deletes every standings row and keeps the schema.
func (r *StandingsRepository) Clear(ctx context.Context) (int, error) {
	n, err := r.queries.DeleteStandings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear standings: %w", err)
	}
	r.logger.Info().Int64("deleted", n).Msg("standings cleared")
	return int(n), nil
}

// Reset drops and recreates the standings table.
func (r *StandingsRepository) Reset(ctx context.Context) error {
	return database.ResetStandings(ctx, r.db, r.logger)
}

func toUpsertParams(rec domain.StandingRecord, now time.Time) db.UpsertStandingParams {
	return db.UpsertStandingParams{
		GroupName:   rec.Group,
		Team:        rec.Team,
		Wins:        int64(rec.Wins),
		Losses:      int64(rec.Losses),
		MapWon:      int64(rec.MapDiff.Won),
		MapLost:     int64(rec.MapDiff.Lost),
		RoundWon:    int64(rec.RoundDiff.Won),
		RoundLost:   int64(rec.RoundDiff.Lost),
		Delta:       rec.Delta,
		LastUpdated: now,
	}
}

func toStandingRecord(row db.Standing) domain.StandingRecord {
	return domain.StandingRecord{
		Group:       row.GroupName,
		Team:        row.Team,
		Wins:        int(row.Wins),
		Losses:      int(row.Losses),
		MapDiff:     domain.Diff{Won: int(row.MapWon), Lost: int(row.MapLost)},
		RoundDiff:   domain.Diff{Won: int(row.RoundWon), Lost: int(row.RoundLost)},
		Delta:       row.Delta,
		LastUpdated: row.LastUpdated,
	}
}

func toStandingRecords(rows []db.Standing) []domain.StandingRecord {
	out := make([]domain.StandingRecord, len(rows))
	for i, row := range rows {
		out[i] = toStandingRecord(row)
	}
	return out
}
