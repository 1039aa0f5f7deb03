package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"vct-predictor/internal/constants"
	"vct-predictor/internal/db"
	"vct-predictor/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var ErrInvalidMatch = errors.New("invalid match")

type MatchRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
	now     func() time.Time
}

func NewMatchRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
		now:     time.Now,
	}
}

// ValidateMatch rejects records without two distinct teams, with negative
// scores, or with a draw.
func ValidateMatch(m domain.MatchRecord) error {
	team1, team2 := strings.TrimSpace(m.Team1), strings.TrimSpace(m.Team2)
	switch {
	case team1 == "" || team2 == "":
		return fmt.Errorf("%w: both teams are required", ErrInvalidMatch)
	case strings.EqualFold(team1, team2):
		return fmt.Errorf("%w: %s cannot play itself", ErrInvalidMatch, team1)
	case m.Team1Score < 0 || m.Team2Score < 0:
		return fmt.Errorf("%w: negative score %d-%d", ErrInvalidMatch, m.Team1Score, m.Team2Score)
	case m.Team1Score == m.Team2Score:
		return fmt.Errorf("%w: draw %d-%d has no winner", ErrInvalidMatch, m.Team1Score, m.Team2Score)
	case m.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidMatch)
	}
	return nil
}

// InsertMatch stores m unless a match with the same external id (or, for an
// empty id, the same tuple) already exists. It reports whether a row was added.
func (r *MatchRepository) InsertMatch(ctx context.Context, m domain.MatchRecord) (bool, error) {
	return r.insert(ctx, r.queries, m)
}

func (r *MatchRepository) insert(ctx context.Context, q *db.Queries, m domain.MatchRecord) (bool, error) {
	if err := ValidateMatch(m); err != nil {
		return false, err
	}
	n, err := q.InsertMatch(ctx, db.InsertMatchParams{
		MatchID:    strings.TrimSpace(m.MatchID),
		Team1:      strings.TrimSpace(m.Team1),
		Team2:      strings.TrimSpace(m.Team2),
		Team1Score: int64(m.Team1Score),
		Team2Score: int64(m.Team2Score),
		MatchDate:  m.Date.UTC().Format(constants.MatchDateLayout),
		MapName:    m.MapName,
		Tournament: m.Tournament,
		CreatedAt:  r.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert match %s: %w", m.MatchID, err)
	}
	return n > 0, nil
}

// InsertMany inserts the batch in one transaction and writes a data_updates
// audit row describing it. Invalid records are skipped and logged.
func (r *MatchRepository) InsertMany(ctx context.Context, matches []domain.MatchRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	added, skipped := 0, 0
	for i := 0; i < len(matches); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(matches))
		for _, m := range matches[i:end] {
			ok, err := r.insert(ctx, qtx, m)
			if errors.Is(err, ErrInvalidMatch) {
				skipped++
				r.logger.Warn().Err(err).Str("match_id", m.MatchID).Msg("skipping invalid match")
				continue
			}
			if err != nil {
				return 0, err
			}
			if ok {
				added++
			}
		}
	}

	status := "success"
	if skipped > 0 {
		status = "partial"
	}
	id, err := gonanoid.New()
	if err != nil {
		return 0, fmt.Errorf("failed to generate nanoid: %w", err)
	}
	err = qtx.InsertDataUpdate(ctx, db.InsertDataUpdateParams{
		ID:           id,
		UpdateDate:   r.now().UTC(),
		MatchesSeen:  int64(len(matches)),
		MatchesAdded: int64(added),
		Status:       status,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record data update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit matches: %w", err)
	}

	r.logger.Info().
		Int("seen", len(matches)).
		Int("added", added).
		Int("skipped", skipped).
		Msg("match batch stored")
	return added, nil
}

// RecentMatches returns matches involving team on either side played within
// the last windowDays days, newest first.
func (r *MatchRepository) RecentMatches(ctx context.Context, team string, windowDays, limit int) ([]domain.MatchRecord, error) {
	rows, err := r.queries.ListRecentMatchesByTeam(ctx, db.ListRecentMatchesByTeamParams{
		Team:  team,
		Since: r.cutoff(windowDays),
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent matches for %s: %w", team, err)
	}
	return toMatchRecords(rows), nil
}

// HeadToHead returns the latest matches between teamA and teamB in either
// order. TeamAWinRate is 0.5 when they have never met.
func (r *MatchRepository) HeadToHead(ctx context.Context, teamA, teamB string, limit int) (domain.HeadToHead, error) {
	rows, err := r.queries.ListHeadToHead(ctx, db.ListHeadToHeadParams{
		TeamA: teamA,
		TeamB: teamB,
		Limit: int64(limit),
	})
	if err != nil {
		return domain.HeadToHead{}, fmt.Errorf("failed to list head to head %s vs %s: %w", teamA, teamB, err)
	}

	h := domain.HeadToHead{
		TeamA:        teamA,
		TeamB:        teamB,
		Matches:      toMatchRecords(rows),
		TeamAWinRate: 0.5,
	}
	for _, m := range h.Matches {
		if strings.EqualFold(m.Winner(), teamA) {
			h.TeamAWins++
		} else {
			h.TeamBWins++
		}
	}
	if n := h.Total(); n > 0 {
		h.TeamAWinRate = float64(h.TeamAWins) / float64(n)
	}
	return h, nil
}

// TeamStats summarises team's form over the last windowDays days. WinRate is
// 0.5 when there is no data.
func (r *MatchRepository) TeamStats(ctx context.Context, team string, windowDays int) (domain.TeamStats, error) {
	row, err := r.queries.GetTeamStats(ctx, db.GetTeamStatsParams{
		Team:  team,
		Since: r.cutoff(windowDays),
	})
	if err != nil {
		return domain.TeamStats{}, fmt.Errorf("failed to get team stats for %s: %w", team, err)
	}

	stats := domain.TeamStats{
		Team:     team,
		Matches:  int(row.Matches),
		Wins:     int(row.Wins),
		Losses:   int(row.Matches - row.Wins),
		WinRate:  0.5,
		AvgScore: row.AvgScore,
	}
	if stats.Matches > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Matches)
	}
	stats.LastMatch = parseMatchDate(row.LastMatch)
	return stats, nil
}

func (r *MatchRepository) Stats(ctx context.Context) (domain.DatabaseStats, error) {
	var stats domain.DatabaseStats

	total, err := r.queries.CountMatches(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to count matches: %w", err)
	}
	teams, err := r.queries.CountTeams(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to count teams: %w", err)
	}
	span, err := r.queries.GetMatchDateRange(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get match date range: %w", err)
	}

	stats.TotalMatches = int(total)
	stats.TotalTeams = int(teams)
	stats.EarliestMatch = parseMatchDate(span.Earliest)
	stats.LatestMatch = parseMatchDate(span.Latest)

	update, err := r.queries.GetLatestDataUpdate(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return stats, fmt.Errorf("failed to get latest data update: %w", err)
	default:
		stats.LastUpdate = &domain.DataUpdate{
			ID:           update.ID,
			UpdateDate:   update.UpdateDate,
			MatchesSeen:  int(update.MatchesSeen),
			MatchesAdded: int(update.MatchesAdded),
			Status:       update.Status,
		}
	}
	return stats, nil
}

// ActiveTeams lists every team with at least one match in the last
// windowDays days.
func (r *MatchRepository) ActiveTeams(ctx context.Context, windowDays int) ([]string, error) {
	teams, err := r.queries.ListActiveTeams(ctx, r.cutoff(windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to list active teams: %w", err)
	}
	return teams, nil
}

func (r *MatchRepository) Clear(ctx context.Context) (int, error) {
	n, err := r.queries.DeleteMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear matches: %w", err)
	}
	return int(n), nil
}

func (r *MatchRepository) cutoff(windowDays int) string {
	return r.now().UTC().AddDate(0, 0, -windowDays).Format(constants.MatchDateLayout)
}

func parseMatchDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(constants.MatchDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func toMatchRecords(rows []db.Match) []domain.MatchRecord {
	out := make([]domain.MatchRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.MatchRecord{
			MatchID:    row.MatchID,
			Team1:      row.Team1,
			Team2:      row.Team2,
			Team1Score: int(row.Team1Score),
			Team2Score: int(row.Team2Score),
			MapName:    row.MapName,
			Tournament: row.Tournament,
		}
		if d := parseMatchDate(row.MatchDate); d != nil {
			rec.Date = *d
		}
		out = append(out, rec)
	}
	return out
}
