package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"vct-predictor/internal/config"
	"vct-predictor/internal/constants"
	"vct-predictor/internal/domain"
	"vct-predictor/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrMalformedImport = errors.New("malformed match import")

// MatchInput is the import shape of one match result.
type MatchInput struct {
	MatchID    string `json:"match_id"`
	Team1      string `json:"team1"`
	Team2      string `json:"team2"`
	Team1Score int    `json:"team1_score"`
	Team2Score int    `json:"team2_score"`
	Date       string `json:"date"`
	MapName    string `json:"map_name"`
	Tournament string `json:"tournament"`
}

func (in MatchInput) Record() (domain.MatchRecord, error) {
	date, err := time.Parse(constants.MatchDateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return domain.MatchRecord{}, fmt.Errorf("%w: date %q: %v", repository.ErrInvalidMatch, in.Date, err)
	}
	return domain.MatchRecord{
		MatchID:    strings.TrimSpace(in.MatchID),
		Team1:      strings.TrimSpace(in.Team1),
		Team2:      strings.TrimSpace(in.Team2),
		Team1Score: in.Team1Score,
		Team2Score: in.Team2Score,
		Date:       date,
		MapName:    in.MapName,
		Tournament: in.Tournament,
	}, nil
}

type ImportResult struct {
	Seen    int
	Invalid int
	Added   int
}

type Overview struct {
	Stats       domain.DatabaseStats
	ActiveTeams []string
}

// MatchService is the match history side: importing results and the read
// queries behind team form and head-to-head views.
type MatchService struct {
	repo       *repository.MatchRepository
	windowDays int
	logger     zerolog.Logger
}

func NewMatchService(repo *repository.MatchRepository, cfg *config.Config, logger zerolog.Logger) *MatchService {
	return &MatchService{repo: repo, windowDays: cfg.RecentWindowDays, logger: logger}
}

// Import stores a batch of results. Rows with a bad date are counted as
// invalid and skipped; the repository skips the other invalid rows.
func (s *MatchService) Import(ctx context.Context, inputs []MatchInput) (ImportResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	res := ImportResult{Seen: len(inputs)}
	records := make([]domain.MatchRecord, 0, len(inputs))
	for _, in := range inputs {
		rec, err := in.Record()
		if err != nil {
			res.Invalid++
			s.logger.Warn().Err(err).Str("match_id", in.MatchID).Msg("skipping match with bad date")
			continue
		}
		if err := repository.ValidateMatch(rec); err != nil {
			res.Invalid++
			s.logger.Warn().Err(err).Str("match_id", in.MatchID).Msg("skipping invalid match")
			continue
		}
		records = append(records, rec)
	}

	added, err := s.repo.InsertMany(ctx, records)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(records)).Msg("failed to import matches")
		return res, fmt.Errorf("failed to import matches: %w", err)
	}
	res.Added = added

	s.logger.Info().
		Int("seen", res.Seen).
		Int("invalid", res.Invalid).
		Int("added", res.Added).
		Msg("matches imported")
	return res, nil
}

// ImportJSON reads a JSON array of matches from r.
func (s *MatchService) ImportJSON(ctx context.Context, r io.Reader) (ImportResult, error) {
	var inputs []MatchInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", ErrMalformedImport, err)
	}
	return s.Import(ctx, inputs)
}

func (s *MatchService) RecentMatches(ctx context.Context, team string, days, limit int) ([]domain.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if days <= 0 {
		days = s.windowDays
	}
	if limit <= 0 {
		limit = constants.RecentMatchLimit
	}
	return s.repo.RecentMatches(ctx, team, days, limit)
}

func (s *MatchService) HeadToHead(ctx context.Context, teamA, teamB string, limit int) (domain.HeadToHead, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if limit <= 0 {
		limit = constants.H2HLimit
	}
	return s.repo.HeadToHead(ctx, teamA, teamB, limit)
}

func (s *MatchService) TeamStats(ctx context.Context, team string, days int) (domain.TeamStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if days <= 0 {
		days = s.windowDays
	}
	return s.repo.TeamStats(ctx, team, days)
}

// Clear deletes every stored match.
func (s *MatchService) Clear(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	n, err := s.repo.Clear(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int("deleted", n).Msg("matches cleared")
	return n, nil
}

// Overview gathers database totals and the currently active teams.
func (s *MatchService) Overview(ctx context.Context) (Overview, error) {
	var out Overview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gctx, constants.DatabaseTimeout)
		defer cancel()
		stats, err := s.repo.Stats(ctx)
		if err != nil {
			return err
		}
		out.Stats = stats
		return nil
	})
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gctx, constants.DatabaseTimeout)
		defer cancel()
		teams, err := s.repo.ActiveTeams(ctx, constants.ActiveTeamWindowDays)
		if err != nil {
			return err
		}
		out.ActiveTeams = teams
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to build database overview")
		return Overview{}, err
	}
	return out, nil
}
