package service

import (
	"context"
	"fmt"
	"sort"
	"vct-predictor/internal/constants"
	"vct-predictor/internal/domain"
	"vct-predictor/internal/repository"

	"github.com/rs/zerolog"
)

type StandingsService struct {
	repo   *repository.StandingsRepository
	logger zerolog.Logger
}

func NewStandingsService(repo *repository.StandingsRepository, logger zerolog.Logger) *StandingsService {
	return &StandingsService{repo: repo, logger: logger}
}

// List returns every row ordered by group, then delta descending.
func (s *StandingsService) List(ctx context.Context) ([]domain.StandingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.ListAll(ctx)
}

// ByGroup splits the standings into their groups, keeping the ordering of List.
func (s *StandingsService) ByGroup(ctx context.Context) ([]domain.GroupStandings, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}

	var groups []domain.GroupStandings
	for _, row := range rows {
		if n := len(groups); n == 0 || groups[n-1].Group != row.Group {
			groups = append(groups, domain.GroupStandings{Group: row.Group})
		}
		g := &groups[len(groups)-1]
		g.Teams = append(g.Teams, row)
	}
	return groups, nil
}

// Group returns one group's standings, or repository.ErrNotFound when the
// group has no rows. Names match exactly.
func (s *StandingsService) Group(ctx context.Context, name string) (domain.GroupStandings, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	rows, err := s.repo.ListByGroup(ctx, name)
	if err != nil {
		return domain.GroupStandings{}, err
	}
	if len(rows) == 0 {
		return domain.GroupStandings{}, fmt.Errorf("group %q: %w", name, repository.ErrNotFound)
	}
	return domain.GroupStandings{Group: name, Teams: rows}, nil
}

// Teams lists team names alphabetically.
func (s *StandingsService) Teams(ctx context.Context) ([]string, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	seen := make(map[string]bool, len(rows))
	teams := make([]string, 0, len(rows))
	for _, row := range rows {
		if !seen[row.Team] {
			seen[row.Team] = true
			teams = append(teams, row.Team)
		}
	}
	sort.Strings(teams)
	return teams, nil
}
