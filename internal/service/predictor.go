package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"vct-predictor/internal/config"
	"vct-predictor/internal/constants"
	"vct-predictor/internal/domain"
	"vct-predictor/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	VerdictEven       = "could go either way"
	MsgTeamsNotFound  = "team(s) not found"
	SuggestCheckNames = "check the team names against the current standings and try again"
)

type StandingsReader interface {
	GetByTeam(ctx context.Context, team string) (*domain.StandingRecord, error)
}

type MatchReader interface {
	HeadToHead(ctx context.Context, teamA, teamB string, limit int) (domain.HeadToHead, error)
	TeamStats(ctx context.Context, team string, windowDays int) (domain.TeamStats, error)
}

// Predictor estimates the winner of a match between two teams from their
// standings, blending in recent head-to-head results when there are enough.
type Predictor struct {
	standings  StandingsReader
	matches    MatchReader
	windowDays int
	now        func() time.Time
	logger     zerolog.Logger
}

func NewPredictor(standings StandingsReader, matches MatchReader, cfg *config.Config, logger zerolog.Logger) *Predictor {
	return &Predictor{
		standings:  standings,
		matches:    matches,
		windowDays: cfg.RecentWindowDays,
		now:        time.Now,
		logger:     logger,
	}
}

// Predict never fails because a team is unknown; that is reported through
// the result's Error field. The returned error is for store failures only.
func (p *Predictor) Predict(ctx context.Context, team1, team2 string) (domain.PredictionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	team1, team2 = strings.TrimSpace(team1), strings.TrimSpace(team2)
	result := domain.PredictionResult{Team1: team1, Team2: team2, PredictionDate: p.now().UTC()}

	if team1 == "" || team2 == "" {
		result.Error = "two team names are required"
		result.Suggestion = SuggestCheckNames
		return result, nil
	}

	var s1, s2 *domain.StandingRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s1, err = p.lookup(gctx, team1)
		return err
	})
	g.Go(func() (err error) {
		s2, err = p.lookup(gctx, team2)
		return err
	})
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("failed to look up teams: %w", err)
	}

	if s1 == nil {
		result.MissingTeams = append(result.MissingTeams, team1)
	}
	if s2 == nil {
		result.MissingTeams = append(result.MissingTeams, team2)
	}
	if len(result.MissingTeams) > 0 {
		result.Error = fmt.Sprintf("%s: %s", MsgTeamsNotFound, strings.Join(result.MissingTeams, ", "))
		result.Suggestion = SuggestCheckNames
		p.logger.Info().Strs("missing", result.MissingTeams).Msg("prediction for unknown team")
		return result, nil
	}
	if s1.Team == s2.Team {
		result.Error = "pick two different teams"
		result.Suggestion = SuggestCheckNames
		return result, nil
	}

	result.Team1, result.Team2 = s1.Team, s2.Team
	result.Team1Group, result.Team2Group = s1.Group, s2.Group
	result.SameGroup = s1.Group == s2.Group
	result.Team1Record, result.Team2Record = s1.Record(), s2.Record()
	result.Team1WinRate, result.Team2WinRate = s1.WinRate(), s2.WinRate()
	result.Team1BaseProbability, result.Team2BaseProbability = BaseProbabilities(result.Team1WinRate, result.Team2WinRate)

	h2h, stats1, stats2 := p.history(ctx, s1.Team, s2.Team)

	result.H2HMatches = h2h.Total()
	result.H2HWeight = H2HWeight(result.H2HMatches)
	h2hRate1, h2hRate2 := 0.5, 0.5
	if total := h2h.Total(); total > 0 {
		h2hRate1 = float64(h2h.TeamAWins) / float64(total)
		h2hRate2 = float64(h2h.TeamBWins) / float64(total)
	}
	result.H2HTeam1WinRate = h2hRate1
	result.Team1MatchProbability = Blend(result.Team1BaseProbability, h2hRate1, result.H2HWeight)
	result.Team2MatchProbability = Blend(result.Team2BaseProbability, h2hRate2, result.H2HWeight)

	switch {
	case result.Team1MatchProbability > result.Team2MatchProbability:
		result.PredictedWinner = result.Team1
		result.Confidence = result.Team1MatchProbability
	case result.Team2MatchProbability > result.Team1MatchProbability:
		result.PredictedWinner = result.Team2
		result.Confidence = result.Team2MatchProbability
	default:
		result.Confidence = result.Team1MatchProbability
	}
	result.Verdict = verdict(result.PredictedWinner, result.Confidence)

	stale := math.Max(p.daysSince(s1.LastUpdated), p.daysSince(s2.LastUpdated))
	dc := DataConfidenceFor(matchesPlayed(stats1, s1), matchesPlayed(stats2, s2), result.H2HMatches, stale)
	result.DataConfidence = &dc

	p.logger.Info().
		Str("team1", result.Team1).
		Str("team2", result.Team2).
		Str("winner", result.PredictedWinner).
		Float64("confidence", result.Confidence).
		Int("h2h_matches", result.H2HMatches).
		Str("data_confidence", dc.Level).
		Msg("prediction made")

	return result, nil
}

func (p *Predictor) lookup(ctx context.Context, team string) (*domain.StandingRecord, error) {
	rec, err := p.standings.GetByTeam(ctx, team)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// history loads the optional match data. Failures there only reduce the
// data confidence, so they are logged and treated as no data.
func (p *Predictor) history(ctx context.Context, team1, team2 string) (domain.HeadToHead, domain.TeamStats, domain.TeamStats) {
	var (
		h2h            domain.HeadToHead
		stats1, stats2 domain.TeamStats
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if h2h, err = p.matches.HeadToHead(ctx, team1, team2, constants.H2HLimit); err != nil {
			p.logger.Warn().Err(err).Str("team1", team1).Str("team2", team2).Msg("head to head unavailable")
			h2h = domain.HeadToHead{TeamA: team1, TeamB: team2}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if stats1, err = p.matches.TeamStats(ctx, team1, p.windowDays); err != nil {
			p.logger.Warn().Err(err).Str("team", team1).Msg("team stats unavailable")
			stats1 = domain.TeamStats{Team: team1}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if stats2, err = p.matches.TeamStats(ctx, team2, p.windowDays); err != nil {
			p.logger.Warn().Err(err).Str("team", team2).Msg("team stats unavailable")
			stats2 = domain.TeamStats{Team: team2}
		}
		return nil
	})
	_ = g.Wait()
	return h2h, stats1, stats2
}

// matchesPlayed prefers imported match history in the recent window and
// falls back to the standings record when there is none.
func matchesPlayed(stats domain.TeamStats, s *domain.StandingRecord) int {
	if stats.Matches > 0 {
		return stats.Matches
	}
	return s.Played()
}

func (p *Predictor) daysSince(t time.Time) float64 {
	if t.IsZero() {
		return constants.RecencyHorizonDays
	}
	d := p.now().Sub(t).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// BaseProbabilities normalises two win rates into match probabilities
// that sum to 1. Two teams without a win split evenly.
func BaseProbabilities(rate1, rate2 float64) (float64, float64) {
	total := rate1 + rate2
	if total == 0 {
		return 0.5, 0.5
	}
	return rate1 / total, rate2 / total
}

// H2HWeight is how much recent head-to-head results count. Fewer than
// two matches count for nothing.
func H2HWeight(matches int) float64 {
	if matches < constants.H2HMinMatches {
		return 0
	}
	return math.Min(constants.H2HMaxWeight, float64(matches)*constants.H2HWeightPerMatch)
}

func Blend(base, h2hRate, weight float64) float64 {
	if weight == 0 {
		return base
	}
	return base*(1-weight) + h2hRate*weight
}

// DataConfidenceFor scores how much data stands behind a prediction. It
// does not change the predicted winner.
func DataConfidenceFor(matches1, matches2, h2hMatches int, staleDays float64) domain.DataConfidence {
	matchFactor := math.Min(1, float64(min(matches1, matches2))/constants.MatchCountSaturation)
	recency := math.Max(constants.RecencyFloor, 1-staleDays/constants.RecencyHorizonDays)
	h2hFactor := math.Min(1, float64(h2hMatches)/constants.H2HSaturation)

	score := constants.MatchCountWeight*matchFactor +
		constants.RecencyWeight*recency +
		constants.H2HFactorWeight*h2hFactor

	return domain.DataConfidence{
		Score:            score,
		Level:            ConfidenceLevel(score),
		MatchCountFactor: matchFactor,
		RecencyFactor:    recency,
		H2HFactor:        h2hFactor,
		Team1Matches:     matches1,
		Team2Matches:     matches2,
		H2HMatches:       h2hMatches,
		DaysSinceUpdate:  staleDays,
	}
}

func ConfidenceLevel(score float64) string {
	switch {
	case score >= 0.8:
		return "High"
	case score >= 0.6:
		return "Good"
	case score >= 0.4:
		return "Moderate"
	case score >= 0.2:
		return "Low"
	default:
		return "Very Low"
	}
}

func verdict(winner string, confidence float64) string {
	if winner == "" {
		return VerdictEven
	}
	switch {
	case confidence >= 0.7:
		return fmt.Sprintf("%s is a clear favourite", winner)
	case confidence >= 0.55:
		return fmt.Sprintf("%s is favoured", winner)
	default:
		return fmt.Sprintf("%s has a slight edge", winner)
	}
}
