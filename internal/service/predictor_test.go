package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
	"vct-predictor/internal/config"
	"vct-predictor/internal/domain"
	"vct-predictor/internal/repository"

	"github.com/rs/zerolog"
)

var testNow = time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)

type fakeStandings struct {
	rows map[string]domain.StandingRecord
	err  error
}

func (f *fakeStandings) GetByTeam(_ context.Context, team string) (*domain.StandingRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.rows[strings.ToLower(team)]
	if !ok {
		return nil, fmt.Errorf("standing for %q: %w", team, repository.ErrNotFound)
	}
	return &rec, nil
}

type fakeMatches struct {
	h2h     domain.HeadToHead
	matches map[string]int
	err     error
}

func (f *fakeMatches) HeadToHead(_ context.Context, teamA, teamB string, _ int) (domain.HeadToHead, error) {
	if f.err != nil {
		return domain.HeadToHead{}, f.err
	}
	h := f.h2h
	h.TeamA, h.TeamB = teamA, teamB
	return h, nil
}

func (f *fakeMatches) TeamStats(_ context.Context, team string, _ int) (domain.TeamStats, error) {
	if f.err != nil {
		return domain.TeamStats{}, f.err
	}
	return domain.TeamStats{Team: team, Matches: f.matches[team]}, nil
}

func standing(group, team string, wins, losses int) domain.StandingRecord {
	return domain.StandingRecord{
		Group:       group,
		Team:        team,
		Wins:        wins,
		Losses:      losses,
		LastUpdated: testNow.Add(-24 * time.Hour),
	}
}

func newTestPredictor(t *testing.T, matches *fakeMatches, rows ...domain.StandingRecord) *Predictor {
	t.Helper()
	s := &fakeStandings{rows: make(map[string]domain.StandingRecord)}
	for _, r := range rows {
		s.rows[strings.ToLower(r.Team)] = r
	}
	if matches == nil {
		matches = &fakeMatches{}
	}
	p := NewPredictor(s, matches, &config.Config{RecentWindowDays: 30}, zerolog.Nop())
	p.now = func() time.Time { return testNow }
	return p
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPredict_RecordsOnly(t *testing.T) {
	p := newTestPredictor(t, nil,
		standing("Alpha", "Sentinels", 4, 1),
		standing("Alpha", "MIBR", 1, 4),
	)

	res, err := p.Predict(context.Background(), "sentinels", "MIBR")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected error result: %s", res.Error)
	}
	if res.Team1 != "Sentinels" {
		t.Errorf("team1 = %q, want canonical name", res.Team1)
	}
	if !approx(res.Team1WinRate, 0.8) || !approx(res.Team2WinRate, 0.2) {
		t.Errorf("win rates = %v/%v", res.Team1WinRate, res.Team2WinRate)
	}
	if !approx(res.Team1MatchProbability, 0.8) || !approx(res.Team2MatchProbability, 0.2) {
		t.Errorf("probabilities = %v/%v", res.Team1MatchProbability, res.Team2MatchProbability)
	}
	if res.PredictedWinner != "Sentinels" || !approx(res.Confidence, 0.8) {
		t.Errorf("winner = %q confidence = %v", res.PredictedWinner, res.Confidence)
	}
	if res.Team1Record != "4-1" || !res.SameGroup {
		t.Errorf("record = %q same_group = %v", res.Team1Record, res.SameGroup)
	}
	if res.H2HWeight != 0 {
		t.Errorf("h2h weight = %v without head to head data", res.H2HWeight)
	}
	if res.DataConfidence == nil {
		t.Fatal("missing data confidence")
	}
	if !res.PredictionDate.Equal(testNow) {
		t.Errorf("prediction date = %v", res.PredictionDate)
	}
}

func TestPredict_EqualRecordsIsEven(t *testing.T) {
	p := newTestPredictor(t, nil,
		standing("Alpha", "NRG", 2, 2),
		standing("Omega", "FURIA", 2, 2),
	)

	res, err := p.Predict(context.Background(), "NRG", "FURIA")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !approx(res.Team1MatchProbability, 0.5) || !approx(res.Team2MatchProbability, 0.5) {
		t.Errorf("probabilities = %v/%v", res.Team1MatchProbability, res.Team2MatchProbability)
	}
	if res.PredictedWinner != "" || res.Verdict != VerdictEven {
		t.Errorf("winner = %q verdict = %q", res.PredictedWinner, res.Verdict)
	}
	if res.SameGroup {
		t.Error("teams from different groups reported as same group")
	}
}

func TestPredict_NoWinsSplitsEvenly(t *testing.T) {
	p := newTestPredictor(t, nil,
		standing("Alpha", "NRG", 0, 0),
		standing("Alpha", "MIBR", 0, 3),
	)

	res, err := p.Predict(context.Background(), "NRG", "MIBR")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Team1MatchProbability != 0.5 || res.Team2MatchProbability != 0.5 {
		t.Errorf("probabilities = %v/%v, want exactly 0.5/0.5", res.Team1MatchProbability, res.Team2MatchProbability)
	}
}

func TestPredict_UnknownTeam(t *testing.T) {
	p := newTestPredictor(t, nil, standing("Alpha", "NRG", 2, 3))

	res, err := p.Predict(context.Background(), "NRG", "Nonexistent")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !res.Failed() || !strings.Contains(res.Error, MsgTeamsNotFound) || res.Suggestion == "" {
		t.Errorf("expected not found result, got %+v", res)
	}
	if len(res.MissingTeams) != 1 || res.MissingTeams[0] != "Nonexistent" {
		t.Errorf("missing = %v", res.MissingTeams)
	}

	res, _ = p.Predict(context.Background(), "", "NRG")
	if !res.Failed() {
		t.Error("empty team name accepted")
	}
	res, _ = p.Predict(context.Background(), "nrg", "NRG")
	if !res.Failed() {
		t.Error("team predicted against itself")
	}
}

func TestPredict_StoreErrorIsReturned(t *testing.T) {
	boom := errors.New("disk on fire")
	p := newTestPredictor(t, nil)
	p.standings = &fakeStandings{err: boom}

	if _, err := p.Predict(context.Background(), "NRG", "MIBR"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestPredict_HeadToHeadBlending(t *testing.T) {
	single := &fakeMatches{h2h: domain.HeadToHead{
		Matches:   []domain.MatchRecord{{Team1: "NRG", Team2: "FURIA", Team1Score: 2, Team2Score: 0}},
		TeamAWins: 1,
	}}
	p := newTestPredictor(t, single, standing("Alpha", "NRG", 2, 2), standing("Alpha", "FURIA", 2, 2))
	res, err := p.Predict(context.Background(), "NRG", "FURIA")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.H2HWeight != 0 || res.Team1MatchProbability != res.Team1BaseProbability {
		t.Errorf("one head to head match must not blend: weight %v prob %v", res.H2HWeight, res.Team1MatchProbability)
	}

	three := &fakeMatches{h2h: domain.HeadToHead{
		Matches:   make([]domain.MatchRecord, 3),
		TeamAWins: 3,
	}}
	p = newTestPredictor(t, three, standing("Alpha", "NRG", 2, 2), standing("Alpha", "FURIA", 2, 2))
	res, err = p.Predict(context.Background(), "NRG", "FURIA")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !approx(res.H2HWeight, 0.3) {
		t.Errorf("weight = %v, want 0.3", res.H2HWeight)
	}
	if !approx(res.Team1MatchProbability, 0.65) || !approx(res.Team2MatchProbability, 0.35) {
		t.Errorf("probabilities = %v/%v, want 0.65/0.35", res.Team1MatchProbability, res.Team2MatchProbability)
	}
	if res.PredictedWinner != "NRG" {
		t.Errorf("winner = %q", res.PredictedWinner)
	}
}

func TestPredict_MatchHistoryFailureIsTolerated(t *testing.T) {
	broken := &fakeMatches{err: errors.New("no such table")}
	p := newTestPredictor(t, broken, standing("Alpha", "Sentinels", 4, 1), standing("Alpha", "MIBR", 1, 4))

	res, err := p.Predict(context.Background(), "Sentinels", "MIBR")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.PredictedWinner != "Sentinels" || res.H2HMatches != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestH2HWeight(t *testing.T) {
	cases := map[int]float64{0: 0, 1: 0, 2: 0.2, 3: 0.3, 5: 0.3, 50: 0.3}
	for n, want := range cases {
		got := H2HWeight(n)
		if !approx(got, want) {
			t.Errorf("H2HWeight(%d) = %v, want %v", n, got, want)
		}
		if got < 0 || got > 0.3 {
			t.Errorf("H2HWeight(%d) = %v out of range", n, got)
		}
	}
}

func TestBaseProbabilities(t *testing.T) {
	for _, c := range [][2]float64{{0.8, 0.2}, {1, 0}, {0.25, 0.75}, {0.6, 0.6}} {
		p1, p2 := BaseProbabilities(c[0], c[1])
		if !approx(p1+p2, 1) {
			t.Errorf("BaseProbabilities(%v) = %v+%v, want sum 1", c, p1, p2)
		}
	}
}

func TestPredict_DataConfidenceMatchCounts(t *testing.T) {
	rows := []domain.StandingRecord{
		standing("Alpha", "Sentinels", 6, 4),
		standing("Omega", "MIBR", 5, 6),
	}

	res, err := newTestPredictor(t, nil, rows...).Predict(context.Background(), "Sentinels", "MIBR")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	dc := res.DataConfidence
	if dc.Team1Matches != 10 || dc.Team2Matches != 11 || !approx(dc.MatchCountFactor, 1) {
		t.Errorf("without history, counts = %d/%d factor %v", dc.Team1Matches, dc.Team2Matches, dc.MatchCountFactor)
	}
	if dc.Level != "Good" {
		t.Errorf("level = %q (score %v), want Good from standings records alone", dc.Level, dc.Score)
	}

	history := &fakeMatches{matches: map[string]int{"Sentinels": 3, "MIBR": 4}}
	res, err = newTestPredictor(t, history, rows...).Predict(context.Background(), "Sentinels", "MIBR")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	dc = res.DataConfidence
	if dc.Team1Matches != 3 || dc.Team2Matches != 4 || !approx(dc.MatchCountFactor, 0.3) {
		t.Errorf("with history, counts = %d/%d factor %v", dc.Team1Matches, dc.Team2Matches, dc.MatchCountFactor)
	}
}

func TestDataConfidenceFor(t *testing.T) {
	full := DataConfidenceFor(12, 10, 5, 0)
	if !approx(full.Score, 1) || full.Level != "High" {
		t.Errorf("full data = %+v", full)
	}

	empty := DataConfidenceFor(0, 0, 0, 60)
	if !approx(empty.Score, 0.03) || empty.Level != "Very Low" {
		t.Errorf("no data = %+v", empty)
	}
	if empty.RecencyFactor != 0.1 {
		t.Errorf("recency floor = %v", empty.RecencyFactor)
	}

	mid := DataConfidenceFor(5, 20, 1, 15)
	// 0.5*0.5 + 0.3*0.5 + 0.2*0.2
	if !approx(mid.Score, 0.44) || mid.Level != "Moderate" {
		t.Errorf("mid = %+v", mid)
	}
}

func TestConfidenceLevel(t *testing.T) {
	cases := map[float64]string{0.95: "High", 0.8: "High", 0.7: "Good", 0.5: "Moderate", 0.25: "Low", 0.1: "Very Low"}
	for score, want := range cases {
		if got := ConfidenceLevel(score); got != want {
			t.Errorf("ConfidenceLevel(%v) = %q, want %q", score, got, want)
		}
	}
}
