package repository

import (
	"errors"
	"testing"
	"time"
	"vct-predictor/internal/domain"
)

func testMatch(id, team1, team2 string, s1, s2, daysAgo int) domain.MatchRecord {
	return domain.MatchRecord{
		MatchID:    id,
		Team1:      team1,
		Team2:      team2,
		Team1Score: s1,
		Team2Score: s2,
		Date:       testNow.AddDate(0, 0, -daysAgo),
		MapName:    "Ascent",
		Tournament: "VCT Americas",
	}
}

func TestMatches_InsertDuplicateIsNoop(t *testing.T) {
	r := newTestMatches(t)
	c := ctx(t)
	m := testMatch("m-1", "Sentinels", "LOUD", 2, 1, 3)

	added, err := r.InsertMatch(c, m)
	if err != nil {
		t.Fatalf("InsertMatch: %v", err)
	}
	if !added {
		t.Fatal("first insert reported no row added")
	}
	added, err = r.InsertMatch(c, m)
	if err != nil {
		t.Fatalf("InsertMatch duplicate: %v", err)
	}
	if added {
		t.Error("duplicate insert reported a new row")
	}

	stats, err := r.Stats(c)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalMatches != 1 {
		t.Errorf("expected 1 match, got %d", stats.TotalMatches)
	}
}

func TestMatches_EmptyIDDedupesOnTuple(t *testing.T) {
	r := newTestMatches(t)
	c := ctx(t)
	m := testMatch("", "NRG", "MIBR", 13, 9, 1)

	if ok, err := r.InsertMatch(c, m); err != nil || !ok {
		t.Fatalf("InsertMatch: added=%v err=%v", ok, err)
	}
	if ok, _ := r.InsertMatch(c, m); ok {
		t.Error("identical tuple without id was inserted twice")
	}
	m.Team1Score = 13
	m.Team2Score = 11
	if ok, err := r.InsertMatch(c, m); err != nil || !ok {
		t.Errorf("different tuple should insert: added=%v err=%v", ok, err)
	}
}

func TestMatches_RejectsInvalid(t *testing.T) {
	r := newTestMatches(t)
	c := ctx(t)
	cases := map[string]domain.MatchRecord{
		"draw":      testMatch("d", "A", "B", 1, 1, 0),
		"negative":  testMatch("n", "A", "B", -1, 2, 0),
		"same team": testMatch("s", "FURIA", "furia", 2, 0, 0),
		"no team":   testMatch("e", "", "B", 2, 0, 0),
	}
	for name, m := range cases {
		if _, err := r.InsertMatch(c, m); !errors.Is(err, ErrInvalidMatch) {
			t.Errorf("%s: expected ErrInvalidMatch, got %v", name, err)
		}
	}
}

func TestMatches_InsertManyWritesAudit(t *testing.T) {
	r := newTestMatches(t)
	c := ctx(t)
	batch := []domain.MatchRecord{
		testMatch("a", "Sentinels", "LOUD", 2, 0, 1),
		testMatch("b", "Sentinels", "NRG", 2, 1, 2),
		testMatch("a", "Sentinels", "LOUD", 2, 0, 1),
		testMatch("x", "G2 Esports", "G2 Esports", 2, 1, 2),
	}

	added, err := r.InsertMany(c, batch)
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	stats, err := r.Stats(c)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.LastUpdate == nil {
		t.Fatal("expected a data update audit row")
	}
	if stats.LastUpdate.MatchesSeen != 4 || stats.LastUpdate.MatchesAdded != 2 {
		t.Errorf("audit = %+v, want seen 4 added 2", stats.LastUpdate)
	}
	if stats.LastUpdate.Status != "partial" {
		t.Errorf("audit status = %q, want partial", stats.LastUpdate.Status)
	}
	if stats.TotalTeams != 3 {
		t.Errorf("total teams = %d, want 3", stats.TotalTeams)
	}
}

func TestMatches_RecentMatchesWindowAndOrder(t *testing.T) {
	r := newTestMatches(t)
	c := ctx(t)
	if _, err := r.InsertMany(c, []domain.MatchRecord{
		testMatch("1", "Sentinels", "LOUD", 2, 0, 40),
		testMatch("2", "NRG", "Sentinels", 2, 1, 5),
		testMatch("3", "Sentinels", "MIBR", 2, 1, 1),
		testMatch("4", "Cloud9", "MIBR", 2, 1, 1),
	}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	got, err := r.RecentMatches(c, "sentinels", 30, 10)
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].MatchID != "3" || got[1].MatchID != "2" {
		t.Errorf("wrong order: %s, %s", got[0].MatchID, got[1].MatchID)
	}

	capped, err := r.RecentMatches(c, "Sentinels", 60, 1)
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(capped) != 1 {
		t.Errorf("limit not applied: %d", len(capped))
	}
}

func TestMatches_HeadToHead(t *testing.T) {
	r := newTestMatches(t)
	c := ctx(t)

	empty, err := r.HeadToHead(c, "Sentinels", "LOUD", 5)
	if err != nil {
		t.Fatalf("HeadToHead: %v", err)
	}
	if empty.Total() != 0 || empty.TeamAWinRate != 0.5 {
		t.Errorf("empty h2h = %+v, want 0 matches and 0.5 rate", empty)
	}

	if _, err := r.InsertMany(c, []domain.MatchRecord{
		testMatch("1", "Sentinels", "LOUD", 2, 0, 10),
		testMatch("2", "LOUD", "Sentinels", 2, 1, 5),
		testMatch("3", "Sentinels", "LOUD", 2, 1, 1),
		testMatch("4", "Sentinels", "NRG", 2, 1, 1),
	}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	h, err := r.HeadToHead(c, "Sentinels", "LOUD", 5)
	if err != nil {
		t.Fatalf("HeadToHead: %v", err)
	}
	if h.Total() != 3 {
		t.Fatalf("total = %d, want 3", h.Total())
	}
	if h.TeamAWins != 2 || h.TeamBWins != 1 {
		t.Errorf("wins = %d/%d, want 2/1", h.TeamAWins, h.TeamBWins)
	}
	if diff := h.TeamAWinRate - 2.0/3.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("team A win rate = %v", h.TeamAWinRate)
	}
}

func TestMatches_TeamStatsAndActiveTeams(t *testing.T) {
	r := newTestMatches(t)
	c := ctx(t)

	none, err := r.TeamStats(c, "KRÜ", 30)
	if err != nil {
		t.Fatalf("TeamStats: %v", err)
	}
	if none.Matches != 0 || none.WinRate != 0.5 || none.LastMatch != nil {
		t.Errorf("empty stats = %+v", none)
	}

	if _, err := r.InsertMany(c, []domain.MatchRecord{
		testMatch("1", "KRÜ", "FURIA", 2, 0, 3),
		testMatch("2", "Leviatán", "KRÜ", 2, 1, 2),
		testMatch("3", "KRÜ", "G2 Esports", 2, 1, 90),
	}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	stats, err := r.TeamStats(c, "KRÜ", 30)
	if err != nil {
		t.Fatalf("TeamStats: %v", err)
	}
	if stats.Matches != 2 || stats.Wins != 1 || stats.Losses != 1 {
		t.Errorf("stats = %+v, want 2 matches 1-1", stats)
	}
	if stats.AvgScore != 1.5 {
		t.Errorf("avg score = %v, want 1.5", stats.AvgScore)
	}
	if stats.LastMatch == nil || !stats.LastMatch.Equal(testNow.AddDate(0, 0, -2).Truncate(24*time.Hour)) {
		t.Errorf("last match = %v", stats.LastMatch)
	}

	active, err := r.ActiveTeams(c, 60)
	if err != nil {
		t.Fatalf("ActiveTeams: %v", err)
	}
	if len(active) != 3 {
		t.Errorf("active teams = %v, want 3 teams", active)
	}
}
