package repository

import (
	"errors"
	"testing"
	"time"
	"vct-predictor/internal/domain"
)

func testStanding(group, team string, wins, losses int, delta float64) domain.StandingRecord {
	return domain.StandingRecord{
		Group:     group,
		Team:      team,
		Wins:      wins,
		Losses:    losses,
		MapDiff:   domain.Diff{Won: wins * 2, Lost: losses * 2},
		RoundDiff: domain.Diff{Won: 80 + int(delta), Lost: 80},
		Delta:     delta,
	}
}

func TestStandings_UpsertAndGet(t *testing.T) {
	r := newTestStandings(t)
	c := ctx(t)

	if err := r.Upsert(c, testStanding("Alpha", "Sentinels", 4, 1, 26)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := r.GetByTeam(c, "sentinels")
	if err != nil {
		t.Fatalf("GetByTeam: %v", err)
	}
	if got.Team != "Sentinels" || got.Group != "Alpha" {
		t.Errorf("got %s/%s, want Alpha/Sentinels", got.Group, got.Team)
	}
	if got.Wins != 4 || got.Losses != 1 {
		t.Errorf("record = %s, want 4-1", got.Record())
	}
	if got.MapDiff != (domain.Diff{Won: 8, Lost: 2}) {
		t.Errorf("map diff = %s, want 8/2", got.MapDiff)
	}
	if !got.LastUpdated.Equal(testNow) {
		t.Errorf("last_updated = %v, want %v", got.LastUpdated, testNow)
	}
}

func TestStandings_GetByTeam_NotFound(t *testing.T) {
	r := newTestStandings(t)
	if _, err := r.GetByTeam(ctx(t), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStandings_UpsertReplacesRow(t *testing.T) {
	r := newTestStandings(t)
	c := ctx(t)

	if err := r.Upsert(c, testStanding("Alpha", "LOUD", 1, 0, 5)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := r.Upsert(c, testStanding("Alpha", "LOUD", 3, 2, 16)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := r.Count(c)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row after re-upsert, got %d", n)
	}
	got, _ := r.GetByTeam(c, "LOUD")
	if got.Record() != "3-2" || got.Delta != 16 {
		t.Errorf("row not replaced: %s delta %v", got.Record(), got.Delta)
	}
}

func TestStandings_BatchIsIdempotent(t *testing.T) {
	r := newTestStandings(t)
	c := ctx(t)
	batch := []domain.StandingRecord{
		testStanding("Alpha", "Sentinels", 4, 1, 26),
		testStanding("Alpha", "MIBR", 1, 4, -28),
		testStanding("Omega", "FURIA", 3, 2, 8),
	}

	if _, err := r.UpsertBatch(c, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	first, err := r.ListAll(c)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}

	r.now = func() time.Time { return testNow.Add(time.Hour) }
	if _, err := r.UpsertBatch(c, batch); err != nil {
		t.Fatalf("UpsertBatch again: %v", err)
	}
	second, err := r.ListAll(c)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("row count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if !b.LastUpdated.After(a.LastUpdated) {
			t.Errorf("%s: last_updated not advanced", b.Team)
		}
		a.LastUpdated, b.LastUpdated = time.Time{}, time.Time{}
		if a != b {
			t.Errorf("row %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestStandings_ListAllOrdering(t *testing.T) {
	r := newTestStandings(t)
	c := ctx(t)
	_, err := r.UpsertBatch(c, []domain.StandingRecord{
		testStanding("Omega", "KRÜ", 3, 2, 12),
		testStanding("Alpha", "NRG", 2, 3, -8),
		testStanding("Omega", "Leviatán", 4, 1, 26),
		testStanding("Alpha", "Sentinels", 4, 1, 26),
	})
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	all, err := r.ListAll(c)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	want := []string{"Sentinels", "NRG", "Leviatán", "KRÜ"}
	if len(all) != len(want) {
		t.Fatalf("got %d rows, want %d", len(all), len(want))
	}
	for i, team := range want {
		if all[i].Team != team {
			t.Errorf("position %d: got %s, want %s", i, all[i].Team, team)
		}
	}

	omega, err := r.ListByGroup(c, "Omega")
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(omega) != 2 || omega[0].Team != "Leviatán" {
		t.Errorf("unexpected Omega standings: %+v", omega)
	}
}

func TestStandings_ClearAndReset(t *testing.T) {
	r := newTestStandings(t)
	c := ctx(t)
	if _, err := r.UpsertBatch(c, []domain.StandingRecord{
		testStanding("Alpha", "Cloud9", 2, 3, -12),
		testStanding("Alpha", "100 Thieves", 3, 2, 4),
	}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	n, err := r.Clear(c)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear deleted %d rows, want 2", n)
	}

	if err := r.Upsert(c, testStanding("Alpha", "Cloud9", 2, 3, -12)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := r.Reset(c); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	count, err := r.Count(c)
	if err != nil {
		t.Fatalf("Count after reset: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty table after reset, got %d rows", count)
	}
	if err := r.Upsert(c, testStanding("Alpha", "Cloud9", 2, 3, -12)); err != nil {
		t.Errorf("Upsert after reset: %v", err)
	}
}
