package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
	"vct-predictor/internal/database"
	"vct-predictor/internal/db"

	"github.com/rs/zerolog"
)

var testNow = time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) (*sql.DB, *db.Queries) {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB, db.New(sqlDB)
}

func newTestStandings(t *testing.T) *StandingsRepository {
	t.Helper()
	sqlDB, q := newTestDB(t)
	r := NewStandingsRepository(sqlDB, q, zerolog.Nop())
	r.now = func() time.Time { return testNow }
	return r
}

func newTestMatches(t *testing.T) *MatchRepository {
	t.Helper()
	sqlDB, q := newTestDB(t)
	r := NewMatchRepository(sqlDB, q, zerolog.Nop())
	r.now = func() time.Time { return testNow }
	return r
}

func newTestHealth(t *testing.T) *HealthRepository {
	t.Helper()
	sqlDB, q := newTestDB(t)
	r := NewHealthRepository(sqlDB, q, zerolog.Nop())
	r.now = func() time.Time { return testNow }
	return r
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}
