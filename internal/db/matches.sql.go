package db

import (
	"context"
	"time"
)

const countMatches = `-- name: CountMatches :one
SELECT COUNT(*) FROM matches
`

func (q *Queries) CountMatches(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMatches)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countTeams = `-- name: CountTeams :one
SELECT COUNT(*) FROM (
    SELECT team1 AS team FROM matches
    UNION
    SELECT team2 AS team FROM matches
)
`

func (q *Queries) CountTeams(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTeams)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteMatches = `-- name: DeleteMatches :execrows
DELETE FROM matches
`

func (q *Queries) DeleteMatches(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMatches)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getLatestDataUpdate = `-- name: GetLatestDataUpdate :one
SELECT id, update_date, matches_seen, matches_added, status
FROM data_updates
ORDER BY update_date DESC
LIMIT 1
`

func (q *Queries) GetLatestDataUpdate(ctx context.Context) (DataUpdate, error) {
	row := q.db.QueryRowContext(ctx, getLatestDataUpdate)
	var i DataUpdate
	err := row.Scan(
		&i.ID,
		&i.UpdateDate,
		&i.MatchesSeen,
		&i.MatchesAdded,
		&i.Status,
	)
	return i, err
}

const getMatchDateRange = `-- name: GetMatchDateRange :one
SELECT
    CAST(COALESCE(MIN(match_date), '') AS TEXT) AS earliest,
    CAST(COALESCE(MAX(match_date), '') AS TEXT) AS latest
FROM matches
`

type GetMatchDateRangeRow struct {
	Earliest string
	Latest   string
}

func (q *Queries) GetMatchDateRange(ctx context.Context) (GetMatchDateRangeRow, error) {
	row := q.db.QueryRowContext(ctx, getMatchDateRange)
	var i GetMatchDateRangeRow
	err := row.Scan(&i.Earliest, &i.Latest)
	return i, err
}

const getTeamStats = `-- name: GetTeamStats :one
SELECT
    COUNT(*) AS matches,
    CAST(COALESCE(SUM(CASE
        WHEN team1 = ?1 COLLATE NOCASE AND team1_score > team2_score THEN 1
        WHEN team2 = ?1 COLLATE NOCASE AND team2_score > team1_score THEN 1
        ELSE 0 END), 0) AS INTEGER) AS wins,
    CAST(COALESCE(AVG(CASE
        WHEN team1 = ?1 COLLATE NOCASE THEN team1_score
        ELSE team2_score END), 0) AS REAL) AS avg_score,
    CAST(COALESCE(MAX(match_date), '') AS TEXT) AS last_match
FROM matches
WHERE (team1 = ?1 COLLATE NOCASE OR team2 = ?1 COLLATE NOCASE)
  AND match_date >= ?2
`

type GetTeamStatsParams struct {
	Team  string
	Since string
}

type GetTeamStatsRow struct {
	Matches   int64
	Wins      int64
	AvgScore  float64
	LastMatch string
}

func (q *Queries) GetTeamStats(ctx context.Context, arg GetTeamStatsParams) (GetTeamStatsRow, error) {
	row := q.db.QueryRowContext(ctx, getTeamStats, arg.Team, arg.Since)
	var i GetTeamStatsRow
	err := row.Scan(
		&i.Matches,
		&i.Wins,
		&i.AvgScore,
		&i.LastMatch,
	)
	return i, err
}

const insertDataUpdate = `-- name: InsertDataUpdate :exec
INSERT INTO data_updates (id, update_date, matches_seen, matches_added, status)
VALUES (?, ?, ?, ?, ?)
`

type InsertDataUpdateParams struct {
	ID           string
	UpdateDate   time.Time
	MatchesSeen  int64
	MatchesAdded int64
	Status       string
}

func (q *Queries) InsertDataUpdate(ctx context.Context, arg InsertDataUpdateParams) error {
	_, err := q.db.ExecContext(ctx, insertDataUpdate,
		arg.ID,
		arg.UpdateDate,
		arg.MatchesSeen,
		arg.MatchesAdded,
		arg.Status,
	)
	return err
}

const insertMatch = `-- name: InsertMatch :execrows
INSERT OR IGNORE INTO matches (
    match_id, team1, team2, team1_score, team2_score, match_date, map_name, tournament, created_at
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?, ?
)
`

type InsertMatchParams struct {
	MatchID    string
	Team1      string
	Team2      string
	Team1Score int64
	Team2Score int64
	MatchDate  string
	MapName    string
	Tournament string
	CreatedAt  time.Time
}

func (q *Queries) InsertMatch(ctx context.Context, arg InsertMatchParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertMatch,
		arg.MatchID,
		arg.Team1,
		arg.Team2,
		arg.Team1Score,
		arg.Team2Score,
		arg.MatchDate,
		arg.MapName,
		arg.Tournament,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listActiveTeams = `-- name: ListActiveTeams :many
SELECT team FROM (
    SELECT team1 AS team FROM matches WHERE match_date >= ?1
    UNION
    SELECT team2 AS team FROM matches WHERE match_date >= ?1
)
ORDER BY team
`

func (q *Queries) ListActiveTeams(ctx context.Context, since string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listActiveTeams, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, err
		}
		items = append(items, team)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listHeadToHead = `-- name: ListHeadToHead :many
SELECT id, match_id, team1, team2, team1_score, team2_score, match_date, map_name, tournament, created_at
FROM matches
WHERE (team1 = ?1 COLLATE NOCASE AND team2 = ?2 COLLATE NOCASE)
   OR (team1 = ?2 COLLATE NOCASE AND team2 = ?1 COLLATE NOCASE)
ORDER BY match_date DESC, id DESC
LIMIT ?3
`

type ListHeadToHeadParams struct {
	TeamA string
	TeamB string
	Limit int64
}

func (q *Queries) ListHeadToHead(ctx context.Context, arg ListHeadToHeadParams) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx, listHeadToHead, arg.TeamA, arg.TeamB, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Match
	for rows.Next() {
		var i Match
		if err := rows.Scan(
			&i.ID,
			&i.MatchID,
			&i.Team1,
			&i.Team2,
			&i.Team1Score,
			&i.Team2Score,
			&i.MatchDate,
			&i.MapName,
			&i.Tournament,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecentMatchesByTeam = `-- name: ListRecentMatchesByTeam :many
SELECT id, match_id, team1, team2, team1_score, team2_score, match_date, map_name, tournament, created_at
FROM matches
WHERE (team1 = ?1 COLLATE NOCASE OR team2 = ?1 COLLATE NOCASE)
  AND match_date >= ?2
ORDER BY match_date DESC, id DESC
LIMIT ?3
`

type ListRecentMatchesByTeamParams struct {
	Team  string
	Since string
	Limit int64
}

func (q *Queries) ListRecentMatchesByTeam(ctx context.Context, arg ListRecentMatchesByTeamParams) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx, listRecentMatchesByTeam, arg.Team, arg.Since, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Match
	for rows.Next() {
		var i Match
		if err := rows.Scan(
			&i.ID,
			&i.MatchID,
			&i.Team1,
			&i.Team2,
			&i.Team1Score,
			&i.Team2Score,
			&i.MatchDate,
			&i.MapName,
			&i.Tournament,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
