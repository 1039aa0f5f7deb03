package db

import (
	"context"
	"time"
)

const countStandings = `-- name: CountStandings :one
SELECT COUNT(*) FROM standings
`

func (q *Queries) CountStandings(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countStandings)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteStandings = `-- name: DeleteStandings :execrows
DELETE FROM standings
`

func (q *Queries) DeleteStandings(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteStandings)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getStandingByTeam = `-- name: GetStandingByTeam :one
SELECT id, group_name, team, wins, losses, map_won, map_lost, round_won, round_lost, delta, last_updated
FROM standings
WHERE team = ? COLLATE NOCASE
ORDER BY last_updated DESC
LIMIT 1
`

func (q *Queries) GetStandingByTeam(ctx context.Context, team string) (Standing, error) {
	row := q.db.QueryRowContext(ctx, getStandingByTeam, team)
	var i Standing
	err := row.Scan(
		&i.ID,
		&i.GroupName,
		&i.Team,
		&i.Wins,
		&i.Losses,
		&i.MapWon,
		&i.MapLost,
		&i.RoundWon,
		&i.RoundLost,
		&i.Delta,
		&i.LastUpdated,
	)
	return i, err
}

const listStandings = `-- name: ListStandings :many
SELECT id, group_name, team, wins, losses, map_won, map_lost, round_won, round_lost, delta, last_updated
FROM standings
ORDER BY group_name ASC, delta DESC, team ASC
`

func (q *Queries) ListStandings(ctx context.Context) ([]Standing, error) {
	rows, err := q.db.QueryContext(ctx, listStandings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Standing
	for rows.Next() {
		var i Standing
		if err := rows.Scan(
			&i.ID,
			&i.GroupName,
			&i.Team,
			&i.Wins,
			&i.Losses,
			&i.MapWon,
			&i.MapLost,
			&i.RoundWon,
			&i.RoundLost,
			&i.Delta,
			&i.LastUpdated,
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

const listStandingsByGroup = `-- name: ListStandingsByGroup :many
SELECT id, group_name, team, wins, losses, map_won, map_lost, round_won, round_lost, delta, last_updated
FROM standings
WHERE group_name = ?
ORDER BY delta DESC, team ASC
`

func (q *Queries) ListStandingsByGroup(ctx context.Context, groupName string) ([]Standing, error) {
	rows, err := q.db.QueryContext(ctx, listStandingsByGroup, groupName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Standing
	for rows.Next() {
		var i Standing
		if err := rows.Scan(
			&i.ID,
			&i.GroupName,
			&i.Team,
			&i.Wins,
			&i.Losses,
			&i.MapWon,
			&i.MapLost,
			&i.RoundWon,
			&i.RoundLost,
			&i.Delta,
			&i.LastUpdated,
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

const upsertStanding = `-- name: UpsertStanding :exec
INSERT INTO standings (
    group_name, team, wins, losses, map_won, map_lost, round_won, round_lost, delta, last_updated
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)
ON CONFLICT(group_name, team) DO UPDATE SET
    wins = excluded.wins,
    losses = excluded.losses,
    map_won = excluded.map_won,
    map_lost = excluded.map_lost,
    round_won = excluded.round_won,
    round_lost = excluded.round_lost,
    delta = excluded.delta,
    last_updated = excluded.last_updated
`

type UpsertStandingParams struct {
	GroupName   string
	Team        string
	Wins        int64
	Losses      int64
	MapWon      int64
	MapLost     int64
	RoundWon    int64
	RoundLost   int64
	Delta       float64
	LastUpdated time.Time
}

func (q *Queries) UpsertStanding(ctx context.Context, arg UpsertStandingParams) error {
	_, err := q.db.ExecContext(ctx, upsertStanding,
		arg.GroupName,
		arg.Team,
		arg.Wins,
		arg.Losses,
		arg.MapWon,
		arg.MapLost,
		arg.RoundWon,
		arg.RoundLost,
		arg.Delta,
		arg.LastUpdated,
	)
	return err
}
