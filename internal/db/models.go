package db

import (
	"time"
)

type DataUpdate struct {
	ID           string
	UpdateDate   time.Time
	MatchesSeen  int64
	MatchesAdded int64
	Status       string
}

type IngestionHealth struct {
	ID           int64
	Status       string
	DataSource   string
	SuccessCount int64
	TotalRuns    int64
	LastRun      *time.Time
	LastError    *string
	UpdatedAt    time.Time
}

type Match struct {
	ID         int64
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

type Standing struct {
	ID          int64
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
