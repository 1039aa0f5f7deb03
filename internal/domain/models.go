package domain

import (
	"fmt"
	"time"
)

// RawStanding is one standings row exactly as it was read from the page.
type RawStanding struct {
	Group     string
	Team      string
	Record    string
	MapDiff   string
	RoundDiff string
	Delta     string
}

// Diff is a (won, lost) pair of maps or rounds.
type Diff struct {
	Won  int
	Lost int
}

func (d Diff) String() string {
	return fmt.Sprintf("%d/%d", d.Won, d.Lost)
}

func (d Diff) Net() int {
	return d.Won - d.Lost
}

type StandingRecord struct {
	Group       string
	Team        string
	Wins        int
	Losses      int
	MapDiff     Diff
	RoundDiff   Diff
	Delta       float64
	LastUpdated time.Time
}

func (s StandingRecord) Record() string {
	return fmt.Sprintf("%d-%d", s.Wins, s.Losses)
}

func (s StandingRecord) Played() int {
	return s.Wins + s.Losses
}

// WinRate is wins over matches played, or 0 when nothing has been played.
func (s StandingRecord) WinRate() float64 {
	if s.Played() == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Played())
}

type MatchRecord struct {
	MatchID    string
	Team1      string
	Team2      string
	Team1Score int
	Team2Score int
	Date       time.Time
	MapName    string
	Tournament string
}

func (m MatchRecord) Winner() string {
	if m.Team1Score > m.Team2Score {
		return m.Team1
	}
	return m.Team2
}

type HeadToHead struct {
	TeamA        string
	TeamB        string
	Matches      []MatchRecord
	TeamAWins    int
	TeamBWins    int
	TeamAWinRate float64
}

func (h HeadToHead) Total() int {
	return len(h.Matches)
}

type TeamStats struct {
	Team      string
	Matches   int
	Wins      int
	Losses    int
	WinRate   float64
	AvgScore  float64
	LastMatch *time.Time
}

type DataUpdate struct {
	ID           string
	UpdateDate   time.Time
	MatchesSeen  int
	MatchesAdded int
	Status       string
}

type DatabaseStats struct {
	TotalMatches  int
	TotalTeams    int
	EarliestMatch *time.Time
	LatestMatch   *time.Time
	LastUpdate    *DataUpdate
}

type HealthStatus string

const (
	HealthUnknown HealthStatus = "unknown"
	HealthIdle    HealthStatus = "idle"
	HealthSuccess HealthStatus = "success"
	HealthError   HealthStatus = "error"
)

type DataSource string

const (
	SourceLive     DataSource = "live"
	SourceFallback DataSource = "fallback"
)

type IngestionHealth struct {
	Status       HealthStatus
	DataSource   DataSource
	SuccessCount int
	TotalRuns    int
	LastRun      *time.Time
	LastError    string
	UpdatedAt    time.Time
}

// SuccessRate is the share of successful runs as a percentage.
func (h IngestionHealth) SuccessRate() float64 {
	if h.TotalRuns == 0 {
		return 0
	}
	return float64(h.SuccessCount) / float64(h.TotalRuns) * 100
}

type IngestionReport struct {
	RunID      string
	Source     DataSource
	URL        string
	Extracted  int
	Normalized int
	Rejected   int
	Written    int
	Status     HealthStatus
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

type DataConfidence struct {
	Score            float64
	Level            string
	MatchCountFactor float64
	RecencyFactor    float64
	H2HFactor        float64
	Team1Matches     int
	Team2Matches     int
	H2HMatches       int
	DaysSinceUpdate  float64
}

type PredictionResult struct {
	Team1                 string
	Team2                 string
	Team1Group            string
	Team2Group            string
	SameGroup             bool
	Team1Record           string
	Team2Record           string
	Team1WinRate          float64
	Team2WinRate          float64
	Team1BaseProbability  float64
	Team2BaseProbability  float64
	Team1MatchProbability float64
	Team2MatchProbability float64
	H2HMatches            int
	H2HTeam1WinRate       float64
	H2HWeight             float64
	PredictedWinner       string
	Verdict               string
	Confidence            float64
	DataConfidence        *DataConfidence
	PredictionDate        time.Time

	Error        string
	Suggestion   string
	MissingTeams []string
}

func (p PredictionResult) Failed() bool {
	return p.Error != ""
}

type GroupStandings struct {
	Group string
	Teams []StandingRecord
}
