package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	FetchTimeoutMin = 10 * time.Second
	FetchTimeoutMax = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout   = 5 * time.Second
	ReadHeaderTimeout = 10 * time.Second
)

// estimator
const (
	H2HLimit          = 5
	H2HMinMatches     = 2
	H2HWeightPerMatch = 0.1
	H2HMaxWeight      = 0.3

	MatchCountSaturation = 10
	RecencyHorizonDays   = 30
	RecencyFloor         = 0.1
	H2HSaturation        = 5

	MatchCountWeight = 0.5
	RecencyWeight    = 0.3
	H2HFactorWeight  = 0.2
)

const (
	ActiveTeamWindowDays = 60
	RecentMatchLimit     = 10
	MatchDateLayout      = "2006-01-02"
)
