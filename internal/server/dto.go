package server

import (
	"time"
	"vct-predictor/internal/domain"
	"vct-predictor/internal/service"
)

type errorResponse struct {
	Error        string   `json:"error"`
	Suggestion   string   `json:"suggestion,omitempty"`
	MissingTeams []string `json:"missing_teams,omitempty"`
	RequestID    string   `json:"request_id,omitempty"`
}

type standingDTO struct {
	Group       string    `json:"group"`
	Team        string    `json:"team"`
	Record      string    `json:"record"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	WinRate     float64   `json:"win_rate"`
	MapDiff     string    `json:"map_diff"`
	RoundDiff   string    `json:"round_diff"`
	Delta       float64   `json:"delta"`
	LastUpdated time.Time `json:"last_updated"`
}

type groupDTO struct {
	Group string        `json:"group"`
	Teams []standingDTO `json:"teams"`
}

type standingsResponse struct {
	Groups []groupDTO `json:"groups"`
	Count  int        `json:"count"`
}

type teamsResponse struct {
	Teams []string `json:"teams"`
}

type dataConfidenceDTO struct {
	Score            float64 `json:"score"`
	Level            string  `json:"level"`
	MatchCountFactor float64 `json:"match_count_factor"`
	RecencyFactor    float64 `json:"recency_factor"`
	H2HFactor        float64 `json:"h2h_factor"`
	Team1Matches     int     `json:"team1_matches"`
	Team2Matches     int     `json:"team2_matches"`
	H2HMatches       int     `json:"h2h_matches"`
	DaysSinceUpdate  float64 `json:"days_since_update"`
}

type predictionResponse struct {
	Team1                 string             `json:"team1"`
	Team2                 string             `json:"team2"`
	Team1Group            string             `json:"team1_group"`
	Team2Group            string             `json:"team2_group"`
	SameGroup             bool               `json:"same_group"`
	Team1Record           string             `json:"team1_record"`
	Team2Record           string             `json:"team2_record"`
	Team1WinRate          float64            `json:"team1_win_rate"`
	Team2WinRate          float64            `json:"team2_win_rate"`
	Team1MatchProbability float64            `json:"team1_match_probability"`
	Team2MatchProbability float64            `json:"team2_match_probability"`
	H2HMatches            int                `json:"h2h_matches"`
	H2HWeight             float64            `json:"h2h_weight"`
	PredictedWinner       *string            `json:"predicted_winner"`
	Verdict               string             `json:"verdict"`
	Confidence            float64            `json:"confidence"`
	DataConfidence        *dataConfidenceDTO `json:"data_confidence,omitempty"`
	PredictionDate        time.Time          `json:"prediction_date"`
}

type healthResponse struct {
	Status       string     `json:"status"`
	DataSource   string     `json:"data_source,omitempty"`
	SuccessCount int        `json:"success_count"`
	TotalRuns    int        `json:"total_runs"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run"`
	LastError    string     `json:"last_error,omitempty"`
}

type reportResponse struct {
	RunID      string  `json:"run_id"`
	Status     string  `json:"status"`
	Source     string  `json:"source"`
	URL        string  `json:"url,omitempty"`
	Extracted  int     `json:"extracted"`
	Normalized int     `json:"normalized"`
	Rejected   int     `json:"rejected"`
	Written    int     `json:"written"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

type matchDTO struct {
	MatchID    string `json:"match_id,omitempty"`
	Team1      string `json:"team1"`
	Team2      string `json:"team2"`
	Team1Score int    `json:"team1_score"`
	Team2Score int    `json:"team2_score"`
	Winner     string `json:"winner"`
	Date       string `json:"date"`
	MapName    string `json:"map_name,omitempty"`
	Tournament string `json:"tournament,omitempty"`
}

type matchesResponse struct {
	Team    string     `json:"team"`
	Days    int        `json:"days"`
	Matches []matchDTO `json:"matches"`
}

type headToHeadResponse struct {
	TeamA        string     `json:"team_a"`
	TeamB        string     `json:"team_b"`
	TeamAWins    int        `json:"team_a_wins"`
	TeamBWins    int        `json:"team_b_wins"`
	TeamAWinRate float64    `json:"team_a_win_rate"`
	Matches      []matchDTO `json:"matches"`
}

type teamStatsResponse struct {
	Team      string  `json:"team"`
	Days      int     `json:"days"`
	Matches   int     `json:"matches"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	WinRate   float64 `json:"win_rate"`
	AvgScore  float64 `json:"avg_score"`
	LastMatch string  `json:"last_match,omitempty"`
}

type importResponse struct {
	Seen    int `json:"seen"`
	Invalid int `json:"invalid"`
	Added   int `json:"added"`
}

type dataUpdateDTO struct {
	ID           string    `json:"id"`
	UpdateDate   time.Time `json:"update_date"`
	MatchesSeen  int       `json:"matches_seen"`
	MatchesAdded int       `json:"matches_added"`
	Status       string    `json:"status"`
}

type statsResponse struct {
	TotalMatches  int            `json:"total_matches"`
	TotalTeams    int            `json:"total_teams"`
	EarliestMatch string         `json:"earliest_match,omitempty"`
	LatestMatch   string         `json:"latest_match,omitempty"`
	LastUpdate    *dataUpdateDTO `json:"last_update,omitempty"`
	ActiveTeams   []string       `json:"active_teams"`
}

func toStandingDTO(s domain.StandingRecord) standingDTO {
	return standingDTO{
		Group:       s.Group,
		Team:        s.Team,
		Record:      s.Record(),
		Wins:        s.Wins,
		Losses:      s.Losses,
		WinRate:     s.WinRate(),
		MapDiff:     s.MapDiff.String(),
		RoundDiff:   s.RoundDiff.String(),
		Delta:       s.Delta,
		LastUpdated: s.LastUpdated,
	}
}

func toGroupDTOs(groups []domain.GroupStandings) standingsResponse {
	resp := standingsResponse{Groups: make([]groupDTO, 0, len(groups))}
	for _, g := range groups {
		dto := groupDTO{Group: g.Group, Teams: make([]standingDTO, 0, len(g.Teams))}
		for _, s := range g.Teams {
			dto.Teams = append(dto.Teams, toStandingDTO(s))
		}
		resp.Count += len(dto.Teams)
		resp.Groups = append(resp.Groups, dto)
	}
	return resp
}

func toPredictionResponse(p domain.PredictionResult) predictionResponse {
	resp := predictionResponse{
		Team1:                 p.Team1,
		Team2:                 p.Team2,
		Team1Group:            p.Team1Group,
		Team2Group:            p.Team2Group,
		SameGroup:             p.SameGroup,
		Team1Record:           p.Team1Record,
		Team2Record:           p.Team2Record,
		Team1WinRate:          p.Team1WinRate,
		Team2WinRate:          p.Team2WinRate,
		Team1MatchProbability: p.Team1MatchProbability,
		Team2MatchProbability: p.Team2MatchProbability,
		H2HMatches:            p.H2HMatches,
		H2HWeight:             p.H2HWeight,
		Verdict:               p.Verdict,
		Confidence:            p.Confidence,
		PredictionDate:        p.PredictionDate,
	}
	if p.PredictedWinner != "" {
		winner := p.PredictedWinner
		resp.PredictedWinner = &winner
	}
	if dc := p.DataConfidence; dc != nil {
		resp.DataConfidence = &dataConfidenceDTO{
			Score:            dc.Score,
			Level:            dc.Level,
			MatchCountFactor: dc.MatchCountFactor,
			RecencyFactor:    dc.RecencyFactor,
			H2HFactor:        dc.H2HFactor,
			Team1Matches:     dc.Team1Matches,
			Team2Matches:     dc.Team2Matches,
			H2HMatches:       dc.H2HMatches,
			DaysSinceUpdate:  dc.DaysSinceUpdate,
		}
	}
	return resp
}

func toHealthResponse(h domain.IngestionHealth) healthResponse {
	return healthResponse{
		Status:       string(h.Status),
		DataSource:   string(h.DataSource),
		SuccessCount: h.SuccessCount,
		TotalRuns:    h.TotalRuns,
		SuccessRate:  h.SuccessRate(),
		LastRun:      h.LastRun,
		LastError:    h.LastError,
	}
}

func toReportResponse(r domain.IngestionReport) reportResponse {
	return reportResponse{
		RunID:      r.RunID,
		Status:     string(r.Status),
		Source:     string(r.Source),
		URL:        r.URL,
		Extracted:  r.Extracted,
		Normalized: r.Normalized,
		Rejected:   r.Rejected,
		Written:    r.Written,
		Error:      r.Error,
		DurationMS: float64(r.Duration.Microseconds()) / 1000,
	}
}

func toMatchDTOs(matches []domain.MatchRecord) []matchDTO {
	out := make([]matchDTO, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchDTO{
			MatchID:    m.MatchID,
			Team1:      m.Team1,
			Team2:      m.Team2,
			Team1Score: m.Team1Score,
			Team2Score: m.Team2Score,
			Winner:     m.Winner(),
			Date:       formatDate(&m.Date),
			MapName:    m.MapName,
			Tournament: m.Tournament,
		})
	}
	return out
}

func toStatsResponse(o service.Overview) statsResponse {
	resp := statsResponse{
		TotalMatches:  o.Stats.TotalMatches,
		TotalTeams:    o.Stats.TotalTeams,
		EarliestMatch: formatDate(o.Stats.EarliestMatch),
		LatestMatch:   formatDate(o.Stats.LatestMatch),
		ActiveTeams:   o.ActiveTeams,
	}
	if resp.ActiveTeams == nil {
		resp.ActiveTeams = []string{}
	}
	if u := o.Stats.LastUpdate; u != nil {
		resp.LastUpdate = &dataUpdateDTO{
			ID:           u.ID,
			UpdateDate:   u.UpdateDate,
			MatchesSeen:  u.MatchesSeen,
			MatchesAdded: u.MatchesAdded,
			Status:       u.Status,
		}
	}
	return resp
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
