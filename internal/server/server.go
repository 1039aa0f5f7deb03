package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"vct-predictor/internal/domain"
	"vct-predictor/internal/middleware"
	"vct-predictor/internal/repository"
	"vct-predictor/internal/service"

	"github.com/rs/zerolog"
)

const maxImportBytes = 4 << 20

// Server exposes standings, predictions, ingestion control and match
// history as a JSON API.
type Server struct {
	standings *service.StandingsService
	predictor *service.Predictor
	ingestion *service.Ingestion
	matches   *service.MatchService
	logger    zerolog.Logger
}

func New(
	standings *service.StandingsService,
	predictor *service.Predictor,
	ingestion *service.Ingestion,
	matches *service.MatchService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		standings: standings,
		predictor: predictor,
		ingestion: ingestion,
		matches:   matches,
		logger:    logger.With().Str("component", "server").Logger(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/standings", s.getStandings)
	mux.HandleFunc("GET /api/teams", s.getTeams)
	mux.HandleFunc("GET /api/teams/stats", s.getTeamStats)
	mux.HandleFunc("GET /api/predict", s.getPrediction)
	mux.HandleFunc("GET /api/health", s.getHealth)
	mux.HandleFunc("POST /api/scrape", s.postScrape)
	mux.HandleFunc("POST /api/matches", s.postMatches)
	mux.HandleFunc("GET /api/matches/recent", s.getRecentMatches)
	mux.HandleFunc("GET /api/matches/h2h", s.getHeadToHead)
	mux.HandleFunc("GET /api/stats", s.getStats)
	return mux
}

func (s *Server) getStandings(w http.ResponseWriter, r *http.Request) {
	if name := strings.TrimSpace(r.URL.Query().Get("group")); name != "" {
		s.getGroupStandings(w, r, name)
		return
	}
	groups, err := s.standings.ByGroup(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTOs(groups))
}

func (s *Server) getGroupStandings(w http.ResponseWriter, r *http.Request, name string) {
	group, err := s.standings.Group(r.Context(), name)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:     fmt.Sprintf("no standings for group %q", name),
			RequestID: middleware.GetRequestID(r.Context()),
		})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTOs([]domain.GroupStandings{group}))
}

func (s *Server) getTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.standings.Teams(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teamsResponse{Teams: teams})
}

func (s *Server) getPrediction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := s.predictor.Predict(r.Context(), q.Get("team1"), q.Get("team2"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if result.Failed() {
		status := http.StatusBadRequest
		if len(result.MissingTeams) > 0 {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{
			Error:        result.Error,
			Suggestion:   result.Suggestion,
			MissingTeams: result.MissingTeams,
			RequestID:    middleware.GetRequestID(r.Context()),
		})
		return
	}
	writeJSON(w, http.StatusOK, toPredictionResponse(result))
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.ingestion.Health(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHealthResponse(h))
}

// postScrape runs an ingestion. mode=clear empties the store first and
// mode=reset recreates the standings schema first. The run outlives the
// request.
func (s *Server) postScrape(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	var (
		report domain.IngestionReport
		err    error
	)
	switch mode := r.URL.Query().Get("mode"); mode {
	case "":
		report, err = s.ingestion.Run(ctx)
	case "clear":
		report, err = s.ingestion.Rerun(ctx, false)
	case "reset":
		report, err = s.ingestion.Rerun(ctx, true)
	default:
		s.badRequest(w, r, "mode must be clear or reset")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

func (s *Server) postMatches(w http.ResponseWriter, r *http.Request) {
	res, err := s.matches.ImportJSON(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		if errors.Is(err, service.ErrMalformedImport) {
			s.badRequest(w, r, err.Error())
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Seen: res.Seen, Invalid: res.Invalid, Added: res.Added})
}

func (s *Server) getRecentMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	team := strings.TrimSpace(q.Get("team"))
	if team == "" {
		s.badRequest(w, r, "team is required")
		return
	}
	days, ok := s.intParam(w, r, "days")
	if !ok {
		return
	}
	limit, ok := s.intParam(w, r, "limit")
	if !ok {
		return
	}

	matches, err := s.matches.RecentMatches(r.Context(), team, days, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Team: team, Days: days, Matches: toMatchDTOs(matches)})
}

func (s *Server) getHeadToHead(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	teamA, teamB := strings.TrimSpace(q.Get("team1")), strings.TrimSpace(q.Get("team2"))
	if teamA == "" || teamB == "" {
		s.badRequest(w, r, "team1 and team2 are required")
		return
	}
	limit, ok := s.intParam(w, r, "limit")
	if !ok {
		return
	}

	h2h, err := s.matches.HeadToHead(r.Context(), teamA, teamB, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, headToHeadResponse{
		TeamA:        h2h.TeamA,
		TeamB:        h2h.TeamB,
		TeamAWins:    h2h.TeamAWins,
		TeamBWins:    h2h.TeamBWins,
		TeamAWinRate: h2h.TeamAWinRate,
		Matches:      toMatchDTOs(h2h.Matches),
	})
}

func (s *Server) getTeamStats(w http.ResponseWriter, r *http.Request) {
	team := strings.TrimSpace(r.URL.Query().Get("team"))
	if team == "" {
		s.badRequest(w, r, "team is required")
		return
	}
	days, ok := s.intParam(w, r, "days")
	if !ok {
		return
	}

	stats, err := s.matches.TeamStats(r.Context(), team, days)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teamStatsResponse{
		Team:      stats.Team,
		Days:      days,
		Matches:   stats.Matches,
		Wins:      stats.Wins,
		Losses:    stats.Losses,
		WinRate:   stats.WinRate,
		AvgScore:  stats.AvgScore,
		LastMatch: formatDate(stats.LastMatch),
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	overview, err := s.matches.Overview(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(overview))
}

// intParam reads an optional non-negative integer query parameter. Zero
// means "use the default".
func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.badRequest(w, r, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     msg,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	if logger.GetLevel() == zerolog.Disabled {
		logger = &s.logger
	}
	logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:     "internal error",
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
