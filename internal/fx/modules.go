package fx

import (
	"database/sql"
	"vct-predictor/internal/api"
	"vct-predictor/internal/config"
	"vct-predictor/internal/database"
	"vct-predictor/internal/db"
	"vct-predictor/internal/extractor"
	"vct-predictor/internal/logger"
	"vct-predictor/internal/normalizer"
	"vct-predictor/internal/repository"
	"vct-predictor/internal/scheduler"
	"vct-predictor/internal/server"
	"vct-predictor/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvidePageFetcher(client *api.VLRClient) extractor.PageFetcher {
	return client
}

func ProvidePredictor(
	standings *repository.StandingsRepository,
	matches *repository.MatchRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *service.Predictor {
	return service.NewPredictor(standings, matches, cfg, logger)
}

func ProvideScheduler(ingestion *service.Ingestion, cfg *config.Config, logger zerolog.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New(ingestion, cfg, logger)
}

// Core is everything except the HTTP surface and the scheduler; the admin
// CLI runs on it.
var Core = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewStandingsRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewHealthRepository),
	// page client
	fx.Provide(api.NewVLRClient),
	fx.Provide(ProvidePageFetcher),
	// pipeline
	fx.Provide(extractor.New),
	fx.Provide(normalizer.New),
	// svc
	fx.Provide(service.NewIngestion),
	fx.Provide(service.NewStandingsService),
	fx.Provide(service.NewMatchService),
	fx.Provide(ProvidePredictor),
)

var Module = fx.Options(
	Core,
	fx.Provide(ProvideScheduler),
	fx.Provide(server.New),
)
