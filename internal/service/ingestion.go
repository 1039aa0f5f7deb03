package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"vct-predictor/internal/config"
	"vct-predictor/internal/constants"
	"vct-predictor/internal/domain"
	"vct-predictor/internal/extractor"
	"vct-predictor/internal/normalizer"
	"vct-predictor/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var ErrNoValidRows = errors.New("no valid standings rows")

const ingestKey = "ingest"

// Ingestion runs extract, normalise and store as one pipeline. Concurrent
// Run calls share one run and its report. Rerun and Clear never share: they
// wait for the active run to finish and then do their own work.
type Ingestion struct {
	extractor  *extractor.Extractor
	normalizer *normalizer.Normalizer
	standings  *repository.StandingsRepository
	health     *repository.HealthRepository
	timeout    time.Duration
	overwrite  bool
	flight     singleflight.Group
	exclusive  *semaphore.Weighted
	now        func() time.Time
	logger     zerolog.Logger
}

func NewIngestion(
	ext *extractor.Extractor,
	norm *normalizer.Normalizer,
	standings *repository.StandingsRepository,
	health *repository.HealthRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *Ingestion {
	return &Ingestion{
		extractor:  ext,
		normalizer: norm,
		standings:  standings,
		health:     health,
		timeout:    cfg.IngestTimeout,
		overwrite:  cfg.FallbackOverwrite,
		exclusive:  semaphore.NewWeighted(1),
		now:        time.Now,
		logger:     logger,
	}
}

// Run refreshes the standings. Falling back to the built-in dataset is not
// an error for the caller; it shows up as an error status in the report and
// in ingestion health. Store failures and cancellation are returned.
func (s *Ingestion) Run(ctx context.Context) (domain.IngestionReport, error) {
	v, err, shared := s.flight.Do(ingestKey, func() (any, error) {
		return s.runExclusive(ctx, nil)
	})
	if shared {
		s.logger.Debug().Msg("joined ingestion already in progress")
	}
	report, ok := v.(domain.IngestionReport)
	if !ok && err == nil {
		err = fmt.Errorf("unexpected ingestion result %T", v)
	}
	return report, err
}

// Rerun empties the standings first, either by deleting rows or by
// recreating the table when reset is set, then runs an ingestion.
func (s *Ingestion) Rerun(ctx context.Context, reset bool) (domain.IngestionReport, error) {
	return s.runExclusive(ctx, func(ctx context.Context) error {
		if reset {
			return s.standings.Reset(ctx)
		}
		_, err := s.standings.Clear(ctx)
		return err
	})
}

// Clear deletes every standings row and marks ingestion idle.
func (s *Ingestion) Clear(ctx context.Context) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.exclusive.Release(1)

	n, err := s.standings.Clear(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.health.SetStatus(ctx, domain.HealthIdle); err != nil {
		return n, err
	}
	s.logger.Info().Int("deleted", n).Msg("standings cleared")
	return n, nil
}

func (s *Ingestion) Health(ctx context.Context) (domain.IngestionHealth, error) {
	return s.health.Get(ctx)
}

func (s *Ingestion) runExclusive(ctx context.Context, prepare func(context.Context) error) (domain.IngestionReport, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.IngestionReport{}, err
	}
	defer s.exclusive.Release(1)
	return s.run(ctx, prepare)
}

// acquire waits until no other ingestion or clear holds the store.
func (s *Ingestion) acquire(ctx context.Context) error {
	if s.exclusive.TryAcquire(1) {
		return nil
	}
	s.logger.Debug().Msg("waiting for ingestion in progress")
	if err := s.exclusive.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for ingestion in progress: %w", err)
	}
	return nil
}

func (s *Ingestion) run(ctx context.Context, prepare func(context.Context) error) (domain.IngestionReport, error) {
	report := domain.IngestionReport{
		RunID:     uuid.NewString(),
		Source:    domain.SourceLive,
		StartedAt: s.now().UTC(),
	}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()
	logger.Info().Msg("ingestion started")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if prepare != nil {
		if err := prepare(ctx); err != nil {
			err = fmt.Errorf("failed to empty standings: %w", err)
			s.finish(ctx, logger, &report, err)
			return report, err
		}
	}

	res, err := s.extractor.Extract(ctx)
	if err != nil {
		err = fmt.Errorf("extraction aborted: %w", err)
		s.finish(ctx, logger, &report, err)
		return report, err
	}
	report.URL = res.URL
	report.Extracted = len(res.Standings)
	if res.Fallback {
		report.Source = domain.SourceFallback
	}

	records, rejected := s.normalizer.NormalizeAll(res.Standings)
	report.Normalized = len(records)
	report.Rejected = rejected

	var runErr error
	switch {
	case res.Fallback:
		runErr = res.Failure
		write, err := s.fallbackWritable(ctx)
		if err != nil {
			err = fmt.Errorf("failed to inspect standings: %w", err)
			s.finish(ctx, logger, &report, err)
			return report, err
		}
		if !write {
			logger.Warn().Msg("standings already populated, fallback dataset not written")
			records = nil
		}
	case len(records) == 0:
		runErr = fmt.Errorf("%w: %d extracted from %s", ErrNoValidRows, report.Extracted, res.URL)
	}

	written, err := s.standings.UpsertBatch(ctx, records)
	if err != nil {
		err = fmt.Errorf("failed to store standings: %w", err)
		s.finish(ctx, logger, &report, err)
		return report, err
	}
	report.Written = written

	s.finish(ctx, logger, &report, runErr)
	return report, nil
}

// fallbackWritable reports whether the fallback dataset may be stored. It
// only replaces an empty store unless overwriting is configured.
func (s *Ingestion) fallbackWritable(ctx context.Context) (bool, error) {
	if s.overwrite {
		return true, nil
	}
	n, err := s.standings.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// finish records the outcome in ingestion health. It uses a context that
// survives cancellation of ctx so a timed out run still leaves a record.
func (s *Ingestion) finish(ctx context.Context, logger zerolog.Logger, report *domain.IngestionReport, runErr error) {
	report.Duration = s.now().Sub(report.StartedAt)
	report.Status = domain.HealthSuccess
	if runErr != nil {
		report.Status = domain.HealthError
		report.Error = runErr.Error()
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()
	if _, err := s.health.RecordRun(hctx, report.Status, report.Source, runErr); err != nil {
		logger.Error().Err(err).Msg("failed to record ingestion health")
	}

	event := logger.Info()
	if runErr != nil {
		event = logger.Error().Err(runErr)
	}
	event.
		Str("source", string(report.Source)).
		Str("url", report.URL).
		Int("extracted", report.Extracted).
		Int("normalized", report.Normalized).
		Int("rejected", report.Rejected).
		Int("written", report.Written).
		Dur("duration", report.Duration).
		Msg("ingestion finished")
}
