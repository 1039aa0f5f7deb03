package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
	"vct-predictor/internal/config"
	"vct-predictor/internal/domain"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Runner interface {
	Run(ctx context.Context) (domain.IngestionReport, error)
}

// Scheduler triggers ingestion runs on a cron schedule, off the request path.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	schedule string
	onStart  bool
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(runner Runner, cfg *config.Config, logger zerolog.Logger) (*Scheduler, error) {
	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger: logger}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:     c,
		runner:   runner,
		schedule: cfg.ScrapeSchedule,
		onStart:  cfg.ScrapeOnStart,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	if _, err := c.AddFunc(s.schedule, s.runOnce); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid scrape schedule %q: %w", s.schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.onStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runOnce()
		}()
	}

	entries := s.cron.Entries()
	event := s.logger.Info().Str("schedule", s.schedule).Bool("run_on_start", s.onStart)
	if len(entries) > 0 {
		event = event.Time("next_run", entries[0].Next)
	}
	event.Msg("scheduler started")
}

// Stop cancels a running job and waits for it to return, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	waited := make(chan struct{})
	go func() {
		<-done.Done()
		s.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler did not stop in time: %w", ctx.Err())
	}
}

func (s *Scheduler) runOnce() {
	report, err := s.runner.Run(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", report.RunID).Msg("scheduled ingestion failed")
		return
	}
	s.logger.Info().
		Str("run_id", report.RunID).
		Str("status", string(report.Status)).
		Str("source", string(report.Source)).
		Int("written", report.Written).
		Msg("scheduled ingestion finished")
}

// Register ties the scheduler to the application lifecycle.
func Register(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
}

// cronLogger adapts zerolog to cron's logger interface.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
