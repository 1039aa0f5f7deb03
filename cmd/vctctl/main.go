package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"vct-predictor/internal/api"
	fxmodules "vct-predictor/internal/fx"
	"vct-predictor/internal/logger"
	"vct-predictor/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var rootCmd = &cobra.Command{
	Version:       "dev",
	Use:           "vctctl",
	Short:         "Refreshes VCT standings and predicts match outcomes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verbose bool

type deps struct {
	fx.In

	Ingestion *service.Ingestion
	Standings *service.StandingsService
	Predictor *service.Predictor
	Matches   *service.MatchService
	Client    *api.VLRClient
	DB        *sql.DB
	Logger    zerolog.Logger
}

// withDeps builds the core object graph, hands it to fn and closes the
// database afterwards. Interrupts cancel ctx.
func withDeps(cmd *cobra.Command, fn func(ctx context.Context, d deps) error) error {
	var d deps
	opts := []fx.Option{
		fxmodules.Core,
		fx.NopLogger,
		fx.Invoke(func(in deps) { d = in }),
	}
	if !verbose {
		opts = append(opts, fx.Decorate(func(zerolog.Logger) zerolog.Logger {
			return logger.SetLevel(zerolog.WarnLevel)
		}))
	}

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() {
		if err := d.DB.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("error closing database connection")
		}
	}()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	return fn(ctx, d)
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured LOG_LEVEL instead of warnings only")
	rootCmd.AddCommand(scrapeCmd, clearCmd, resetCmd, healthCmd, standingsCmd, predictCmd, importCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
