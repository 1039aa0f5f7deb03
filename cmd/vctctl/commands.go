package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
	"vct-predictor/internal/domain"

	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Args:  cobra.NoArgs,
	Short: "Run one standings ingestion",
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Args:  cobra.NoArgs,
	Short: "Delete every standings row, and optionally the match history",
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Args:  cobra.NoArgs,
	Short: "Recreate the standings table and ingest again",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDeps(cmd, func(ctx context.Context, d deps) error {
			report, err := d.Ingestion.Rerun(ctx, true)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Args:  cobra.NoArgs,
	Short: "Show ingestion health",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDeps(cmd, func(ctx context.Context, d deps) error {
			h, err := d.Ingestion.Health(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status:       %s\n", h.Status)
			if h.DataSource != "" {
				fmt.Fprintf(out, "data source:  %s\n", h.DataSource)
			}
			fmt.Fprintf(out, "runs:         %d/%d successful (%.1f%%)\n", h.SuccessCount, h.TotalRuns, h.SuccessRate())
			if h.LastRun != nil {
				fmt.Fprintf(out, "last run:     %s\n", h.LastRun.Format("2006-01-02 15:04:05 MST"))
			}
			if h.LastError != "" {
				fmt.Fprintf(out, "last error:   %s\n", h.LastError)
			}
			return nil
		})
	},
}

var standingsCmd = &cobra.Command{
	Use:   "standings",
	Args:  cobra.NoArgs,
	Short: "Print the stored standings by group",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDeps(cmd, func(ctx context.Context, d deps) error {
			groups, err := d.Standings.ByGroup(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "no standings stored; run `vctctl scrape` first")
				return nil
			}
			for _, g := range groups {
				fmt.Fprintf(out, "%s\n", g.Group)
				for i, s := range g.Teams {
					fmt.Fprintf(out, "  %d. %-22s %5s  maps %-6s rounds %-8s %+.0f\n",
						i+1, s.Team, s.Record(), s.MapDiff, s.RoundDiff, s.Delta)
				}
			}
			return nil
		})
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict TEAM1 TEAM2",
	Args:  cobra.ExactArgs(2),
	Short: "Estimate the winner of a match between two teams",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d deps) error {
			p, err := d.Predictor.Predict(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if p.Failed() {
				return fmt.Errorf("%s (%s)", p.Error, p.Suggestion)
			}
			printPrediction(cmd.OutOrStdout(), p)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import-matches FILE",
	Args:  cobra.ExactArgs(1),
	Short: "Import match results from a JSON array; use - for stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, func(ctx context.Context, d deps) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			res, err := d.Matches.ImportJSON(ctx, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seen %d, invalid %d, added %d\n", res.Seen, res.Invalid, res.Added)
			return nil
		})
	},
}

func init() {
	p := scrapeCmd.Flags()
	clearFirst := p.Bool("clear", false, "delete stored standings before ingesting")
	resetFirst := p.Bool("reset", false, "recreate the standings table before ingesting")
	scrapeCmd.MarkFlagsMutuallyExclusive("clear", "reset")

	clearMatches := clearCmd.Flags().Bool("matches", false, "also delete every imported match")
	clearCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withDeps(cmd, func(ctx context.Context, d deps) error {
			n, err := d.Ingestion.Clear(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d standings rows\n", n)
			if !*clearMatches {
				return nil
			}
			n, err = d.Matches.Clear(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d matches\n", n)
			return nil
		})
	}

	scrapeCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withDeps(cmd, func(ctx context.Context, d deps) error {
			var (
				report domain.IngestionReport
				err    error
			)
			if *clearFirst || *resetFirst {
				report, err = d.Ingestion.Rerun(ctx, *resetFirst)
			} else {
				report, err = d.Ingestion.Run(ctx)
			}
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)

			stats := d.Client.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "requests %d, challenges %d, failures %d\n",
				stats.Requests, stats.Challenges, stats.Failures)
			return nil
		})
	}
}

func printReport(out io.Writer, r domain.IngestionReport) {
	fmt.Fprintf(out, "run %s: %s from %s source\n", r.RunID, r.Status, r.Source)
	if r.URL != "" {
		fmt.Fprintf(out, "  url:        %s\n", r.URL)
	}
	fmt.Fprintf(out, "  extracted:  %d\n", r.Extracted)
	fmt.Fprintf(out, "  normalized: %d (%d rejected)\n", r.Normalized, r.Rejected)
	fmt.Fprintf(out, "  written:    %d\n", r.Written)
	if r.Error != "" {
		fmt.Fprintf(out, "  error:      %s\n", r.Error)
	}
	fmt.Fprintf(out, "  took:       %s\n", r.Duration.Round(time.Millisecond))
}

func printPrediction(out io.Writer, p domain.PredictionResult) {
	fmt.Fprintf(out, "%s (%s, %s) vs %s (%s, %s)\n",
		p.Team1, p.Team1Group, p.Team1Record, p.Team2, p.Team2Group, p.Team2Record)
	fmt.Fprintf(out, "  %s %.1f%%  %s %.1f%%\n",
		p.Team1, p.Team1MatchProbability*100, p.Team2, p.Team2MatchProbability*100)
	if p.H2HWeight > 0 {
		fmt.Fprintf(out, "  head to head: %d matches, weight %.0f%%\n", p.H2HMatches, p.H2HWeight*100)
	}
	winner := p.PredictedWinner
	if winner == "" {
		winner = "none"
	}
	fmt.Fprintf(out, "  winner: %s (%s, %.1f%%)\n", winner, p.Verdict, p.Confidence*100)
	if dc := p.DataConfidence; dc != nil {
		fmt.Fprintf(out, "  data confidence: %s (%.2f)\n", dc.Level, dc.Score)
	}
}
