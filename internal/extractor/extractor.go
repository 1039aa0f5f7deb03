package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"vct-predictor/internal/config"
	"vct-predictor/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

var (
	ErrExtractionFailed = errors.New("extraction failed")
	ErrNoStandingsTable = errors.New("no standings table")
)

// PageFetcher returns the body of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	URLs           []string
	BaseURL        string
	DiscoverURLs   bool
	DiscoverPages  []string
	DiscoverTokens []string
	GroupLabels    []string
	GroupSize      int
	Tables         []TableStrategy
	TeamSelectors  []string
	Groups         []GroupStrategy
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URLs:           cfg.StandingsURLs,
		BaseURL:        cfg.BaseURL,
		DiscoverURLs:   cfg.DiscoverURLs,
		DiscoverPages:  cfg.DiscoverPages,
		DiscoverTokens: cfg.DiscoverTokens,
		GroupLabels:    cfg.GroupLabels,
		GroupSize:      cfg.GroupSize,
	}
}

func (o *Options) FillDefaults() {
	if len(o.GroupLabels) == 0 {
		o.GroupLabels = []string{"Alpha", "Omega"}
	}
	if o.GroupSize <= 0 {
		o.GroupSize = 6
	}
	if len(o.Tables) == 0 {
		o.Tables = DefaultTableStrategies
	}
	if len(o.TeamSelectors) == 0 {
		o.TeamSelectors = DefaultTeamSelectors
	}
	if len(o.Groups) == 0 {
		o.Groups = DefaultGroupStrategies
	}
}

type Extractor struct {
	fetcher PageFetcher
	opts    Options
	markers *markerMatcher
	logger  zerolog.Logger
}

// Result is the outcome of one extraction. When every candidate failed,
// Fallback is set, Standings holds the built-in dataset and Failure lists
// what each candidate returned.
type Result struct {
	Standings []domain.RawStanding
	URL       string
	Fallback  bool
	Failure   error
}

func New(fetcher PageFetcher, cfg *config.Config, logger zerolog.Logger) *Extractor {
	return NewWithOptions(fetcher, OptionsFromConfig(cfg), logger)
}

func NewWithOptions(fetcher PageFetcher, opts Options, logger zerolog.Logger) *Extractor {
	opts.FillDefaults()
	return &Extractor{
		fetcher: fetcher,
		opts:    opts,
		markers: newMarkerMatcher(opts.GroupLabels),
		logger:  logger,
	}
}

// Extract walks the candidate URLs in order and returns the standings of the
// first page that yields any team. Only cancellation of ctx is returned as
// an error; exhausting every candidate produces the fallback dataset.
func (e *Extractor) Extract(ctx context.Context) (Result, error) {
	return e.ExtractFrom(ctx, e.candidates(ctx))
}

func (e *Extractor) ExtractFrom(ctx context.Context, urls []string) (Result, error) {
	type page struct {
		url  string
		rows []domain.RawStanding
	}

	found, err := tryEach(ctx, urls, func(u string) string { return u },
		func(ctx context.Context, url string) (page, error) {
			rows, err := e.extractURL(ctx, url)
			return page{url: url, rows: rows}, err
		})
	if err == nil {
		e.logger.Info().
			Str("url", found.url).
			Int("teams", len(found.rows)).
			Msg("standings extracted")
		return Result{Standings: found.rows, URL: found.url}, nil
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		return Result{}, err
	}

	e.logger.Warn().
		Err(failure).
		Int("candidates", len(urls)).
		Msg("no standings extracted, using fallback dataset")
	return Result{
		Standings: FallbackStandings(),
		Fallback:  true,
		Failure:   failure,
	}, nil
}

func (e *Extractor) extractURL(ctx context.Context, url string) ([]domain.RawStanding, error) {
	body, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.logger.Warn().Err(err).Str("url", url).Msg("candidate fetch failed")
		return nil, err
	}
	rows, err := e.ParsePage(ctx, body)
	if err != nil {
		e.logger.Warn().Err(err).Str("url", url).Msg("candidate page had no usable standings")
		return nil, err
	}
	return rows, nil
}

// ParsePage finds the standings tables in an HTML document using the table
// strategies in priority order and returns their rows.
func (e *Extractor) ParsePage(ctx context.Context, body []byte) ([]domain.RawStanding, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	rows, err := tryEach(ctx, e.opts.Tables, TableStrategy.String,
		func(_ context.Context, s TableStrategy) ([]domain.RawStanding, error) {
			return e.parseWith(doc, s)
		})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *Extractor) candidates(ctx context.Context) []string {
	urls := e.opts.URLs
	if e.opts.DiscoverURLs {
		urls = append(e.Discover(ctx), urls...)
	}
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// Attempt records why one candidate was rejected.
type Attempt struct {
	Candidate string
	Err       error
}

// Failure is returned when every candidate was tried and none succeeded.
type Failure struct {
	Attempts []Attempt
}

func (f *Failure) Error() string {
	if len(f.Attempts) == 0 {
		return ErrExtractionFailed.Error() + ": no candidates"
	}
	parts := make([]string, len(f.Attempts))
	for i, a := range f.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Candidate, a.Err)
	}
	return fmt.Sprintf("%s after %d candidates: %s", ErrExtractionFailed, len(f.Attempts), strings.Join(parts, "; "))
}

func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, len(f.Attempts)+1)
	errs = append(errs, ErrExtractionFailed)
	for _, a := range f.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// tryEach runs try on each candidate in order and returns the first success.
// If all fail it returns a *Failure describing each attempt. Cancellation
// of ctx stops the walk and is returned as is.
func tryEach[C, T any](ctx context.Context, candidates []C, name func(C) string, try func(context.Context, C) (T, error)) (T, error) {
	var zero T
	attempts := make([]Attempt, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := try(ctx, c)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		attempts = append(attempts, Attempt{Candidate: name(c), Err: err})
	}
	return zero, &Failure{Attempts: attempts}
}
