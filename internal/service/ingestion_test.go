package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"vct-predictor/internal/config"
	"vct-predictor/internal/database"
	"vct-predictor/internal/db"
	"vct-predictor/internal/domain"
	"vct-predictor/internal/extractor"
	"vct-predictor/internal/normalizer"
	"vct-predictor/internal/repository"

	"github.com/rs/zerolog"
)

const standingsURL = "https://www.vlr.gg/event/standings/test"

const standingsPage = `<html><body>
<div class="event-group">
  <table class="wf-table">
    <thead><tr><th class="mod-title">Group Alpha</th><th>W–L</th><th>Maps</th><th>RND</th><th>Δ</th></tr></thead>
    <tr><td class="mod-team"><div class="event-group-team-name">Sentinels</div></td><td class="mod-stat">4–1</td><td class="mod-stat">8/2</td><td class="mod-stat">104/78</td><td class="mod-stat"><span class="diff">+26</span></td></tr>
    <tr><td class="mod-team"><div class="event-group-team-name">LOUD Brazil</div></td><td class="mod-stat">3–2</td><td class="mod-stat">6/4</td><td class="mod-stat">98/82</td><td class="mod-stat"><span class="diff">+16</span></td></tr>
    <tr><td class="mod-team"><div class="event-group-team-name">Broken</div></td><td class="mod-stat">–</td><td class="mod-stat">6/4</td><td class="mod-stat">98/82</td><td class="mod-stat"><span class="diff">0</span></td></tr>
  </table>
</div>
<div class="event-group">
  <table class="wf-table">
    <thead><tr><th class="mod-title">Group Omega</th><th>W–L</th><th>Maps</th><th>RND</th><th>Δ</th></tr></thead>
    <tr><td class="mod-team"><div class="event-group-team-name">LEVIATÁN</div></td><td class="mod-stat">4–1</td><td class="mod-stat">8/2</td><td class="mod-stat">102/76</td><td class="mod-stat"><span class="diff">+26</span></td></tr>
    <tr><td class="mod-team"><div class="event-group-team-name">VISA KRÜ</div></td><td class="mod-stat">3–2</td><td class="mod-stat">6/4</td><td class="mod-stat">96/84</td><td class="mod-stat"><span class="diff">+12</span></td></tr>
  </table>
</div>
</body></html>`

type pageFetcher struct {
	mu    sync.Mutex
	pages map[string]string

	// when release is set, Fetch reads its page, signals started and
	// then waits for release to close
	started chan struct{}
	release chan struct{}
}

// hold makes the next fetches block until the returned func is called.
func (f *pageFetcher) hold() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = make(chan struct{}, 1)
	f.release = make(chan struct{})
	return f.started, sync.OnceFunc(func() { close(f.release) })
}

func (f *pageFetcher) set(url, page string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page == "" {
		delete(f.pages, url)
		return
	}
	f.pages[url] = page
}

func (f *pageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	page, ok := f.pages[url]
	started, release := f.started, f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, fmt.Errorf("fetch %s: status 503", url)
	}
	return []byte(page), nil
}

type ingestionFixture struct {
	ingestion *Ingestion
	standings *repository.StandingsRepository
	health    *repository.HealthRepository
	fetcher   *pageFetcher
}

func newIngestionFixture(t *testing.T, overwrite bool) *ingestionFixture {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	q := db.New(sqlDB)

	cfg := &config.Config{
		StandingsURLs:     []string{standingsURL},
		GroupLabels:       []string{"Alpha", "Omega"},
		GroupSize:         6,
		IngestTimeout:     10 * time.Second,
		FallbackOverwrite: overwrite,
	}
	fetcher := &pageFetcher{pages: map[string]string{standingsURL: standingsPage}}
	f := &ingestionFixture{
		standings: repository.NewStandingsRepository(sqlDB, q, zerolog.Nop()),
		health:    repository.NewHealthRepository(sqlDB, q, zerolog.Nop()),
		fetcher:   fetcher,
	}
	f.ingestion = NewIngestion(
		extractor.New(fetcher, cfg, zerolog.Nop()),
		normalizer.New(zerolog.Nop()),
		f.standings,
		f.health,
		cfg,
		zerolog.Nop(),
	)
	return f
}

func (f *ingestionFixture) list(t *testing.T) []domain.StandingRecord {
	t.Helper()
	rows, err := f.standings.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	return rows
}

func (f *ingestionFixture) healthRow(t *testing.T) domain.IngestionHealth {
	t.Helper()
	h, err := f.health.Get(context.Background())
	if err != nil {
		t.Fatalf("health.Get: %v", err)
	}
	return h
}

func TestIngestion_LiveRun(t *testing.T) {
	f := newIngestionFixture(t, false)

	report, err := f.ingestion.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != domain.HealthSuccess || report.Source != domain.SourceLive {
		t.Fatalf("report = %+v", report)
	}
	if report.Extracted != 5 || report.Rejected != 1 || report.Written != 4 {
		t.Errorf("counts = extracted %d rejected %d written %d", report.Extracted, report.Rejected, report.Written)
	}
	if report.RunID == "" || report.URL != standingsURL {
		t.Errorf("run id %q url %q", report.RunID, report.URL)
	}

	rows := f.list(t)
	want := []string{"Sentinels", "LOUD", "Leviatán", "KRÜ"}
	if len(rows) != len(want) {
		t.Fatalf("stored %d rows, want %d", len(rows), len(want))
	}
	for i, team := range want {
		if rows[i].Team != team {
			t.Errorf("row %d team = %q, want %q", i, rows[i].Team, team)
		}
	}

	h := f.healthRow(t)
	if h.Status != domain.HealthSuccess || h.DataSource != domain.SourceLive || h.SuccessCount != 1 || h.TotalRuns != 1 {
		t.Errorf("health = %+v", h)
	}
}

func TestIngestion_Idempotent(t *testing.T) {
	f := newIngestionFixture(t, false)
	c := context.Background()

	if _, err := f.ingestion.Run(c); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := f.list(t)
	if _, err := f.ingestion.Run(c); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second := f.list(t)

	if len(first) != len(second) {
		t.Fatalf("row count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		a.LastUpdated, b.LastUpdated = time.Time{}, time.Time{}
		if a != b {
			t.Errorf("row %d changed: %+v -> %+v", i, a, b)
		}
	}
	if h := f.healthRow(t); h.TotalRuns != 2 || h.SuccessCount != 2 {
		t.Errorf("health = %+v", h)
	}
}

func TestIngestion_FallbackPopulatesEmptyStore(t *testing.T) {
	f := newIngestionFixture(t, false)
	f.fetcher.set(standingsURL, "<html><body><p>layout changed</p></body></html>")

	report, err := f.ingestion.Run(context.Background())
	if err != nil {
		t.Fatalf("fallback must not be returned as an error: %v", err)
	}
	if report.Source != domain.SourceFallback || report.Status != domain.HealthError || report.Written != 12 {
		t.Errorf("report = %+v", report)
	}

	rows := f.list(t)
	if len(rows) != 12 {
		t.Fatalf("stored %d rows, want 12", len(rows))
	}
	groups := map[string]int{}
	for _, r := range rows {
		groups[r.Group]++
	}
	if groups["Alpha"] != 6 || groups["Omega"] != 6 {
		t.Errorf("groups = %v", groups)
	}

	h := f.healthRow(t)
	if h.Status != domain.HealthError || h.DataSource != domain.SourceFallback || h.LastError == "" {
		t.Errorf("health = %+v", h)
	}
	if h.SuccessCount != 0 || h.TotalRuns != 1 {
		t.Errorf("counters = %d/%d", h.SuccessCount, h.TotalRuns)
	}
}

func TestIngestion_FallbackKeepsLiveData(t *testing.T) {
	f := newIngestionFixture(t, false)
	c := context.Background()

	if _, err := f.ingestion.Run(c); err != nil {
		t.Fatalf("live Run: %v", err)
	}
	f.fetcher.set(standingsURL, "")

	report, err := f.ingestion.Run(c)
	if err != nil {
		t.Fatalf("fallback Run: %v", err)
	}
	if report.Written != 0 {
		t.Errorf("fallback wrote %d rows over live data", report.Written)
	}
	if rows := f.list(t); len(rows) != 4 {
		t.Errorf("stored %d rows, want the 4 live rows", len(rows))
	}
	h := f.healthRow(t)
	if h.Status != domain.HealthError || h.SuccessCount != 1 || h.TotalRuns != 2 {
		t.Errorf("health = %+v", h)
	}
}

func TestIngestion_FallbackOverwrite(t *testing.T) {
	f := newIngestionFixture(t, true)
	c := context.Background()

	if _, err := f.ingestion.Run(c); err != nil {
		t.Fatalf("live Run: %v", err)
	}
	f.fetcher.set(standingsURL, "")
	if _, err := f.ingestion.Run(c); err != nil {
		t.Fatalf("fallback Run: %v", err)
	}
	if rows := f.list(t); len(rows) != 12 {
		t.Errorf("stored %d rows, want 12 after overwrite", len(rows))
	}
}

func TestIngestion_CancelledRunRecordsHealth(t *testing.T) {
	f := newIngestionFixture(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := f.ingestion.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Status != domain.HealthError {
		t.Errorf("report status = %s", report.Status)
	}

	h := f.healthRow(t)
	if h.Status != domain.HealthError || h.TotalRuns != 1 {
		t.Errorf("health after cancelled run = %+v", h)
	}
}

func TestIngestion_ClearAndRerun(t *testing.T) {
	f := newIngestionFixture(t, false)
	c := context.Background()

	if _, err := f.ingestion.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	n, err := f.ingestion.Clear(c)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 4 {
		t.Errorf("cleared %d rows, want 4", n)
	}
	if rows := f.list(t); len(rows) != 0 {
		t.Errorf("%d rows left after clear", len(rows))
	}
	if h := f.healthRow(t); h.Status != domain.HealthIdle {
		t.Errorf("status after clear = %s", h.Status)
	}

	for _, reset := range []bool{false, true} {
		report, err := f.ingestion.Rerun(c, reset)
		if err != nil {
			t.Fatalf("Rerun(reset=%v): %v", reset, err)
		}
		if report.Written != 4 {
			t.Errorf("Rerun(reset=%v) wrote %d rows", reset, report.Written)
		}
		if rows := f.list(t); len(rows) != 4 {
			t.Errorf("Rerun(reset=%v) left %d rows", reset, len(rows))
		}
	}
}

func withoutRow(page, team string) string {
	lines := strings.Split(page, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !strings.Contains(l, team) {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

type reportResult struct {
	report domain.IngestionReport
	err    error
}

func (f *ingestionFixture) runInBackground() <-chan reportResult {
	done := make(chan reportResult, 1)
	go func() {
		report, err := f.ingestion.Run(context.Background())
		done <- reportResult{report, err}
	}()
	return done
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func TestIngestion_ClearDuringRunWaitsAndDeletes(t *testing.T) {
	f := newIngestionFixture(t, false)
	started, release := f.fetcher.hold()
	defer release()

	runDone := f.runInBackground()
	waitFor(t, started, "run to start fetching")

	type clearResult struct {
		n   int
		err error
	}
	clearDone := make(chan clearResult, 1)
	go func() {
		n, err := f.ingestion.Clear(context.Background())
		clearDone <- clearResult{n, err}
	}()

	select {
	case res := <-clearDone:
		t.Fatalf("Clear returned while a run was active: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	release()
	run := waitFor(t, runDone, "run")
	if run.err != nil || run.report.Written != 4 {
		t.Fatalf("run = %+v, %v", run.report, run.err)
	}

	cleared := waitFor(t, clearDone, "clear")
	if cleared.err != nil {
		t.Fatalf("Clear: %v", cleared.err)
	}
	if cleared.n != 4 {
		t.Errorf("cleared %d rows, want the 4 written by the run", cleared.n)
	}
	if rows := f.list(t); len(rows) != 0 {
		t.Errorf("%d rows left after clear", len(rows))
	}
	if h := f.healthRow(t); h.Status != domain.HealthIdle {
		t.Errorf("status after clear = %s", h.Status)
	}
}

func TestIngestion_RerunDuringRunDoesItsOwnRun(t *testing.T) {
	f := newIngestionFixture(t, false)
	started, release := f.fetcher.hold()
	defer release()

	runDone := f.runInBackground()
	waitFor(t, started, "run to start fetching")

	// the rerun sees a page without VISA KRÜ; only its clear step removes
	// the row the blocked run is about to write
	f.fetcher.set(standingsURL, withoutRow(standingsPage, "VISA KRÜ"))

	rerunDone := make(chan reportResult, 1)
	go func() {
		report, err := f.ingestion.Rerun(context.Background(), false)
		rerunDone <- reportResult{report, err}
	}()

	release()
	run := waitFor(t, runDone, "run")
	rerun := waitFor(t, rerunDone, "rerun")
	if run.err != nil || rerun.err != nil {
		t.Fatalf("run err %v, rerun err %v", run.err, rerun.err)
	}
	if rerun.report.RunID == run.report.RunID {
		t.Fatalf("rerun joined the active run %s", run.report.RunID)
	}
	if run.report.Written != 4 || rerun.report.Written != 3 {
		t.Errorf("written: run %d, rerun %d", run.report.Written, rerun.report.Written)
	}

	rows := f.list(t)
	if len(rows) != 3 {
		t.Fatalf("stored %d rows, want 3 after the rerun cleared first", len(rows))
	}
	for _, r := range rows {
		if r.Team == "KRÜ" {
			t.Errorf("row from the earlier run survived the rerun: %+v", r)
		}
	}
	if h := f.healthRow(t); h.TotalRuns != 2 || h.SuccessCount != 2 {
		t.Errorf("health = %+v", h)
	}
}

func TestIngestion_ConcurrentRunsShareOneRun(t *testing.T) {
	f := newIngestionFixture(t, false)
	started, release := f.fetcher.hold()
	defer release()

	first := f.runInBackground()
	waitFor(t, started, "run to start fetching")
	second := f.runInBackground()

	// give the second caller time to join before the fetch completes
	time.Sleep(50 * time.Millisecond)
	release()

	a := waitFor(t, first, "first run")
	b := waitFor(t, second, "second run")
	if a.err != nil || b.err != nil {
		t.Fatalf("errors: %v, %v", a.err, b.err)
	}
	if a.report.RunID != b.report.RunID {
		t.Errorf("runs not shared: %s vs %s", a.report.RunID, b.report.RunID)
	}
	if h := f.healthRow(t); h.TotalRuns != 1 {
		t.Errorf("total runs = %d, want 1", h.TotalRuns)
	}
}
