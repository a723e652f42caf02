package brain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/internal/render"
	"github.com/wonny/recap/backend/internal/s2_quality"
	"github.com/wonny/recap/backend/internal/s3_report"
	"github.com/wonny/recap/backend/internal/universe"
	"github.com/wonny/recap/backend/pkg/logger"
)

var runDate = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

func bar(inst string, day int, close float64) contracts.PriceBar {
	return contracts.PriceBar{
		Instrument: inst,
		Date:       time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Open:       null.FloatFrom(close),
		High:       null.FloatFrom(close),
		Low:        null.FloatFrom(close),
		Close:      null.FloatFrom(close),
		Volume:     null.IntFrom(1000),
	}
}

// stubPrices answers from a fixed table; instruments missing from it fail
type stubPrices struct {
	mu    sync.Mutex
	bars  map[string]contracts.PriceSeries
	calls map[string]int
	wait  <-chan struct{} // blocks every call until closed (or ctx done)
}

func (s *stubPrices) FetchBars(ctx context.Context, inst contracts.Instrument, w contracts.FetchWindow) (contracts.PriceSeries, error) {
	if s.wait != nil {
		select {
		case <-s.wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[inst]++

	series, ok := s.bars[inst]
	if !ok {
		return nil, errors.New("upstream unavailable")
	}
	return series, nil
}

func (s *stubPrices) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

type stubNews struct {
	once    sync.Once
	started chan struct{}
}

func (s *stubNews) FetchNews(ctx context.Context, inst contracts.Instrument, limit int) ([]contracts.NewsItem, error) {
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
	}
	return []contracts.NewsItem{
		{Instrument: inst, Title: inst + " rallies", Publisher: "Wire", Link: "https://news.example/" + inst + "/1"},
		{Instrument: inst, Title: inst + " slips", Publisher: "Wire", Link: "https://news.example/" + inst + "/2"},
	}, nil
}

type recordingSink struct {
	mu       sync.Mutex
	started  []contracts.Stage
	finished []contracts.PipelineResult
	failures []contracts.FetchFailure
	runs     []contracts.RunSummary
}

func (r *recordingSink) StageStarted(ctx context.Context, runID string, stage contracts.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, stage)
}

func (r *recordingSink) StageFinished(ctx context.Context, runID string, res contracts.PipelineResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, res)
}

func (r *recordingSink) FetchFailed(ctx context.Context, runID string, f contracts.FetchFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *recordingSink) RunFinished(ctx context.Context, sum contracts.RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, sum)
}

func testConfig(instruments ...string) *universe.Config {
	cfg := universe.Default()
	cfg.Instruments = instruments
	cfg.Fetch.RequestDelay = 0
	cfg.Fetch.NewsRequestDelay = 0
	cfg.Fetch.RetryDelay = time.Millisecond
	cfg.Run.Timeout = 5 * time.Second
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *universe.Config, prices *stubPrices, news *stubNews, sink *recordingSink) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	return NewOrchestrator(cfg, Deps{
		Prices:    prices,
		News:      news,
		Renderers: []contracts.Renderer{render.NewJSONRenderer(dir, logger.Nop())},
		Sink:      sink,
		Logger:    logger.Nop(),
	}), dir
}

func assertNoArtifacts(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Empty(t, names, "output dir must stay empty")
}

// failingRenderer always fails, like a full disk
type failingRenderer struct{ err error }

func (r failingRenderer) Format() string { return render.FormatPDF }

func (r failingRenderer) Render(ctx context.Context, recap *contracts.Recap) (string, error) {
	return "", r.err
}

// lateRenderer writes through next, then holds until the run deadline passes
type lateRenderer struct{ next contracts.Renderer }

func (r lateRenderer) Format() string { return r.next.Format() }

func (r lateRenderer) Render(ctx context.Context, recap *contracts.Recap) (string, error) {
	path, err := r.next.Render(ctx, recap)
	if err != nil {
		return "", err
	}
	<-ctx.Done()
	return path, nil
}

func cleanPrices() *stubPrices {
	return &stubPrices{bars: map[string]contracts.PriceSeries{
		"AAPL": {bar("AAPL", 4, 100), bar("AAPL", 5, 102)},
		"MSFT": {bar("MSFT", 4, 200), bar("MSFT", 5, 198)},
	}}
}

func TestRun_AllChecksPass(t *testing.T) {
	prices := &stubPrices{bars: map[string]contracts.PriceSeries{
		"AAPL": {bar("AAPL", 4, 100), bar("AAPL", 5, 102)},
		"MSFT": {bar("MSFT", 4, 200), bar("MSFT", 5, 198)},
		"SPY":  {bar("SPY", 4, 400), bar("SPY", 5, 404)},
	}}
	sink := &recordingSink{}
	o, dir := newTestOrchestrator(t, testConfig("AAPL", "MSFT", "SPY"), prices, &stubNews{}, sink)

	result, err := o.Run(context.Background(), RunConfig{Date: runDate, RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, contracts.RunCompleted, result.Status)
	assert.Equal(t, "run-1", result.RunID)
	require.NotNil(t, result.Quality)
	assert.True(t, result.Quality.Passed)
	assert.InDelta(t, 1.0, result.Quality.Score, 1e-9)

	require.NotNil(t, result.Recap)
	assert.Equal(t, contracts.ReportClean, result.Recap.Status)
	assert.Equal(t, "AAPL", result.Recap.TopMovers[0].Instrument)
	assert.Len(t, result.Recap.Headlines, 3)
	assert.Len(t, result.CompletedStages, 5)

	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, render.Path(dir, runDate, render.FormatJSON), result.Artifacts[0])
	_, statErr := os.Stat(result.Artifacts[0])
	assert.NoError(t, statErr)

	// 이벤트: 5개 스테이지 시작/종료, 실행 종료 1회
	assert.ElementsMatch(t, contracts.AllStages(), sink.started)
	assert.Len(t, sink.finished, 5)
	assert.Empty(t, sink.failures)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, contracts.RunCompleted, sink.runs[0].Status)
	assert.Equal(t, contracts.ReportClean, sink.runs[0].Report)
	require.Len(t, sink.runs[0].Instruments, 3)
	for _, out := range sink.runs[0].Instruments {
		assert.True(t, out.PricesOK, out.Instrument)
		assert.Equal(t, 1, out.Returns, out.Instrument)
		assert.Equal(t, 2, out.News, out.Instrument)
	}
}

func TestRun_PartialFetchFailure(t *testing.T) {
	// AAPL: 2 bars, MSFT: always fails, SPY: 1 bar
	prices := &stubPrices{bars: map[string]contracts.PriceSeries{
		"AAPL": {bar("AAPL", 4, 100), bar("AAPL", 5, 101)},
		"SPY":  {bar("SPY", 5, 400)},
	}}
	sink := &recordingSink{}
	cfg := testConfig("AAPL", "MSFT", "SPY")
	o, dir := newTestOrchestrator(t, cfg, prices, &stubNews{}, sink)

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.NoError(t, err, "degraded runs are not failures")

	assert.Equal(t, contracts.RunDegraded, result.Status)
	assert.ErrorIs(t, result.Error, s3_report.ErrReportWithheld)
	assert.Nil(t, result.Recap)
	assert.Empty(t, result.Artifacts)
	assertNoArtifacts(t, dir)

	require.NotNil(t, result.Quality)
	assert.False(t, result.Quality.Passed)
	assert.Contains(t, result.Quality.Failed(), s2_quality.RuleCompleteness)
	assert.Contains(t, result.Quality.Checks[0].Detail, "MSFT")

	// 재시도 소진 후 1건의 실패 이벤트
	require.Len(t, sink.failures, 1)
	assert.Equal(t, "MSFT", sink.failures[0].Instrument)
	assert.Equal(t, cfg.Fetch.MaxRetries, sink.failures[0].Attempts)
	assert.Equal(t, cfg.Fetch.MaxRetries, prices.calls["MSFT"])

	summary := sink.runs[0]
	assert.Equal(t, contracts.RunDegraded, summary.Status)
	total := 0
	for _, out := range summary.Instruments {
		total += out.Returns
		if out.Instrument == "MSFT" {
			assert.False(t, out.PricesOK)
			assert.NotEmpty(t, out.PriceError)
		}
	}
	assert.Equal(t, 1, total)
}

func TestRun_MarkPolicyProducesDegradedRecap(t *testing.T) {
	prices := &stubPrices{bars: map[string]contracts.PriceSeries{
		"AAPL": {bar("AAPL", 4, 100), bar("AAPL", 5, 101)},
		"BRK":  {bar("BRK", 4, 1999000), bar("BRK", 5, 2000000)},
	}}
	cfg := testConfig("AAPL", "BRK")
	cfg.Report.Policy = universe.PolicyMark
	o, _ := newTestOrchestrator(t, cfg, prices, &stubNews{}, &recordingSink{})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.NoError(t, err)

	assert.Equal(t, contracts.RunDegraded, result.Status)
	assert.NoError(t, result.Error)
	require.NotNil(t, result.Recap)
	assert.Equal(t, contracts.ReportDegraded, result.Recap.Status)
	assert.Contains(t, result.Recap.Banner, s2_quality.RulePriceRange)
	assert.Len(t, result.Artifacts, 1)
	assert.Equal(t, []string{s2_quality.RulePriceRange}, result.Quality.Failed())
	assert.Contains(t, result.Quality.Checks[1].Detail, "BRK")
}

func TestRun_OutlierAlone(t *testing.T) {
	prices := &stubPrices{bars: map[string]contracts.PriceSeries{
		"AAPL": {bar("AAPL", 4, 100), bar("AAPL", 5, 175)},
		"MSFT": {bar("MSFT", 4, 200), bar("MSFT", 5, 201)},
	}}
	o, dir := newTestOrchestrator(t, testConfig("AAPL", "MSFT"), prices, &stubNews{}, &recordingSink{})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.NoError(t, err)

	require.NotNil(t, result.Quality)
	assert.Equal(t, []string{s2_quality.RuleOutliers}, result.Quality.Failed())
	assert.InDelta(t, 0.8, result.Quality.Score, 1e-9)
	assert.Equal(t, contracts.RunDegraded, result.Status)
	assert.Nil(t, result.Recap, "never emitted clean when quality failed")
	assertNoArtifacts(t, dir)
}

func TestRun_InvalidConfig(t *testing.T) {
	prices := &stubPrices{bars: map[string]contracts.PriceSeries{}}
	sink := &recordingSink{}
	cfg := testConfig()
	o, _ := newTestOrchestrator(t, cfg, prices, &stubNews{}, sink)

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.Error(t, err)
	assert.True(t, universe.IsConfigError(err))

	assert.Equal(t, contracts.RunFailed, result.Status)
	assert.Zero(t, prices.total(), "no fetch before validation")
	assert.Empty(t, sink.started)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, contracts.RunFailed, sink.runs[0].Status)
	assert.NotEmpty(t, sink.runs[0].Error)
}

func TestRun_MissingSource(t *testing.T) {
	o := NewOrchestrator(testConfig("AAPL"), Deps{Prices: &stubPrices{}})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.Error(t, err)
	assert.Equal(t, contracts.RunFailed, result.Status)
}

func TestRun_Timeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	prices := &stubPrices{
		bars: map[string]contracts.PriceSeries{"AAPL": {bar("AAPL", 4, 1), bar("AAPL", 5, 1)}},
		wait: block,
	}
	sink := &recordingSink{}
	cfg := testConfig("AAPL")
	cfg.Run.Timeout = 50 * time.Millisecond
	o, _ := newTestOrchestrator(t, cfg, prices, &stubNews{}, sink)

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.ErrorIs(t, err, ErrRunTimeout)

	assert.Equal(t, contracts.RunFailed, result.Status)
	assert.Nil(t, result.Quality)
	assert.Nil(t, result.Recap)
	assert.Empty(t, result.CompletedStages)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, contracts.RunFailed, sink.runs[0].Status)
	assert.Equal(t, ErrRunTimeout.Error(), sink.runs[0].Error)
}

func TestRun_RendererFailureRemovesWrittenArtifacts(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	o := NewOrchestrator(testConfig("AAPL", "MSFT"), Deps{
		Prices: cleanPrices(),
		News:   &stubNews{},
		Renderers: []contracts.Renderer{
			render.NewJSONRenderer(dir, logger.Nop()),
			failingRenderer{err: errors.New("disk full")},
		},
		Sink:   sink,
		Logger: logger.Nop(),
	})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.EqualError(t, err, "disk full")

	assert.Equal(t, contracts.RunFailed, result.Status)
	assert.Nil(t, result.Recap)
	assert.Empty(t, result.Artifacts)
	assertNoArtifacts(t, dir)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, contracts.RunFailed, sink.runs[0].Status)
	assert.Empty(t, sink.runs[0].Artifacts)
}

func TestRun_TimeoutAfterRenderRemovesArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("AAPL", "MSFT")
	cfg.Run.Timeout = 100 * time.Millisecond
	o := NewOrchestrator(cfg, Deps{
		Prices:    cleanPrices(),
		News:      &stubNews{},
		Renderers: []contracts.Renderer{lateRenderer{next: render.NewJSONRenderer(dir, logger.Nop())}},
		Logger:    logger.Nop(),
	})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.ErrorIs(t, err, ErrRunTimeout)

	assert.Equal(t, contracts.RunFailed, result.Status)
	assert.Empty(t, result.Artifacts)
	assertNoArtifacts(t, dir)
}

func TestStages_RefusedWritesAreLogged(t *testing.T) {
	var buf bytes.Buffer
	o := NewOrchestrator(testConfig("AAPL"), Deps{
		Prices: &stubPrices{},
		News:   &stubNews{},
		Logger: logger.NewWithWriter(&buf, "info", "test"),
	})
	run := contracts.NewPipelineRun("run-1", runDate, []contracts.Instrument{"AAPL"}, time.Now())
	require.NoError(t, run.Finalize(contracts.RunFailed, errors.New("cancelled"), time.Now()))

	prices := contracts.NewPriceSet()
	prices.Set("AAPL", contracts.PriceSeries{bar("AAPL", 4, 100), bar("AAPL", 5, 101)})
	o.runReturns(context.Background(), run, prices)

	out := buf.String()
	assert.Contains(t, out, "Store returns")
	assert.Contains(t, out, "Update returns outcome")
	assert.Contains(t, out, "Record stage result")
	assert.Contains(t, out, contracts.ErrRunFinalized.Error())
}

func TestRun_FetchersRunConcurrently(t *testing.T) {
	// 가격 fetcher는 뉴스 fetcher가 시작되어야 진행됨
	newsStarted := make(chan struct{})
	prices := &stubPrices{
		bars: map[string]contracts.PriceSeries{"AAPL": {bar("AAPL", 4, 10), bar("AAPL", 5, 11)}},
		wait: newsStarted,
	}
	news := &stubNews{started: newsStarted}
	cfg := testConfig("AAPL")
	cfg.Run.Timeout = 2 * time.Second
	o, _ := newTestOrchestrator(t, cfg, prices, news, &recordingSink{})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.NoError(t, err)
	assert.Equal(t, contracts.RunCompleted, result.Status)
}

func TestRun_SequentialFetch(t *testing.T) {
	prices := &stubPrices{bars: map[string]contracts.PriceSeries{
		"AAPL": {bar("AAPL", 4, 10), bar("AAPL", 5, 11)},
	}}
	cfg := testConfig("AAPL")
	cfg.Run.ConcurrentFetch = false
	sink := &recordingSink{}
	o, _ := newTestOrchestrator(t, cfg, prices, &stubNews{}, sink)

	result, err := o.Run(context.Background(), RunConfig{Date: runDate})
	require.NoError(t, err)
	assert.Equal(t, contracts.RunCompleted, result.Status)
	assert.Equal(t, []contracts.Stage{
		contracts.StagePrices, contracts.StageNews, contracts.StageReturns,
		contracts.StageQuality, contracts.StageReport,
	}, sink.started)
}

func TestRun_CancelledByCaller(t *testing.T) {
	prices := &stubPrices{bars: map[string]contracts.PriceSeries{}}
	o, _ := newTestOrchestrator(t, testConfig("AAPL"), prices, &stubNews{}, &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx, RunConfig{Date: runDate})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRunTimeout)
	assert.Equal(t, contracts.RunFailed, result.Status)
}

func TestGenerateRunID(t *testing.T) {
	a := GenerateRunID(runDate)
	b := GenerateRunID(runDate)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, fmt.Sprintf("recap-%s-", runDate.Format("20060102")))
}

func TestReady(t *testing.T) {
	done := map[contracts.Stage]bool{contracts.StagePrices: true}
	assert.NoError(t, ready(done, contracts.StageReturns))
	assert.Error(t, ready(done, contracts.StageQuality))
}
