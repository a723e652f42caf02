package brain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/internal/monitor"
	"github.com/wonny/recap/backend/internal/s0_data/collector"
	"github.com/wonny/recap/backend/internal/s2_quality"
	"github.com/wonny/recap/backend/internal/s3_report"
	"github.com/wonny/recap/backend/internal/universe"
	"github.com/wonny/recap/backend/pkg/logger"
	"github.com/wonny/recap/backend/pkg/retry"
)

// ErrRunTimeout is returned when the overall run deadline expires
var ErrRunTimeout = errors.New("pipeline run timed out")

// Deps are the collaborators the orchestrator drives
type Deps struct {
	Prices    contracts.PriceSource
	News      contracts.NewsSource
	Renderers []contracts.Renderer
	Sink      contracts.EventSink
	Clock     retry.Clock
	Logger    *logger.Logger
}

// Orchestrator coordinates the recap pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
//
//	S0_PRICES ─→ S1_RETURNS ─┐
//	S0_NEWS ─────────────────┼─→ S2_QUALITY ─→ S3_REPORT
type Orchestrator struct {
	cfg       *universe.Config
	collector *collector.Collector
	gate      *s2_quality.Gate
	assembler *s3_report.Assembler
	renderers []contracts.Renderer
	sink      contracts.EventSink
	clock     retry.Clock
	logger    *logger.Logger
	err       error // 생성 시점의 wiring 오류
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Date  time.Time
	RunID string
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID           string
	Date            time.Time
	Status          contracts.RunStatus
	Error           error
	CompletedStages []string
	Quality         *contracts.QualityReport
	Recap           *contracts.Recap
	Artifacts       []string
	Summary         contracts.RunSummary
	Duration        time.Duration
}

// NewOrchestrator creates a new orchestrator. cfg is validated at the
// start of every run, so an invalid config yields a FAILED run.
func NewOrchestrator(cfg *universe.Config, deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	sink := deps.Sink
	if sink == nil {
		sink = monitor.Nop{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = retry.SystemClock{}
	}

	o := &Orchestrator{
		cfg:       cfg,
		collector: collector.NewCollector(deps.Prices, deps.News, log),
		renderers: deps.Renderers,
		sink:      sink,
		clock:     clock,
		logger:    log.WithField("module", "orchestrator"),
	}
	if deps.Prices == nil || deps.News == nil {
		o.err = errors.New("orchestrator requires both a price source and a news source")
	}
	if cfg != nil {
		o.gate = s2_quality.NewGate(cfg.Quality, log)
		o.assembler = s3_report.NewAssembler(cfg.Report, log)
	}
	return o
}

// GenerateRunID returns a unique run id carrying the run date
func GenerateRunID(date time.Time) string {
	return fmt.Sprintf("recap-%s-%s", date.Format("20060102"), uuid.NewString()[:8])
}

// Run executes the pipeline once.
// The returned error is non-nil only for FAILED runs; DEGRADED is a
// successful execution whose report was withheld or marked.
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := o.clock.Now()
	if config.Date.IsZero() {
		config.Date = startTime
	}
	if config.RunID == "" {
		config.RunID = GenerateRunID(config.Date)
	}

	var instruments []contracts.Instrument
	if o.cfg != nil {
		instruments = o.cfg.InstrumentList()
	}

	run := contracts.NewPipelineRun(config.RunID, config.Date, instruments, startTime)
	result := &RunResult{
		RunID:           config.RunID,
		Date:            config.Date,
		CompletedStages: make([]string, 0, len(contracts.AllStages())),
	}

	// 0. 설정 검증 (실패 시 fetch 없이 즉시 FAILED)
	if err := universe.Validate(o.cfg); err != nil {
		return o.fail(ctx, run, result, err)
	}
	if o.err != nil {
		return o.fail(ctx, run, result, o.err)
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":      config.RunID,
		"date":        config.Date.Format(contracts.DateLayout),
		"instruments": len(instruments),
		"concurrent":  o.cfg.Run.ConcurrentFetch,
		"timeout":     o.cfg.Run.Timeout.String(),
	}).Info("Starting pipeline run")

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.Run.Timeout)
	defer cancel()

	completed := make(map[contracts.Stage]bool)
	done := func(s contracts.Stage) {
		completed[s] = true
		result.CompletedStages = append(result.CompletedStages, s.ShortName()+":"+string(s))
	}

	// S0: prices ‖ news
	var prices *contracts.PriceSet
	var news *contracts.NewsSet
	if o.cfg.Run.ConcurrentFetch {
		var g errgroup.Group
		g.Go(func() error { prices = o.runPrices(runCtx, run, instruments); return nil })
		g.Go(func() error { news = o.runNews(runCtx, run, instruments); return nil })
		_ = g.Wait()
	} else {
		prices = o.runPrices(runCtx, run, instruments)
		news = o.runNews(runCtx, run, instruments)
	}
	if err := deadline(runCtx); err != nil {
		return o.fail(ctx, run, result, err)
	}
	done(contracts.StagePrices)
	done(contracts.StageNews)

	// S1: returns
	if err := ready(completed, contracts.StageReturns); err != nil {
		return o.fail(ctx, run, result, err)
	}
	returns := o.runReturns(runCtx, run, prices)
	if err := deadline(runCtx); err != nil {
		return o.fail(ctx, run, result, err)
	}
	done(contracts.StageReturns)

	// S2: quality gate
	if err := ready(completed, contracts.StageQuality); err != nil {
		return o.fail(ctx, run, result, err)
	}
	quality := o.runQuality(runCtx, run, instruments, prices, returns)
	result.Quality = &quality
	if err := deadline(runCtx); err != nil {
		return o.fail(ctx, run, result, err)
	}
	done(contracts.StageQuality)

	// S3: report (+ rendering)
	if err := ready(completed, contracts.StageReport); err != nil {
		return o.fail(ctx, run, result, err)
	}
	recap, artifacts, err := o.runReport(runCtx, run, s3_report.Input{
		RunID:       config.RunID,
		Date:        config.Date,
		Instruments: instruments,
		Prices:      prices,
		News:        news,
		Returns:     returns,
		Quality:     quality,
	})
	// 실패 시 fail이 이미 쓰인 산출물을 지운다
	result.Artifacts = artifacts
	if err != nil && !errors.Is(err, s3_report.ErrReportWithheld) {
		return o.fail(ctx, run, result, err)
	}
	if err := deadline(runCtx); err != nil {
		return o.fail(ctx, run, result, err)
	}
	done(contracts.StageReport)
	result.Recap = recap

	status := contracts.RunCompleted
	var cause error
	if !quality.Passed {
		status = contracts.RunDegraded
		cause = err // withheld, or nil when marked
	}
	return o.finish(ctx, run, result, status, cause)
}

// deadline converts an expired run context into the run's failure cause
func deadline(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrRunTimeout
	default:
		return fmt.Errorf("pipeline run cancelled: %w", err)
	}
}

// ready checks that every dependency of stage has completed
func ready(completed map[contracts.Stage]bool, stage contracts.Stage) error {
	for _, dep := range stage.Dependencies() {
		if !completed[dep] {
			return fmt.Errorf("stage %s started before dependency %s", stage, dep)
		}
	}
	return nil
}

// fail finalizes the run as FAILED. A failed run leaves no artifact on disk.
func (o *Orchestrator) fail(ctx context.Context, run *contracts.PipelineRun, result *RunResult, err error) (*RunResult, error) {
	o.discard(result.Artifacts)
	result.Quality = nil
	result.Recap = nil
	result.Artifacts = nil
	res, _ := o.finish(ctx, run, result, contracts.RunFailed, err)
	return res, err
}

func (o *Orchestrator) discard(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			o.logger.WithError(err).WithField("path", path).Warn("Remove artifact of failed run")
			continue
		}
		o.logger.WithField("path", path).Info("Removed artifact of failed run")
	}
}

func (o *Orchestrator) finish(ctx context.Context, run *contracts.PipelineRun, result *RunResult, status contracts.RunStatus, cause error) (*RunResult, error) {
	end := o.clock.Now()
	if err := run.Finalize(status, cause, end); err != nil {
		o.logger.WithError(err).Error("Finalize pipeline run")
	}

	result.Status = status
	result.Error = cause
	result.Duration = end.Sub(run.StartedAt())
	result.Summary = run.Summary()

	// 부모 ctx 기준으로 보고 (run ctx는 만료됐을 수 있음)
	o.sink.RunFinished(context.WithoutCancel(ctx), result.Summary)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"status":   status,
		"duration": result.Duration.Seconds(),
		"stages":   len(result.CompletedStages),
	}).Info("Pipeline run finished")

	if status == contracts.RunFailed {
		return result, cause
	}
	return result, nil
}
