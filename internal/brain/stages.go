package brain

import (
	"context"
	"errors"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/internal/s0_data/collector"
	"github.com/wonny/recap/backend/internal/s1_returns"
	"github.com/wonny/recap/backend/internal/s3_report"
)

// track wraps a stage body with start/finish events and the run's stage log
func (o *Orchestrator) track(ctx context.Context, run *contracts.PipelineRun, stage contracts.Stage, body func() contracts.PipelineResult) {
	o.sink.StageStarted(ctx, run.ID(), stage)
	start := o.clock.Now()

	res := body()
	res.Stage = stage
	res.StartedAt = start
	res.Duration = o.clock.Now().Sub(start).Milliseconds()

	o.warn(run.RecordStage(res), "Record stage result")
	o.sink.StageFinished(ctx, run.ID(), res)
}

// warn logs a write the run refused (it only refuses once finalized)
func (o *Orchestrator) warn(err error, msg string) {
	if err != nil {
		o.logger.WithError(err).Warn(msg)
	}
}

func (o *Orchestrator) onFailure(ctx context.Context, runID string) collector.FailureFunc {
	return func(f contracts.FetchFailure) {
		o.sink.FetchFailed(ctx, runID, f)
	}
}

// runPrices executes S0_PRICES
func (o *Orchestrator) runPrices(ctx context.Context, run *contracts.PipelineRun, instruments []contracts.Instrument) *contracts.PriceSet {
	var set *contracts.PriceSet
	o.track(ctx, run, contracts.StagePrices, func() contracts.PipelineResult {
		var results []collector.FetchResult
		set, results = o.collector.FetchPrices(ctx, instruments, collector.PriceConfig{
			Window:       o.cfg.Fetch.Window(run.Date()),
			LookbackDays: o.cfg.Fetch.LookbackDays,
			RequestDelay: o.cfg.Fetch.RequestDelay,
			Policy:       o.cfg.Fetch.PricePolicy(o.clock),
			OnFailure:    o.onFailure(ctx, run.ID()),
		})

		ok, bars := 0, 0
		var failed []string
		for _, r := range results {
			r := r
			o.warn(run.UpdateOutcome(r.Instrument, func(out *contracts.InstrumentOutcome) {
				out.PricesOK = r.OK()
				out.PriceAttempts = r.Attempts
				out.Bars = r.Count
				if r.Error != nil {
					out.PriceError = r.Error.Error()
				}
			}), "Update price outcome")
			if r.OK() {
				ok++
				bars += r.Count
			} else {
				failed = append(failed, r.Instrument)
			}
		}
		o.warn(run.SetPrices(set), "Store prices")

		return contracts.PipelineResult{
			Success:     true,
			InputCount:  len(instruments),
			OutputCount: ok,
			Metadata: map[string]interface{}{
				"bars":    bars,
				"failed":  failed,
				"success": ok,
			},
		}
	})
	return set
}

// runNews executes S0_NEWS
func (o *Orchestrator) runNews(ctx context.Context, run *contracts.PipelineRun, instruments []contracts.Instrument) *contracts.NewsSet {
	var set *contracts.NewsSet
	o.track(ctx, run, contracts.StageNews, func() contracts.PipelineResult {
		var results []collector.FetchResult
		set, results = o.collector.FetchNews(ctx, instruments, collector.NewsConfig{
			Limit:        o.cfg.Fetch.NewsPerInstrument,
			RequestDelay: o.cfg.Fetch.NewsRequestDelay,
			Policy:       o.cfg.Fetch.NewsPolicy(o.clock),
			OnFailure:    o.onFailure(ctx, run.ID()),
		})

		items, withNews := 0, 0
		for _, r := range results {
			r := r
			o.warn(run.UpdateOutcome(r.Instrument, func(out *contracts.InstrumentOutcome) {
				out.NewsOK = r.Error == nil
				out.News = r.Count
				if r.Error != nil {
					out.NewsError = r.Error.Error()
				}
			}), "Update news outcome")
			items += r.Count
			if r.Count > 0 {
				withNews++
			}
		}
		o.warn(run.SetNews(set), "Store news")

		return contracts.PipelineResult{
			Success:     true,
			InputCount:  len(instruments),
			OutputCount: items,
			Metadata: map[string]interface{}{
				"with_news": withNews,
			},
		}
	})
	return set
}

// runReturns executes S1_RETURNS
func (o *Orchestrator) runReturns(ctx context.Context, run *contracts.PipelineRun, prices *contracts.PriceSet) *contracts.ReturnSet {
	var set *contracts.ReturnSet
	o.track(ctx, run, contracts.StageReturns, func() contracts.PipelineResult {
		set = s1_returns.Calculate(prices)
		for _, inst := range set.Instruments() {
			recs, _ := set.Get(inst)
			n := len(recs)
			o.warn(run.UpdateOutcome(inst, func(out *contracts.InstrumentOutcome) { out.Returns = n }), "Update returns outcome")
		}
		o.warn(run.SetReturns(set), "Store returns")

		return contracts.PipelineResult{
			Success:     true,
			InputCount:  prices.Len(),
			OutputCount: s1_returns.Count(set),
		}
	})
	return set
}

// runQuality executes S2_QUALITY
func (o *Orchestrator) runQuality(ctx context.Context, run *contracts.PipelineRun, instruments []contracts.Instrument, prices *contracts.PriceSet, returns *contracts.ReturnSet) contracts.QualityReport {
	var report contracts.QualityReport
	o.track(ctx, run, contracts.StageQuality, func() contracts.PipelineResult {
		report = o.gate.Evaluate(instruments, prices, returns)
		o.warn(run.SetQuality(report), "Store quality report")

		passed := len(report.Checks) - len(report.Failed())
		return contracts.PipelineResult{
			Success:     true,
			InputCount:  len(report.Checks),
			OutputCount: passed,
			Metadata: map[string]interface{}{
				"score":         report.Score,
				"passed":        report.Passed,
				"checks_failed": report.Failed(),
			},
		}
	})
	return report
}

// runReport executes S3_REPORT and hands the recap to every renderer
func (o *Orchestrator) runReport(ctx context.Context, run *contracts.PipelineRun, in s3_report.Input) (*contracts.Recap, []string, error) {
	var (
		recap     *contracts.Recap
		artifacts []string
		stageErr  error
	)
	o.track(ctx, run, contracts.StageReport, func() contracts.PipelineResult {
		res := contracts.PipelineResult{InputCount: len(in.Instruments)}

		recap, stageErr = o.assembler.Assemble(in)
		if stageErr != nil {
			res.Success = errors.Is(stageErr, s3_report.ErrReportWithheld)
			res.Error = stageErr.Error()
			res.Metadata = map[string]interface{}{"withheld": true}
			return res
		}

		for _, r := range o.renderers {
			path, err := r.Render(ctx, recap)
			if err != nil {
				stageErr = err
				res.Error = err.Error()
				return res
			}
			artifacts = append(artifacts, path)
		}
		o.warn(run.SetRecap(recap, artifacts), "Store recap")

		res.Success = true
		res.OutputCount = len(artifacts)
		res.Metadata = map[string]interface{}{
			"status":    recap.Status,
			"artifacts": artifacts,
			"top":       len(recap.TopMovers),
		}
		return res
	})
	return recap, artifacts, stageErr
}
