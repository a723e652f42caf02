package monitor

import (
	"context"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/logger"
)

// LogSink writes pipeline events as structured log lines
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log.WithField("module", "pipeline_events")}
}

func (s *LogSink) StageStarted(ctx context.Context, runID string, stage contracts.Stage) {
	s.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"stage":  stage,
	}).Info("Running " + stage.ShortName() + ": " + stage.Description())
}

func (s *LogSink) StageFinished(ctx context.Context, runID string, res contracts.PipelineResult) {
	fields := map[string]interface{}{
		"run_id":       runID,
		"stage":        res.Stage,
		"success":      res.Success,
		"input_count":  res.InputCount,
		"output_count": res.OutputCount,
		"duration_ms":  res.Duration,
	}
	for k, v := range res.Metadata {
		fields["meta_"+k] = v
	}

	l := s.logger.WithFields(fields)
	if res.Error != "" {
		l.WithField("error", res.Error).Warn(res.Stage.ShortName() + " finished with error")
		return
	}
	l.Info(res.Stage.ShortName() + " completed")
}

func (s *LogSink) FetchFailed(ctx context.Context, runID string, f contracts.FetchFailure) {
	s.logger.WithFields(map[string]interface{}{
		"run_id":     runID,
		"stage":      f.Stage,
		"instrument": f.Instrument,
		"attempts":   f.Attempts,
		"error":      f.Error,
	}).Warn("Instrument fetch exhausted")
}

func (s *LogSink) RunFinished(ctx context.Context, sum contracts.RunSummary) {
	failedPrices := 0
	for _, o := range sum.Instruments {
		if !o.PricesOK {
			failedPrices++
		}
	}

	fields := map[string]interface{}{
		"run_id":        sum.ID,
		"date":          sum.Date,
		"status":        sum.Status,
		"duration_ms":   sum.DurationMs,
		"stages":        len(sum.Stages),
		"failed_prices": failedPrices,
		"artifacts":     sum.Artifacts,
	}
	if sum.Quality != nil {
		fields["quality_score"] = sum.Quality.Score
		fields["quality_passed"] = sum.Quality.Passed
	}

	l := s.logger.WithFields(fields)
	switch sum.Status {
	case contracts.RunFailed:
		l.WithField("error", sum.Error).Error("Pipeline run failed")
	case contracts.RunDegraded:
		l.Warn("Pipeline run degraded")
	default:
		l.Info("Pipeline run completed successfully")
	}
}
