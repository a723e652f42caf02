package monitor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wonny/recap/backend/internal/contracts"
)

// MetricsSink records pipeline events as Prometheus metrics
type MetricsSink struct {
	stageDuration *prometheus.HistogramVec
	stageRuns     *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	runs          *prometheus.CounterVec
	qualityScore  prometheus.Gauge
	rulePassed    *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// NewMetricsSink registers the recap metrics on reg
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	factory := promauto.With(reg)
	return &MetricsSink{
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recap_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		stageRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recap_stage_runs_total",
				Help: "Total number of stage executions by result",
			},
			[]string{"stage", "result"},
		),
		fetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recap_fetch_failures_total",
				Help: "Total number of instruments whose fetch gave up",
			},
			[]string{"stage"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recap_runs_total",
				Help: "Total number of pipeline runs by terminal status",
			},
			[]string{"status"},
		),
		qualityScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "recap_quality_score",
			Help: "Quality gate score of the last evaluated run",
		}),
		rulePassed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "recap_quality_rule_passed",
				Help: "1 if the rule passed in the last evaluated run, else 0",
			},
			[]string{"rule"},
		),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "recap_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

func (m *MetricsSink) StageStarted(ctx context.Context, runID string, stage contracts.Stage) {}

func (m *MetricsSink) StageFinished(ctx context.Context, runID string, res contracts.PipelineResult) {
	result := "success"
	if !res.Success {
		result = "error"
	}
	m.stageRuns.WithLabelValues(string(res.Stage), result).Inc()
	m.stageDuration.WithLabelValues(string(res.Stage)).Observe((time.Duration(res.Duration) * time.Millisecond).Seconds())
}

func (m *MetricsSink) FetchFailed(ctx context.Context, runID string, f contracts.FetchFailure) {
	m.fetchFailures.WithLabelValues(string(f.Stage)).Inc()
}

func (m *MetricsSink) RunFinished(ctx context.Context, sum contracts.RunSummary) {
	m.runs.WithLabelValues(string(sum.Status)).Inc()
	if !sum.FinishedAt.IsZero() {
		m.lastRun.Set(float64(sum.FinishedAt.Unix()))
	}
	if sum.Quality == nil {
		return
	}
	m.qualityScore.Set(sum.Quality.Score)
	for _, c := range sum.Quality.Checks {
		v := 0.0
		if c.Passed {
			v = 1
		}
		m.rulePassed.WithLabelValues(c.Rule).Set(v)
	}
}
