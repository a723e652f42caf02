package monitor

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/logger"
)

func summary(id string, status contracts.RunStatus) contracts.RunSummary {
	return contracts.RunSummary{
		ID:         id,
		Status:     status,
		FinishedAt: time.Unix(1704480000, 0),
		Quality: &contracts.QualityReport{
			Score: 0.8,
			Checks: []contracts.QualityCheckResult{
				{Rule: "completeness", Passed: true},
				{Rule: "outliers", Passed: false},
			},
		},
	}
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsSink(reg)
	ctx := context.Background()

	m.StageFinished(ctx, "r1", contracts.PipelineResult{Stage: contracts.StagePrices, Success: true, Duration: 1500})
	m.StageFinished(ctx, "r1", contracts.PipelineResult{Stage: contracts.StagePrices, Success: false})
	m.FetchFailed(ctx, "r1", contracts.FetchFailure{Stage: contracts.StagePrices, Instrument: "MSFT"})
	m.FetchFailed(ctx, "r1", contracts.FetchFailure{Stage: contracts.StageNews, Instrument: "MSFT"})
	m.RunFinished(ctx, summary("r1", contracts.RunDegraded))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageRuns.WithLabelValues("S0_PRICES", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageRuns.WithLabelValues("S0_PRICES", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchFailures.WithLabelValues("S0_NEWS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("DEGRADED")))
	assert.Equal(t, 0.8, testutil.ToFloat64(m.qualityScore))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rulePassed.WithLabelValues("outliers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rulePassed.WithLabelValues("completeness")))
	assert.Equal(t, 1704480000.0, testutil.ToFloat64(m.lastRun))

}

type recordingSink struct {
	events []string
}

func (r *recordingSink) StageStarted(ctx context.Context, runID string, stage contracts.Stage) {
	r.events = append(r.events, "start:"+string(stage))
}
func (r *recordingSink) StageFinished(ctx context.Context, runID string, res contracts.PipelineResult) {
	r.events = append(r.events, "finish:"+string(res.Stage))
}
func (r *recordingSink) FetchFailed(ctx context.Context, runID string, f contracts.FetchFailure) {
	r.events = append(r.events, "fail:"+f.Instrument)
}
func (r *recordingSink) RunFinished(ctx context.Context, sum contracts.RunSummary) {
	r.events = append(r.events, "run:"+string(sum.Status))
}

func TestFanout(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	f := NewFanout(a, nil, b, Nop{})
	ctx := context.Background()

	f.StageStarted(ctx, "r", contracts.StageNews)
	f.FetchFailed(ctx, "r", contracts.FetchFailure{Instrument: "AAPL"})
	f.StageFinished(ctx, "r", contracts.PipelineResult{Stage: contracts.StageNews})
	f.RunFinished(ctx, contracts.RunSummary{Status: contracts.RunCompleted})

	want := []string{"start:S0_NEWS", "fail:AAPL", "finish:S0_NEWS", "run:COMPLETED"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
	assert.Len(t, f, 3)
}

func TestRunStore(t *testing.T) {
	s := NewRunStore(2)
	ctx := context.Background()

	_, ok := s.Latest()
	assert.False(t, ok)

	s.StageStarted(ctx, "r1", contracts.StagePrices)
	assert.True(t, s.Running())

	for i := 1; i <= 3; i++ {
		s.RunFinished(ctx, contracts.RunSummary{ID: fmt.Sprintf("r%d", i)})
	}
	assert.False(t, s.Running())

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "r3", latest.ID)

	hist := s.History(0)
	require.Len(t, hist, 2)
	assert.Equal(t, "r3", hist[0].ID)
	assert.Equal(t, "r2", hist[1].ID)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(logger.NewWithWriter(&buf, "debug", "test"))
	ctx := context.Background()

	s.StageStarted(ctx, "r1", contracts.StageQuality)
	s.StageFinished(ctx, "r1", contracts.PipelineResult{
		Stage:    contracts.StageQuality,
		Success:  true,
		Metadata: map[string]interface{}{"score": 0.8},
	})
	s.FetchFailed(ctx, "r1", contracts.FetchFailure{Stage: contracts.StagePrices, Instrument: "MSFT", Attempts: 3})
	s.RunFinished(ctx, summary("r1", contracts.RunFailed))

	out := buf.String()
	assert.Contains(t, out, "Running S2")
	assert.Contains(t, out, `"meta_score":0.8`)
	assert.Contains(t, out, `"instrument":"MSFT"`)
	assert.Contains(t, out, "Pipeline run failed")
}
