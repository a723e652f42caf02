package monitor

import (
	"context"

	"github.com/wonny/recap/backend/internal/contracts"
)

// Fanout forwards every event to each sink in order
type Fanout []contracts.EventSink

// NewFanout drops nil sinks
func NewFanout(sinks ...contracts.EventSink) Fanout {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f Fanout) StageStarted(ctx context.Context, runID string, stage contracts.Stage) {
	for _, s := range f {
		s.StageStarted(ctx, runID, stage)
	}
}

func (f Fanout) StageFinished(ctx context.Context, runID string, res contracts.PipelineResult) {
	for _, s := range f {
		s.StageFinished(ctx, runID, res)
	}
}

func (f Fanout) FetchFailed(ctx context.Context, runID string, failure contracts.FetchFailure) {
	for _, s := range f {
		s.FetchFailed(ctx, runID, failure)
	}
}

func (f Fanout) RunFinished(ctx context.Context, sum contracts.RunSummary) {
	for _, s := range f {
		s.RunFinished(ctx, sum)
	}
}

// Nop discards every event
type Nop struct{}

func (Nop) StageStarted(context.Context, string, contracts.Stage)           {}
func (Nop) StageFinished(context.Context, string, contracts.PipelineResult) {}
func (Nop) FetchFailed(context.Context, string, contracts.FetchFailure)     {}
func (Nop) RunFinished(context.Context, contracts.RunSummary)               {}
