package contracts

import (
	"context"
	"time"
)

// FetchWindow bounds a price request
type FetchWindow struct {
	From time.Time
	To   time.Time
}

// PriceSource fetches price bars for one instrument (one network attempt)
// ⭐ SSOT: 재시도/백오프는 호출자(collector) 책임
type PriceSource interface {
	FetchBars(ctx context.Context, instrument Instrument, window FetchWindow) (PriceSeries, error)
}

// NewsSource fetches up to limit news items for one instrument (one network attempt)
type NewsSource interface {
	FetchNews(ctx context.Context, instrument Instrument, limit int) ([]NewsItem, error)
}

// EventSink receives observability events from the pipeline driver
// ⭐ SSOT: 드라이버는 특정 UI/모니터링에 의존하지 않음
type EventSink interface {
	StageStarted(ctx context.Context, runID string, stage Stage)
	StageFinished(ctx context.Context, runID string, result PipelineResult)
	FetchFailed(ctx context.Context, runID string, failure FetchFailure)
	RunFinished(ctx context.Context, summary RunSummary)
}

// Renderer turns a recap into an artifact and returns where it was written
type Renderer interface {
	Format() string
	Render(ctx context.Context, recap *Recap) (string, error)
}
