package collector

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/httputil"
	"github.com/wonny/recap/backend/pkg/logger"
	"github.com/wonny/recap/backend/pkg/retry"
)

// Collector fetches prices and news for the universe
// ⭐ SSOT: 데이터 수집(재시도/페이싱/실패 격리)은 이 패키지에서만
//
// Within one fetcher requests are strictly sequential. FetchPrices and
// FetchNews share no state and may run concurrently with each other.
type Collector struct {
	prices contracts.PriceSource
	news   contracts.NewsSource
	logger *logger.Logger
}

// NewCollector creates a new Collector instance
func NewCollector(prices contracts.PriceSource, news contracts.NewsSource, log *logger.Logger) *Collector {
	return &Collector{
		prices: prices,
		news:   news,
		logger: log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of one instrument's fetch
type FetchResult struct {
	Instrument contracts.Instrument
	Count      int
	Attempts   int
	Dropped    int
	Error      error
}

// OK reports whether the instrument produced data
func (r FetchResult) OK() bool {
	return r.Error == nil && r.Count > 0
}

// FailureFunc receives one record per instrument that gave up.
// It may be called from the price and news fetchers concurrently.
type FailureFunc func(contracts.FetchFailure)

// pacer spaces requests at least delay apart, waiting on the injected clock
type pacer struct {
	limiter *rate.Limiter
	clock   retry.Clock
}

func newPacer(delay time.Duration, clock retry.Clock) *pacer {
	if clock == nil {
		clock = retry.SystemClock{}
	}
	limit := rate.Inf
	if delay > 0 {
		// 첫 요청은 즉시, 이후 delay 간격
		limit = rate.Every(delay)
	}
	return &pacer{limiter: rate.NewLimiter(limit, 1), clock: clock}
}

// Wait blocks until the next request may be sent
func (p *pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("request exceeds limiter burst")
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := p.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(p.clock.Now())
		return err
	}
	return nil
}

// withDefaults fills in the error classifier shared by both fetchers
func withDefaults(p retry.Policy) retry.Policy {
	if p.Retryable == nil {
		p.Retryable = func(err error) bool { return !httputil.IsPermanent(err) }
	}
	return p
}

func summarize(results []FetchResult) (ok, failed int) {
	for _, r := range results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
