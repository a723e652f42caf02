package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/retry"
)

// ErrEmptySeries is recorded when a source answers without any bars
var ErrEmptySeries = errors.New("no bars returned")

// PriceConfig holds price fetch configuration
type PriceConfig struct {
	Window       contracts.FetchWindow
	LookbackDays int           // bars kept per instrument (last N)
	RequestDelay time.Duration // 요청 간 최소 간격
	Policy       retry.Policy
	OnFailure    FailureFunc
}

// FetchPrices fetches bars for every instrument, one after another.
// A failed instrument gets an empty series; the others are unaffected.
// The returned set follows the input order.
func (c *Collector) FetchPrices(ctx context.Context, instruments []contracts.Instrument, cfg PriceConfig) (*contracts.PriceSet, []FetchResult) {
	c.logger.WithFields(map[string]interface{}{
		"instruments": len(instruments),
		"from":        cfg.Window.From.Format(contracts.DateLayout),
		"to":          cfg.Window.To.Format(contracts.DateLayout),
		"max_retries": cfg.Policy.MaxAttempts,
	}).Info("Starting price collection")

	set := contracts.NewPriceSet()
	results := make([]FetchResult, 0, len(instruments))
	pace := newPacer(cfg.RequestDelay, cfg.Policy.Clock)
	policy := withDefaults(cfg.Policy)

	for _, inst := range instruments {
		series, result := c.fetchSeries(ctx, inst, cfg, policy, pace)
		set.Set(inst, series)
		results = append(results, result)

		if !result.OK() {
			c.logger.WithError(result.Error).WithFields(map[string]interface{}{
				"instrument": inst,
				"attempts":   result.Attempts,
			}).Warn("Price fetch failed")

			if cfg.OnFailure != nil {
				cfg.OnFailure(contracts.FetchFailure{
					Stage:      contracts.StagePrices,
					Instrument: inst,
					Attempts:   result.Attempts,
					Error:      result.Error.Error(),
				})
			}
		}
	}

	ok, failed := summarize(results)
	c.logger.WithFields(map[string]interface{}{
		"success": ok,
		"failed":  failed,
		"total":   len(results),
	}).Info("Price collection completed")

	return set, results
}

func (c *Collector) fetchSeries(ctx context.Context, inst contracts.Instrument, cfg PriceConfig, policy retry.Policy, pace *pacer) (contracts.PriceSeries, FetchResult) {
	result := FetchResult{Instrument: inst}

	var fetched contracts.PriceSeries
	attempts, err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := pace.Wait(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("pacing: %w", err))
		}

		bars, err := c.prices.FetchBars(ctx, inst, cfg.Window)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"instrument": inst,
				"attempt":    attempt,
			}).Debug("Price fetch attempt failed")
			return err
		}
		fetched = bars
		return nil
	})
	result.Attempts = attempts

	if err != nil {
		result.Error = err
		return contracts.PriceSeries{}, result
	}

	series, dropped := clean(inst, fetched, cfg.LookbackDays)
	result.Dropped = dropped
	result.Count = len(series)
	if len(series) == 0 {
		result.Error = ErrEmptySeries
		return contracts.PriceSeries{}, result
	}
	return series, result
}

// clean drops bars that cannot be placed on a date, sorts the rest by date
// and keeps the last n
func clean(inst contracts.Instrument, bars contracts.PriceSeries, n int) (contracts.PriceSeries, int) {
	kept := make(contracts.PriceSeries, 0, len(bars))
	dropped := 0
	for _, b := range bars {
		if b.Date.IsZero() {
			dropped++
			continue
		}
		b.Instrument = inst
		kept = append(kept, b)
	}

	kept = kept.SortedByDate()
	if n > 0 && len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept, dropped
}
