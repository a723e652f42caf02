package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/retry"
)

// NewsConfig holds news fetch configuration
type NewsConfig struct {
	Limit        int // 종목당 최대 뉴스 수
	RequestDelay time.Duration
	Policy       retry.Policy
	OnFailure    FailureFunc
}

// FetchNews fetches at most Limit items per instrument, sequentially.
// Failure for one instrument leaves it with no items.
func (c *Collector) FetchNews(ctx context.Context, instruments []contracts.Instrument, cfg NewsConfig) (*contracts.NewsSet, []FetchResult) {
	c.logger.WithFields(map[string]interface{}{
		"instruments": len(instruments),
		"limit":       cfg.Limit,
	}).Info("Starting news collection")

	set := contracts.NewNewsSet()
	results := make([]FetchResult, 0, len(instruments))
	pace := newPacer(cfg.RequestDelay, cfg.Policy.Clock)
	policy := withDefaults(cfg.Policy)

	for _, inst := range instruments {
		result := FetchResult{Instrument: inst}

		if cfg.Limit <= 0 {
			set.Set(inst, []contracts.NewsItem{})
			results = append(results, result)
			continue
		}

		var fetched []contracts.NewsItem
		attempts, err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
			if err := pace.Wait(ctx); err != nil {
				return retry.Permanent(fmt.Errorf("pacing: %w", err))
			}
			items, err := c.news.FetchNews(ctx, inst, cfg.Limit)
			if err != nil {
				return err
			}
			fetched = items
			return nil
		})
		result.Attempts = attempts

		if err != nil {
			result.Error = err
			set.Set(inst, []contracts.NewsItem{})
			results = append(results, result)

			c.logger.WithError(err).WithField("instrument", inst).Warn("News fetch failed")
			if cfg.OnFailure != nil {
				cfg.OnFailure(contracts.FetchFailure{
					Stage:      contracts.StageNews,
					Instrument: inst,
					Attempts:   attempts,
					Error:      err.Error(),
				})
			}
			continue
		}

		items, dropped := Dedup(inst, fetched, cfg.Limit)
		result.Count = len(items)
		result.Dropped = dropped
		set.Set(inst, items)
		results = append(results, result)
	}

	withNews := 0
	for _, r := range results {
		if r.Count > 0 {
			withNews++
		}
	}
	c.logger.WithFields(map[string]interface{}{
		"with_news": withNews,
		"total":     len(results),
	}).Info("News collection completed")

	return set, results
}

// Dedup keeps the first occurrence of each link in feed order, drops items
// with no title or link, then caps the result at limit
func Dedup(inst contracts.Instrument, items []contracts.NewsItem, limit int) ([]contracts.NewsItem, int) {
	seen := make(map[string]struct{}, len(items))
	out := make([]contracts.NewsItem, 0, limit)
	dropped := 0

	for _, it := range items {
		link := strings.TrimSpace(it.Link)
		if link == "" || strings.TrimSpace(it.Title) == "" {
			dropped++
			continue
		}
		if _, dup := seen[link]; dup {
			dropped++
			continue
		}
		seen[link] = struct{}{}

		if len(out) >= limit {
			continue
		}
		it.Instrument = inst
		it.Link = link
		out = append(out, it)
	}
	return out, dropped
}
