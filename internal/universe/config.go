package universe

import (
	"time"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/retry"
)

// Config is the instrument universe plus every pipeline tuning knob
// ⭐ SSOT: 종목/임계값/재시도 정책은 모두 이 구조체로만 주입 (전역 상태 금지)
type Config struct {
	Instruments []string      `yaml:"instruments" json:"instruments" validate:"required,min=1,unique,dive,required"`
	Fetch       FetchConfig   `yaml:"fetch" json:"fetch"`
	Quality     QualityConfig `yaml:"quality" json:"quality"`
	Report      ReportConfig  `yaml:"report" json:"report"`
	Run         RunConfig     `yaml:"run" json:"run"`
}

// FetchConfig controls both fetchers
type FetchConfig struct {
	LookbackDays      int           `yaml:"lookback_days" json:"lookback_days" default:"2" validate:"gte=1"`
	CalendarDays      int           `yaml:"calendar_days" json:"calendar_days" default:"7" validate:"gte=1"`
	NewsPerInstrument int           `yaml:"news_per_instrument" json:"news_per_instrument" default:"3" validate:"gte=0,lte=50"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries" default:"3" validate:"gte=1,lte=10"`
	NewsMaxRetries    int           `yaml:"news_max_retries" json:"news_max_retries" default:"1" validate:"gte=1,lte=10"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay" default:"2s" validate:"gte=0"`
	Backoff           string        `yaml:"backoff" json:"backoff" default:"fixed" validate:"oneof=fixed exponential"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay" json:"max_retry_delay" default:"30s" validate:"gte=0"`
	RequestDelay      time.Duration `yaml:"request_delay" json:"request_delay" default:"1s" validate:"gte=0"`
	NewsRequestDelay  time.Duration `yaml:"news_request_delay" json:"news_request_delay" default:"300ms" validate:"gte=0"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout" default:"30s" validate:"gt=0"`
}

// QualityConfig holds the quality gate thresholds
type QualityConfig struct {
	MinCompleteness float64 `yaml:"min_completeness" json:"min_completeness" default:"0.8" validate:"gte=0,lte=1"`
	MinPrice        float64 `yaml:"min_price" json:"min_price" default:"0.01" validate:"gt=0"`
	MaxPrice        float64 `yaml:"max_price" json:"max_price" default:"1000000" validate:"gt=0"`
	MaxReturnPct    float64 `yaml:"max_return_pct" json:"max_return_pct" default:"50" validate:"gt=0"`
	PassThreshold   float64 `yaml:"pass_threshold" json:"pass_threshold" default:"1.0" validate:"gte=0,lte=1"`
}

// Report policies applied when the quality gate fails
const (
	PolicyWithhold = "withhold"
	PolicyMark     = "mark"
)

// ReportConfig controls recap assembly and rendering
type ReportConfig struct {
	TopN      int      `yaml:"top_n" json:"top_n" default:"5" validate:"gte=1,lte=100"`
	Policy    string   `yaml:"policy" json:"policy" default:"withhold" validate:"oneof=withhold mark"`
	OutputDir string   `yaml:"output_dir" json:"output_dir" default:"outputs" validate:"required"`
	Formats   []string `yaml:"formats" json:"formats" default:"[\"pdf\"]" validate:"min=1,dive,oneof=pdf json"`
}

// RunConfig controls a whole pipeline execution
type RunConfig struct {
	Timeout         time.Duration `yaml:"timeout" json:"timeout" default:"10m" validate:"gt=0"`
	ConcurrentFetch bool          `yaml:"concurrent_fetch" json:"concurrent_fetch" default:"true"`
}

// InstrumentList returns a copy of the configured tickers
func (c *Config) InstrumentList() []contracts.Instrument {
	out := make([]contracts.Instrument, len(c.Instruments))
	copy(out, c.Instruments)
	return out
}

// Window returns the calendar window ending on (and including) date
func (f FetchConfig) Window(date time.Time) contracts.FetchWindow {
	end := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).AddDate(0, 0, 1)
	return contracts.FetchWindow{
		From: end.AddDate(0, 0, -f.CalendarDays),
		To:   end,
	}
}

// PricePolicy builds the retry policy used by the price fetcher
func (f FetchConfig) PricePolicy(clock retry.Clock) retry.Policy {
	return retry.Policy{
		MaxAttempts: f.MaxRetries,
		Delay:       f.RetryDelay,
		Backoff:     retry.Backoff(f.Backoff),
		MaxDelay:    f.MaxRetryDelay,
		Clock:       clock,
	}
}

// NewsPolicy builds the retry policy used by the news fetcher
func (f FetchConfig) NewsPolicy(clock retry.Clock) retry.Policy {
	p := f.PricePolicy(clock)
	p.MaxAttempts = f.NewsMaxRetries
	return p
}
