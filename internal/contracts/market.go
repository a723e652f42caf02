package contracts

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Instrument is a ticker symbol, the key joining every dataset of a run
type Instrument = string

// DateLayout is the trading-date key format used in details and artifact names
const DateLayout = "2006-01-02"

// PriceBar is one OHLCV bar for an instrument on a trading date
// ⭐ SSOT: 결측 값은 null로 표현 (Missing-value 규칙의 입력)
type PriceBar struct {
	Instrument Instrument `json:"instrument"`
	Date       time.Time  `json:"date"`
	Open       null.Float `json:"open"`
	High       null.Float `json:"high"`
	Low        null.Float `json:"low"`
	Close      null.Float `json:"close"`
	Volume     null.Int   `json:"volume"`
}

// DateKey returns the bar's trading date as YYYY-MM-DD
func (b PriceBar) DateKey() string {
	return b.Date.Format(DateLayout)
}

// HasMissing reports whether any OHLCV field is absent
func (b PriceBar) HasMissing() bool {
	return !b.Open.Valid || !b.High.Valid || !b.Low.Valid || !b.Close.Valid || !b.Volume.Valid
}

// PriceSeries is the bars of one instrument; empty when the fetch failed
type PriceSeries []PriceBar

// SortedByDate returns a date-ascending copy; the receiver is left untouched
func (s PriceSeries) SortedByDate() PriceSeries {
	out := make(PriceSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// NewsItem is one headline for an instrument
type NewsItem struct {
	Instrument  Instrument `json:"instrument"`
	Title       string     `json:"title"`
	Publisher   string     `json:"publisher"`
	Link        string     `json:"link"`
	PublishedAt time.Time  `json:"published_at"`
	Summary     string     `json:"summary,omitempty"`
}

// Keyed is an instrument-keyed mapping that remembers insertion order
type Keyed[V any] struct {
	keys   []Instrument
	values map[Instrument]V
}

// NewKeyed creates an empty ordered mapping
func NewKeyed[V any]() *Keyed[V] {
	return &Keyed[V]{values: make(map[Instrument]V)}
}

// Set stores v for inst; a new key is appended to the order
func (k *Keyed[V]) Set(inst Instrument, v V) {
	if _, ok := k.values[inst]; !ok {
		k.keys = append(k.keys, inst)
	}
	k.values[inst] = v
}

// Get returns the value for inst and whether it was present
func (k *Keyed[V]) Get(inst Instrument) (V, bool) {
	if k == nil {
		var zero V
		return zero, false
	}
	v, ok := k.values[inst]
	return v, ok
}

// Instruments returns keys in insertion order
func (k *Keyed[V]) Instruments() []Instrument {
	if k == nil {
		return nil
	}
	out := make([]Instrument, len(k.keys))
	copy(out, k.keys)
	return out
}

// Len returns the number of instruments
func (k *Keyed[V]) Len() int {
	if k == nil {
		return 0
	}
	return len(k.keys)
}

// PriceSet maps instrument → PriceSeries in input order
type PriceSet = Keyed[PriceSeries]

// NewsSet maps instrument → []NewsItem in input order
type NewsSet = Keyed[[]NewsItem]

// ReturnSet maps instrument → []ReturnRecord in input order
type ReturnSet = Keyed[[]ReturnRecord]

// NewPriceSet creates an empty PriceSet
func NewPriceSet() *PriceSet { return NewKeyed[PriceSeries]() }

// NewNewsSet creates an empty NewsSet
func NewNewsSet() *NewsSet { return NewKeyed[[]NewsItem]() }

// NewReturnSet creates an empty ReturnSet
func NewReturnSet() *ReturnSet { return NewKeyed[[]ReturnRecord]() }

// ReturnRecord links a bar to the bar immediately before it
// ReturnPct is null when PrevClose is 0 or a close is missing
type ReturnRecord struct {
	Instrument  Instrument `json:"instrument"`
	Date        time.Time  `json:"date"`
	Close       float64    `json:"close"`
	PrevClose   float64    `json:"prev_close"`
	DailyReturn float64    `json:"daily_return"`
	ReturnPct   null.Float `json:"return_pct"`
}

// FetchFailure is emitted once per instrument whose fetch gave up
type FetchFailure struct {
	Stage      Stage      `json:"stage"`
	Instrument Instrument `json:"instrument"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error"`
}
