package contracts

import (
	"errors"
	"sync"
	"time"
)

// RunStatus is the lifecycle state of a PipelineRun
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunDegraded  RunStatus = "DEGRADED"
	RunFailed    RunStatus = "FAILED"
)

// IsTerminal reports whether no further transition is possible
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunDegraded || s == RunFailed
}

// ErrRunFinalized is returned by every mutation attempted after Finalize
var ErrRunFinalized = errors.New("pipeline run already finalized")

// InstrumentOutcome records what each stage achieved for one instrument
type InstrumentOutcome struct {
	Instrument    Instrument `json:"instrument"`
	PricesOK      bool       `json:"prices_ok"`
	PriceAttempts int        `json:"price_attempts"`
	Bars          int        `json:"bars"`
	PriceError    string     `json:"price_error,omitempty"`
	Returns       int        `json:"returns"`
	NewsOK        bool       `json:"news_ok"`
	News          int        `json:"news"`
	NewsError     string     `json:"news_error,omitempty"`
}

// PipelineRun is the single mutable coordination object of one execution
// ⭐ SSOT: 각 스테이지는 자기 필드만 기록, Finalize 이후 변경 불가
//
// Price and news fetchers may record concurrently; the mutex guards the
// shared outcome map and stage log, the dataset fields are written once.
type PipelineRun struct {
	mu sync.Mutex

	id        string
	date      time.Time
	startedAt time.Time

	status     RunStatus
	finishedAt time.Time
	err        string

	instruments []Instrument
	prices      *PriceSet
	news        *NewsSet
	returns     *ReturnSet
	quality     *QualityReport
	recap       *Recap
	artifacts   []string

	stages   []PipelineResult
	outcomes map[Instrument]*InstrumentOutcome
}

// NewPipelineRun creates a RUNNING run for the given instruments
func NewPipelineRun(id string, date time.Time, instruments []Instrument, startedAt time.Time) *PipelineRun {
	outcomes := make(map[Instrument]*InstrumentOutcome, len(instruments))
	for _, inst := range instruments {
		outcomes[inst] = &InstrumentOutcome{Instrument: inst}
	}
	return &PipelineRun{
		id:          id,
		date:        date,
		startedAt:   startedAt,
		status:      RunRunning,
		instruments: append([]Instrument(nil), instruments...),
		outcomes:    outcomes,
	}
}

func (r *PipelineRun) ID() string           { return r.id }
func (r *PipelineRun) Date() time.Time      { return r.date }
func (r *PipelineRun) StartedAt() time.Time { return r.startedAt }

// Status returns the current status
func (r *PipelineRun) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Prices returns the price dataset (nil before S0_PRICES)
func (r *PipelineRun) Prices() *PriceSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prices
}

// News returns the news dataset (nil before S0_NEWS)
func (r *PipelineRun) News() *NewsSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.news
}

// Returns returns the returns dataset (nil before S1_RETURNS)
func (r *PipelineRun) Returns() *ReturnSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.returns
}

// Quality returns a copy of the quality report, if evaluated
func (r *PipelineRun) Quality() (QualityReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quality == nil {
		return QualityReport{}, false
	}
	return r.quality.Clone(), true
}

// Recap returns the assembled recap, if any
func (r *PipelineRun) Recap() *Recap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recap
}

func (r *PipelineRun) guard() error {
	if r.status.IsTerminal() {
		return ErrRunFinalized
	}
	return nil
}

// SetPrices stores the S0_PRICES output
func (r *PipelineRun) SetPrices(p *PriceSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	r.prices = p
	return nil
}

// SetNews stores the S0_NEWS output
func (r *PipelineRun) SetNews(n *NewsSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	r.news = n
	return nil
}

// SetReturns stores the S1_RETURNS output
func (r *PipelineRun) SetReturns(rs *ReturnSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	r.returns = rs
	return nil
}

// SetQuality stores the S2_QUALITY verdict
func (r *PipelineRun) SetQuality(q QualityReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	c := q.Clone()
	r.quality = &c
	return nil
}

// SetRecap stores the S3_REPORT output and the rendered artifact paths
func (r *PipelineRun) SetRecap(rc *Recap, artifacts []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	r.recap = rc
	r.artifacts = append([]string(nil), artifacts...)
	return nil
}

// RecordStage appends a stage result to the run log
func (r *PipelineRun) RecordStage(res PipelineResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	r.stages = append(r.stages, res)
	return nil
}

// UpdateOutcome applies fn to the outcome of inst
func (r *PipelineRun) UpdateOutcome(inst Instrument, fn func(o *InstrumentOutcome)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	o, ok := r.outcomes[inst]
	if !ok {
		o = &InstrumentOutcome{Instrument: inst}
		r.outcomes[inst] = o
		r.instruments = append(r.instruments, inst)
	}
	fn(o)
	return nil
}

// Finalize moves the run to a terminal status; the run is frozen afterwards.
// When failing, partial datasets are discarded.
func (r *PipelineRun) Finalize(status RunStatus, cause error, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	if !status.IsTerminal() {
		return errors.New("finalize requires a terminal status")
	}

	r.status = status
	r.finishedAt = at
	if cause != nil {
		r.err = cause.Error()
	}
	if status == RunFailed {
		r.prices, r.news, r.returns, r.recap, r.artifacts = nil, nil, nil, nil, nil
	}
	return nil
}

// RunSummary is a read-only snapshot of a run for sinks and the status API
type RunSummary struct {
	ID          string              `json:"id"`
	Date        string              `json:"date"`
	Status      RunStatus           `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at,omitempty"`
	DurationMs  int64               `json:"duration_ms"`
	Error       string              `json:"error,omitempty"`
	Stages      []PipelineResult    `json:"stages"`
	Instruments []InstrumentOutcome `json:"instruments"`
	Quality     *QualityReport      `json:"quality,omitempty"`
	Report      ReportStatus        `json:"report,omitempty"`
	Artifacts   []string            `json:"artifacts,omitempty"`
}

// Summary snapshots the run; outcomes follow the requested instrument order
func (r *PipelineRun) Summary() RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := RunSummary{
		ID:         r.id,
		Date:       r.date.Format(DateLayout),
		Status:     r.status,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
		Error:      r.err,
		Stages:     append([]PipelineResult(nil), r.stages...),
		Artifacts:  append([]string(nil), r.artifacts...),
	}
	if !r.finishedAt.IsZero() {
		s.DurationMs = r.finishedAt.Sub(r.startedAt).Milliseconds()
	}
	for _, inst := range r.instruments {
		s.Instruments = append(s.Instruments, *r.outcomes[inst])
	}
	if r.quality != nil {
		q := r.quality.Clone()
		s.Quality = &q
	}
	if r.recap != nil {
		s.Report = r.recap.Status
	}
	return s
}
