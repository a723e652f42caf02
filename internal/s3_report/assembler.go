package s3_report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/internal/universe"
	"github.com/wonny/recap/backend/pkg/logger"
)

// ErrReportWithheld is returned under the withhold policy when the quality gate failed
var ErrReportWithheld = errors.New("report withheld: quality gate failed")

// Input is everything the recap is built from
type Input struct {
	RunID       string
	Date        time.Time
	Instruments []contracts.Instrument
	Prices      *contracts.PriceSet
	News        *contracts.NewsSet
	Returns     *contracts.ReturnSet
	Quality     contracts.QualityReport
}

// Assembler builds the structured recap handed to renderers
// ⭐ SSOT: 품질 실패 시 정책(withhold/mark) 적용은 이 곳에서만
type Assembler struct {
	cfg    universe.ReportConfig
	logger *logger.Logger
}

// NewAssembler creates a new Assembler
func NewAssembler(cfg universe.ReportConfig, log *logger.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg,
		logger: log.WithField("module", "report_assembler"),
	}
}

// Assemble builds the recap. A recap is CLEAN only when the quality
// report passed; otherwise it is withheld or marked DEGRADED per policy.
func (a *Assembler) Assemble(in Input) (*contracts.Recap, error) {
	if !in.Quality.Passed && a.cfg.Policy != universe.PolicyMark {
		a.logger.WithFields(map[string]interface{}{
			"score":  in.Quality.Score,
			"failed": in.Quality.Failed(),
		}).Warn("Report withheld")
		return nil, fmt.Errorf("%w (score %.2f, failed: %s)", ErrReportWithheld, in.Quality.Score, strings.Join(in.Quality.Failed(), ", "))
	}

	latest := Latest(in.Instruments, in.Returns)

	recap := &contracts.Recap{
		RunID:     in.RunID,
		Date:      in.Date,
		Status:    contracts.ReportClean,
		Summary:   Summarize(len(in.Instruments), latest),
		TopMovers: TopN(latest, a.cfg.TopN),
		Table:     Table(latest),
		Headlines: Headlines(in.Instruments, in.News),
		Quality:   in.Quality.Clone(),
	}

	if !in.Quality.Passed {
		recap.Status = contracts.ReportDegraded
		recap.Banner = fmt.Sprintf("DEGRADED: data quality check failed (score %.0f%%, failed: %s)",
			in.Quality.Score*100, strings.Join(in.Quality.Failed(), ", "))
	}

	a.logger.WithFields(map[string]interface{}{
		"status":       recap.Status,
		"instruments":  recap.Summary.Instruments,
		"with_returns": recap.Summary.WithReturns,
		"headlines":    len(recap.Headlines),
	}).Info("Recap assembled")

	return recap, nil
}

// Latest returns the most recent return record of each instrument, in instrument order
func Latest(instruments []contracts.Instrument, returns *contracts.ReturnSet) []contracts.ReturnRecord {
	out := make([]contracts.ReturnRecord, 0, len(instruments))
	for _, inst := range instruments {
		recs, _ := returns.Get(inst)
		if len(recs) == 0 {
			continue
		}
		out = append(out, recs[len(recs)-1])
	}
	return out
}

// Summarize computes the headline statistics over records with a defined return_pct
func Summarize(instruments int, latest []contracts.ReturnRecord) contracts.RecapSummary {
	s := contracts.RecapSummary{Instruments: instruments}

	pcts := make([]float64, 0, len(latest))
	for _, r := range latest {
		if !r.ReturnPct.Valid {
			continue
		}
		p := r.ReturnPct.Float64
		pcts = append(pcts, p)
		switch {
		case p > 0:
			s.Gainers++
		case p < 0:
			s.Losers++
		default:
			s.Unchanged++
		}
	}
	s.WithReturns = len(pcts)

	if len(pcts) > 0 {
		s.MeanReturnPct = stat.Mean(pcts, nil)
	}
	if len(pcts) > 1 {
		s.StdDevPct = stat.StdDev(pcts, nil)
	}

	ranked := Table(latest)
	if len(ranked) > 0 && ranked[0].ReturnPct.Valid {
		s.BestInstrument = ranked[0].Instrument
		for i := len(ranked) - 1; i >= 0; i-- {
			if ranked[i].ReturnPct.Valid {
				s.WorstInstrument = ranked[i].Instrument
				break
			}
		}
	}
	return s
}

// Table sorts records by return_pct descending (ties by instrument);
// records without a return_pct go last
func Table(latest []contracts.ReturnRecord) []contracts.ReturnRecord {
	out := make([]contracts.ReturnRecord, len(latest))
	copy(out, latest)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ReturnPct.Valid != b.ReturnPct.Valid {
			return a.ReturnPct.Valid
		}
		if a.ReturnPct.Valid && a.ReturnPct.Float64 != b.ReturnPct.Float64 {
			return a.ReturnPct.Float64 > b.ReturnPct.Float64
		}
		return a.Instrument < b.Instrument
	})
	return out
}

// TopN returns the n best performers; records without return_pct are excluded
func TopN(latest []contracts.ReturnRecord, n int) []contracts.ReturnRecord {
	ranked := Table(latest)
	out := make([]contracts.ReturnRecord, 0, n)
	for _, r := range ranked {
		if len(out) >= n || !r.ReturnPct.Valid {
			break
		}
		out = append(out, r)
	}
	return out
}

// Headlines returns the first news item of each instrument that has one
func Headlines(instruments []contracts.Instrument, news *contracts.NewsSet) []contracts.NewsItem {
	var out []contracts.NewsItem
	for _, inst := range instruments {
		items, _ := news.Get(inst)
		if len(items) > 0 {
			out = append(out, items[0])
		}
	}
	return out
}
