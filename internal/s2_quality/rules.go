package s2_quality

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/recap/backend/internal/contracts"
)

// Rule names, also used as metric labels
const (
	RuleCompleteness  = "completeness"
	RulePriceRange    = "price_range"
	RuleOutliers      = "outliers"
	RuleMissingValues = "missing_values"
	RuleDuplicates    = "duplicates"
)

// maxListed bounds how many offenders are spelled out in a detail string
const maxListed = 10

// Completeness checks the share of requested instruments that have prices
type Completeness struct {
	MinRatio float64
}

func (Completeness) Name() string { return RuleCompleteness }

func (r Completeness) Check(in Input) contracts.QualityCheckResult {
	total := len(in.Requested)
	if total == 0 {
		return contracts.QualityCheckResult{Passed: false, Detail: "no instruments requested"}
	}

	var missing []string
	for _, inst := range in.Requested {
		series, _ := in.Prices.Get(inst)
		if len(series) == 0 {
			missing = append(missing, inst)
		}
	}

	have := total - len(missing)
	ratio := float64(have) / float64(total)
	passed := ratio+scoreTolerance >= r.MinRatio

	detail := fmt.Sprintf("%d/%d instruments with prices (%.1f%%), minimum %.1f%%", have, total, ratio*100, r.MinRatio*100)
	if len(missing) > 0 {
		detail += "; missing: " + listed(missing)
	}
	return contracts.QualityCheckResult{Passed: passed, Detail: detail, Offenders: sortedUnique(missing)}
}

// PriceRange checks every present close lies within [Min, Max]
type PriceRange struct {
	Min float64
	Max float64
}

func (PriceRange) Name() string { return RulePriceRange }

func (r PriceRange) Check(in Input) contracts.QualityCheckResult {
	var offenders []string
	bars := 0
	eachBar(in.Prices, func(b contracts.PriceBar) {
		if !b.Close.Valid {
			return
		}
		bars++
		c := b.Close.Float64
		if c < r.Min || c > r.Max || math.IsNaN(c) {
			offenders = append(offenders, b.Instrument)
		}
	})

	offenders = sortedUnique(offenders)
	if len(offenders) > 0 {
		return contracts.QualityCheckResult{
			Passed:    false,
			Detail:    fmt.Sprintf("close outside [%.2f, %.2f]: %s", r.Min, r.Max, listed(offenders)),
			Offenders: offenders,
		}
	}
	return contracts.QualityCheckResult{
		Passed: true,
		Detail: fmt.Sprintf("%d closes within [%.2f, %.2f]", bars, r.Min, r.Max),
	}
}

// Outliers flags returns whose magnitude exceeds MaxAbsPct percent
type Outliers struct {
	MaxAbsPct float64
}

func (Outliers) Name() string { return RuleOutliers }

func (r Outliers) Check(in Input) contracts.QualityCheckResult {
	var offenders []string
	n := 0
	for _, inst := range in.Returns.Instruments() {
		recs, _ := in.Returns.Get(inst)
		for _, rec := range recs {
			if !rec.ReturnPct.Valid {
				continue
			}
			n++
			if math.Abs(rec.ReturnPct.Float64) > r.MaxAbsPct {
				offenders = append(offenders, fmt.Sprintf("%s@%s (%+.2f%%)", inst, rec.Date.Format(contracts.DateLayout), rec.ReturnPct.Float64))
			}
		}
	}

	sort.Strings(offenders)
	if len(offenders) > 0 {
		return contracts.QualityCheckResult{
			Passed:    false,
			Detail:    fmt.Sprintf("|return| above %.1f%%: %s", r.MaxAbsPct, listed(offenders)),
			Offenders: offenders,
		}
	}
	return contracts.QualityCheckResult{
		Passed: true,
		Detail: fmt.Sprintf("%d returns within ±%.1f%%", n, r.MaxAbsPct),
	}
}

// MissingValues flags bars with any absent OHLCV field
type MissingValues struct{}

func (MissingValues) Name() string { return RuleMissingValues }

func (MissingValues) Check(in Input) contracts.QualityCheckResult {
	var offenders []string
	var where []string
	eachBar(in.Prices, func(b contracts.PriceBar) {
		if fields := missingFields(b); len(fields) > 0 {
			offenders = append(offenders, b.Instrument)
			where = append(where, fmt.Sprintf("%s@%s (%s)", b.Instrument, b.DateKey(), strings.Join(fields, ",")))
		}
	})

	if len(where) > 0 {
		sort.Strings(where)
		return contracts.QualityCheckResult{
			Passed:    false,
			Detail:    "missing OHLCV fields: " + listed(where),
			Offenders: sortedUnique(offenders),
		}
	}
	return contracts.QualityCheckResult{Passed: true, Detail: "no missing OHLCV fields"}
}

func missingFields(b contracts.PriceBar) []string {
	var f []string
	if !b.Open.Valid {
		f = append(f, "open")
	}
	if !b.High.Valid {
		f = append(f, "high")
	}
	if !b.Low.Valid {
		f = append(f, "low")
	}
	if !b.Close.Valid {
		f = append(f, "close")
	}
	if !b.Volume.Valid {
		f = append(f, "volume")
	}
	return f
}

// Duplicates flags (instrument, date) pairs seen more than once
type Duplicates struct{}

func (Duplicates) Name() string { return RuleDuplicates }

func (Duplicates) Check(in Input) contracts.QualityCheckResult {
	counts := make(map[string]int)
	owner := make(map[string]string)
	eachBar(in.Prices, func(b contracts.PriceBar) {
		key := b.Instrument + "@" + b.DateKey()
		counts[key]++
		owner[key] = b.Instrument
	})

	var pairs, offenders []string
	for key, n := range counts {
		if n > 1 {
			pairs = append(pairs, fmt.Sprintf("%s x%d", key, n))
			offenders = append(offenders, owner[key])
		}
	}

	if len(pairs) > 0 {
		sort.Strings(pairs)
		return contracts.QualityCheckResult{
			Passed:    false,
			Detail:    "duplicate (instrument, date): " + listed(pairs),
			Offenders: sortedUnique(offenders),
		}
	}
	return contracts.QualityCheckResult{Passed: true, Detail: "no duplicate (instrument, date) pairs"}
}

// eachBar visits every bar; the bar's instrument falls back to its set key
func eachBar(prices *contracts.PriceSet, fn func(contracts.PriceBar)) {
	for _, inst := range prices.Instruments() {
		series, _ := prices.Get(inst)
		for _, b := range series {
			if b.Instrument == "" {
				b.Instrument = inst
			}
			fn(b)
		}
	}
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func listed(items []string) string {
	if len(items) <= maxListed {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:maxListed], ", "), len(items)-maxListed)
}
