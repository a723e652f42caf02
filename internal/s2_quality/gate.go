package s2_quality

import (
	"math"
	"time"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/internal/universe"
	"github.com/wonny/recap/backend/pkg/logger"
)

// scoreTolerance absorbs float error when comparing score to the threshold
const scoreTolerance = 1e-9

// Input is everything the rules look at
type Input struct {
	Requested []contracts.Instrument
	Prices    *contracts.PriceSet
	Returns   *contracts.ReturnSet
}

// Rule is one independent quality check
type Rule interface {
	Name() string
	Check(in Input) contracts.QualityCheckResult
}

// Gate runs the fixed rule battery and produces a QualityReport
// ⭐ SSOT: S2 품질 판정은 이 게이트에서만
type Gate struct {
	rules     []Rule
	threshold float64
	logger    *logger.Logger
	now       func() time.Time
}

// NewGate creates a gate with the standard battery:
// completeness, price_range, outliers, missing_values, duplicates
func NewGate(cfg universe.QualityConfig, log *logger.Logger) *Gate {
	return &Gate{
		rules: []Rule{
			Completeness{MinRatio: cfg.MinCompleteness},
			PriceRange{Min: cfg.MinPrice, Max: cfg.MaxPrice},
			Outliers{MaxAbsPct: cfg.MaxReturnPct},
			MissingValues{},
			Duplicates{},
		},
		threshold: cfg.PassThreshold,
		logger:    log.WithField("module", "quality_gate"),
		now:       time.Now,
	}
}

// Rules returns the rule names in evaluation order
func (g *Gate) Rules() []string {
	names := make([]string, len(g.rules))
	for i, r := range g.rules {
		names[i] = r.Name()
	}
	return names
}

// Evaluate runs every rule (no short-circuit) and scores the result.
// Violations are data in the report, never errors.
func (g *Gate) Evaluate(requested []contracts.Instrument, prices *contracts.PriceSet, returns *contracts.ReturnSet) contracts.QualityReport {
	in := Input{Requested: requested, Prices: prices, Returns: returns}

	checks := make([]contracts.QualityCheckResult, 0, len(g.rules))
	passed := 0
	for _, rule := range g.rules {
		res := rule.Check(in)
		res.Rule = rule.Name()
		if res.Passed {
			passed++
		}
		checks = append(checks, res)
	}

	report := contracts.QualityReport{
		Score:       calculateScore(passed, len(checks)),
		Checks:      checks,
		Threshold:   g.threshold,
		EvaluatedAt: g.now().UTC(),
	}
	report.Passed = report.Score+scoreTolerance >= g.threshold

	g.logger.WithFields(map[string]interface{}{
		"score":     report.Score,
		"threshold": g.threshold,
		"passed":    report.Passed,
		"failed":    report.Failed(),
	}).Info("Quality gate evaluated")

	return report
}

// calculateScore returns passed/total, clamped to [0,1]
func calculateScore(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Min(1, math.Max(0, float64(passed)/float64(total)))
}
