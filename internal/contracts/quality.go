package contracts

import "time"

// QualityCheckResult is the outcome of one quality rule
type QualityCheckResult struct {
	Rule      string   `json:"rule"`
	Passed    bool     `json:"passed"`
	Detail    string   `json:"detail"`
	Offenders []string `json:"offenders,omitempty"`
}

// QualityReport is the verdict of the quality gate for one run
// ⭐ SSOT: 생성 후 불변 (게이트가 한 번만 생성, 값으로 전달)
type QualityReport struct {
	Score       float64              `json:"score"`
	Checks      []QualityCheckResult `json:"checks"`
	Passed      bool                 `json:"passed"`
	Threshold   float64              `json:"threshold"`
	EvaluatedAt time.Time            `json:"evaluated_at"`
}

// Clone returns a deep copy so callers cannot alter the original checks
func (q QualityReport) Clone() QualityReport {
	out := q
	out.Checks = make([]QualityCheckResult, len(q.Checks))
	for i, c := range q.Checks {
		c.Offenders = append([]string(nil), c.Offenders...)
		out.Checks[i] = c
	}
	return out
}

// Failed returns the names of failed rules in evaluation order
func (q QualityReport) Failed() []string {
	var names []string
	for _, c := range q.Checks {
		if !c.Passed {
			names = append(names, c.Rule)
		}
	}
	return names
}
