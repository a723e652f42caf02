package contracts

import (
	"fmt"
	"time"
)

// ReportStatus marks whether a recap was built on data that passed the gate
type ReportStatus string

const (
	ReportClean    ReportStatus = "CLEAN"
	ReportDegraded ReportStatus = "DEGRADED"
)

// RecapSummary holds the headline statistics of a recap
type RecapSummary struct {
	Instruments     int     `json:"instruments"`
	WithReturns     int     `json:"with_returns"`
	MeanReturnPct   float64 `json:"mean_return_pct"`
	StdDevPct       float64 `json:"stddev_return_pct"`
	Gainers         int     `json:"gainers"`
	Losers          int     `json:"losers"`
	Unchanged       int     `json:"unchanged"`
	BestInstrument  string  `json:"best_instrument,omitempty"`
	WorstInstrument string  `json:"worst_instrument,omitempty"`
}

// Recap is the structured payload handed to renderers
type Recap struct {
	RunID     string         `json:"run_id"`
	Date      time.Time      `json:"date"`
	Status    ReportStatus   `json:"status"`
	Banner    string         `json:"banner,omitempty"`
	Summary   RecapSummary   `json:"summary"`
	TopMovers []ReturnRecord `json:"top_movers"`
	Table     []ReturnRecord `json:"table"`
	Headlines []NewsItem     `json:"headlines"`
	Quality   QualityReport  `json:"quality"`
}

// ArtifactName returns the base file name for a run date (renderers add the extension)
func ArtifactName(date time.Time) string {
	return fmt.Sprintf("market_recap_%s", date.Format("20060102"))
}
