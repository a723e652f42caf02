// Package s1_returns derives daily return records from price series.
package s1_returns

import (
	"github.com/guregu/null/v6"

	"github.com/wonny/recap/backend/internal/contracts"
)

// Calculate computes return records for every instrument of prices.
// ⭐ SSOT: 수익률 계산은 이 함수에서만 (순수 함수, 입력 불변)
//
// Each series is sorted by date (on a copy) and every bar i ≥ 1 yields one
// record against bar i-1, so a series of N bars gives N-1 records. The
// output follows the input instrument order and depends on nothing else.
func Calculate(prices *contracts.PriceSet) *contracts.ReturnSet {
	out := contracts.NewReturnSet()
	for _, inst := range prices.Instruments() {
		series, _ := prices.Get(inst)
		out.Set(inst, Series(inst, series))
	}
	return out
}

// Series computes the return records of one instrument's bars
func Series(inst contracts.Instrument, series contracts.PriceSeries) []contracts.ReturnRecord {
	if len(series) < 2 {
		return []contracts.ReturnRecord{}
	}

	sorted := series.SortedByDate()
	records := make([]contracts.ReturnRecord, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		records = append(records, record(inst, sorted[i-1], sorted[i]))
	}
	return records
}

func record(inst contracts.Instrument, prev, cur contracts.PriceBar) contracts.ReturnRecord {
	rec := contracts.ReturnRecord{
		Instrument: inst,
		Date:       cur.Date,
		Close:      cur.Close.Float64,
		PrevClose:  prev.Close.Float64,
	}

	// 종가 결측 시 수익률 정의 불가
	if !cur.Close.Valid || !prev.Close.Valid {
		return rec
	}

	rec.DailyReturn = rec.Close - rec.PrevClose
	if rec.PrevClose != 0 {
		rec.ReturnPct = null.FloatFrom(rec.DailyReturn / rec.PrevClose * 100)
	}
	return rec
}

// Count returns the total number of records in a set
func Count(set *contracts.ReturnSet) int {
	n := 0
	for _, inst := range set.Instruments() {
		recs, _ := set.Get(inst)
		n += len(recs)
	}
	return n
}
