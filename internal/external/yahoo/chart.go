package yahoo

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/retry"
)

// ErrNoData is returned when the chart has no usable bars for the window
var ErrNoData = errors.New("no price data")

// chartResponse mirrors /v8/finance/chart/{symbol}
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []null.Float `json:"open"`
			High   []null.Float `json:"high"`
			Low    []null.Float `json:"low"`
			Close  []null.Float `json:"close"`
			Volume []null.Int   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// parseChart converts a chart payload into bars.
// A bar without a close is malformed and dropped on its own; other
// absent fields are kept as nulls for the quality gate to flag.
func parseChart(instrument contracts.Instrument, body []byte) (contracts.PriceSeries, int, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("decode chart %s: %w", instrument, err)
	}

	if resp.Chart.Error != nil {
		return nil, 0, retry.Permanent(fmt.Errorf("chart %s: %s: %s", instrument, resp.Chart.Error.Code, resp.Chart.Error.Description))
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, 0, retry.Permanent(fmt.Errorf("chart %s: %w", instrument, ErrNoData))
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)

	bars := make(contracts.PriceSeries, 0, len(result.Timestamp))
	dropped := 0
	for i, ts := range result.Timestamp {
		closeV := floatAt(quote.Close, i)
		if !closeV.Valid {
			dropped++
			continue
		}

		local := time.Unix(ts, 0).In(loc)
		bars = append(bars, contracts.PriceBar{
			Instrument: instrument,
			Date:       time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			Open:       floatAt(quote.Open, i),
			High:       floatAt(quote.High, i),
			Low:        floatAt(quote.Low, i),
			Close:      closeV,
			Volume:     intAt(quote.Volume, i),
		})
	}

	if len(bars) == 0 {
		return nil, dropped, retry.Permanent(fmt.Errorf("chart %s: %w", instrument, ErrNoData))
	}
	return bars, dropped, nil
}

func floatAt(values []null.Float, i int) null.Float {
	if i < len(values) {
		return values[i]
	}
	return null.Float{}
}

func intAt(values []null.Int, i int) null.Int {
	if i < len(values) {
		return values[i]
	}
	return null.Int{}
}

func exchangeLocation(name string, offset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", offset)
}
