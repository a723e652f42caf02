package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/config"
	"github.com/wonny/recap/backend/pkg/httputil"
	"github.com/wonny/recap/backend/pkg/logger"
	"github.com/wonny/recap/backend/pkg/retry"
)

// 2024-01-04 and 2024-01-05 14:30 UTC (09:30 New York)
const chartOK = `{"chart":{"result":[{
  "meta":{"symbol":"AAPL","exchangeTimezoneName":"America/New_York","gmtoffset":-18000},
  "timestamp":[1704378600,1704465000,1704551400],
  "indicators":{"quote":[{
    "open":[182.1,181.9,null],
    "high":[183.0,182.7,null],
    "low":[180.9,180.1,null],
    "close":[181.9,181.2,null],
    "volume":[71983600,null,null]
  }]}
}],"error":null}}`

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{HTTPTimeout: 5 * time.Second}
	return NewClient(httputil.New(cfg, logger.Nop()), logger.Nop(), baseURL)
}

func window() contracts.FetchWindow {
	return contracts.FetchWindow{
		From: time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetchBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, fmt.Sprintf("%d", window().From.Unix()), r.URL.Query().Get("period1"))
		fmt.Fprint(w, chartOK)
	}))
	defer server.Close()

	bars, err := newTestClient(server.URL).FetchBars(context.Background(), "AAPL", window())
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "2024-01-04", bars[0].DateKey())
	assert.Equal(t, "2024-01-05", bars[1].DateKey())
	assert.Equal(t, 181.2, bars[1].Close.Float64)
	assert.False(t, bars[1].Volume.Valid)
	assert.True(t, bars[1].HasMissing())
	assert.Equal(t, "AAPL", bars[0].Instrument)
}

func TestFetchBars_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantPermanent bool
		wantNoData    bool
	}{
		{
			name:          "unknown symbol",
			status:        http.StatusNotFound,
			body:          `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`,
			wantPermanent: true,
		},
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			body:   `oops`,
		},
		{
			name:          "chart error on 200",
			status:        http.StatusOK,
			body:          `{"chart":{"result":null,"error":{"code":"Bad Request","description":"invalid range"}}}`,
			wantPermanent: true,
		},
		{
			name:          "only null closes",
			status:        http.StatusOK,
			body:          `{"chart":{"result":[{"meta":{},"timestamp":[1704378600],"indicators":{"quote":[{"close":[null]}]}}],"error":null}}`,
			wantPermanent: true,
			wantNoData:    true,
		},
		{
			name:   "garbage",
			status: http.StatusOK,
			body:   `<html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).FetchBars(context.Background(), "ZZZZ", window())
			require.Error(t, err)

			permanent := retry.IsPermanent(err) || httputil.IsPermanent(err)
			assert.Equal(t, tt.wantPermanent, permanent)
			assert.Equal(t, tt.wantNoData, errors.Is(err, ErrNoData))
		})
	}
}

func TestExchangeLocationFallback(t *testing.T) {
	loc := exchangeLocation("Not/AZone", 3600)
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 3600, offset)
}
