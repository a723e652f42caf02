package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/httputil"
	"github.com/wonny/recap/backend/pkg/logger"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client fetches daily bars from the Yahoo chart API
// ⭐ SSOT: Yahoo chart API 호출은 이 클라이언트에서만
//
// One call = one network attempt; retries are the collector's job.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo chart client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FetchBars implements contracts.PriceSource
func (c *Client) FetchBars(ctx context.Context, instrument contracts.Instrument, window contracts.FetchWindow) (contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", window.From.Unix()))
	params.Set("period2", fmt.Sprintf("%d", window.To.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(instrument), params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", instrument, err)
	}

	bars, dropped, err := parseChart(instrument, body)
	if err != nil {
		return nil, err
	}

	if dropped > 0 {
		c.logger.WithFields(map[string]interface{}{
			"instrument": instrument,
			"dropped":    dropped,
		}).Debug("Dropped malformed bars")
	}

	return bars, nil
}
