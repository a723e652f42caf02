package gnews

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/httputil"
	"github.com/wonny/recap/backend/pkg/logger"
)

// DefaultBaseURL is the Google News host
const DefaultBaseURL = "https://news.google.com"

// Client reads the Google News RSS search feed
// ⭐ SSOT: Google News RSS 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	language   string // hl, e.g. en-US
	region     string // gl, e.g. US
}

// NewClient creates a new Google News client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, language, region string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = "en-US"
	}
	if region == "" {
		region = "US"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		region:     region,
	}
}

// Query builds the search phrase for an instrument
// 암호화폐(BTC-USD)는 "BTC crypto", 나머지는 "<ticker> stock"
func Query(instrument contracts.Instrument) string {
	if base, ok := strings.CutSuffix(instrument, "-USD"); ok {
		return base + " crypto"
	}
	return instrument + " stock"
}

// FetchNews implements contracts.NewsSource.
// Items come back in feed order; the caller dedups and applies limit.
func (c *Client) FetchNews(ctx context.Context, instrument contracts.Instrument, limit int) ([]contracts.NewsItem, error) {
	lang := strings.SplitN(c.language, "-", 2)[0]

	params := url.Values{}
	params.Set("q", Query(instrument))
	params.Set("hl", c.language)
	params.Set("gl", c.region)
	params.Set("ceid", c.region+":"+lang)

	fullURL := fmt.Sprintf("%s/rss/search?%s", c.baseURL, params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", instrument, err)
	}

	items, dropped, err := parseFeed(instrument, body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"instrument": instrument,
		"items":      len(items),
		"dropped":    dropped,
		"limit":      limit,
	}).Debug("News feed parsed")

	return items, nil
}
