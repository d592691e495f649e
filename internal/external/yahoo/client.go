package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/pkg/config"
	"github.com/wonny/investor-coach/pkg/httputil"
	"github.com/wonny/investor-coach/pkg/logger"
	"github.com/wonny/investor-coach/pkg/redis"
)

// SourceName is recorded in cache entries fetched through this client
const SourceName = "yahoo"

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	chartURL   string
	quoteURL   string
	cache      *redis.Cache

	// chart 응답의 meta.currency 메모 (Currency 조회 시 재요청 방지)
	currencies sync.Map
}

// NewClient creates a new Yahoo Finance client.
// httpClient should have retry disabled; retries belong to the resilience layer.
func NewClient(httpClient *httputil.Client, cfg config.ProviderConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("yahoo"),
		chartURL:   strings.TrimRight(cfg.ChartURL, "/"),
		quoteURL:   strings.TrimRight(cfg.QuoteURL, "/"),
	}
}

// WithCache enables Redis caching of fundamentals
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// Source implements contracts.SeriesProvider
func (c *Client) Source() string {
	return SourceName
}

// fetchBody GETs a URL and classifies failures:
// 404 → DataUnavailable, 429/5xx/network → transient, other non-200 → permanent.
func (c *Client) fetchBody(ctx context.Context, symbol, rawURL string, params url.Values) ([]byte, error) {
	fullURL := rawURL
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", rawURL, params.Encode())
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, contracts.Transient(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &contracts.DataUnavailableError{Symbol: symbol, Reason: "symbol not found"}
	case httputil.IsRetryableError(resp.StatusCode):
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, contracts.Transient(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, contracts.Transient(fmt.Errorf("read response body failed: %w", err))
	}
	return body, nil
}
