// Package ingress pulls candle data from the upstream exchange: a
// REST client for historical backfill and a WebSocket stream client
// for live bar updates.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"signalforge/internal/logging"
	"signalforge/internal/market"
)

const maxCandlesPerRequest = 1500

// RESTClient fetches historical klines, rate-limited and retried with
// exponential backoff. Grounded on the reference client's GetKlines
// shape, generalized to paginate and to retry transient failures.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	log        *logging.Logger
}

// NewRESTClient builds a client rate-limited at ratePerMinute requests
// per minute (a token bucket refilled continuously, per spec §5).
func NewRESTClient(baseURL string, ratePerMinute int, log *logging.Logger) *RESTClient {
	if log == nil {
		log = logging.Default()
	}
	perSecond := float64(ratePerMinute) / 60.0
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), ratePerMinute),
		maxRetries: 3,
		log:        log,
	}
}

// GetKlines fetches up to `limit` candles (capped at the provider's
// 1500-per-request ceiling) ending at endTime (0 = most recent).
func (c *RESTClient) GetKlines(ctx context.Context, symbol, interval string, limit int, endTime int64) ([]market.Candle, error) {
	if limit > maxCandlesPerRequest {
		limit = maxCandlesPerRequest
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if endTime > 0 {
		params.Set("endTime", strconv.FormatInt(endTime, 10))
	}
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())
	logging.IngressContext(endpoint, symbol, interval).Debug("fetching klines", "limit", limit)

	body, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse klines: %w", err)
	}

	candles := make([]market.Candle, len(raw))
	for i, row := range raw {
		candles[i] = market.Candle{
			Symbol:        symbol,
			Interval:      interval,
			OpenTime:      int64(row[0].(float64)),
			Open:          parseFloat(row[1]),
			High:          parseFloat(row[2]),
			Low:           parseFloat(row[3]),
			Close:         parseFloat(row[4]),
			Volume:        parseFloat(row[5]),
			CloseTime:     int64(row[6].(float64)),
			QuoteVolume:   parseFloat(row[7]),
			TradeCount:    int64(row[8].(float64)),
			TakerBuyBase:  parseFloat(row[9]),
			TakerBuyQuote: parseFloat(row[10]),
			IsClosed:      true,
		}
	}
	return candles, nil
}

// GetHistoricalKlines paginates backward from now, concatenating
// pages, until totalLimit candles have been collected or the
// provider runs out of history. Each page's end_time is the previous
// page's oldest open_time minus 1ms, per spec §6.
func (c *RESTClient) GetHistoricalKlines(ctx context.Context, symbol, interval string, totalLimit int) ([]market.Candle, error) {
	var all []market.Candle
	endTime := int64(0)

	for len(all) < totalLimit {
		remaining := totalLimit - len(all)
		pageSize := remaining
		if pageSize > maxCandlesPerRequest {
			pageSize = maxCandlesPerRequest
		}

		page, err := c.GetKlines(ctx, symbol, interval, pageSize, endTime)
		if err != nil {
			return all, err
		}
		if len(page) == 0 {
			break
		}

		all = append(page, all...)
		endTime = page[0].OpenTime - 1

		if len(page) < pageSize {
			break // exhausted provider history
		}
	}
	return all, nil
}

// getWithRetry applies the rate limiter, then retries transient
// failures (network errors, 5xx, 429-with-Retry-After) up to
// maxRetries times with exponential backoff.
func (c *RESTClient) getWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	delay := time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.log.WithComponent("ingress").Warn("rest request failed, retrying", "attempt", attempt, "error", err)
			time.Sleep(delay)
			delay *= 2
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			time.Sleep(delay)
			delay *= 2
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header.Get("Retry-After"), delay)
			c.log.WithComponent("ingress").Warn("rate limited by upstream, honoring retry-after", "wait", wait)
			time.Sleep(wait)
			lastErr = fmt.Errorf("429 rate limited")
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("upstream 5xx: %s", string(body))
			time.Sleep(delay)
			delay *= 2
		default:
			return nil, fmt.Errorf("upstream error %d: %s", resp.StatusCode, string(body))
		}
	}
	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

func retryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func parseFloat(val interface{}) float64 {
	switch v := val.(type) {
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case float64:
		return v
	default:
		return 0
	}
}
