package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/investor-coach/internal/contracts"
)

// chartResponse is the subset of /v8/finance/chart we read
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency             string `json:"currency"`
		Symbol               string `json:"symbol"`
		GMTOffset            int    `json:"gmtoffset"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

func interval(freq contracts.Frequency) string {
	switch freq {
	case contracts.FrequencyWeekly:
		return "1wk"
	case contracts.FrequencyMonthly:
		return "1mo"
	default:
		return "1d"
	}
}

// Fetch returns the adjusted close series for symbol
// ⭐ SSOT: 가격 수집은 이 함수에서만 (contracts.SeriesProvider)
func (c *Client) Fetch(ctx context.Context, symbol string, tf contracts.Timeframe, freq contracts.Frequency) (*contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("range", string(tf))
	params.Set("interval", interval(freq))
	params.Set("includeAdjustedClose", "true")
	params.Set("events", "div,split")

	body, err := c.fetchBody(ctx, symbol, c.chartURL+"/"+url.PathEscape(symbol), params)
	if err != nil {
		return nil, err
	}

	series, currency, err := parseChart(symbol, body)
	if err != nil {
		return nil, err
	}
	if currency != "" {
		c.currencies.Store(symbol, currency)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"timeframe": tf,
		"frequency": freq,
		"count":     series.Len(),
	}).Debug("Fetched prices")
	return series, nil
}

// Currency implements contracts.CurrencyResolver.
// Uses the currency seen by the last Fetch, otherwise asks for a tiny chart.
func (c *Client) Currency(ctx context.Context, symbol string) (string, error) {
	if v, ok := c.currencies.Load(symbol); ok {
		return v.(string), nil
	}

	params := url.Values{}
	params.Set("range", "5d")
	params.Set("interval", "1d")
	body, err := c.fetchBody(ctx, symbol, c.chartURL+"/"+url.PathEscape(symbol), params)
	if err != nil {
		return "", err
	}
	_, currency, err := parseChart(symbol, body)
	if err != nil && currency == "" {
		return "", err
	}
	if currency == "" {
		return "", fmt.Errorf("no currency reported for %s", symbol)
	}
	c.currencies.Store(symbol, currency)
	return currency, nil
}

// exchangeLocation returns the zone bars are stamped in.
// 봉 타임스탬프는 거래소 개장 시각 (ASX 10:00 AEDT = 전날 23:00 UTC)
// Falls back to the fixed gmtoffset when the zone database lacks the name.
func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if gmtOffset != 0 {
		return time.FixedZone("exchange", gmtOffset)
	}
	return time.UTC
}

// parseChart extracts (date, adjclose) pairs; null closes are skipped.
// Dates are exchange-local calendar days.
// No result or no usable point is DataUnavailable.
func parseChart(symbol string, body []byte) (*contracts.PriceSeries, string, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("parse chart response failed: %w", err)
	}

	if len(resp.Chart.Result) == 0 {
		reason := "empty chart result"
		if e := resp.Chart.Error; e != nil && e.Description != "" {
			reason = strings.TrimSpace(e.Description)
		}
		return nil, "", &contracts.DataUnavailableError{Symbol: symbol, Reason: reason}
	}

	result := resp.Chart.Result[0]
	currency := strings.ToUpper(result.Meta.Currency)

	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 {
		closes = result.Indicators.AdjClose[0].AdjClose
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)
	series := &contracts.PriceSeries{Symbol: symbol}
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		v := *closes[i]
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		t := time.Unix(ts, 0).In(loc)
		series.Points = append(series.Points, contracts.PricePoint{
			Date:     time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			AdjClose: v,
		})
	}

	if series.Len() == 0 {
		return nil, currency, &contracts.DataUnavailableError{Symbol: symbol, Reason: "no adjusted close data"}
	}
	return series, currency, nil
}
