package yahoo

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/pkg/redis"
)

var percentPattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*%`)

// Fundamentals scrapes expense ratio and yield from the quote page.
// Both are optional; a page without them yields nil fields, not an error.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (*contracts.Fundamentals, error) {
	if c.cache != nil {
		var out contracts.Fundamentals
		err := c.cache.GetOrSet(ctx, redis.FundamentalsKey(symbol), &out, redis.TTLFundamentals, func() (interface{}, error) {
			return c.scrapeFundamentals(ctx, symbol)
		})
		if err != nil {
			return nil, err
		}
		return &out, nil
	}
	return c.scrapeFundamentals(ctx, symbol)
}

func (c *Client) scrapeFundamentals(ctx context.Context, symbol string) (*contracts.Fundamentals, error) {
	body, err := c.fetchBody(ctx, symbol, c.quoteURL+"/"+url.PathEscape(symbol)+"/", nil)
	if err != nil {
		return nil, err
	}

	f, err := parseQuotePage(symbol, body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":        symbol,
		"expense_ratio": f.ExpenseRatio != nil,
		"yield":         f.YieldPct != nil,
	}).Debug("Fetched fundamentals")
	return f, nil
}

// parseQuotePage reads label/value pairs from statistic rows (li or tr).
func parseQuotePage(symbol string, body []byte) (*contracts.Fundamentals, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse quote page failed: %w", err)
	}

	f := &contracts.Fundamentals{Symbol: symbol}
	doc.Find("li, tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("span, td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.First().Text()))
		value := strings.TrimSpace(cells.Last().Text())

		switch {
		case strings.HasPrefix(label, "expense ratio"):
			if f.ExpenseRatio == nil {
				f.ExpenseRatio = parsePercent(value)
			}
		case strings.HasPrefix(label, "yield"), strings.Contains(label, "dividend & yield"):
			if f.YieldPct == nil {
				f.YieldPct = parsePercent(value)
			}
		}
	})
	return f, nil
}

// parsePercent turns "0.03%" or "0.96 (1.23%)" into a fraction; "N/A", "--" → nil
func parsePercent(s string) *float64 {
	m := percentPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 {
		return nil
	}
	return contracts.Float(v / 100)
}
