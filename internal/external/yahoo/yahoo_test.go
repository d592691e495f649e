package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/pkg/config"
	"github.com/wonny/investor-coach/pkg/httputil"
	"github.com/wonny/investor-coach/pkg/logger"
)

const chartOK = `{"chart":{"result":[{"meta":{"currency":"usd","symbol":"AAPL"},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"close":[185.6,184.2,181.9]}],"adjclose":[{"adjclose":[184.9,null,181.2]}]}}],"error":null}}`

const chartNotFound = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

const quotePage = `<html><body>
<ul>
  <li><span class="label">Net Assets</span><span class="value">1.2T</span></li>
  <li><span class="label">Yield</span><span class="value">1.32%</span></li>
  <li><span class="label">Expense Ratio (net)</span><span class="value">0.03%</span></li>
</ul>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{Provider: config.ProviderConfig{
		ChartURL: srv.URL + "/chart",
		QuoteURL: srv.URL + "/quote",
		Timeout:  5 * time.Second,
	}}
	log := logger.Nop()
	hc := httputil.New(cfg, log).DisableRetry()
	return NewClient(hc, cfg.Provider, log)
}

func TestFetchParsesAdjClose(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chart/AAPL", r.URL.Path)
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(chartOK))
	})

	series, err := c.Fetch(context.Background(), "AAPL", contracts.Timeframe3Y, contracts.FrequencyWeekly)
	require.NoError(t, err)
	assert.Contains(t, query, "range=3y")
	assert.Contains(t, query, "interval=1wk")

	require.Equal(t, 2, series.Len())
	assert.Equal(t, "2024-01-02", contracts.DateKey(series.Points[0].Date))
	assert.InDelta(t, 184.9, series.Points[0].AdjClose, 1e-12)
	assert.Equal(t, "2024-01-04", contracts.DateKey(series.Points[1].Date))
	assert.Equal(t, "yahoo", c.Source())

	cur, err := c.Currency(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "USD", cur)
}

func TestFetchClassifiesErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		unavailable bool
		transient   bool
	}{
		{"unknown symbol body", http.StatusOK, chartNotFound, true, false},
		{"404", http.StatusNotFound, chartNotFound, true, false},
		{"empty adjclose", http.StatusOK, `{"chart":{"result":[{"meta":{},"timestamp":[1704205800],"indicators":{"adjclose":[{"adjclose":[null]}]}}]}}`, true, false},
		{"503", http.StatusServiceUnavailable, "", false, true},
		{"429", http.StatusTooManyRequests, "", false, true},
		{"403", http.StatusForbidden, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Fetch(context.Background(), "ZZZZ", contracts.Timeframe1Y, contracts.FrequencyDaily)
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, contracts.ErrDataUnavailable))
			assert.Equal(t, tt.transient, contracts.IsTransient(err))
		})
	}
}

func TestFundamentals(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/quote/VTI"))
		_, _ = w.Write([]byte(quotePage))
	})

	f, err := c.Fundamentals(context.Background(), "VTI")
	require.NoError(t, err)
	require.NotNil(t, f.ExpenseRatio)
	require.NotNil(t, f.YieldPct)
	assert.InDelta(t, 0.0003, *f.ExpenseRatio, 1e-12)
	assert.InDelta(t, 0.0132, *f.YieldPct, 1e-12)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"0.03%", contracts.Float(0.0003)},
		{"0.96 (1.23%)", contracts.Float(0.0123)},
		{"N/A", nil},
		{"--", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parsePercent(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestParseQuotePageStockRow(t *testing.T) {
	page := `<table><tr><td>Forward Dividend &amp; Yield</td><td>0.96 (0.52%)</td></tr></table>`
	f, err := parseQuotePage("AAPL", []byte(page))
	require.NoError(t, err)
	assert.Nil(t, f.ExpenseRatio)
	require.NotNil(t, f.YieldPct)
	assert.InDelta(t, 0.0052, *f.YieldPct, 1e-12)
}

func TestParseChartUsesExchangeCalendarDay(t *testing.T) {
	// BHP.AX 2024-01-03 10:00 AEDT = 2024-01-02 23:00 UTC
	tests := []struct {
		name string
		meta string
	}{
		{"gmtoffset only", `{"currency":"AUD","gmtoffset":39600}`},
		{"timezone name", `{"currency":"AUD","exchangeTimezoneName":"Australia/Sydney","gmtoffset":39600}`},
		{"unknown timezone name", `{"currency":"AUD","exchangeTimezoneName":"Nowhere/Atlantis","gmtoffset":39600}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"chart":{"result":[{"meta":` + tt.meta + `,"timestamp":[1704236400,1704322800],
"indicators":{"adjclose":[{"adjclose":[45.1,45.6]}]}}]}}`

			series, currency, err := parseChart("BHP.AX", []byte(body))
			require.NoError(t, err)
			assert.Equal(t, "AUD", currency)
			require.Equal(t, 2, series.Len())
			assert.Equal(t, "2024-01-03", contracts.DateKey(series.Points[0].Date))
			assert.Equal(t, "2024-01-04", contracts.DateKey(series.Points[1].Date))
			assert.Equal(t, time.UTC, series.Points[0].Date.Location())
		})
	}
}

func TestParseChartUSSessionUnchanged(t *testing.T) {
	series, _, err := parseChart("AAPL", []byte(chartOK))
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, "2024-01-02", contracts.DateKey(series.Points[0].Date))
	assert.Equal(t, "2024-01-04", contracts.DateKey(series.Points[1].Date))
}
