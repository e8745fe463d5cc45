package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const yahooChartURL = "https://query2.finance.yahoo.com/v8/finance/chart/"

// YahooOracle reads the Yahoo Finance v8 chart API. It does no caching; wrap
// it in a CachedOracle.
type YahooOracle struct {
	http    *http.Client
	baseURL string
}

func NewYahooOracle(timeout time.Duration) *YahooOracle {
	return &YahooOracle{
		http:    &http.Client{Timeout: timeout},
		baseURL: yahooChartURL,
	}
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

func (y *YahooOracle) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return decimal.Zero, ErrPriceUnavailable
	}
	chart, err := y.fetch(ctx, ticker, url.Values{"interval": {"1d"}, "range": {"5d"}})
	if err != nil {
		return decimal.Zero, err
	}
	r := chart.Chart.Result[0]
	if r.Meta.RegularMarketPrice > 0 {
		return decimal.NewFromFloat(r.Meta.RegularMarketPrice), nil
	}
	// Fallback: last non-empty close if meta is missing.
	return lastClose(r.Timestamp, closes(chart), time.Now())
}

// PriceOnDate returns the last close at or before day, looking back a week to
// cover weekends and holidays.
func (y *YahooOracle) PriceOnDate(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return decimal.Zero, ErrPriceUnavailable
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	chart, err := y.fetch(ctx, ticker, url.Values{
		"interval": {"1d"},
		"period1":  {fmt.Sprint(start.AddDate(0, 0, -7).Unix())},
		"period2":  {fmt.Sprint(end.Unix())},
	})
	if err != nil {
		return decimal.Zero, err
	}
	return lastClose(chart.Chart.Result[0].Timestamp, closes(chart), end)
}

func (y *YahooOracle) CurrentEURUSDRate(ctx context.Context) (decimal.Decimal, error) {
	return y.CurrentPrice(ctx, EURUSDTicker)
}

func (y *YahooOracle) EURUSDRateOnDate(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	return y.PriceOnDate(ctx, EURUSDTicker, day)
}

func (y *YahooOracle) fetch(ctx context.Context, ticker string, params url.Values) (*yahooChart, error) {
	endpoint := y.baseURL + url.PathEscape(ticker) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "portfolio-engine/1.0")

	resp, err := y.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: yahoo has no chart for %s", ErrPriceUnavailable, ticker)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo http %d for %s", resp.StatusCode, ticker)
	}

	var chart yahooChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decode yahoo chart for %s: %w", ticker, err)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no result for %s", ErrPriceUnavailable, ticker)
	}
	return &chart, nil
}

func closes(chart *yahooChart) []*float64 {
	r := chart.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	return r.Indicators.Quote[0].Close
}

// lastClose picks the latest non-empty close strictly before cutoff.
func lastClose(timestamps []int64, closes []*float64, cutoff time.Time) (decimal.Decimal, error) {
	if len(closes) != len(timestamps) {
		return decimal.Zero, ErrPriceUnavailable
	}
	for i := len(timestamps) - 1; i >= 0; i-- {
		if !time.Unix(timestamps[i], 0).Before(cutoff) {
			continue
		}
		if c := closes[i]; c != nil && *c > 0 {
			return decimal.NewFromFloat(*c), nil
		}
	}
	return decimal.Zero, ErrPriceUnavailable
}
