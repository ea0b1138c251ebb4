package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"SpreadSentinel/internal/model"
)

// YahooFetcher retrieves 1-minute chart data from the Yahoo Finance v8 API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	Symbol  string
	pair    string
}

// NewYahooFetcher creates a chart fetcher for symbol (e.g. "BTC-USD", "USDMYR=X").
func NewYahooFetcher(pair, symbol, proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: "https://query2.finance.yahoo.com",
		Symbol:  symbol,
		pair:    pair,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) Pair() string { return f.pair }

// Fetch returns the raw chart payload for [since, until].
func (f *YahooFetcher) Fetch(ctx context.Context, since, until time.Time) (model.RawObservation, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(since.Unix(), 10))
	params.Set("period2", strconv.FormatInt(until.Unix(), 10))
	params.Set("interval", "1m")
	params.Set("includePrePost", "true")
	params.Set("events", "div|split|earn")
	params.Set("lang", "en-US")
	params.Set("region", "US")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.Symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.RawObservation{}, err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", "https://finance.yahoo.com")
	req.Header.Set("Referer", "https://finance.yahoo.com/")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	body, err := getBody(f.Client, req, "yahoo")
	if err != nil {
		return model.RawObservation{}, err
	}
	return model.RawObservation{
		Source:    f.Name() + ":" + f.Symbol,
		Pair:      f.pair,
		Shape:     model.ShapeChart,
		Body:      body,
		FetchedAt: time.Now().UTC(),
	}, nil
}
