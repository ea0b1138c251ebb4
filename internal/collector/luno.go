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

// LunoFetcher retrieves candles from the Luno charts endpoint.
type LunoFetcher struct {
	Client  *http.Client
	BaseURL string
	Base    string
	Counter string
	pair    string
}

// NewLunoFetcher creates a candle fetcher for base/counter (e.g. XBT/MYR).
func NewLunoFetcher(pair, base, counter, proxyURL string) *LunoFetcher {
	return &LunoFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: "https://ajax.luno.com",
		Base:    base,
		Counter: counter,
		pair:    pair,
	}
}

func (f *LunoFetcher) Name() string { return "luno" }

func (f *LunoFetcher) Pair() string { return f.pair }

// Fetch returns the raw candle payload since the given instant. The endpoint
// has no upper bound; until is ignored.
func (f *LunoFetcher) Fetch(ctx context.Context, since, _ time.Time) (model.RawObservation, error) {
	params := url.Values{}
	params.Set("base", f.Base)
	params.Set("counter", f.Counter)
	params.Set("since", strconv.FormatInt(since.Unix(), 10))
	params.Set("include_partial", "true")
	u := fmt.Sprintf("%s/ajax/1/charts_candles?%s", f.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.RawObservation{}, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", "https://www.luno.com")
	req.Header.Set("Referer", "https://www.luno.com/")
	req.Header.Set("X-Luno-Override-Language", "en")

	body, err := getBody(f.Client, req, "luno")
	if err != nil {
		return model.RawObservation{}, err
	}
	return model.RawObservation{
		Source:    f.Name() + ":" + f.Base + f.Counter,
		Pair:      f.pair,
		Shape:     model.ShapeCandle,
		Body:      body,
		FetchedAt: time.Now().UTC(),
	}, nil
}
