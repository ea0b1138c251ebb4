package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"SpreadSentinel/internal/model"
	"SpreadSentinel/internal/pipeline"
)

// MockFetcher returns a fixed payload for development and testing.
type MockFetcher struct {
	PairName string
	Shape    model.PayloadShape
	Body     []byte
	Err      error
	Calls    int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Pair() string { return m.PairName }

func (m *MockFetcher) Fetch(_ context.Context, _, _ time.Time) (model.RawObservation, error) {
	m.Calls++
	if m.Err != nil {
		return model.RawObservation{}, m.Err
	}
	return model.RawObservation{
		Source:    m.Name(),
		Pair:      m.PairName,
		Shape:     m.Shape,
		Body:      m.Body,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Collector fetches the three feeds and runs the deviation pipeline.
type Collector struct {
	Actual   Fetcher
	LegA     Fetcher
	LegB     Fetcher
	Lookback time.Duration
	Now      func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(actual, legA, legB Fetcher, lookback time.Duration) *Collector {
	return &Collector{Actual: actual, LegA: legA, LegB: legB, Lookback: lookback, Now: time.Now}
}

// Collect fetches all feeds concurrently and evaluates them once every fetch
// has returned. A failed fetch is reported per pair in the result.
func (c *Collector) Collect(ctx context.Context) model.Result {
	until := c.Now().UTC()
	since := until.Add(-c.Lookback)

	fetchers := []Fetcher{c.Actual, c.LegA, c.LegB}
	raws := make([]model.RawObservation, len(fetchers))
	errs := make([]error, len(fetchers))

	// Plain Group: one failed fetch does not cancel the others.
	var g errgroup.Group
	for i, f := range fetchers {
		i, f := i, f
		g.Go(func() error {
			start := time.Now()
			raws[i], errs[i] = f.Fetch(ctx, since, until)
			log.Debug().Str("source", f.Name()).Str("pair", f.Pair()).
				Dur("took", time.Since(start)).Int("bytes", len(raws[i].Body)).Msg("fetch done")
			if errs[i] != nil {
				return fmt.Errorf("fetch %s: %w", f.Pair(), errs[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("collect incomplete")
	}

	sourceErrors := map[string]string{}
	for i, err := range errs {
		if err != nil {
			log.Error().Err(err).Str("source", fetchers[i].Name()).Str("pair", fetchers[i].Pair()).Msg("fetch failed")
			sourceErrors[fetchers[i].Pair()] = err.Error()
		}
	}
	if len(sourceErrors) > 0 {
		pairs := make([]string, 0, len(sourceErrors))
		for p := range sourceErrors {
			pairs = append(pairs, p)
		}
		sort.Strings(pairs)
		return model.Failure(fmt.Sprintf("fetch failed for %s", strings.Join(pairs, ", ")), sourceErrors)
	}

	return pipeline.Analyze(pipeline.Inputs{Actual: raws[0], LegA: raws[1], LegB: raws[2], Lookback: c.Lookback})
}
