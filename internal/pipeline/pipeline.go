// Package pipeline runs normalization, resampling, alignment and deviation
// evaluation over one set of raw payloads.
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"SpreadSentinel/internal/calculator"
	"SpreadSentinel/internal/model"
	"SpreadSentinel/internal/normalizer"
	"SpreadSentinel/internal/strategy"
)

// Inputs holds one payload per series. LegA and LegB multiply to the implied price.
// Lookback is the requested history window; it bounds the resample grid.
type Inputs struct {
	Actual   model.RawObservation
	LegA     model.RawObservation
	LegB     model.RawObservation
	Lookback time.Duration
}

// maxBuckets allows twice the requested window, since feeds may return
// somewhat more history than asked for.
func maxBuckets(lookback time.Duration) int {
	if lookback <= 0 {
		return calculator.DefaultMaxBuckets
	}
	return int(2*lookback/model.DefaultInterval) + 1
}

// Analyze never panics and never returns an error: every failure becomes a
// Result with Success set to false.
func Analyze(in Inputs) (res model.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("pipeline panicked")
			res = model.Failure(fmt.Sprintf("internal error: %v", r), nil)
		}
	}()

	legs := strategy.Legs{Actual: in.Actual.Pair, LegA: in.LegA.Pair, LegB: in.LegB.Pair}
	if legs.Actual == "" || legs.LegA == "" || legs.LegB == "" {
		return model.Failure("every input must name its pair", nil)
	}

	raws := []model.RawObservation{in.Actual, in.LegA, in.LegB}
	regular := make([]model.RegularSeries, len(raws))
	sourceErrors := map[string]string{}
	limit := maxBuckets(in.Lookback)
	for i, raw := range raws {
		s, err := normalizer.Normalize(raw)
		if err != nil {
			var mp *normalizer.MalformedPayloadError
			if !errors.As(err, &mp) {
				log.Error().Err(err).Str("pair", raw.Pair).Msg("normalize failed")
			}
			sourceErrors[raw.Pair] = err.Error()
			continue
		}
		if s.Len() == 0 {
			log.Warn().Str("pair", raw.Pair).Str("source", raw.Source).Msg("source returned no usable points")
		}
		r, err := calculator.Resample(s, model.DefaultInterval, limit)
		if err != nil {
			err = &normalizer.MalformedPayloadError{Source: raw.Source, Reason: "observations span too wide", Cause: err}
			log.Error().Err(err).Str("pair", raw.Pair).Msg("resample rejected")
			sourceErrors[raw.Pair] = err.Error()
			continue
		}
		regular[i] = r
		log.Debug().Str("pair", raw.Pair).Int("points", s.Len()).
			Int("buckets", regular[i].Len()).Int("populated", regular[i].Populated()).Msg("series resampled")
	}
	if len(sourceErrors) > 0 {
		return model.Failure("malformed payload from "+joinKeys(sourceErrors), sourceErrors)
	}

	frame, err := calculator.Align(regular...)
	if err != nil {
		return model.Failure(fmt.Sprintf("align series: %v", err), nil)
	}
	if frame.Empty() {
		log.Warn().Strs("pairs", frame.Names).Msg("no common timestamps across series")
	}

	report, err := strategy.Evaluate(frame, legs)
	if err != nil {
		return model.Failure(fmt.Sprintf("evaluate deviation: %v", err), nil)
	}
	applyLatestPrices(report, regular[0], regular[1], regular[2])

	return model.Result{Success: true, Report: report, GeneratedAt: time.Now().UTC()}
}

// applyLatestPrices reports each series' own latest value, which may be newer
// than the last aligned row. Absent values stay null.
func applyLatestPrices(report *model.DeviationReport, actual, legA, legB model.RegularSeries) {
	report.ActualPrice = latest(actual)
	report.LegAPrice = latest(legA)
	report.LegBPrice = latest(legB)
	report.ImpliedPrice = model.Missing()
	if report.LegAPrice.Valid && report.LegBPrice.Valid {
		report.ImpliedPrice = model.Some(report.LegAPrice.Value * report.LegBPrice.Value)
	}
}

func latest(r model.RegularSeries) model.Price {
	if p, ok := r.Latest(); ok {
		return p.Price
	}
	return model.Missing()
}

func joinKeys(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
