// Package strategy derives the implied cross price from aligned series and
// evaluates how far the observed price deviates from it.
package strategy

import (
	"fmt"
	"math"

	"SpreadSentinel/internal/calculator"
	"SpreadSentinel/internal/model"
)

// Legs names the frame columns holding the observed price and the two legs
// whose product is the implied price.
type Legs struct {
	Actual string
	LegA   string
	LegB   string
}

// Percentiles reported in every summary.
var Percentiles = []float64{5, 25, 50, 75, 90}

// Samples computes one DeviationSample per usable row. Rows with a zero or
// non-finite implied price, or a non-finite result, are left out entirely.
func Samples(frame model.AlignedFrame, legs Legs) ([]model.DeviationSample, error) {
	actual, legA, legB, err := columns(frame, legs)
	if err != nil {
		return nil, err
	}
	samples := make([]model.DeviationSample, 0, frame.Len())
	for i, ts := range frame.Times {
		implied := legA[i] * legB[i]
		if implied == 0 || !finite(implied) || !finite(actual[i]) {
			continue
		}
		pct := (actual[i] - implied) / implied * 100
		if !finite(pct) {
			continue
		}
		samples = append(samples, model.DeviationSample{
			Time:        ts,
			Actual:      actual[i],
			Implied:     implied,
			PercentDiff: pct,
		})
	}
	return samples, nil
}

// Summarize computes the distribution of values. Current is the last element
// of values, which callers pass in time order. An empty input yields an
// undefined summary.
func Summarize(values []float64) model.DeviationSummary {
	sorted := calculator.SortedFinite(values)
	if len(sorted) == 0 {
		return model.DeviationSummary{}
	}
	var current float64
	for i := len(values) - 1; i >= 0; i-- {
		if finite(values[i]) {
			current = values[i]
			break
		}
	}

	ps := make([]float64, len(Percentiles))
	for i, p := range Percentiles {
		// sorted is non-empty and p is within range, so this cannot fail.
		ps[i], _ = calculator.Percentile(sorted, p)
	}
	return model.DeviationSummary{
		Defined: true,
		Count:   len(sorted),
		Current: current,
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		P5:      ps[0],
		P25:     ps[1],
		Median:  ps[2],
		P75:     ps[3],
		P90:     ps[4],
	}
}

// Evaluate computes the deviation report for a frame. Prices in the report
// come from the last usable row; callers with fresher per-leg quotes may
// overwrite them.
func Evaluate(frame model.AlignedFrame, legs Legs) (*model.DeviationReport, error) {
	samples, err := Samples(frame, legs)
	if err != nil {
		return nil, err
	}

	pcts := make([]float64, len(samples))
	for i, s := range samples {
		pcts[i] = s.PercentDiff
	}
	summary := Summarize(pcts)

	report := &model.DeviationReport{
		Summary:           summary,
		StatisticsDefined: summary.Defined,
		Samples:           len(samples),
		Pairs:             model.Pairs{Actual: legs.Actual, LegA: legs.LegA, LegB: legs.LegB},
	}
	if !summary.Defined {
		return report, nil
	}

	last := samples[len(samples)-1]
	row := len(frame.Times) - 1
	for row >= 0 && !frame.Times[row].Equal(last.Time) {
		row--
	}
	report.CurrentPercentDiff = model.Some(summary.Current)
	report.Classification = classifySign(summary.Current)
	report.UsualClassification = classifyUsual(summary.Current, summary.Median)
	report.ActualPrice = model.Some(last.Actual)
	report.ImpliedPrice = model.Some(last.Implied)
	report.LegAPrice = model.Some(frame.Columns[legs.LegA][row])
	report.LegBPrice = model.Some(frame.Columns[legs.LegB][row])
	report.WindowStart = samples[0].Time
	report.WindowEnd = last.Time
	return report, nil
}

func columns(frame model.AlignedFrame, legs Legs) (actual, legA, legB []float64, err error) {
	var ok bool
	if actual, ok = frame.Column(legs.Actual); !ok {
		return nil, nil, nil, fmt.Errorf("frame has no column %q", legs.Actual)
	}
	if legA, ok = frame.Column(legs.LegA); !ok {
		return nil, nil, nil, fmt.Errorf("frame has no column %q", legs.LegA)
	}
	if legB, ok = frame.Column(legs.LegB); !ok {
		return nil, nil, nil, fmt.Errorf("frame has no column %q", legs.LegB)
	}
	if len(actual) != frame.Len() || len(legA) != frame.Len() || len(legB) != frame.Len() {
		return nil, nil, nil, fmt.Errorf("frame columns do not match %d rows", frame.Len())
	}
	return actual, legA, legB, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
