package calculator

import (
	"errors"
	"fmt"
	"time"

	"SpreadSentinel/internal/model"
)

// DefaultMaxBuckets caps the grid when the caller gives no limit: two weeks of minutes.
const DefaultMaxBuckets = 14 * 24 * 60

// ErrGridTooLarge is returned when a series spans more buckets than allowed.
var ErrGridTooLarge = errors.New("resample grid too large")

// Resample regularizes s onto a grid of the given interval spanning its first
// to last observation. Observations sharing a bucket are averaged; interior
// gaps are interpolated linearly in time; leading and trailing buckets
// without data stay missing. A series spanning more than maxBuckets buckets
// (DefaultMaxBuckets when maxBuckets <= 0) is rejected before any allocation.
func Resample(s model.Series, interval time.Duration, maxBuckets int) (model.RegularSeries, error) {
	if interval <= 0 {
		interval = model.DefaultInterval
	}
	out := model.RegularSeries{Pair: s.Pair, Interval: interval}
	if maxBuckets <= 0 {
		maxBuckets = DefaultMaxBuckets
	}
	if len(s.Points) == 0 {
		return out, nil
	}

	step := int64(interval)
	minTs, maxTs := s.Points[0].Time.UnixNano(), s.Points[0].Time.UnixNano()
	for _, p := range s.Points[1:] {
		ts := p.Time.UnixNano()
		if ts < minTs {
			minTs = ts
		}
		if ts > maxTs {
			maxTs = ts
		}
	}
	start := bucketStart(minTs, step)
	span := (bucketStart(maxTs, step)-start)/step + 1
	if span > int64(maxBuckets) {
		return out, fmt.Errorf("%w: %s to %s needs %d buckets, limit %d", ErrGridTooLarge,
			time.Unix(0, minTs).UTC().Format(time.RFC3339), time.Unix(0, maxTs).UTC().Format(time.RFC3339), span, maxBuckets)
	}
	n := int(span)

	sums := make([]float64, n)
	counts := make([]int, n)
	for _, p := range s.Points {
		v, ok := p.Price.Get()
		if !ok {
			continue
		}
		k := (bucketStart(p.Time.UnixNano(), step) - start) / step
		sums[k] += v
		counts[k]++
	}

	values := make([]model.Price, n)
	for k := range values {
		if counts[k] > 0 {
			values[k] = model.Some(sums[k] / float64(counts[k]))
		}
	}

	out.Start = time.Unix(0, start).UTC()
	out.Values = values
	interpolateTime(out)
	return out, nil
}

// bucketStart floors ts to the containing interval boundary.
func bucketStart(ts, step int64) int64 {
	r := ts % step
	if r < 0 {
		r += step
	}
	return ts - r
}

// interpolateTime fills missing buckets that have a populated neighbour on
// both sides, weighting by elapsed time from the preceding bucket.
func interpolateTime(r model.RegularSeries) {
	prev := -1
	for k, v := range r.Values {
		if !v.Valid {
			continue
		}
		if prev >= 0 && k-prev > 1 {
			t0, t1 := r.TimeAt(prev), r.TimeAt(k)
			v0, v1 := r.Values[prev].Value, v.Value
			span := float64(t1.Sub(t0))
			for j := prev + 1; j < k; j++ {
				w := float64(r.TimeAt(j).Sub(t0)) / span
				r.Values[j] = model.Some(v0 + (v1-v0)*w)
			}
		}
		prev = k
	}
}
