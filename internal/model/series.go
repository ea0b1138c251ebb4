package model

import "time"

// Series is an ordered sequence of observations for one pair, with strictly
// increasing timestamps.
type Series struct {
	Pair   string
	Points []PricePoint
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Points) }

// RegularSeries is a series on a fixed grid: bucket k sits at Start + k*Interval.
// Buckets that are neither observed nor interpolated hold a missing Price.
type RegularSeries struct {
	Pair     string
	Start    time.Time
	Interval time.Duration
	Values   []Price
}

// Len returns the number of buckets, populated or not.
func (r RegularSeries) Len() int { return len(r.Values) }

// TimeAt returns the timestamp of bucket k.
func (r RegularSeries) TimeAt(k int) time.Time {
	return r.Start.Add(time.Duration(k) * r.Interval)
}

// Populated returns the number of buckets holding a value.
func (r RegularSeries) Populated() int {
	n := 0
	for _, v := range r.Values {
		if v.Valid {
			n++
		}
	}
	return n
}

// Latest returns the last populated bucket.
func (r RegularSeries) Latest() (PricePoint, bool) {
	for k := len(r.Values) - 1; k >= 0; k-- {
		if r.Values[k].Valid {
			return PricePoint{Time: r.TimeAt(k), Price: r.Values[k]}, true
		}
	}
	return PricePoint{}, false
}

// Points returns the grid as a plain Series, absent buckets included.
func (r RegularSeries) Points() Series {
	pts := make([]PricePoint, len(r.Values))
	for k, v := range r.Values {
		pts[k] = PricePoint{Time: r.TimeAt(k), Price: v}
	}
	return Series{Pair: r.Pair, Points: pts}
}

// AlignedFrame holds the rows where every input series had a value.
// All columns have len(Times) entries.
type AlignedFrame struct {
	Times   []time.Time
	Names   []string
	Columns map[string][]float64
}

// Len returns the number of rows.
func (f AlignedFrame) Len() int { return len(f.Times) }

// Empty reports whether the inputs shared no populated timestamp.
func (f AlignedFrame) Empty() bool { return len(f.Times) == 0 }

// Column returns the values for the named series.
func (f AlignedFrame) Column(name string) ([]float64, bool) {
	col, ok := f.Columns[name]
	return col, ok
}
