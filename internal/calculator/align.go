package calculator

import (
	"errors"
	"fmt"
	"time"

	"SpreadSentinel/internal/model"
)

// Align inner-joins the series on timestamps populated in every one of them.
// Rows are ascending by time. An empty intersection yields an empty frame.
func Align(series ...model.RegularSeries) (model.AlignedFrame, error) {
	frame := model.AlignedFrame{Columns: make(map[string][]float64, len(series))}
	if len(series) == 0 {
		return frame, nil
	}

	lookups := make([]map[int64]float64, len(series))
	for i, s := range series {
		if s.Pair == "" {
			return model.AlignedFrame{}, errors.New("align: series without a name")
		}
		if _, dup := frame.Columns[s.Pair]; dup {
			return model.AlignedFrame{}, fmt.Errorf("align: duplicate series %q", s.Pair)
		}
		frame.Names = append(frame.Names, s.Pair)
		frame.Columns[s.Pair] = []float64{}

		m := make(map[int64]float64, len(s.Values))
		for k, v := range s.Values {
			if v.Valid {
				m[s.TimeAt(k).UnixNano()] = v.Value
			}
		}
		lookups[i] = m
	}

	// The first series is already ascending, so walking it preserves order.
	first := series[0]
	for k, v := range first.Values {
		if !v.Valid {
			continue
		}
		ts := first.TimeAt(k).UnixNano()
		row := make([]float64, len(series))
		row[0] = v.Value
		complete := true
		for i := 1; i < len(series); i++ {
			val, ok := lookups[i][ts]
			if !ok {
				complete = false
				break
			}
			row[i] = val
		}
		if !complete {
			continue
		}
		frame.Times = append(frame.Times, time.Unix(0, ts).UTC())
		for i, name := range frame.Names {
			frame.Columns[name] = append(frame.Columns[name], row[i])
		}
	}
	return frame, nil
}
