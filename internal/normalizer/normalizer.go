// Package normalizer turns raw feed payloads into time-ordered price series.
package normalizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"SpreadSentinel/internal/model"
)

// candlePayload is the exchange candle list. Fields stay raw so numbers and
// strings can both be accepted.
type candlePayload struct {
	Candles *[]struct {
		Timestamp json.RawMessage `json:"timestamp"`
		Open      json.RawMessage `json:"open"`
		High      json.RawMessage `json:"high"`
		Low       json.RawMessage `json:"low"`
		Close     json.RawMessage `json:"close"`
	} `json:"candles"`
}

// chartPayload is the response structure of the v8 chart API.
type chartPayload struct {
	Chart *struct {
		Result []struct {
			Timestamp  []json.RawMessage `json:"timestamp"`
			Indicators *struct {
				Quote []struct {
					Close []json.RawMessage `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Normalize decodes raw according to its declared shape and returns the close series.
func Normalize(raw model.RawObservation) (model.Series, error) {
	source := raw.Source
	if source == "" {
		source = raw.Pair
	}
	switch raw.Shape {
	case model.ShapeCandle:
		candles, err := ParseCandles(source, raw.Body)
		if err != nil {
			return model.Series{Pair: raw.Pair}, err
		}
		points := make([]model.PricePoint, len(candles))
		for i, c := range candles {
			points[i] = model.PricePoint{Time: c.Time, Price: c.Close}
		}
		return model.Series{Pair: raw.Pair, Points: points}, nil
	case model.ShapeChart:
		points, err := ParseChart(source, raw.Body)
		if err != nil {
			return model.Series{Pair: raw.Pair}, err
		}
		return model.Series{Pair: raw.Pair, Points: points}, nil
	default:
		return model.Series{Pair: raw.Pair}, malformed(source, fmt.Sprintf("unknown payload shape %q", raw.Shape), nil)
	}
}

// ParseCandles decodes a candle-form payload. The result is sorted by time with
// duplicate timestamps collapsed to the mean of their valid values.
func ParseCandles(source string, body []byte) ([]model.Candle, error) {
	var payload candlePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed(source, "decode candles", err)
	}
	if payload.Candles == nil {
		return nil, malformed(source, "missing candles array", nil)
	}

	candles := make([]model.Candle, 0, len(*payload.Candles))
	for i, rec := range *payload.Candles {
		ts, ok := parseUnix(rec.Timestamp)
		if !ok {
			log.Debug().Str("source", source).Int("index", i).Msg("dropping candle without usable timestamp")
			continue
		}
		candles = append(candles, model.Candle{
			Time:  ts,
			Open:  parsePrice(rec.Open),
			High:  parsePrice(rec.High),
			Low:   parsePrice(rec.Low),
			Close: parsePrice(rec.Close),
		})
	}

	return collapse(candles, func(c model.Candle) time.Time { return c.Time }, meanCandle), nil
}

// ParseChart decodes a chart-form payload into close prices.
func ParseChart(source string, body []byte) ([]model.PricePoint, error) {
	var payload chartPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed(source, "decode chart", err)
	}
	if payload.Chart == nil {
		return nil, malformed(source, "missing chart object", nil)
	}
	if payload.Chart.Error != nil {
		return nil, malformed(source, fmt.Sprintf("api error %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description), nil)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, malformed(source, "missing chart result", nil)
	}
	result := payload.Chart.Result[0]
	if result.Indicators == nil || len(result.Indicators.Quote) == 0 {
		return nil, malformed(source, "missing quote indicators", nil)
	}
	closes := result.Indicators.Quote[0].Close
	if len(result.Timestamp) != len(closes) {
		return nil, malformed(source, fmt.Sprintf("%d timestamps but %d closes", len(result.Timestamp), len(closes)), nil)
	}

	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, raw := range result.Timestamp {
		ts, ok := parseUnix(raw)
		if !ok {
			log.Debug().Str("source", source).Int("index", i).Msg("dropping quote without usable timestamp")
			continue
		}
		points = append(points, model.PricePoint{Time: ts, Price: parsePrice(closes[i])})
	}
	return collapse(points, func(p model.PricePoint) time.Time { return p.Time }, meanPoint), nil
}

// collapse sorts items by time and merges items sharing a timestamp.
func collapse[T any](items []T, timeOf func(T) time.Time, merge func([]T) T) []T {
	sort.SliceStable(items, func(i, j int) bool { return timeOf(items[i]).Before(timeOf(items[j])) })
	out := make([]T, 0, len(items))
	for i := 0; i < len(items); {
		j := i + 1
		for j < len(items) && timeOf(items[j]).Equal(timeOf(items[i])) {
			j++
		}
		if j-i == 1 {
			out = append(out, items[i])
		} else {
			out = append(out, merge(items[i:j]))
		}
		i = j
	}
	return out
}

// meanPrice averages the valid prices; it is missing when none is valid.
func meanPrice(prices []model.Price) model.Price {
	var sum float64
	n := 0
	for _, p := range prices {
		if v, ok := p.Get(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return model.Missing()
	}
	return model.Some(sum / float64(n))
}

func meanPoint(group []model.PricePoint) model.PricePoint {
	prices := make([]model.Price, len(group))
	for i, p := range group {
		prices[i] = p.Price
	}
	return model.PricePoint{Time: group[0].Time, Price: meanPrice(prices)}
}

func meanCandle(group []model.Candle) model.Candle {
	field := func(get func(model.Candle) model.Price) model.Price {
		prices := make([]model.Price, len(group))
		for i, c := range group {
			prices[i] = get(c)
		}
		return meanPrice(prices)
	}
	return model.Candle{
		Time:  group[0].Time,
		Open:  field(func(c model.Candle) model.Price { return c.Open }),
		High:  field(func(c model.Candle) model.Price { return c.High }),
		Low:   field(func(c model.Candle) model.Price { return c.Low }),
		Close: field(func(c model.Candle) model.Price { return c.Close }),
	}
}
