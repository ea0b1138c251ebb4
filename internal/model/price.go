package model

import (
	"encoding/json"
	"math"
	"time"
)

// DefaultInterval is the bucket width every series is regularized onto.
const DefaultInterval = time.Minute

// Price is an optional quote. A zero Price is missing, never a real 0.0.
type Price struct {
	Value float64
	Valid bool
}

// Some returns a present price. Non-finite values are treated as missing.
func Some(v float64) Price {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Price{}
	}
	return Price{Value: v, Valid: true}
}

// Missing returns an absent price.
func Missing() Price { return Price{} }

// Get returns the value and whether it is present.
func (p Price) Get() (float64, bool) { return p.Value, p.Valid }

// MarshalJSON encodes a missing price as null.
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON decodes null as missing.
func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Missing()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Some(v)
	return nil
}

// PricePoint is a single timestamped observation.
type PricePoint struct {
	Time  time.Time
	Price Price
}

// Candle represents a single OHLC bar. Volume is not carried by the exchange feed.
type Candle struct {
	Time  time.Time
	Open  Price
	High  Price
	Low   Price
	Close Price
}
