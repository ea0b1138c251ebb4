package model

import "time"

// PayloadShape names the structure of a raw payload.
type PayloadShape string

const (
	// ShapeCandle is a list of OHLC records with string or numeric fields.
	ShapeCandle PayloadShape = "candle"
	// ShapeChart is a chart result with parallel timestamp and close arrays.
	ShapeChart PayloadShape = "chart"
)

// RawObservation is an undecoded payload returned by one fetch.
type RawObservation struct {
	Source    string
	Pair      string
	Shape     PayloadShape
	Body      []byte
	FetchedAt time.Time
}
