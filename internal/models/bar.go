package models

import "time"

// Timeframe is a bar aggregation period, counted in minutes, matching the
// terminal's period identifiers.
type Timeframe int

const (
	M1  Timeframe = 1
	M5  Timeframe = 5
	M15 Timeframe = 15
	M30 Timeframe = 30
	H1  Timeframe = 60
	H4  Timeframe = 240
	D1  Timeframe = 1440
	W1  Timeframe = 10080
	MN1 Timeframe = 43200
)

func (tf Timeframe) Minutes() int { return int(tf) }

// Bar is one closed candle. low <= open,close <= high is an invariant of the
// source feed and is not re-validated here.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}
