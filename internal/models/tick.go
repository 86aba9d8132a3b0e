package models

import (
	"fmt"
	"time"
)

// Tick is an immutable snapshot of an instrument's quote.
type Tick struct {
	Time time.Time
	Bid  float64
	Ask  float64
}

// Spread is the difference between ask and bid. The server may report
// bid > ask on broken feeds; the value is returned as-is.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

func (t Tick) String() string {
	return fmt.Sprintf("Tick(time=%s, bid=%v, ask=%v)", t.Time.UTC().Format(time.RFC3339), t.Bid, t.Ask)
}
