package models

// Instrument holds static metadata of a trading instrument. Immutable once
// fetched; the gateway caches it by symbol for its whole lifetime.
type Instrument struct {
	Symbol         string
	Description    string
	BaseCurrency   string
	QuoteCurrency  string
	MarginCurrency string
	DecimalPlaces  int
	Point          float64
	TickSize       float64
	ContractSize   float64
	LotStep        float64
	MinLot         float64
	MaxLot         float64
	MinStopLevel   int
	FreezeLevel    int
	Spread         int
}

// IsFloatingSpread reports whether the instrument has no fixed spread, in
// which case Spread is zero and the live spread comes from ticks.
func (i Instrument) IsFloatingSpread() bool {
	return i.Spread == 0
}
