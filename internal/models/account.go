package models

// TradeMode tells what kind of account the terminal is logged into.
type TradeMode string

const (
	TradeModeDemo    TradeMode = "demo"
	TradeModeContest TradeMode = "contest"
	TradeModeReal    TradeMode = "real"
)

// Account is the single trading account known to the gateway. The gateway
// owns the one instance and mutates its fields in place when accountChanged
// and equityUpdated events arrive, so callers holding the pointer observe
// live updates. Fields must only be read from the goroutine that drives
// ProcessEvents.
type Account struct {
	Login           int64
	Name            string
	Server          string
	Company         string
	Mode            TradeMode
	Leverage        int
	OrderLimit      int
	Currency        string
	Balance         float64
	Credit          float64
	Profit          float64
	Equity          float64
	Margin          float64
	FreeMargin      float64
	MarginLevel     float64
	MarginCallLevel float64
	MarginStopLevel float64
	TradeAllowed    bool
	ExpertAllowed   bool
}
