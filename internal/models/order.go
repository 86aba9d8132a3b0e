package models

import "time"

// Side tells on which side of the market an order is.
type Side int

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) Reverse() Side { return -s }

func (s Side) IsValid() bool { return s == Buy || s == Sell }

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "side(?)"
}

// OrderType distinguishes market orders from the two pending kinds.
type OrderType int

const (
	MarketOrder OrderType = iota
	LimitOrder
	StopOrder
)

func (t OrderType) IsValid() bool {
	return t == MarketOrder || t == LimitOrder || t == StopOrder
}

func (t OrderType) String() string {
	switch t {
	case MarketOrder:
		return "market"
	case LimitOrder:
		return "limit"
	case StopOrder:
		return "stop"
	}
	return "type(?)"
}

// OrderStatus is the lifecycle state of one tracked order.
type OrderStatus int

const (
	Pending OrderStatus = iota
	Canceled
	Expired
	PartiallyFilled
	Filled
	Closed
)

func (s OrderStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Canceled:
		return "canceled"
	case Expired:
		return "expired"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Closed:
		return "closed"
	}
	return "status(?)"
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == Canceled || s == Expired || s == Closed
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// A transition to the same status is allowed but means "no change"; callers
// use it to apply duplicate deliveries idempotently.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case Pending:
		return next == Canceled || next == Expired || next == PartiallyFilled || next == Filled
	case PartiallyFilled:
		return next == Filled || next == Closed
	case Filled:
		return next == Closed
	}
	return false
}

// Order is one logical order record, keyed by its remote-assigned ticket.
// Records are owned by the gateway's order book; callers always receive
// copies and change state only through the gateway operations.
//
// Zero values mean "not set" for ClosePrice, CloseTime, StopLoss, TakeProfit
// and Expiration, matching the wire protocol which omits these keys.
type Order struct {
	Ticket      int
	Symbol      string
	Side        Side
	Type        OrderType
	Lots        float64
	Status      OrderStatus
	OpenPrice   float64
	OpenTime    time.Time
	ClosePrice  float64
	CloseTime   time.Time
	StopLoss    float64
	TakeProfit  float64
	Expiration  time.Time
	MagicNumber int
	Comment     string
	Commission  float64
	Profit      float64
	Swap        float64
}

// OrderRequest carries the parameters of a place-order operation. Optional
// numeric fields use zero to mean "unset" and are omitted from the wire.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        OrderType
	Lots        float64
	Price       float64
	Slippage    int
	StopLoss    float64
	TakeProfit  float64
	Comment     string
	MagicNumber int
	Expiration  time.Time
}

// OrderModify carries the optional parameters of a modify-order operation.
// Nil pointers are left untouched on the remote side.
type OrderModify struct {
	StopLoss   *float64
	TakeProfit *float64
	Price      *float64
	Expiration *time.Time
}

// IsEmpty reports whether no field is set, in which case modify is a no-op.
func (m OrderModify) IsEmpty() bool {
	return m.StopLoss == nil && m.TakeProfit == nil && m.Price == nil && m.Expiration == nil
}

// CloseRequest carries the optional parameters of a close-order operation.
// A non-zero Lots smaller than the order size requests a partial close.
type CloseRequest struct {
	Price    float64
	Slippage int
	Lots     float64
}
