package service

import (
	"fmt"
	"time"

	"mt4_gateway/internal/models"
)

// Event names of the subscription channel. Quote events carry the symbol as
// a dynamic topic suffix ("tick.EURUSD"); order and account events are
// published under their bare static name.
const (
	evTick           = "tick"
	evBarClosed      = "bar"
	evOrderPlaced    = "orderPlaced"
	evOrderFinished  = "orderFinished"
	evOrderModified  = "orderModified"
	evOrderUpdated   = "orderUpdated"
	evAccountChanged = "accountChanged"
	evEquityUpdated  = "equityUpdated"
)

// event is the decoded form of one pushed terminal message.
type event interface{ isEvent() }

type tickEvent struct {
	Symbol string
	Tick   models.Tick
}

type barClosedEvent struct {
	Symbol string
	Bar    models.Bar
}

type orderPlacedEvent struct {
	Order models.Order
}

type orderFinishedEvent struct {
	Ticket     int
	Status     models.OrderStatus
	Lots       float64
	ClosePrice float64
	CloseTime  time.Time
	StopLoss   float64
	TakeProfit float64
	Comment    string
	Commission float64
	Profit     float64
	Swap       float64
}

type orderModifiedEvent struct {
	Ticket     int
	OpenPrice  float64
	StopLoss   float64
	TakeProfit float64
	Expiration time.Time
}

type orderUpdatedEvent struct {
	Ticket     int
	Comment    string
	Commission float64
	Profit     float64
	Swap       float64
}

type accountChangedEvent struct {
	Currency      string
	Leverage      int
	Credit        float64
	ExpertAllowed bool
	TradeAllowed  bool
	OrderLimit    int
}

// equityUpdatedEvent streams the margin state on every tick of an open
// position. Balance only changes on deposits and closes, so the terminal
// omits it when unchanged.
type equityUpdatedEvent struct {
	Equity      float64
	Profit      float64
	Margin      float64
	MarginLevel float64
	FreeMargin  float64
	Balance     *float64
}

func (tickEvent) isEvent()           {}
func (barClosedEvent) isEvent()      {}
func (orderPlacedEvent) isEvent()    {}
func (orderFinishedEvent) isEvent()  {}
func (orderModifiedEvent) isEvent()  {}
func (orderUpdatedEvent) isEvent()   {}
func (accountChangedEvent) isEvent() {}
func (equityUpdatedEvent) isEvent()  {}

// Quote events use positional tuples, everything else named objects.
var tickEventShape = reqTuple(
	req(kindTime),
	req(kindFloat),
	req(kindFloat),
)

var barClosedEventShape = reqObj(map[string]field{
	"time":   req(kindTime),
	"open":   req(kindFloat),
	"high":   req(kindFloat),
	"low":    req(kindFloat),
	"close":  req(kindFloat),
	"volume": req(kindInt),
})

var orderPlacedEventShape = reqObj(map[string]field{
	"ticket":     req(kindInt),
	"symbol":     req(kindString),
	"op":         req(kindInt), // operation code
	"lots":       req(kindFloat),
	"openPrice":  req(kindFloat),
	"openTime":   req(kindTime),
	"sl":         opt(kindFloat, nil),
	"tp":         opt(kindFloat, nil),
	"expiration": opt(kindTime, nil),
	"comment":    opt(kindString, ""),
	"magic":      opt(kindInt, nil),
	"commission": opt(kindFloat, nil),
	"profit":     opt(kindFloat, nil),
	"swap":       opt(kindFloat, nil),
})

var orderFinishedEventShape = reqObj(map[string]field{
	"ticket":     req(kindInt),
	"op":         req(kindInt), // operation code
	"lots":       opt(kindFloat, nil),
	"cp":         req(kindFloat),
	"ct":         req(kindTime),
	"sl":         opt(kindFloat, nil),
	"tp":         opt(kindFloat, nil),
	"expiration": opt(kindTime, nil),
	"comment":    opt(kindString, ""),
	"commission": opt(kindFloat, nil),
	"profit":     opt(kindFloat, nil),
	"swap":       opt(kindFloat, nil),
})

var orderModifiedEventShape = reqObj(map[string]field{
	"ticket":     req(kindInt),
	"openPrice":  req(kindFloat),
	"sl":         req(kindFloat),
	"tp":         req(kindFloat),
	"expiration": opt(kindTime, nil),
})

var orderUpdatedEventShape = reqObj(map[string]field{
	"ticket":     req(kindInt),
	"comment":    opt(kindString, ""),
	"commission": req(kindFloat),
	"profit":     req(kindFloat),
	"swap":       req(kindFloat),
})

var accountChangedEventShape = reqObj(map[string]field{
	"currency":        req(kindString),
	"leverage":        req(kindInt),
	"credit":          req(kindFloat),
	"expertAllowed":   req(kindBool),
	"tradeAllowed":    req(kindBool),
	"maxActiveOrders": req(kindInt),
})

var equityUpdatedEventShape = reqObj(map[string]field{
	"equity":     req(kindFloat),
	"profit":     req(kindFloat),
	"margin":     req(kindFloat),
	"marginLvl":  req(kindFloat),
	"freeMargin": req(kindFloat),
	"balance":    opt(kindFloat, nil),
})

// decodeEvent parses one pushed frame into its typed event.
func decodeEvent(msg string) (event, error) {
	name, suffix, payload, err := parseEventFrame(msg)
	if err != nil {
		return nil, err
	}

	switch name {
	case evTick:
		if suffix == "" {
			return nil, fmt.Errorf("tick event without symbol suffix")
		}
		doc, err := conform(tickEventShape, payload, "")
		if err != nil {
			return nil, err
		}
		tup := docArr(doc)
		return tickEvent{
			Symbol: suffix,
			Tick: models.Tick{
				Time: docTime(tup[0]),
				Bid:  docF64(tup[1]),
				Ask:  docF64(tup[2]),
			},
		}, nil

	case evBarClosed:
		if suffix == "" {
			return nil, fmt.Errorf("bar event without symbol suffix")
		}
		doc, err := conform(barClosedEventShape, payload, "")
		if err != nil {
			return nil, err
		}
		obj := docObj(doc)
		return barClosedEvent{
			Symbol: suffix,
			Bar: models.Bar{
				Time:   docTime(obj["time"]),
				Open:   docF64(obj["open"]),
				High:   docF64(obj["high"]),
				Low:    docF64(obj["low"]),
				Close:  docF64(obj["close"]),
				Volume: docI64(obj["volume"]),
			},
		}, nil

	case evOrderPlaced:
		return decodeOrderPlacedEvent(payload)

	case evOrderFinished:
		return decodeOrderFinishedEvent(payload)

	case evOrderModified:
		doc, err := conform(orderModifiedEventShape, payload, "")
		if err != nil {
			return nil, err
		}
		obj := docObj(doc)
		return orderModifiedEvent{
			Ticket:     docInt(obj["ticket"]),
			OpenPrice:  docF64(obj["openPrice"]),
			StopLoss:   docF64(obj["sl"]),
			TakeProfit: docF64(obj["tp"]),
			Expiration: docTime(obj["expiration"]),
		}, nil

	case evOrderUpdated:
		doc, err := conform(orderUpdatedEventShape, payload, "")
		if err != nil {
			return nil, err
		}
		obj := docObj(doc)
		return orderUpdatedEvent{
			Ticket:     docInt(obj["ticket"]),
			Comment:    docStr(obj["comment"]),
			Commission: docF64(obj["commission"]),
			Profit:     docF64(obj["profit"]),
			Swap:       docF64(obj["swap"]),
		}, nil

	case evAccountChanged:
		doc, err := conform(accountChangedEventShape, payload, "")
		if err != nil {
			return nil, err
		}
		obj := docObj(doc)
		return accountChangedEvent{
			Currency:      docStr(obj["currency"]),
			Leverage:      docInt(obj["leverage"]),
			Credit:        docF64(obj["credit"]),
			ExpertAllowed: docBool(obj["expertAllowed"]),
			TradeAllowed:  docBool(obj["tradeAllowed"]),
			OrderLimit:    docInt(obj["maxActiveOrders"]),
		}, nil

	case evEquityUpdated:
		doc, err := conform(equityUpdatedEventShape, payload, "")
		if err != nil {
			return nil, err
		}
		obj := docObj(doc)
		ev := equityUpdatedEvent{
			Equity:      docF64(obj["equity"]),
			Profit:      docF64(obj["profit"]),
			Margin:      docF64(obj["margin"]),
			MarginLevel: docF64(obj["marginLvl"]),
			FreeMargin:  docF64(obj["freeMargin"]),
		}
		if hasKey(payload, "balance") {
			balance := docF64(obj["balance"])
			ev.Balance = &balance
		}
		return ev, nil
	}

	return nil, fmt.Errorf("unknown event '%s'", name)
}

func decodeOrderPlacedEvent(payload interface{}) (event, error) {
	doc, err := conform(orderPlacedEventShape, payload, "")
	if err != nil {
		return nil, err
	}
	obj := docObj(doc)

	side, typ, pending, err := decodeOperationCode(docInt(obj["op"]))
	if err != nil {
		return nil, err
	}
	status := models.Filled
	if pending {
		status = models.Pending
	}

	return orderPlacedEvent{Order: models.Order{
		Ticket:      docInt(obj["ticket"]),
		Symbol:      docStr(obj["symbol"]),
		Side:        side,
		Type:        typ,
		Lots:        docF64(obj["lots"]),
		Status:      status,
		OpenPrice:   docF64(obj["openPrice"]),
		OpenTime:    docTime(obj["openTime"]),
		StopLoss:    docF64(obj["sl"]),
		TakeProfit:  docF64(obj["tp"]),
		Expiration:  docTime(obj["expiration"]),
		MagicNumber: docInt(obj["magic"]),
		Comment:     docStr(obj["comment"]),
		Commission:  docF64(obj["commission"]),
		Profit:      docF64(obj["profit"]),
		Swap:        docF64(obj["swap"]),
	}}, nil
}

// decodeOrderFinishedEvent derives the terminal status from the opcode: a
// finished market order was closed, a finished pending order was canceled or,
// when its expiration had passed, expired.
func decodeOrderFinishedEvent(payload interface{}) (event, error) {
	doc, err := conform(orderFinishedEventShape, payload, "")
	if err != nil {
		return nil, err
	}
	obj := docObj(doc)

	op := docInt(obj["op"])
	_, _, pending, err := decodeOperationCode(op)
	if err != nil {
		return nil, err
	}

	closeTime := docTime(obj["ct"])
	status := models.Closed
	if pending {
		status = finishedPendingStatus(docTime(obj["expiration"]), closeTime)
	}

	return orderFinishedEvent{
		Ticket:     docInt(obj["ticket"]),
		Status:     status,
		Lots:       docF64(obj["lots"]),
		ClosePrice: docF64(obj["cp"]),
		CloseTime:  closeTime,
		StopLoss:   docF64(obj["sl"]),
		TakeProfit: docF64(obj["tp"]),
		Comment:    docStr(obj["comment"]),
		Commission: docF64(obj["commission"]),
		Profit:     docF64(obj["profit"]),
		Swap:       docF64(obj["swap"]),
	}, nil
}
