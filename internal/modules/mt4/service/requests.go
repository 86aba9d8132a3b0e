package service

import (
	"time"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/internal/models"
)

// Command names of the request channel.
const (
	cmdGetTick         = "getTick"
	cmdGetBar          = "getBar"
	cmdGetHistoryBars  = "getHistoryBars"
	cmdGetInstrument   = "getInstrument"
	cmdGetInstruments  = "getInstruments"
	cmdGetAccount      = "getAccount"
	cmdGetOrder        = "getOrder"
	cmdGetExchangeRate = "getExchangeRate"
	cmdWatchSymbol     = "watchSymbol"
	cmdPlaceOrder      = "placeOrder"
	cmdModifyOrder     = "modifyOrder"
	cmdCloseOrder      = "closeOrder"
	cmdCancelOrder     = "cancelOrder"
)

// Terminal operation codes. Market operations are 0 and 1, pending
// operations 2 through 5.
const (
	opBuy = iota
	opSell
	opBuyLimit
	opSellLimit
	opBuyStop
	opSellStop
)

type request struct {
	command string
	content interface{}
}

// operationCode maps a side and order type onto the terminal opcode.
func operationCode(side models.Side, typ models.OrderType) (int, error) {
	switch typ {
	case models.MarketOrder:
		if side == models.Buy {
			return opBuy, nil
		}
		return opSell, nil
	case models.LimitOrder:
		if side == models.Buy {
			return opBuyLimit, nil
		}
		return opSellLimit, nil
	case models.StopOrder:
		if side == models.Buy {
			return opBuyStop, nil
		}
		return opSellStop, nil
	}
	return 0, &exchange.RequestError{Reason: "unknown order type"}
}

// decodeOperationCode is the inverse mapping; pending opcodes also imply the
// order starts out pending.
func decodeOperationCode(op int) (models.Side, models.OrderType, bool, error) {
	switch op {
	case opBuy:
		return models.Buy, models.MarketOrder, false, nil
	case opSell:
		return models.Sell, models.MarketOrder, false, nil
	case opBuyLimit:
		return models.Buy, models.LimitOrder, true, nil
	case opSellLimit:
		return models.Sell, models.LimitOrder, true, nil
	case opBuyStop:
		return models.Buy, models.StopOrder, true, nil
	case opSellStop:
		return models.Sell, models.StopOrder, true, nil
	}
	return 0, 0, false, &exchange.RequestError{Reason: "unknown operation code"}
}

func getTickRequest(symbol string) request {
	return request{cmdGetTick, map[string]interface{}{"symbol": symbol}}
}

func getBarRequest(symbol string, index int, timeframe models.Timeframe) request {
	return request{cmdGetBar, map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe.Minutes(),
		"index":     index,
	}}
}

// getHistoryBarsRequest omits a zero bound so the terminal applies its own
// range default.
func getHistoryBarsRequest(symbol string, start, end time.Time, timeframe models.Timeframe) request {
	content := map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe.Minutes(),
	}
	if !start.IsZero() {
		content["start"] = start.Unix()
	}
	if !end.IsZero() {
		content["end"] = end.Unix()
	}
	return request{cmdGetHistoryBars, content}
}

func getInstrumentRequest(symbol string) request {
	return request{cmdGetInstrument, map[string]interface{}{"symbol": symbol}}
}

func getInstrumentsRequest() request {
	return request{cmdGetInstruments, map[string]interface{}{}}
}

func getAccountRequest() request {
	return request{cmdGetAccount, map[string]interface{}{}}
}

func getOrderRequest(ticket int) request {
	return request{cmdGetOrder, map[string]interface{}{"ticket": ticket}}
}

func getExchangeRateRequest(base, quote string) request {
	return request{cmdGetExchangeRate, map[string]interface{}{
		"bcurrency": base,
		"qcurrency": quote,
	}}
}

func watchSymbolRequest(symbol string) request {
	return request{cmdWatchSymbol, map[string]interface{}{"symbol": symbol}}
}

// placeOrderRequest carries only the fields the caller set; the terminal
// fills the rest from its own defaults.
func placeOrderRequest(op int, o models.OrderRequest) request {
	content := map[string]interface{}{
		"symbol": o.Symbol,
		"op":     op,
		"lots":   o.Lots,
	}
	if o.Price != 0 {
		content["price"] = o.Price
	}
	if o.Slippage != 0 {
		content["slippage"] = o.Slippage
	}
	if o.StopLoss != 0 {
		content["sl"] = o.StopLoss
	}
	if o.TakeProfit != 0 {
		content["tp"] = o.TakeProfit
	}
	if o.Comment != "" {
		content["comment"] = o.Comment
	}
	if o.MagicNumber != 0 {
		content["magic"] = o.MagicNumber
	}
	if !o.Expiration.IsZero() {
		content["expiration"] = o.Expiration.Unix()
	}
	return request{cmdPlaceOrder, content}
}

func modifyOrderRequest(ticket int, m models.OrderModify) request {
	content := map[string]interface{}{"ticket": ticket}
	if m.Price != nil {
		content["price"] = *m.Price
	}
	if m.StopLoss != nil {
		content["sl"] = *m.StopLoss
	}
	if m.TakeProfit != nil {
		content["tp"] = *m.TakeProfit
	}
	if m.Expiration != nil {
		content["expiration"] = m.Expiration.Unix()
	}
	return request{cmdModifyOrder, content}
}

func closeOrderRequest(ticket int, c models.CloseRequest) request {
	content := map[string]interface{}{"ticket": ticket}
	if c.Price != 0 {
		content["price"] = c.Price
	}
	if c.Slippage != 0 {
		content["slippage"] = c.Slippage
	}
	if c.Lots != 0 {
		content["lots"] = c.Lots
	}
	return request{cmdCloseOrder, content}
}

func cancelOrderRequest(ticket int) request {
	return request{cmdCancelOrder, map[string]interface{}{"ticket": ticket}}
}
