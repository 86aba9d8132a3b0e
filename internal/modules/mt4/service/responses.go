package service

import (
	"time"

	"mt4_gateway/internal/models"
)

// Reply shapes, one per command. Field names follow the wire protocol, which
// abbreviates the hot order fields: op/ot are open price and time, cp/ct the
// close pair, sl/tp the protective stops.

var tickShape = reqObj(map[string]field{
	"time": req(kindTime),
	"bid":  req(kindFloat),
	"ask":  req(kindFloat),
})

func decodeTick(payload interface{}) (models.Tick, error) {
	doc, err := conform(tickShape, payload, "")
	if err != nil {
		return models.Tick{}, err
	}
	obj := docObj(doc)
	return models.Tick{
		Time: docTime(obj["time"]),
		Bid:  docF64(obj["bid"]),
		Ask:  docF64(obj["ask"]),
	}, nil
}

// Bars travel as fixed tuples to keep history replies compact.
var barShape = reqTuple(
	req(kindTime),  // open time
	req(kindFloat), // open
	req(kindFloat), // high
	req(kindFloat), // low
	req(kindFloat), // close
	req(kindInt),   // tick volume
)

var historyBarsShape = reqArr(barShape)

func barFromTuple(tup []interface{}) models.Bar {
	return models.Bar{
		Time:   docTime(tup[0]),
		Open:   docF64(tup[1]),
		High:   docF64(tup[2]),
		Low:    docF64(tup[3]),
		Close:  docF64(tup[4]),
		Volume: docI64(tup[5]),
	}
}

func decodeBar(payload interface{}) (models.Bar, error) {
	doc, err := conform(barShape, payload, "")
	if err != nil {
		return models.Bar{}, err
	}
	return barFromTuple(docArr(doc)), nil
}

func decodeHistoryBars(payload interface{}) ([]models.Bar, error) {
	doc, err := conform(historyBarsShape, payload, "")
	if err != nil {
		return nil, err
	}
	tuples := docArr(doc)
	bars := make([]models.Bar, len(tuples))
	for i, tup := range tuples {
		bars[i] = barFromTuple(docArr(tup))
	}
	return bars, nil
}

var instrumentFields = map[string]field{
	"description":  opt(kindString, ""),
	"bcurrency":    req(kindString),
	"qcurrency":    req(kindString),
	"mcurrency":    req(kindString),
	"ndecimals":    req(kindInt),
	"point":        req(kindFloat),
	"tickSize":     req(kindFloat),
	"contractSize": req(kindFloat),
	"lotStep":      req(kindFloat),
	"minLot":       req(kindFloat),
	"maxLot":       req(kindFloat),
	"minStop":      opt(kindInt, nil),
	"freezeLvl":    opt(kindInt, nil),
	"spread":       opt(kindInt, nil),
}

var instrumentShape = reqObj(instrumentFields)

var instrumentsShape = reqArr(reqObj(withSymbol(instrumentFields)))

func withSymbol(fields map[string]field) map[string]field {
	out := make(map[string]field, len(fields)+1)
	for name, f := range fields {
		out[name] = f
	}
	out["symbol"] = req(kindString)
	return out
}

func instrumentFromDoc(symbol string, obj map[string]interface{}) models.Instrument {
	return models.Instrument{
		Symbol:         symbol,
		Description:    docStr(obj["description"]),
		BaseCurrency:   docStr(obj["bcurrency"]),
		QuoteCurrency:  docStr(obj["qcurrency"]),
		MarginCurrency: docStr(obj["mcurrency"]),
		DecimalPlaces:  docInt(obj["ndecimals"]),
		Point:          docF64(obj["point"]),
		TickSize:       docF64(obj["tickSize"]),
		ContractSize:   docF64(obj["contractSize"]),
		LotStep:        docF64(obj["lotStep"]),
		MinLot:         docF64(obj["minLot"]),
		MaxLot:         docF64(obj["maxLot"]),
		MinStopLevel:   docInt(obj["minStop"]),
		FreezeLevel:    docInt(obj["freezeLvl"]),
		Spread:         docInt(obj["spread"]),
	}
}

// decodeInstrument takes the requested symbol since the reply does not echo
// it back.
func decodeInstrument(symbol string, payload interface{}) (models.Instrument, error) {
	doc, err := conform(instrumentShape, payload, "")
	if err != nil {
		return models.Instrument{}, err
	}
	return instrumentFromDoc(symbol, docObj(doc)), nil
}

func decodeInstruments(payload interface{}) ([]models.Instrument, error) {
	doc, err := conform(instrumentsShape, payload, "")
	if err != nil {
		return nil, err
	}
	items := docArr(doc)
	instruments := make([]models.Instrument, len(items))
	for i, item := range items {
		obj := docObj(item)
		instruments[i] = instrumentFromDoc(docStr(obj["symbol"]), obj)
	}
	return instruments, nil
}

var accountShape = reqObj(map[string]field{
	"login":         req(kindInt),
	"name":          req(kindString),
	"server":        opt(kindString, ""),
	"company":       opt(kindString, ""),
	"tradeMode":     req(kindString),
	"leverage":      req(kindInt),
	"orderLimit":    opt(kindInt, nil),
	"currency":      req(kindString),
	"balance":       req(kindFloat),
	"credit":        opt(kindFloat, nil),
	"profit":        opt(kindFloat, nil),
	"equity":        req(kindFloat),
	"margin":        opt(kindFloat, nil),
	"freeMargin":    opt(kindFloat, nil),
	"marginLvl":     opt(kindFloat, nil),
	"marginCallLvl": opt(kindFloat, nil),
	"marginStopLvl": opt(kindFloat, nil),
	"tradeAllowed":  opt(kindBool, true),
	"expertAllowed": opt(kindBool, true),
})

func decodeAccount(payload interface{}) (*models.Account, error) {
	doc, err := conform(accountShape, payload, "")
	if err != nil {
		return nil, err
	}
	obj := docObj(doc)
	return &models.Account{
		Login:           docI64(obj["login"]),
		Name:            docStr(obj["name"]),
		Server:          docStr(obj["server"]),
		Company:         docStr(obj["company"]),
		Mode:            models.TradeMode(docStr(obj["tradeMode"])),
		Leverage:        docInt(obj["leverage"]),
		OrderLimit:      docInt(obj["orderLimit"]),
		Currency:        docStr(obj["currency"]),
		Balance:         docF64(obj["balance"]),
		Credit:          docF64(obj["credit"]),
		Profit:          docF64(obj["profit"]),
		Equity:          docF64(obj["equity"]),
		Margin:          docF64(obj["margin"]),
		FreeMargin:      docF64(obj["freeMargin"]),
		MarginLevel:     docF64(obj["marginLvl"]),
		MarginCallLevel: docF64(obj["marginCallLvl"]),
		MarginStopLevel: docF64(obj["marginStopLvl"]),
		TradeAllowed:    docBool(obj["tradeAllowed"]),
		ExpertAllowed:   docBool(obj["expertAllowed"]),
	}, nil
}

var exchangeRateShape = reqObj(map[string]field{
	"rate": req(kindFloat),
})

func decodeExchangeRate(payload interface{}) (float64, error) {
	doc, err := conform(exchangeRateShape, payload, "")
	if err != nil {
		return 0, err
	}
	return docF64(docObj(doc)["rate"]), nil
}

var watchSymbolShape = reqObj(map[string]field{
	"symbols": optArr(req(kindString)),
})

// decodeWatchSymbol returns the full list of symbols the terminal now pushes
// quotes for, when the server reports it.
func decodeWatchSymbol(payload interface{}) ([]string, error) {
	doc, err := conform(watchSymbolShape, payload, "")
	if err != nil {
		return nil, err
	}
	items := docArr(docObj(doc)["symbols"])
	symbols := make([]string, len(items))
	for i, item := range items {
		symbols[i] = docStr(item)
	}
	return symbols, nil
}

// placeOrder replies always carry the ticket; execution details follow only
// when the server fills them in synchronously. Older bridge builds reply
// with the bare ticket and deliver the fill via an orderPlaced event.
var placeOrderShape = reqObj(map[string]field{
	"ticket":     req(kindInt),
	"lots":       opt(kindFloat, nil),
	"op":         opt(kindFloat, nil),
	"ot":         opt(kindTime, nil),
	"sl":         opt(kindFloat, nil),
	"tp":         opt(kindFloat, nil),
	"expiration": opt(kindTime, nil),
	"comment":    opt(kindString, ""),
	"magic":      opt(kindInt, nil),
	"commission": opt(kindFloat, nil),
	"profit":     opt(kindFloat, nil),
	"swap":       opt(kindFloat, nil),
})

// decodePlaceOrder returns the assigned ticket and, when the reply carried
// execution data, the fully populated order record. A nil order means the
// ticket is known but the fill will arrive asynchronously.
func decodePlaceOrder(payload interface{}, reqOrder models.OrderRequest) (int, *models.Order, error) {
	doc, err := conform(placeOrderShape, payload, "")
	if err != nil {
		return 0, nil, err
	}
	obj := docObj(doc)
	ticket := docInt(obj["ticket"])

	if !hasKey(payload, "lots") || !hasKey(payload, "op") || !hasKey(payload, "ot") {
		return ticket, nil, nil
	}

	status := models.Filled
	switch {
	case reqOrder.Type != models.MarketOrder:
		status = models.Pending
	case docF64(obj["lots"]) < reqOrder.Lots:
		status = models.PartiallyFilled
	}

	order := &models.Order{
		Ticket:      ticket,
		Symbol:      reqOrder.Symbol,
		Side:        reqOrder.Side,
		Type:        reqOrder.Type,
		Lots:        docF64(obj["lots"]),
		Status:      status,
		OpenPrice:   docF64(obj["op"]),
		OpenTime:    docTime(obj["ot"]),
		StopLoss:    docF64(obj["sl"]),
		TakeProfit:  docF64(obj["tp"]),
		Expiration:  docTime(obj["expiration"]),
		MagicNumber: docInt(obj["magic"]),
		Comment:     docStr(obj["comment"]),
		Commission:  docF64(obj["commission"]),
		Profit:      docF64(obj["profit"]),
		Swap:        docF64(obj["swap"]),
	}
	return ticket, order, nil
}

var closeOrderShape = reqObj(map[string]field{
	"lots":       req(kindFloat),
	"cp":         req(kindFloat),
	"ct":         req(kindTime),
	"comment":    opt(kindString, ""),
	"commission": opt(kindFloat, nil),
	"profit":     opt(kindFloat, nil),
	"swap":       opt(kindFloat, nil),
	"remaining_order": optObj(map[string]field{
		"ticket":     req(kindInt),
		"lots":       req(kindFloat),
		"op":         opt(kindFloat, nil),
		"ot":         opt(kindTime, nil),
		"sl":         opt(kindFloat, nil),
		"tp":         opt(kindFloat, nil),
		"comment":    opt(kindString, ""),
		"magic":      opt(kindInt, nil),
		"commission": opt(kindFloat, nil),
		"profit":     opt(kindFloat, nil),
		"swap":       opt(kindFloat, nil),
	}),
})

// closeResult is the decoded closeOrder reply. remainder is non-nil on a
// partial close and carries the fresh ticket of the surviving portion; its
// symbol, side and type are inherited from the closed order by the caller.
type closeResult struct {
	lots       float64
	closePrice float64
	closeTime  time.Time
	comment    string
	commission float64
	profit     float64
	swap       float64
	remainder  *models.Order
}

func decodeCloseOrder(payload interface{}) (closeResult, error) {
	doc, err := conform(closeOrderShape, payload, "")
	if err != nil {
		return closeResult{}, err
	}
	obj := docObj(doc)

	res := closeResult{
		lots:       docF64(obj["lots"]),
		closePrice: docF64(obj["cp"]),
		closeTime:  docTime(obj["ct"]),
		comment:    docStr(obj["comment"]),
		commission: docF64(obj["commission"]),
		profit:     docF64(obj["profit"]),
		swap:       docF64(obj["swap"]),
	}

	if hasKey(payload, "remaining_order") {
		rem := docObj(obj["remaining_order"])
		res.remainder = &models.Order{
			Ticket:      docInt(rem["ticket"]),
			Lots:        docF64(rem["lots"]),
			Status:      models.Filled,
			OpenPrice:   docF64(rem["op"]),
			OpenTime:    docTime(rem["ot"]),
			StopLoss:    docF64(rem["sl"]),
			TakeProfit:  docF64(rem["tp"]),
			MagicNumber: docInt(rem["magic"]),
			Comment:     docStr(rem["comment"]),
			Commission:  docF64(rem["commission"]),
			Profit:      docF64(rem["profit"]),
			Swap:        docF64(rem["swap"]),
		}
	}
	return res, nil
}

var getOrderShape = reqObj(map[string]field{
	"symbol":     req(kindString),
	"op":         req(kindInt), // operation code here, not open price
	"lots":       req(kindFloat),
	"openPrice":  req(kindFloat),
	"openTime":   req(kindTime),
	"cp":         opt(kindFloat, nil),
	"ct":         opt(kindTime, nil),
	"sl":         opt(kindFloat, nil),
	"tp":         opt(kindFloat, nil),
	"expiration": opt(kindTime, nil),
	"comment":    opt(kindString, ""),
	"magic":      opt(kindInt, nil),
	"commission": opt(kindFloat, nil),
	"profit":     opt(kindFloat, nil),
	"swap":       opt(kindFloat, nil),
})

// decodeGetOrder derives the order status from the opcode and the presence
// of a close time: a closed pending order was canceled or expired, a closed
// market order is simply closed.
func decodeGetOrder(ticket int, payload interface{}) (models.Order, error) {
	doc, err := conform(getOrderShape, payload, "")
	if err != nil {
		return models.Order{}, err
	}
	obj := docObj(doc)

	op := docInt(obj["op"])
	side, typ, pending, err := decodeOperationCode(op)
	if err != nil {
		return models.Order{}, err
	}

	expiration := docTime(obj["expiration"])
	closeTime := docTime(obj["ct"])
	closed := hasKey(payload, "ct")

	status := models.Filled
	switch {
	case pending && closed:
		status = finishedPendingStatus(expiration, closeTime)
	case pending:
		status = models.Pending
	case closed:
		status = models.Closed
	}

	return models.Order{
		Ticket:      ticket,
		Symbol:      docStr(obj["symbol"]),
		Side:        side,
		Type:        typ,
		Lots:        docF64(obj["lots"]),
		Status:      status,
		OpenPrice:   docF64(obj["openPrice"]),
		OpenTime:    docTime(obj["openTime"]),
		ClosePrice:  docF64(obj["cp"]),
		CloseTime:   closeTime,
		StopLoss:    docF64(obj["sl"]),
		TakeProfit:  docF64(obj["tp"]),
		Expiration:  expiration,
		MagicNumber: docInt(obj["magic"]),
		Comment:     docStr(obj["comment"]),
		Commission:  docF64(obj["commission"]),
		Profit:      docF64(obj["profit"]),
		Swap:        docF64(obj["swap"]),
	}, nil
}

// finishedPendingStatus tells a lapsed pending order from a canceled one:
// with an expiration set and a close time at or past it, the terminal let
// the order expire.
func finishedPendingStatus(expiration, closeTime time.Time) models.OrderStatus {
	if !expiration.IsZero() && !closeTime.Before(expiration) {
		return models.Expired
	}
	return models.Canceled
}
