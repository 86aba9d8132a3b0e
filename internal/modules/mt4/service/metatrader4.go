package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/internal/models"
	"mt4_gateway/pkg/logger"
)

// Order and account events are always wanted; quote topics are added per
// subscribed symbol.
var staticTopics = []string{
	evOrderPlaced,
	evOrderFinished,
	evOrderModified,
	evOrderUpdated,
	evAccountChanged,
	evEquityUpdated,
}

// MetaTrader4 is the gateway to one remote terminal instance. Commands run
// synchronously over the request channel; pushed events queue up in the
// listener and are applied by ProcessEvents.
type MetaTrader4 struct {
	client   *Client
	listener *Listener

	book *orderBook

	accountMu sync.Mutex
	account   *models.Account

	instMu      sync.RWMutex
	instruments map[string]models.Instrument

	subMu         sync.Mutex
	subscriptions map[string]struct{}
	allSymbols    bool

	handlerMu sync.Mutex
	handlers  []exchange.EventHandler
}

var _ exchange.Exchange = (*MetaTrader4)(nil)

// Options carries the connection parameters of one terminal bridge.
type Options struct {
	ReqAddr        string
	SubAddr        string
	RequestTimeout time.Duration
	EventQueueSize int
}

// Connect dials both channels and subscribes the order and account topics.
// Quote topics are joined lazily by Subscribe.
func Connect(ctx context.Context, opts Options) (*MetaTrader4, error) {
	reqSock, err := DialRequestSocket(ctx, opts.ReqAddr)
	if err != nil {
		return nil, err
	}

	subSock, err := DialEventSocket(ctx, opts.SubAddr)
	if err != nil {
		_ = reqSock.Close()
		return nil, err
	}

	for _, topic := range staticTopics {
		if err := subSock.Subscribe(topic); err != nil {
			_ = reqSock.Close()
			_ = subSock.Close()
			return nil, errors.Wrapf(err, "subscribe topic %s", topic)
		}
	}

	m := New(NewClient(reqSock, opts.RequestTimeout), NewListener(subSock, opts.EventQueueSize))
	m.listener.Start(ctx)
	return m, nil
}

// New builds a gateway over already connected channels. The listener must be
// started by the caller.
func New(client *Client, listener *Listener) *MetaTrader4 {
	return &MetaTrader4{
		client:        client,
		listener:      listener,
		book:          newOrderBook(),
		instruments:   make(map[string]models.Instrument),
		subscriptions: make(map[string]struct{}),
	}
}

// AddHandler registers a handler for republished events.
func (m *MetaTrader4) AddHandler(h exchange.EventHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.handlers = append(m.handlers, h)
}

func (m *MetaTrader4) eachHandler(fn func(exchange.EventHandler)) {
	m.handlerMu.Lock()
	handlers := make([]exchange.EventHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.handlerMu.Unlock()

	for _, h := range handlers {
		fn(h)
	}
}

// Close releases both channels. The listener is joined before its socket
// state is abandoned.
func (m *MetaTrader4) Close() error {
	clientErr := m.client.Close()
	listenerErr := m.listener.Shutdown()
	if clientErr != nil {
		return clientErr
	}
	return listenerErr
}

// convertExecution rewrites a generic execution failure into the typed error
// fn builds for its code. Other errors pass through untouched.
func convertExecution(err error, fn func(code int) error) error {
	var execErr *exchange.ExecutionError
	if errors.As(err, &execErr) {
		if converted := fn(execErr.Code); converted != nil {
			return converted
		}
	}
	return err
}

func symbolErrors(symbol string) func(code int) error {
	return func(code int) error {
		if code == rcUnknownSymbol {
			return &exchange.InvalidSymbolError{Symbol: symbol}
		}
		return nil
	}
}

// Account fetches the account record on first use and serves it from memory
// afterwards. The record is shared with the event side, so the pointer and
// its fields are only touched under accountMu.
func (m *MetaTrader4) Account(ctx context.Context) (*models.Account, error) {
	m.accountMu.Lock()
	cached := m.account
	m.accountMu.Unlock()
	if cached != nil {
		return cached, nil
	}

	payload, err := m.client.Call(ctx, getAccountRequest())
	if err != nil {
		return nil, err
	}
	account, err := decodeAccount(payload)
	if err != nil {
		return nil, err
	}

	m.accountMu.Lock()
	if m.account == nil {
		m.account = account
	}
	cached = m.account
	m.accountMu.Unlock()
	return cached, nil
}

func (m *MetaTrader4) GetTick(ctx context.Context, symbol string) (models.Tick, error) {
	payload, err := m.client.Call(ctx, getTickRequest(symbol))
	if err != nil {
		return models.Tick{}, convertExecution(err, symbolErrors(symbol))
	}
	return decodeTick(payload)
}

func (m *MetaTrader4) GetInstrument(ctx context.Context, symbol string) (models.Instrument, error) {
	m.instMu.RLock()
	cached, ok := m.instruments[symbol]
	m.instMu.RUnlock()
	if ok {
		return cached, nil
	}

	payload, err := m.client.Call(ctx, getInstrumentRequest(symbol))
	if err != nil {
		return models.Instrument{}, convertExecution(err, symbolErrors(symbol))
	}
	instrument, err := decodeInstrument(symbol, payload)
	if err != nil {
		return models.Instrument{}, err
	}

	m.instMu.Lock()
	m.instruments[symbol] = instrument
	m.instMu.Unlock()
	return instrument, nil
}

func (m *MetaTrader4) GetInstruments(ctx context.Context) ([]models.Instrument, error) {
	payload, err := m.client.Call(ctx, getInstrumentsRequest())
	if err != nil {
		return nil, err
	}
	instruments, err := decodeInstruments(payload)
	if err != nil {
		return nil, err
	}

	m.instMu.Lock()
	for _, instrument := range instruments {
		m.instruments[instrument.Symbol] = instrument
	}
	m.instMu.Unlock()
	return instruments, nil
}

func (m *MetaTrader4) GetHistoryBars(ctx context.Context, symbol string, start, end time.Time, tf models.Timeframe) ([]models.Bar, error) {
	payload, err := m.client.Call(ctx, getHistoryBarsRequest(symbol, start, end, tf))
	if err != nil {
		return nil, convertExecution(err, symbolErrors(symbol))
	}
	return decodeHistoryBars(payload)
}

func (m *MetaTrader4) GetBar(ctx context.Context, symbol string, index int, tf models.Timeframe) (models.Bar, error) {
	if index < 0 {
		return models.Bar{}, &exchange.RequestError{Reason: "bar index must not be negative"}
	}
	payload, err := m.client.Call(ctx, getBarRequest(symbol, index, tf))
	if err != nil {
		return models.Bar{}, convertExecution(err, symbolErrors(symbol))
	}
	return decodeBar(payload)
}

// Subscribe makes the terminal push quotes for the symbol. Subscribing an
// already watched symbol costs no round trip.
func (m *MetaTrader4) Subscribe(ctx context.Context, symbol string) error {
	m.subMu.Lock()
	_, already := m.subscriptions[symbol]
	all := m.allSymbols
	m.subMu.Unlock()
	if already || all {
		return nil
	}

	if _, err := m.client.Call(ctx, watchSymbolRequest(symbol)); err != nil {
		return convertExecution(err, symbolErrors(symbol))
	}

	for _, topic := range []string{evTick + "." + symbol, evBarClosed + "." + symbol} {
		if err := m.listener.Subscribe(topic); err != nil {
			return errors.Wrapf(err, "subscribe topic %s", topic)
		}
	}

	m.subMu.Lock()
	m.subscriptions[symbol] = struct{}{}
	m.subMu.Unlock()
	return nil
}

// SubscribeAll watches every symbol the terminal offers, using prefix
// subscriptions on the quote topics.
func (m *MetaTrader4) SubscribeAll(ctx context.Context) error {
	m.subMu.Lock()
	all := m.allSymbols
	m.subMu.Unlock()
	if all {
		return nil
	}

	payload, err := m.client.Call(ctx, watchSymbolRequest("*"))
	if err != nil {
		return err
	}
	if symbols, err := decodeWatchSymbol(payload); err == nil && len(symbols) > 0 {
		logger.Info("terminal now watching %d symbols", len(symbols))
	}

	for _, topic := range []string{evTick + ".", evBarClosed + "."} {
		if err := m.listener.Subscribe(topic); err != nil {
			return errors.Wrapf(err, "subscribe topic %s", topic)
		}
	}

	m.subMu.Lock()
	m.allSymbols = true
	m.subMu.Unlock()
	return nil
}

// Unsubscribe stops delivery of the symbol's quote events. The terminal
// keeps watching the symbol; only the local topic subscription is dropped,
// so no round trip happens.
func (m *MetaTrader4) Unsubscribe(symbol string) error {
	m.subMu.Lock()
	_, ok := m.subscriptions[symbol]
	delete(m.subscriptions, symbol)
	m.subMu.Unlock()
	if !ok {
		return nil
	}

	for _, topic := range []string{evTick + "." + symbol, evBarClosed + "." + symbol} {
		if err := m.listener.Unsubscribe(topic); err != nil {
			return errors.Wrapf(err, "unsubscribe topic %s", topic)
		}
	}
	return nil
}

func (m *MetaTrader4) UnsubscribeAll() error {
	m.subMu.Lock()
	symbols := make([]string, 0, len(m.subscriptions))
	for symbol := range m.subscriptions {
		symbols = append(symbols, symbol)
	}
	all := m.allSymbols
	m.allSymbols = false
	m.subMu.Unlock()

	if all {
		for _, topic := range []string{evTick + ".", evBarClosed + "."} {
			if err := m.listener.Unsubscribe(topic); err != nil {
				return errors.Wrapf(err, "unsubscribe topic %s", topic)
			}
		}
	}
	for _, symbol := range symbols {
		if err := m.Unsubscribe(symbol); err != nil {
			return err
		}
	}
	return nil
}

func (m *MetaTrader4) Subscriptions() []string {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	symbols := make([]string, 0, len(m.subscriptions))
	for symbol := range m.subscriptions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func validateOrderRequest(r models.OrderRequest) error {
	switch {
	case r.Symbol == "":
		return &exchange.RequestError{Reason: "order symbol is empty"}
	case !r.Side.IsValid():
		return &exchange.RequestError{Reason: "order side is invalid"}
	case !r.Type.IsValid():
		return &exchange.RequestError{Reason: "order type is invalid"}
	case r.Lots <= 0:
		return &exchange.RequestError{Reason: "order lots must be positive"}
	case r.Type != models.MarketOrder && r.Price == 0:
		return &exchange.RequestError{Reason: "pending order needs a price"}
	case r.Type == models.MarketOrder && !r.Expiration.IsZero():
		return &exchange.RequestError{Reason: "market order cannot expire"}
	}
	return nil
}

func (m *MetaTrader4) PlaceOrder(ctx context.Context, r models.OrderRequest) (int, error) {
	if err := validateOrderRequest(r); err != nil {
		return 0, err
	}

	op, err := operationCode(r.Side, r.Type)
	if err != nil {
		return 0, err
	}

	payload, err := m.client.Call(ctx, placeOrderRequest(op, r))
	if err != nil {
		return 0, convertExecution(err, func(code int) error {
			switch code {
			case rcUnknownSymbol:
				return &exchange.InvalidSymbolError{Symbol: r.Symbol}
			case rcOffQuotes:
				return &exchange.OffQuotesError{Symbol: r.Symbol, Side: r.Side, Type: r.Type}
			case rcRequote:
				return &exchange.RequoteError{Symbol: r.Symbol}
			case rcInvalidStops:
				return &exchange.InvalidStopsError{Symbol: r.Symbol}
			}
			return nil
		})
	}

	ticket, order, err := decodePlaceOrder(payload, r)
	if err != nil {
		return 0, err
	}
	if order != nil {
		m.book.put(*order)
	} else {
		// Ticket acknowledged, execution data follows as an orderPlaced
		// event.
		m.book.track(ticket)
	}
	return ticket, nil
}

func (m *MetaTrader4) ModifyOrder(ctx context.Context, ticket int, mod models.OrderModify) error {
	if mod.IsEmpty() {
		return nil
	}

	symbol := ""
	if o, ok := m.book.get(ticket); ok {
		symbol = o.Symbol
	}

	if _, err := m.client.Call(ctx, modifyOrderRequest(ticket, mod)); err != nil {
		return convertExecution(err, func(code int) error {
			switch code {
			case rcInvalidTicket:
				return &exchange.InvalidTicketError{Ticket: ticket}
			case rcInvalidStops:
				return &exchange.InvalidStopsError{Symbol: symbol}
			}
			return nil
		})
	}

	m.book.update(ticket, func(o *models.Order) {
		if mod.Price != nil {
			o.OpenPrice = *mod.Price
		}
		if mod.StopLoss != nil {
			o.StopLoss = *mod.StopLoss
		}
		if mod.TakeProfit != nil {
			o.TakeProfit = *mod.TakeProfit
		}
		if mod.Expiration != nil {
			o.Expiration = *mod.Expiration
		}
	})
	return nil
}

func (m *MetaTrader4) CancelOrder(ctx context.Context, ticket int) error {
	if _, err := m.client.Call(ctx, cancelOrderRequest(ticket)); err != nil {
		return convertExecution(err, func(code int) error {
			if code == rcInvalidTicket {
				return &exchange.InvalidTicketError{Ticket: ticket}
			}
			return nil
		})
	}

	m.book.transition(ticket, models.Canceled, func(o *models.Order) {
		o.CloseTime = time.Now().UTC()
	})
	return nil
}

func (m *MetaTrader4) CloseOrder(ctx context.Context, ticket int, r models.CloseRequest) (int, error) {
	symbol := ""
	original, hasOriginal := m.book.get(ticket)
	if hasOriginal {
		symbol = original.Symbol
	}

	payload, err := m.client.Call(ctx, closeOrderRequest(ticket, r))
	if err != nil {
		return 0, convertExecution(err, func(code int) error {
			switch code {
			case rcInvalidTicket:
				return &exchange.InvalidTicketError{Ticket: ticket}
			case rcOffQuotes:
				return &exchange.OffQuotesError{Symbol: symbol, Side: original.Side, Type: original.Type}
			case rcRequote:
				return &exchange.RequoteError{Symbol: symbol}
			}
			return nil
		})
	}

	res, err := decodeCloseOrder(payload)
	if err != nil {
		return 0, err
	}

	remainder := res.remainder
	if remainder != nil && hasOriginal {
		remainder.Symbol = original.Symbol
		remainder.Side = original.Side
		remainder.Type = original.Type
		remainder.MagicNumber = original.MagicNumber
		if remainder.OpenPrice == 0 {
			remainder.OpenPrice = original.OpenPrice
		}
		if remainder.OpenTime.IsZero() {
			remainder.OpenTime = original.OpenTime
		}
	}

	m.book.closeOut(ticket, func(o *models.Order) {
		o.Lots = res.lots
		o.ClosePrice = res.closePrice
		o.CloseTime = res.closeTime
		if res.comment != "" {
			o.Comment = res.comment
		}
		o.Commission = res.commission
		o.Profit = res.profit
		o.Swap = res.swap
	}, remainder)

	if remainder != nil {
		return remainder.Ticket, nil
	}
	return ticket, nil
}

// GetOrder serves from the order book when it can; unknown tickets are
// fetched from the terminal and tracked from then on.
func (m *MetaTrader4) GetOrder(ctx context.Context, ticket int) (models.Order, error) {
	if order, ok := m.book.get(ticket); ok {
		return order, nil
	}

	payload, err := m.client.Call(ctx, getOrderRequest(ticket))
	if err != nil {
		return models.Order{}, convertExecution(err, func(code int) error {
			if code == rcInvalidTicket {
				return &exchange.InvalidTicketError{Ticket: ticket}
			}
			return nil
		})
	}

	order, err := decodeGetOrder(ticket, payload)
	if err != nil {
		return models.Order{}, err
	}
	m.book.put(order)
	return order, nil
}

func (m *MetaTrader4) Orders() map[int]models.Order {
	return m.book.snapshot()
}

func (m *MetaTrader4) GetExchangeRate(ctx context.Context, baseCurrency, quoteCurrency string) (float64, error) {
	if baseCurrency == quoteCurrency {
		return 1, nil
	}

	payload, err := m.client.Call(ctx, getExchangeRateRequest(baseCurrency, quoteCurrency))
	if err != nil {
		return 0, convertExecution(err, func(code int) error {
			if code == rcExchangeRateFailed {
				return &exchange.ExchangeRateError{BaseCurrency: baseCurrency, QuoteCurrency: quoteCurrency}
			}
			return nil
		})
	}
	return decodeExchangeRate(payload)
}

// ProcessEvents drains every queued frame, applies it to the shared state
// and notifies handlers. Malformed frames are logged and skipped so one bad
// message cannot wedge the stream.
func (m *MetaTrader4) ProcessEvents() {
	for {
		frame, ok := m.listener.Poll()
		if !ok {
			return
		}

		ev, err := decodeEvent(frame)
		if err != nil {
			logger.Warn("dropping undecodable event: %v", err)
			continue
		}
		m.apply(ev)
	}
}

func (m *MetaTrader4) apply(ev event) {
	switch ev := ev.(type) {
	case tickEvent:
		m.eachHandler(func(h exchange.EventHandler) { h.OnTickReceived(ev.Symbol, ev.Tick) })

	case barClosedEvent:
		m.eachHandler(func(h exchange.EventHandler) { h.OnBarClosed(ev.Symbol, ev.Bar) })

	case orderPlacedEvent:
		m.applyOrderPlaced(ev)

	case orderFinishedEvent:
		m.applyOrderFinished(ev)

	case orderModifiedEvent:
		updated := m.book.update(ev.Ticket, func(o *models.Order) {
			o.OpenPrice = ev.OpenPrice
			o.StopLoss = ev.StopLoss
			o.TakeProfit = ev.TakeProfit
			o.Expiration = ev.Expiration
		})
		if updated {
			m.eachHandler(func(h exchange.EventHandler) { h.OnOrderModified(ev.Ticket) })
		}

	case orderUpdatedEvent:
		updated := m.book.update(ev.Ticket, func(o *models.Order) {
			if ev.Comment != "" {
				o.Comment = ev.Comment
			}
			o.Commission = ev.Commission
			o.Profit = ev.Profit
			o.Swap = ev.Swap
		})
		if updated {
			m.eachHandler(func(h exchange.EventHandler) { h.OnOrderUpdated(ev.Ticket) })
		}

	case accountChangedEvent:
		m.accountMu.Lock()
		account := m.account
		if account == nil {
			m.accountMu.Unlock()
			return
		}
		account.Currency = ev.Currency
		account.Leverage = ev.Leverage
		account.Credit = ev.Credit
		account.ExpertAllowed = ev.ExpertAllowed
		account.TradeAllowed = ev.TradeAllowed
		account.OrderLimit = ev.OrderLimit
		m.accountMu.Unlock()
		m.eachHandler(func(h exchange.EventHandler) { h.OnAccountUpdated(account) })

	case equityUpdatedEvent:
		m.accountMu.Lock()
		account := m.account
		if account == nil {
			m.accountMu.Unlock()
			return
		}
		account.Equity = ev.Equity
		account.Profit = ev.Profit
		account.Margin = ev.Margin
		account.MarginLevel = ev.MarginLevel
		account.FreeMargin = ev.FreeMargin
		if ev.Balance != nil {
			account.Balance = *ev.Balance
		}
		m.accountMu.Unlock()
		m.eachHandler(func(h exchange.EventHandler) { h.OnAccountUpdated(account) })
	}
}

// applyOrderPlaced fills in the execution data of a tracked ticket or starts
// tracking an order placed outside this gateway, by another terminal client.
func (m *MetaTrader4) applyOrderPlaced(ev orderPlacedEvent) {
	if _, hasData := m.book.get(ev.Order.Ticket); hasData {
		return
	}
	m.book.put(ev.Order)

	if ev.Order.Status == models.Pending {
		m.eachHandler(func(h exchange.EventHandler) { h.OnOrderOpened(ev.Order.Ticket) })
	} else {
		m.eachHandler(func(h exchange.EventHandler) { h.OnOrderFilled(ev.Order.Ticket) })
	}
}

// applyOrderFinished finishes a tracked order. Events for tickets this
// gateway never saw are dropped; some other client's history is not ours to
// replay.
func (m *MetaTrader4) applyOrderFinished(ev orderFinishedEvent) {
	if !m.book.tracked(ev.Ticket) {
		logger.Debug("ignoring finish of untracked ticket %d", ev.Ticket)
		return
	}

	changed := m.book.transition(ev.Ticket, ev.Status, func(o *models.Order) {
		if ev.Lots > 0 {
			o.Lots = ev.Lots
		}
		o.ClosePrice = ev.ClosePrice
		o.CloseTime = ev.CloseTime
		if ev.StopLoss != 0 {
			o.StopLoss = ev.StopLoss
		}
		if ev.TakeProfit != 0 {
			o.TakeProfit = ev.TakeProfit
		}
		if ev.Comment != "" {
			o.Comment = ev.Comment
		}
		o.Commission = ev.Commission
		o.Profit = ev.Profit
		o.Swap = ev.Swap
	})
	if !changed {
		return
	}

	m.eachHandler(func(h exchange.EventHandler) {
		switch ev.Status {
		case models.Closed:
			h.OnOrderClosed(ev.Ticket)
		case models.Canceled:
			h.OnOrderCanceled(ev.Ticket)
		case models.Expired:
			h.OnOrderExpired(ev.Ticket)
		}
	})
}
