package exchange

import (
	"context"
	"time"

	"mt4_gateway/internal/models"
)

// Exchange is the uniform trading-terminal abstraction. Commands run
// synchronously on the caller's goroutine; asynchronous terminal events are
// applied only inside ProcessEvents, which must be driven from that same
// logical goroutine.
type Exchange interface {
	// Account returns the trading account record, fetching it on first use.
	// The returned pointer stays valid for the gateway's lifetime and its
	// fields are updated in place by account events.
	Account(ctx context.Context) (*models.Account, error)

	GetTick(ctx context.Context, symbol string) (models.Tick, error)
	GetInstrument(ctx context.Context, symbol string) (models.Instrument, error)
	GetInstruments(ctx context.Context) ([]models.Instrument, error)

	// GetHistoryBars returns closed bars of the given timeframe. Zero start
	// or end times leave the range open; the remote side applies its own
	// defaults then.
	GetHistoryBars(ctx context.Context, symbol string, start, end time.Time, tf models.Timeframe) ([]models.Bar, error)
	// GetBar returns the bar at the given index, 0 being the current one.
	GetBar(ctx context.Context, symbol string, index int, tf models.Timeframe) (models.Bar, error)

	Subscribe(ctx context.Context, symbol string) error
	SubscribeAll(ctx context.Context) error
	Unsubscribe(symbol string) error
	UnsubscribeAll() error
	Subscriptions() []string

	// PlaceOrder returns the new order's ticket.
	PlaceOrder(ctx context.Context, req models.OrderRequest) (int, error)
	ModifyOrder(ctx context.Context, ticket int, mod models.OrderModify) error
	CancelOrder(ctx context.Context, ticket int) error
	// CloseOrder returns the ticket that remains relevant after the close:
	// the original one on a full close, the remainder's fresh ticket on a
	// partial close.
	CloseOrder(ctx context.Context, ticket int, req models.CloseRequest) (int, error)
	GetOrder(ctx context.Context, ticket int) (models.Order, error)
	// Orders returns a snapshot copy of all tracked orders, keyed by ticket.
	Orders() map[int]models.Order

	GetExchangeRate(ctx context.Context, baseCurrency, quoteCurrency string) (float64, error)

	// ProcessEvents drains queued terminal events, applies them to shared
	// state and notifies registered handlers. It never blocks waiting for
	// new events.
	ProcessEvents()
}

// EventHandler receives the typed notifications republished by the gateway.
// All methods are invoked from the goroutine driving ProcessEvents.
type EventHandler interface {
	OnTickReceived(symbol string, tick models.Tick)
	OnBarClosed(symbol string, bar models.Bar)
	OnOrderOpened(ticket int)
	OnOrderFilled(ticket int)
	OnOrderClosed(ticket int)
	OnOrderCanceled(ticket int)
	OnOrderExpired(ticket int)
	OnOrderModified(ticket int)
	OnOrderUpdated(ticket int)
	OnAccountUpdated(account *models.Account)
}

// NopHandler is an EventHandler that ignores everything. Embed it to handle
// only the notifications you care about.
type NopHandler struct{}

func (NopHandler) OnTickReceived(string, models.Tick) {}
func (NopHandler) OnBarClosed(string, models.Bar)     {}
func (NopHandler) OnOrderOpened(int)                  {}
func (NopHandler) OnOrderFilled(int)                  {}
func (NopHandler) OnOrderClosed(int)                  {}
func (NopHandler) OnOrderCanceled(int)                {}
func (NopHandler) OnOrderExpired(int)                 {}
func (NopHandler) OnOrderModified(int)                {}
func (NopHandler) OnOrderUpdated(int)                 {}
func (NopHandler) OnAccountUpdated(*models.Account)   {}

var _ EventHandler = NopHandler{}

// Unimplemented returns UnsupportedOperationError from every operation.
// Embed it in partial exchange implementations.
type Unimplemented struct{}

func (Unimplemented) Account(context.Context) (*models.Account, error) {
	return nil, &UnsupportedOperationError{Op: "Account"}
}

func (Unimplemented) GetTick(context.Context, string) (models.Tick, error) {
	return models.Tick{}, &UnsupportedOperationError{Op: "GetTick"}
}

func (Unimplemented) GetInstrument(context.Context, string) (models.Instrument, error) {
	return models.Instrument{}, &UnsupportedOperationError{Op: "GetInstrument"}
}

func (Unimplemented) GetInstruments(context.Context) ([]models.Instrument, error) {
	return nil, &UnsupportedOperationError{Op: "GetInstruments"}
}

func (Unimplemented) GetHistoryBars(context.Context, string, time.Time, time.Time, models.Timeframe) ([]models.Bar, error) {
	return nil, &UnsupportedOperationError{Op: "GetHistoryBars"}
}

func (Unimplemented) GetBar(context.Context, string, int, models.Timeframe) (models.Bar, error) {
	return models.Bar{}, &UnsupportedOperationError{Op: "GetBar"}
}

func (Unimplemented) Subscribe(context.Context, string) error {
	return &UnsupportedOperationError{Op: "Subscribe"}
}

func (Unimplemented) SubscribeAll(context.Context) error {
	return &UnsupportedOperationError{Op: "SubscribeAll"}
}

func (Unimplemented) Unsubscribe(string) error {
	return &UnsupportedOperationError{Op: "Unsubscribe"}
}

func (Unimplemented) UnsubscribeAll() error {
	return &UnsupportedOperationError{Op: "UnsubscribeAll"}
}

func (Unimplemented) Subscriptions() []string { return nil }

func (Unimplemented) PlaceOrder(context.Context, models.OrderRequest) (int, error) {
	return 0, &UnsupportedOperationError{Op: "PlaceOrder"}
}

func (Unimplemented) ModifyOrder(context.Context, int, models.OrderModify) error {
	return &UnsupportedOperationError{Op: "ModifyOrder"}
}

func (Unimplemented) CancelOrder(context.Context, int) error {
	return &UnsupportedOperationError{Op: "CancelOrder"}
}

func (Unimplemented) CloseOrder(context.Context, int, models.CloseRequest) (int, error) {
	return 0, &UnsupportedOperationError{Op: "CloseOrder"}
}

func (Unimplemented) GetOrder(context.Context, int) (models.Order, error) {
	return models.Order{}, &UnsupportedOperationError{Op: "GetOrder"}
}

func (Unimplemented) Orders() map[int]models.Order { return nil }

func (Unimplemented) GetExchangeRate(context.Context, string, string) (float64, error) {
	return 0, &UnsupportedOperationError{Op: "GetExchangeRate"}
}

func (Unimplemented) ProcessEvents() {}
