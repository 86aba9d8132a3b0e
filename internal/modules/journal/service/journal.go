package service

import (
	"context"
	"time"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/internal/models"
	"mt4_gateway/pkg/db"
	"mt4_gateway/pkg/logger"
)

const entryBuffer = 512

const schemaSQL = `
CREATE TABLE IF NOT EXISTS order_events (
    id          BIGSERIAL PRIMARY KEY,
    ticket      BIGINT NOT NULL,
    event       TEXT NOT NULL,
    symbol      TEXT NOT NULL DEFAULT '',
    lots        DOUBLE PRECISION NOT NULL DEFAULT 0,
    price       DOUBLE PRECISION NOT NULL DEFAULT 0,
    profit      DOUBLE PRECISION NOT NULL DEFAULT 0,
    occurred_at TIMESTAMPTZ NOT NULL
)`

const insertSQL = `
INSERT INTO order_events (ticket, event, symbol, lots, price, profit, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Entry is one persisted lifecycle fact about an order.
type Entry struct {
	Ticket int
	Event  string
	Symbol string
	Lots   float64
	Price  float64
	Profit float64
	At     time.Time
}

// Journal persists order lifecycle events to Postgres. Writes happen on a
// worker goroutine behind a buffered channel, so the event loop never waits
// on the database; if the buffer fills up, entries are dropped with a log
// line rather than stalling trading.
type Journal struct {
	exchange.NopHandler

	tx     db.TxManager
	ex     exchange.Exchange
	events chan Entry
	done   chan struct{}
}

func NewJournal(tx db.TxManager, ex exchange.Exchange) *Journal {
	return &Journal{
		tx:     tx,
		ex:     ex,
		events: make(chan Entry, entryBuffer),
		done:   make(chan struct{}),
	}
}

var _ exchange.EventHandler = (*Journal)(nil)

// Start ensures the schema and launches the writer.
func (j *Journal) Start(ctx context.Context) error {
	err := j.tx.Run(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, schemaSQL)
		return err
	})
	if err != nil {
		return err
	}

	go j.run()
	return nil
}

// Stop flushes buffered entries and waits for the writer to finish.
func (j *Journal) Stop() {
	close(j.events)
	<-j.done
}

func (j *Journal) run() {
	defer close(j.done)
	for entry := range j.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := j.tx.Conn().Exec(ctx, insertSQL,
			entry.Ticket, entry.Event, entry.Symbol, entry.Lots, entry.Price, entry.Profit, entry.At)
		cancel()
		if err != nil {
			logger.Error("journal insert for ticket %d failed: %v", entry.Ticket, err)
		}
	}
}

func (j *Journal) record(ticket int, event string) {
	entry := Entry{
		Ticket: ticket,
		Event:  event,
		At:     time.Now().UTC(),
	}
	if order, ok := j.ex.Orders()[ticket]; ok {
		entry.Symbol = order.Symbol
		entry.Lots = order.Lots
		entry.Profit = order.Profit
		entry.Price = order.OpenPrice
		if order.Status == models.Closed {
			entry.Price = order.ClosePrice
		}
	}

	select {
	case j.events <- entry:
	default:
		logger.Warn("journal buffer full, dropping %s of ticket %d", event, ticket)
	}
}

func (j *Journal) OnOrderOpened(ticket int)   { j.record(ticket, "opened") }
func (j *Journal) OnOrderFilled(ticket int)   { j.record(ticket, "filled") }
func (j *Journal) OnOrderClosed(ticket int)   { j.record(ticket, "closed") }
func (j *Journal) OnOrderCanceled(ticket int) { j.record(ticket, "canceled") }
func (j *Journal) OnOrderExpired(ticket int)  { j.record(ticket, "expired") }
func (j *Journal) OnOrderModified(ticket int) { j.record(ticket, "modified") }
