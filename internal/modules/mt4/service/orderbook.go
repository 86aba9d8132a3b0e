package service

import (
	"sync"

	"mt4_gateway/internal/models"
)

// orderBook tracks every order the gateway knows about, keyed by ticket.
// A nil record marks a ticket that was acknowledged but whose execution data
// has not arrived yet. Readers always get copies.
type orderBook struct {
	mu     sync.RWMutex
	orders map[int]*models.Order
}

func newOrderBook() *orderBook {
	return &orderBook{orders: make(map[int]*models.Order)}
}

// track registers a ticket without data, unless it is already known.
func (b *orderBook) track(ticket int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[ticket]; !ok {
		b.orders[ticket] = nil
	}
}

// put stores a full order record, replacing whatever was there.
func (b *orderBook) put(o models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.Ticket] = &o
}

// tracked reports whether the ticket is known at all.
func (b *orderBook) tracked(ticket int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.orders[ticket]
	return ok
}

// get returns a copy of the order. The second result is false when the
// ticket is unknown or known without data.
func (b *orderBook) get(ticket int) (models.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o := b.orders[ticket]
	if o == nil {
		return models.Order{}, false
	}
	return *o, true
}

// update applies fn to the order record if one with data exists.
func (b *orderBook) update(ticket int, fn func(*models.Order)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.orders[ticket]
	if o == nil {
		return false
	}
	fn(o)
	return true
}

// transition moves the order to next if the lifecycle allows it, applying fn
// to fill in the accompanying data. A transition to the current status
// refreshes the data but reports false, so duplicate deliveries do not
// re-notify. An illegal transition changes nothing.
func (b *orderBook) transition(ticket int, next models.OrderStatus, fn func(*models.Order)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.orders[ticket]
	if o == nil {
		return false
	}
	if o.Status == next {
		if fn != nil {
			fn(o)
		}
		return false
	}
	if !o.Status.CanTransition(next) {
		return false
	}
	if fn != nil {
		fn(o)
	}
	o.Status = next
	return true
}

// closeOut finishes an order and, on a partial close, inserts the remainder
// under its fresh ticket in the same critical section, so no reader observes
// the closed order without its surviving portion.
func (b *orderBook) closeOut(ticket int, fn func(*models.Order), remainder *models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o := b.orders[ticket]; o != nil {
		if fn != nil {
			fn(o)
		}
		o.Status = models.Closed
	}
	if remainder != nil {
		r := *remainder
		b.orders[r.Ticket] = &r
	}
}

// snapshot copies every order that has data.
func (b *orderBook) snapshot() map[int]models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[int]models.Order, len(b.orders))
	for ticket, o := range b.orders {
		if o != nil {
			out[ticket] = *o
		}
	}
	return out
}
