package service

import (
	"testing"
	"time"

	"mt4_gateway/internal/models"
)

func filledOrder(ticket int) models.Order {
	return models.Order{
		Ticket:    ticket,
		Symbol:    "EURUSD",
		Side:      models.Buy,
		Type:      models.MarketOrder,
		Lots:      1,
		Status:    models.Filled,
		OpenPrice: 1.1,
		OpenTime:  time.Unix(1700000000, 0).UTC(),
	}
}

func TestOrderBookTrackAndPut(t *testing.T) {
	book := newOrderBook()

	book.track(100)
	if !book.tracked(100) {
		t.Fatal("ticket 100 not tracked")
	}
	if _, ok := book.get(100); ok {
		t.Fatal("tracked ticket without data returned an order")
	}

	book.put(filledOrder(100))
	order, ok := book.get(100)
	if !ok {
		t.Fatal("order lost after put")
	}
	if order.Status != models.Filled {
		t.Fatalf("status = %v", order.Status)
	}

	// track of a known ticket must not wipe its data
	book.track(100)
	if _, ok := book.get(100); !ok {
		t.Fatal("track erased order data")
	}
}

func TestOrderBookGetReturnsCopy(t *testing.T) {
	book := newOrderBook()
	book.put(filledOrder(1))

	order, _ := book.get(1)
	order.Lots = 99

	again, _ := book.get(1)
	if again.Lots != 1 {
		t.Fatalf("mutation of a copy leaked into the book, lots = %v", again.Lots)
	}
}

func TestOrderBookTransitions(t *testing.T) {
	tests := []struct {
		name string
		from models.OrderStatus
		to   models.OrderStatus
		want bool
	}{
		{"pending to filled", models.Pending, models.Filled, true},
		{"pending to partially filled", models.Pending, models.PartiallyFilled, true},
		{"pending to canceled", models.Pending, models.Canceled, true},
		{"pending to expired", models.Pending, models.Expired, true},
		{"pending to closed", models.Pending, models.Closed, false},
		{"partially filled to filled", models.PartiallyFilled, models.Filled, true},
		{"partially filled to closed", models.PartiallyFilled, models.Closed, true},
		{"partially filled to canceled", models.PartiallyFilled, models.Canceled, false},
		{"filled to closed", models.Filled, models.Closed, true},
		{"filled to canceled", models.Filled, models.Canceled, false},
		{"filled to pending", models.Filled, models.Pending, false},
		{"closed is terminal", models.Closed, models.Filled, false},
		{"canceled is terminal", models.Canceled, models.Filled, false},
		{"expired is terminal", models.Expired, models.Pending, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			book := newOrderBook()
			order := filledOrder(1)
			order.Status = tc.from
			book.put(order)

			changed := book.transition(1, tc.to, nil)
			if changed != tc.want {
				t.Fatalf("transition %v -> %v = %v, want %v", tc.from, tc.to, changed, tc.want)
			}

			after, _ := book.get(1)
			wantStatus := tc.from
			if tc.want {
				wantStatus = tc.to
			}
			if after.Status != wantStatus {
				t.Fatalf("status after = %v, want %v", after.Status, wantStatus)
			}
		})
	}
}

func TestOrderBookTransitionIdempotent(t *testing.T) {
	book := newOrderBook()
	order := filledOrder(1)
	order.Status = models.Closed
	book.put(order)

	applied := false
	changed := book.transition(1, models.Closed, func(o *models.Order) {
		applied = true
		o.Profit = 5
	})
	if changed {
		t.Fatal("duplicate transition reported a change")
	}
	if !applied {
		t.Fatal("duplicate transition skipped the data refresh")
	}
	after, _ := book.get(1)
	if after.Profit != 5 {
		t.Fatalf("profit = %v after refresh", after.Profit)
	}
}

func TestOrderBookTransitionOnDatalessTicket(t *testing.T) {
	book := newOrderBook()
	book.track(7)

	if book.transition(7, models.Closed, nil) {
		t.Fatal("transition succeeded on ticket without data")
	}
}

func TestOrderBookCloseOut(t *testing.T) {
	book := newOrderBook()
	book.put(filledOrder(501))

	remainder := filledOrder(502)
	remainder.Lots = 0.6

	book.closeOut(501, func(o *models.Order) {
		o.Lots = 0.4
		o.ClosePrice = 1.2
	}, &remainder)

	closed, _ := book.get(501)
	if closed.Status != models.Closed || closed.Lots != 0.4 || closed.ClosePrice != 1.2 {
		t.Fatalf("closed order = %+v", closed)
	}
	rem, ok := book.get(502)
	if !ok {
		t.Fatal("remainder not inserted")
	}
	if rem.Status != models.Filled || rem.Lots != 0.6 {
		t.Fatalf("remainder = %+v", rem)
	}
}

func TestOrderBookSnapshotSkipsDatalessTickets(t *testing.T) {
	book := newOrderBook()
	book.put(filledOrder(1))
	book.track(2)

	snap := book.snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot size = %d, want 1", len(snap))
	}
	if _, ok := snap[1]; !ok {
		t.Fatal("snapshot lost ticket 1")
	}
}
