package service

import (
	"testing"
	"time"

	"mt4_gateway/internal/models"
)

func TestDecodeTickEvent(t *testing.T) {
	ev, err := decodeEvent(`tick.EURUSD [1700000000,1.1,1.10013]`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	tick, ok := ev.(tickEvent)
	if !ok {
		t.Fatalf("event type = %T", ev)
	}
	if tick.Symbol != "EURUSD" {
		t.Fatalf("symbol = %q", tick.Symbol)
	}
	if tick.Tick.Bid != 1.1 || tick.Tick.Ask != 1.10013 {
		t.Fatalf("tick = %+v", tick.Tick)
	}
	if !tick.Tick.Time.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("time = %v", tick.Tick.Time)
	}
}

func TestDecodeBarEvent(t *testing.T) {
	ev, err := decodeEvent(`bar.GBPUSD {"time":1700000000,"open":1.2,"high":1.3,"low":1.1,"close":1.25,"volume":42}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	bar, ok := ev.(barClosedEvent)
	if !ok {
		t.Fatalf("event type = %T", ev)
	}
	if bar.Symbol != "GBPUSD" || bar.Bar.Close != 1.25 || bar.Bar.Volume != 42 {
		t.Fatalf("bar = %+v", bar)
	}
}

func TestDecodeOrderPlacedEvent(t *testing.T) {
	ev, err := decodeEvent(`orderPlaced {"ticket":501,"symbol":"EURUSD","op":0,"lots":0.5,"openPrice":1.1,"openTime":1700000000}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	placed, ok := ev.(orderPlacedEvent)
	if !ok {
		t.Fatalf("event type = %T", ev)
	}
	if placed.Order.Ticket != 501 || placed.Order.Status != models.Filled {
		t.Fatalf("order = %+v", placed.Order)
	}
	if placed.Order.Side != models.Buy || placed.Order.Type != models.MarketOrder {
		t.Fatalf("side/type = %v/%v", placed.Order.Side, placed.Order.Type)
	}
}

func TestDecodeOrderPlacedEventPending(t *testing.T) {
	ev, err := decodeEvent(`orderPlaced {"ticket":9,"symbol":"EURUSD","op":3,"lots":1,"openPrice":1.2,"openTime":1700000000}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	placed := ev.(orderPlacedEvent)
	if placed.Order.Status != models.Pending {
		t.Fatalf("status = %v, want pending", placed.Order.Status)
	}
	if placed.Order.Side != models.Sell || placed.Order.Type != models.LimitOrder {
		t.Fatalf("side/type = %v/%v", placed.Order.Side, placed.Order.Type)
	}
}

func TestDecodeOrderFinishedEventStatuses(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.OrderStatus
	}{
		{
			name: "market order closes",
			body: `{"ticket":1,"op":0,"cp":1.2,"ct":1700000100}`,
			want: models.Closed,
		},
		{
			name: "pending order without expiration cancels",
			body: `{"ticket":1,"op":2,"cp":1.2,"ct":1700000100}`,
			want: models.Canceled,
		},
		{
			name: "pending order past expiration expires",
			body: `{"ticket":1,"op":2,"cp":1.2,"ct":1700000100,"expiration":1700000000}`,
			want: models.Expired,
		},
		{
			name: "pending order before expiration cancels",
			body: `{"ticket":1,"op":2,"cp":1.2,"ct":1700000100,"expiration":1800000000}`,
			want: models.Canceled,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := decodeEvent("orderFinished " + tc.body)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			finished, ok := ev.(orderFinishedEvent)
			if !ok {
				t.Fatalf("event type = %T", ev)
			}
			if finished.Status != tc.want {
				t.Fatalf("status = %v, want %v", finished.Status, tc.want)
			}
		})
	}
}

func TestDecodeEquityUpdatedEvent(t *testing.T) {
	ev, err := decodeEvent(`equityUpdated {"equity":1010,"profit":10,"margin":50,"marginLvl":2020,"freeMargin":960}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	eq := ev.(equityUpdatedEvent)
	if eq.Balance != nil {
		t.Fatalf("balance = %v, want nil when omitted", *eq.Balance)
	}

	ev, err = decodeEvent(`equityUpdated {"equity":1010,"profit":10,"margin":50,"marginLvl":2020,"freeMargin":960,"balance":1000}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	eq = ev.(equityUpdatedEvent)
	if eq.Balance == nil || *eq.Balance != 1000 {
		t.Fatalf("balance = %v, want 1000", eq.Balance)
	}
}

func TestDecodeAccountChangedEvent(t *testing.T) {
	ev, err := decodeEvent(`accountChanged {"currency":"USD","leverage":100,"credit":0,"expertAllowed":true,"tradeAllowed":false,"maxActiveOrders":50}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	acc := ev.(accountChangedEvent)
	if acc.Currency != "USD" || acc.Leverage != 100 || acc.TradeAllowed || !acc.ExpertAllowed || acc.OrderLimit != 50 {
		t.Fatalf("event = %+v", acc)
	}
}

func TestDecodeEventErrors(t *testing.T) {
	frames := []string{
		`unknownEvent {"a":1}`,
		`tick [1700000000,1.1,1.2]`,
		`bar {"time":1700000000}`,
		`orderPlaced {"symbol":"EURUSD"}`,
		`orderFinished {"ticket":1,"op":99,"cp":1.2,"ct":1700000100}`,
	}
	for _, frame := range frames {
		if _, err := decodeEvent(frame); err == nil {
			t.Fatalf("frame %q accepted", frame)
		}
	}
}
