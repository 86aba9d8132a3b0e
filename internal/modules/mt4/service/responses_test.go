package service

import (
	"testing"
	"time"

	"mt4_gateway/internal/models"
)

func TestDecodeInstrument(t *testing.T) {
	payload := decodeJSON(t, `{
		"description": "Euro vs US Dollar",
		"bcurrency": "EUR", "qcurrency": "USD", "mcurrency": "EUR",
		"ndecimals": 5, "point": 0.00001, "tickSize": 0.00001,
		"contractSize": 100000, "lotStep": 0.01, "minLot": 0.01, "maxLot": 100,
		"minStop": 10, "freezeLvl": 5, "spread": 0
	}`)

	instrument, err := decodeInstrument("EURUSD", payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if instrument.Symbol != "EURUSD" || instrument.DecimalPlaces != 5 || instrument.ContractSize != 100000 {
		t.Fatalf("instrument = %+v", instrument)
	}
	if !instrument.IsFloatingSpread() {
		t.Fatal("zero spread must read as floating")
	}
}

func TestDecodeInstrumentsRequiresSymbol(t *testing.T) {
	payload := decodeJSON(t, `[{
		"bcurrency": "EUR", "qcurrency": "USD", "mcurrency": "EUR",
		"ndecimals": 5, "point": 0.00001, "tickSize": 0.00001,
		"contractSize": 100000, "lotStep": 0.01, "minLot": 0.01, "maxLot": 100
	}]`)

	if _, err := decodeInstruments(payload); err == nil {
		t.Fatal("instrument list without symbols accepted")
	}
}

func TestDecodeHistoryBars(t *testing.T) {
	payload := decodeJSON(t, `[[1700000000,1.1,1.2,1.0,1.15,10],[1700000060,1.15,1.3,1.1,1.2,20]]`)

	bars, err := decodeHistoryBars(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d", len(bars))
	}
	if bars[1].Close != 1.2 || bars[1].Volume != 20 {
		t.Fatalf("bar[1] = %+v", bars[1])
	}
	if !bars[0].Time.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("bar[0] time = %v", bars[0].Time)
	}
}

func TestDecodeGetOrderStatuses(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.OrderStatus
	}{
		{
			name: "open market order",
			body: `{"symbol":"EURUSD","op":0,"lots":1,"openPrice":1.1,"openTime":1700000000}`,
			want: models.Filled,
		},
		{
			name: "closed market order",
			body: `{"symbol":"EURUSD","op":0,"lots":1,"openPrice":1.1,"openTime":1700000000,"cp":1.2,"ct":1700000100}`,
			want: models.Closed,
		},
		{
			name: "live pending order",
			body: `{"symbol":"EURUSD","op":4,"lots":1,"openPrice":1.1,"openTime":1700000000}`,
			want: models.Pending,
		},
		{
			name: "canceled pending order",
			body: `{"symbol":"EURUSD","op":4,"lots":1,"openPrice":1.1,"openTime":1700000000,"cp":1.1,"ct":1700000100}`,
			want: models.Canceled,
		},
		{
			name: "expired pending order",
			body: `{"symbol":"EURUSD","op":4,"lots":1,"openPrice":1.1,"openTime":1700000000,"cp":1.1,"ct":1700000100,"expiration":1700000050}`,
			want: models.Expired,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order, err := decodeGetOrder(11, decodeJSON(t, tc.body))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if order.Status != tc.want {
				t.Fatalf("status = %v, want %v", order.Status, tc.want)
			}
			if order.Ticket != 11 {
				t.Fatalf("ticket = %d", order.Ticket)
			}
		})
	}
}

func TestDecodeWatchSymbol(t *testing.T) {
	symbols, err := decodeWatchSymbol(decodeJSON(t, `{"symbols":["EURUSD","GBPUSD"]}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "EURUSD" {
		t.Fatalf("symbols = %v", symbols)
	}

	symbols, err = decodeWatchSymbol(decodeJSON(t, `{}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(symbols) != 0 {
		t.Fatalf("symbols = %v", symbols)
	}
}

func TestDecodeAccountDefaults(t *testing.T) {
	account, err := decodeAccount(decodeJSON(t, `{
		"login":42,"name":"demo","tradeMode":"demo","leverage":100,
		"currency":"USD","balance":1000,"equity":1000
	}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if account.Mode != models.TradeModeDemo {
		t.Fatalf("mode = %v", account.Mode)
	}
	if !account.TradeAllowed || !account.ExpertAllowed {
		t.Fatal("permissive defaults missing")
	}
}
