package service

import (
	"testing"
	"time"

	"mt4_gateway/internal/models"
)

func TestOperationCodeRoundTrip(t *testing.T) {
	tests := []struct {
		side    models.Side
		typ     models.OrderType
		op      int
		pending bool
	}{
		{models.Buy, models.MarketOrder, opBuy, false},
		{models.Sell, models.MarketOrder, opSell, false},
		{models.Buy, models.LimitOrder, opBuyLimit, true},
		{models.Sell, models.LimitOrder, opSellLimit, true},
		{models.Buy, models.StopOrder, opBuyStop, true},
		{models.Sell, models.StopOrder, opSellStop, true},
	}

	for _, tc := range tests {
		op, err := operationCode(tc.side, tc.typ)
		if err != nil {
			t.Fatalf("encode %v %v: %v", tc.side, tc.typ, err)
		}
		if op != tc.op {
			t.Fatalf("opcode(%v, %v) = %d, want %d", tc.side, tc.typ, op, tc.op)
		}

		side, typ, pending, err := decodeOperationCode(op)
		if err != nil {
			t.Fatalf("decode %d: %v", op, err)
		}
		if side != tc.side || typ != tc.typ || pending != tc.pending {
			t.Fatalf("decode %d = %v %v %v", op, side, typ, pending)
		}
	}

	if _, _, _, err := decodeOperationCode(42); err == nil {
		t.Fatal("opcode 42 accepted")
	}
}

func TestHistoryBarsRequestOmitsZeroBounds(t *testing.T) {
	r := getHistoryBarsRequest("EURUSD", time.Time{}, time.Time{}, models.M1)
	content := r.content.(map[string]interface{})
	if _, ok := content["start"]; ok {
		t.Fatalf("zero start sent as %v", content["start"])
	}
	if _, ok := content["end"]; ok {
		t.Fatalf("zero end sent as %v", content["end"])
	}

	start := time.Unix(1700000000, 0)
	r = getHistoryBarsRequest("EURUSD", start, time.Time{}, models.M1)
	content = r.content.(map[string]interface{})
	if content["start"] != start.Unix() {
		t.Fatalf("start = %v", content["start"])
	}
	if _, ok := content["end"]; ok {
		t.Fatalf("zero end sent as %v", content["end"])
	}
}

func TestPlaceOrderRequestOmitsUnsetFields(t *testing.T) {
	r := placeOrderRequest(opBuy, models.OrderRequest{
		Symbol: "EURUSD",
		Side:   models.Buy,
		Type:   models.MarketOrder,
		Lots:   0.5,
	})

	content := r.content.(map[string]interface{})
	if len(content) != 3 {
		t.Fatalf("content = %v", content)
	}
	for _, key := range []string{"price", "sl", "tp", "comment", "magic", "expiration", "slippage"} {
		if _, ok := content[key]; ok {
			t.Fatalf("unset field %q present", key)
		}
	}
}

func TestPlaceOrderRequestCarriesSetFields(t *testing.T) {
	expiration := time.Unix(1800000000, 0)
	r := placeOrderRequest(opBuyLimit, models.OrderRequest{
		Symbol:     "EURUSD",
		Side:       models.Buy,
		Type:       models.LimitOrder,
		Lots:       0.5,
		Price:      1.09,
		StopLoss:   1.05,
		TakeProfit: 1.2,
		Expiration: expiration,
	})

	content := r.content.(map[string]interface{})
	if content["price"] != 1.09 || content["sl"] != 1.05 || content["tp"] != 1.2 {
		t.Fatalf("content = %v", content)
	}
	if content["expiration"] != expiration.Unix() {
		t.Fatalf("expiration = %v", content["expiration"])
	}
}

func TestModifyOrderRequestOnlySetPointers(t *testing.T) {
	sl := 1.05
	r := modifyOrderRequest(7, models.OrderModify{StopLoss: &sl})

	content := r.content.(map[string]interface{})
	if len(content) != 2 {
		t.Fatalf("content = %v", content)
	}
	if content["ticket"] != 7 || content["sl"] != 1.05 {
		t.Fatalf("content = %v", content)
	}
}
