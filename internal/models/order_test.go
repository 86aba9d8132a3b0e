package models

import "testing"

func TestSideReverse(t *testing.T) {
	if Buy.Reverse() != Sell || Sell.Reverse() != Buy {
		t.Fatal("reverse broken")
	}
	if !Buy.IsValid() || !Sell.IsValid() || Side(0).IsValid() {
		t.Fatal("validity broken")
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		Pending:         false,
		Canceled:        true,
		Expired:         true,
		PartiallyFilled: false,
		Filled:          false,
		Closed:          true,
	}
	for status, want := range terminal {
		if status.IsTerminal() != want {
			t.Fatalf("%v.IsTerminal() = %v, want %v", status, !want, want)
		}
	}
}

func TestOrderStatusNoTransitionsFromTerminal(t *testing.T) {
	all := []OrderStatus{Pending, Canceled, Expired, PartiallyFilled, Filled, Closed}
	for _, from := range all {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range all {
			if from.CanTransition(to) {
				t.Fatalf("terminal %v allows transition to %v", from, to)
			}
		}
	}
}

func TestOrderModifyIsEmpty(t *testing.T) {
	if !(OrderModify{}).IsEmpty() {
		t.Fatal("zero modify not empty")
	}
	sl := 1.0
	if (OrderModify{StopLoss: &sl}).IsEmpty() {
		t.Fatal("modify with stop loss reported empty")
	}
}
