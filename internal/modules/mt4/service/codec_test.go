package service

import (
	"testing"

	"mt4_gateway/internal/exchange"
)

func TestEncodeRequest(t *testing.T) {
	frame, err := encodeRequest("getTick", map[string]interface{}{"symbol": "EURUSD"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if frame != `getTick {"symbol":"EURUSD"}` {
		t.Fatalf("frame = %q", frame)
	}
}

func TestEncodeRequestRejectsBadCommands(t *testing.T) {
	for _, command := range []string{"", "get tick", "cmd1", "tick.EURUSD"} {
		if _, err := encodeRequest(command, nil); err == nil {
			t.Fatalf("command %q accepted", command)
		}
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		code     int
		wantsObj bool
	}{
		{name: "success with payload", msg: `0 {"bid":1.1}`, code: 0, wantsObj: true},
		{name: "bare code", msg: "0", code: 0, wantsObj: true},
		{name: "failure code", msg: "9", code: 9, wantsObj: true},
		{name: "array payload", msg: "0 [1,2]", code: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, payload, err := parseReply(tc.msg)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if code != tc.code {
				t.Fatalf("code = %d, want %d", code, tc.code)
			}
			if _, ok := payload.(map[string]interface{}); ok != tc.wantsObj {
				t.Fatalf("payload type = %T", payload)
			}
		})
	}
}

func TestParseReplyErrors(t *testing.T) {
	for _, msg := range []string{"", "abc", `x {"a":1}`, "0 notjson", `0 "scalar"`, "0 7"} {
		if _, _, err := parseReply(msg); err == nil {
			t.Fatalf("reply %q accepted", msg)
		}
	}
}

func TestParseEventFrame(t *testing.T) {
	name, suffix, _, err := parseEventFrame(`tick.EURUSD [1700000000,1.1,1.2]`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if name != "tick" || suffix != "EURUSD" {
		t.Fatalf("name = %q, suffix = %q", name, suffix)
	}

	name, suffix, _, err = parseEventFrame(`orderPlaced {"ticket":1}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if name != "orderPlaced" || suffix != "" {
		t.Fatalf("name = %q, suffix = %q", name, suffix)
	}
}

func TestParseEventFrameErrors(t *testing.T) {
	for _, msg := range []string{"tick", `tick. {"a":1}`, `ev3nt {"a":1}`, `tick.EURUSD notjson`} {
		if _, _, _, err := parseEventFrame(msg); err == nil {
			t.Fatalf("event %q accepted", msg)
		}
	}
}

func TestResultCodeError(t *testing.T) {
	err := resultCodeError("getOrder", rcInvalidOrderStatus, map[string]interface{}{"actual": "closed"})
	statusErr, ok := err.(*exchange.InvalidOrderStatusError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if statusErr.Status != "closed" {
		t.Fatalf("status = %q", statusErr.Status)
	}

	err = resultCodeError("placeOrder", rcOffQuotes, map[string]interface{}{})
	execErr, ok := err.(*exchange.ExecutionError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if execErr.Code != rcOffQuotes || execErr.Command != "placeOrder" {
		t.Fatalf("exec error = %+v", execErr)
	}

	err = resultCodeError("getTick", rcMissingJSONKey, map[string]interface{}{"key": "symbol"})
	if _, ok := err.(*exchange.RequestError); !ok {
		t.Fatalf("error type = %T", err)
	}
}
