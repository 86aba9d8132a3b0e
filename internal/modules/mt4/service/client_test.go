package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mt4_gateway/internal/exchange"
)

type fakeRequestSocket struct {
	mu      sync.Mutex
	sent    []string
	replies chan string
	resets  int
	done    chan struct{}
}

func newFakeRequestSocket() *fakeRequestSocket {
	return &fakeRequestSocket{
		replies: make(chan string, 8),
		done:    make(chan struct{}),
	}
}

func (f *fakeRequestSocket) Send(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeRequestSocket) Recv() (string, error) {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()

	select {
	case reply := <-f.replies:
		return reply, nil
	case <-done:
		return "", errors.New("socket closed")
	}
}

// Reset unblocks a pending Recv, like tearing down the real socket does.
func (f *fakeRequestSocket) Reset() error {
	f.mu.Lock()
	f.resets++
	old := f.done
	f.done = make(chan struct{})
	f.mu.Unlock()
	close(old)
	return nil
}

func (f *fakeRequestSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	return nil
}

func (f *fakeRequestSocket) sentFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func TestClientCall(t *testing.T) {
	sock := newFakeRequestSocket()
	sock.replies <- `0 {"time":1700000000,"bid":1.1,"ask":1.2}`
	client := NewClient(sock, time.Second)

	payload, err := client.Call(context.Background(), getTickRequest("EURUSD"))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	obj, ok := payload.(map[string]interface{})
	if !ok {
		t.Fatalf("payload type = %T", payload)
	}
	if obj["bid"] != 1.1 {
		t.Fatalf("bid = %v", obj["bid"])
	}

	frames := sock.sentFrames()
	if len(frames) != 1 || frames[0] != `getTick {"symbol":"EURUSD"}` {
		t.Fatalf("sent = %v", frames)
	}
}

func TestClientCallErrorReply(t *testing.T) {
	sock := newFakeRequestSocket()
	sock.replies <- "13"
	client := NewClient(sock, time.Second)

	_, err := client.Call(context.Background(), cancelOrderRequest(7))
	var execErr *exchange.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v (%T)", err, err)
	}
	if execErr.Code != rcInvalidTicket || execErr.Command != cmdCancelOrder {
		t.Fatalf("exec error = %+v", execErr)
	}
}

func TestClientCallMalformedReply(t *testing.T) {
	sock := newFakeRequestSocket()
	sock.replies <- "not a reply"
	client := NewClient(sock, time.Second)

	_, err := client.Call(context.Background(), getAccountRequest())
	var reqErr *exchange.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v (%T)", err, err)
	}
}

func TestClientCallTimeoutKeepsChannelUsable(t *testing.T) {
	sock := newFakeRequestSocket()
	client := NewClient(sock, 5*time.Millisecond)

	_, err := client.Call(context.Background(), getAccountRequest())
	var timeoutErr *exchange.RequestTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v (%T)", err, err)
	}
	if timeoutErr.Command != cmdGetAccount {
		t.Fatalf("timed out command = %q", timeoutErr.Command)
	}

	sock.mu.Lock()
	resets := sock.resets
	sock.mu.Unlock()
	if resets != 1 {
		t.Fatalf("resets = %d, want 1", resets)
	}

	// the next call on the same client must work
	sock.replies <- `0 {"rate":1.25}`
	payload, err := client.Call(context.Background(), getExchangeRateRequest("GBP", "USD"))
	if err != nil {
		t.Fatalf("call after timeout failed: %v", err)
	}
	if rate, _ := decodeExchangeRate(payload); rate != 1.25 {
		t.Fatalf("rate = %v", rate)
	}
}

func TestClientCallHonorsContextDeadline(t *testing.T) {
	sock := newFakeRequestSocket()
	client := NewClient(sock, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Call(ctx, getAccountRequest())
	if err == nil {
		t.Fatal("call succeeded without a reply")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("call blocked for %v despite 5ms deadline", elapsed)
	}
}
