package service

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/pkg/logger"
)

// Client drives the command channel. The underlying REQ transport allows
// exactly one request in flight, so calls are serialized under a mutex;
// concurrent callers queue up in lock order.
type Client struct {
	mu      sync.Mutex
	sock    requestSocket
	timeout time.Duration
}

func NewClient(sock requestSocket, timeout time.Duration) *Client {
	return &Client{sock: sock, timeout: timeout}
}

type recvResult struct {
	msg string
	err error
}

// Call sends one request and waits for its reply. On timeout or context
// cancellation the socket is reset so the channel stays usable; the
// abandoned reply, if it ever arrives, dies with the old socket.
func (c *Client) Call(ctx context.Context, r request) (interface{}, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "terminal.call")
	span.SetTag("command", r.command)
	defer span.Finish()

	frame, err := encodeRequest(r.command, r.content)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, &exchange.RequestTimeoutError{Command: r.command}
	}

	logger.Debug("terminal <- %s", frame)
	if err := c.sock.Send(frame); err != nil {
		logger.Warn("send of '%s' failed, resetting socket: %v", r.command, err)
		c.reset()
		return nil, &exchange.RequestTimeoutError{Command: r.command}
	}

	// The receive runs on its own goroutine so the timer can win. The
	// channel is buffered: a late result must not leak the goroutine.
	results := make(chan recvResult, 1)
	go func() {
		msg, err := c.sock.Recv()
		results <- recvResult{msg: msg, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var reply string
	select {
	case res := <-results:
		if res.err != nil {
			logger.Warn("receive for '%s' failed, resetting socket: %v", r.command, res.err)
			c.reset()
			return nil, &exchange.RequestTimeoutError{Command: r.command}
		}
		reply = res.msg
	case <-timer.C:
		logger.Warn("command '%s' timed out after %s, resetting socket", r.command, timeout)
		c.reset()
		return nil, &exchange.RequestTimeoutError{Command: r.command}
	case <-ctx.Done():
		c.reset()
		return nil, ctx.Err()
	}

	logger.Debug("terminal -> %s", reply)
	code, payload, err := parseReply(reply)
	if err != nil {
		return nil, &exchange.RequestError{Reason: "malformed reply to '" + r.command + "'", Err: err}
	}
	if code != rcSuccess {
		return nil, resultCodeError(r.command, code, payload)
	}
	return payload, nil
}

func (c *Client) reset() {
	if err := c.sock.Reset(); err != nil {
		logger.Error("request socket reset failed: %v", err)
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.Close()
}
