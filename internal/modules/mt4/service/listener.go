package service

import (
	"context"
	"sync"
	"time"

	"mt4_gateway/pkg/logger"
)

// Listener drains the subscription socket on a background goroutine and
// queues raw frames. Decoding and state application happen later, on the
// goroutine that polls, so the background side stays trivially small.
type Listener struct {
	sock   eventSocket
	queue  chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewListener(sock eventSocket, queueSize int) *Listener {
	return &Listener{
		sock:  sock,
		queue: make(chan string, queueSize),
	}
}

// Start launches the receive loop.
func (l *Listener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go l.run(ctx)
}

func (l *Listener) run(ctx context.Context) {
	defer l.wg.Done()

	for {
		msg, err := l.sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("event socket receive failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		select {
		case l.queue <- msg:
		case <-ctx.Done():
			return
		default:
			// Queue full. Dropping the oldest frame would reorder events,
			// so the newest one goes instead.
			logger.Warn("event queue full, dropping frame")
		}
	}
}

// Poll returns the next queued frame without blocking.
func (l *Listener) Poll() (string, bool) {
	select {
	case msg := <-l.queue:
		return msg, true
	default:
		return "", false
	}
}

func (l *Listener) Subscribe(topic string) error {
	return l.sock.Subscribe(topic)
}

func (l *Listener) Unsubscribe(topic string) error {
	return l.sock.Unsubscribe(topic)
}

// Shutdown closes the socket, which unblocks the pending Recv, and joins the
// receive loop before returning.
func (l *Listener) Shutdown() error {
	if l.cancel != nil {
		l.cancel()
	}
	err := l.sock.Close()
	l.wg.Wait()
	return err
}
