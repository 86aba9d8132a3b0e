package service

import (
	"context"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
)

// requestSocket is the command channel transport: strict send/receive pairs.
// Reset tears the connection down and redials, abandoning an unanswered
// request.
type requestSocket interface {
	Send(msg string) error
	Recv() (string, error)
	Reset() error
	Close() error
}

// eventSocket is the subscription channel transport. Recv blocks until a
// frame arrives or the socket is closed.
type eventSocket interface {
	Recv() (string, error)
	Subscribe(topic string) error
	Unsubscribe(topic string) error
	Close() error
}

type zmqRequestSocket struct {
	ctx  context.Context
	addr string

	mu   sync.Mutex
	sock zmq4.Socket
}

// DialRequestSocket connects the command channel.
func DialRequestSocket(ctx context.Context, addr string) (requestSocket, error) {
	sock := zmq4.NewReq(ctx)
	if err := sock.Dial(addr); err != nil {
		return nil, errors.Wrapf(err, "dial request socket %s", addr)
	}
	return &zmqRequestSocket{ctx: ctx, addr: addr, sock: sock}, nil
}

func (s *zmqRequestSocket) current() zmq4.Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sock
}

func (s *zmqRequestSocket) Send(msg string) error {
	return s.current().Send(zmq4.NewMsgString(msg))
}

func (s *zmqRequestSocket) Recv() (string, error) {
	msg, err := s.current().Recv()
	if err != nil {
		return "", err
	}
	return string(msg.Bytes()), nil
}

// Reset replaces the underlying socket. Closing the old one unblocks any
// receive still pending on it, which is the point: a REQ socket stuck
// waiting for a reply that will never come cannot be used again.
func (s *zmqRequestSocket) Reset() error {
	fresh := zmq4.NewReq(s.ctx)
	if err := fresh.Dial(s.addr); err != nil {
		fresh.Close()
		return errors.Wrapf(err, "redial request socket %s", s.addr)
	}

	s.mu.Lock()
	old := s.sock
	s.sock = fresh
	s.mu.Unlock()

	return old.Close()
}

func (s *zmqRequestSocket) Close() error {
	return s.current().Close()
}

type zmqEventSocket struct {
	sock zmq4.Socket
}

// DialEventSocket connects the subscription channel. The socket starts with
// no topic subscriptions; the caller subscribes per topic.
func DialEventSocket(ctx context.Context, addr string) (eventSocket, error) {
	sock := zmq4.NewSub(ctx)
	if err := sock.Dial(addr); err != nil {
		return nil, errors.Wrapf(err, "dial event socket %s", addr)
	}
	return &zmqEventSocket{sock: sock}, nil
}

func (s *zmqEventSocket) Recv() (string, error) {
	msg, err := s.sock.Recv()
	if err != nil {
		return "", err
	}
	return string(msg.Bytes()), nil
}

func (s *zmqEventSocket) Subscribe(topic string) error {
	return s.sock.SetOption(zmq4.OptionSubscribe, topic)
}

func (s *zmqEventSocket) Unsubscribe(topic string) error {
	return s.sock.SetOption(zmq4.OptionUnsubscribe, topic)
}

func (s *zmqEventSocket) Close() error {
	return s.sock.Close()
}
