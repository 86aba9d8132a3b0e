package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedEventSocket struct {
	frames chan string
	done   chan struct{}
}

func newScriptedEventSocket(frames ...string) *scriptedEventSocket {
	s := &scriptedEventSocket{
		frames: make(chan string, len(frames)),
		done:   make(chan struct{}),
	}
	for _, frame := range frames {
		s.frames <- frame
	}
	return s
}

func (s *scriptedEventSocket) Recv() (string, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.done:
		return "", errors.New("socket closed")
	}
}

func (s *scriptedEventSocket) Subscribe(string) error   { return nil }
func (s *scriptedEventSocket) Unsubscribe(string) error { return nil }

func (s *scriptedEventSocket) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

func TestListenerPreservesOrder(t *testing.T) {
	sock := newScriptedEventSocket("first", "second", "third")
	listener := NewListener(sock, 16)
	listener.Start(context.Background())
	defer func() {
		if err := listener.Shutdown(); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
	}()

	var got []string
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		if frame, ok := listener.Poll(); ok {
			got = append(got, frame)
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("only received %v", got)
		case <-time.After(time.Millisecond):
		}
	}

	for i, want := range []string{"first", "second", "third"} {
		if got[i] != want {
			t.Fatalf("frame[%d] = %q, want %q", i, got[i], want)
		}
	}

	if _, ok := listener.Poll(); ok {
		t.Fatal("poll returned a frame from an empty queue")
	}
}

func TestListenerShutdownJoins(t *testing.T) {
	sock := newScriptedEventSocket()
	listener := NewListener(sock, 4)
	listener.Start(context.Background())

	finished := make(chan struct{})
	go func() {
		_ = listener.Shutdown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not join the receive loop")
	}
}
