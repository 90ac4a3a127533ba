package shutdown

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingCloser struct {
	name   string
	closed *[]string
	err    error
}

func (r *recordingCloser) Close() error {
	*r.closed = append(*r.closed, r.name)
	return r.err
}

const priorityLater = PriorityCache + 10

func TestShutdownPriorityOrder(t *testing.T) {
	c := New(zerolog.Nop())
	var closed []string

	c.Register("db", &recordingCloser{name: "db", closed: &closed}, priorityLater)
	c.Register("cache", &recordingCloser{name: "cache", closed: &closed}, PriorityCache)
	c.Register("db2", &recordingCloser{name: "db2", closed: &closed}, priorityLater)

	if err := c.Shutdown(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"cache", "db", "db2"}
	if len(closed) != len(want) {
		t.Fatalf("expected %v, got %v", want, closed)
	}
	for i := range want {
		if closed[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], closed[i])
		}
	}
}

func TestShutdownOnce(t *testing.T) {
	c := New(zerolog.Nop())
	var closed []string
	c.Register("cache", &recordingCloser{name: "cache", closed: &closed}, PriorityCache)

	_ = c.Shutdown()
	_ = c.Shutdown()

	if len(closed) != 1 {
		t.Errorf("expected one close, got %d", len(closed))
	}
}

func TestShutdownContinuesAfterError(t *testing.T) {
	c := New(zerolog.Nop())
	var closed []string
	boom := errors.New("boom")

	c.Register("cache", &recordingCloser{name: "cache", closed: &closed, err: boom}, PriorityCache)
	c.Register("db", &recordingCloser{name: "db", closed: &closed}, priorityLater)

	err := c.Shutdown()
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to wrap boom, got %v", err)
	}
	if len(closed) != 2 {
		t.Errorf("expected both components closed, got %v", closed)
	}
	if !errors.Is(c.Shutdown(), boom) {
		t.Error("expected repeated Shutdown to report the same error")
	}
}

func TestContextStop(t *testing.T) {
	c := New(zerolog.Nop())
	ctx, stop := c.Context(context.Background())

	if ctx.Err() != nil {
		t.Fatal("expected live context before stop")
	}
	stop()
	stop()

	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("expected cancelled context, got %v", ctx.Err())
	}
}

func TestContextCancelledBySignal(t *testing.T) {
	c := New(zerolog.Nop())
	ctx, stop := c.Context(context.Background())
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("failed to signal self: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("expected context to be cancelled by SIGINT")
	}
}
