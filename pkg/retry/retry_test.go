package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func fastPolicy(tries uint) Policy {
	return Policy{
		MaxTries:        tries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Retryable:       func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func TestDoRetriesTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("Do() = %q after %d calls", got, calls)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, errFatal
	})
	if !errors.Is(err, errFatal) {
		t.Fatalf("Do() error = %v, want errFatal", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoSingleTryByDefault(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), Policy{Retryable: func(error) bool { return true }}, func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoKeepsLastErrorOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(10)
	p.InitialInterval = time.Second
	p.MaxInterval = time.Second

	_, err := Do(ctx, p, func(context.Context) (int, error) {
		cancel()
		return 0, errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("Do() error = %v, want errTransient in chain", err)
	}
}
