package future

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/steam-dispatch/errors"
)

func TestSettleOnce(t *testing.T) {
	f := New[int]()
	if f.Settled() {
		t.Fatal("new future should be unsettled")
	}
	if !f.Resolve(1) {
		t.Fatal("first Resolve should settle")
	}
	if f.Resolve(2) {
		t.Error("second Resolve should be ignored")
	}
	if f.Reject(stderrors.New("late")) {
		t.Error("Reject after Resolve should be ignored")
	}

	v, err := f.Get()
	if v != 1 || err != nil {
		t.Errorf("Get = (%d, %v), want (1, nil)", v, err)
	}
}

func TestRejected(t *testing.T) {
	cause := stderrors.New("boom")
	f := Rejected[string](cause)

	select {
	case <-f.Done():
	default:
		t.Fatal("Rejected future should be settled")
	}
	if _, err := f.Get(); !stderrors.Is(err, cause) {
		t.Errorf("err = %v, want %v", err, cause)
	}
}

func TestWaitTimesOutWithoutSettling(t *testing.T) {
	f := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	if !stderrors.Is(err, errors.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("timeout should wrap the context error, got %v", err)
	}
	if f.Settled() {
		t.Error("timeout must not settle the future")
	}

	f.Resolve(3)
	v, err := f.Wait(context.Background())
	if v != 3 || err != nil {
		t.Errorf("Wait after resolve = (%d, %v)", v, err)
	}
}

func TestConcurrentWaiters(t *testing.T) {
	f := New[string]()

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = f.Get()
		}(i)
	}

	f.Resolve("shared")
	wg.Wait()

	for i, r := range results {
		if r != "shared" {
			t.Errorf("waiter %d got %q", i, r)
		}
	}
}
