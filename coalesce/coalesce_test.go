package coalesce

import (
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/future"
)

func TestDoSharesOneExecution(t *testing.T) {
	var g Group[string]
	var runs atomic.Int32
	gate := make(chan struct{})
	started := make(chan struct{})

	fn := func() (string, error) {
		if runs.Add(1) == 1 {
			close(started)
		}
		<-gate
		return "contents", nil
	}

	const n = 10
	futures := make([]*future.Future[string], n)
	futures[0] = g.Do("f", fn)
	<-started
	for i := 1; i < n; i++ {
		futures[i] = g.Do("f", fn)
	}

	if g.InFlight() != 1 {
		t.Errorf("InFlight = %d, want 1", g.InFlight())
	}
	for i := 1; i < n; i++ {
		if futures[i] != futures[0] {
			t.Fatalf("caller %d got its own future", i)
		}
	}
	close(gate)

	for i, f := range futures {
		v, err := f.Get()
		if v != "contents" || err != nil {
			t.Errorf("caller %d got (%q, %v)", i, v, err)
		}
	}
	if runs.Load() != 1 {
		t.Fatalf("factory ran %d times, want 1", runs.Load())
	}

	// settled: the key is forgotten
	if _, err := g.Do("f", func() (string, error) { return "fresh", nil }).Get(); err != nil {
		t.Fatal(err)
	}
	if g.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", g.Calls())
	}
	if g.InFlight() != 0 {
		t.Errorf("InFlight = %d after settlement", g.InFlight())
	}
}

func TestDoSharesFailure(t *testing.T) {
	var g Group[int]
	cause := stderrors.New("file does not exist")
	gate := make(chan struct{})
	started := make(chan struct{})

	a := g.Do("k", func() (int, error) {
		close(started)
		<-gate
		return 0, cause
	})
	<-started
	b := g.Do("k", func() (int, error) { return 1, nil })
	close(gate)

	for _, f := range []*future.Future[int]{a, b} {
		if _, err := f.Get(); !stderrors.Is(err, cause) {
			t.Errorf("err = %v, want %v", err, cause)
		}
	}
}

func TestGroupsAreIndependent(t *testing.T) {
	var reads, writes Group[bool]
	gate := make(chan struct{})
	started := make(chan struct{})

	r := reads.Do("save", func() (bool, error) {
		close(started)
		<-gate
		return true, nil
	})
	<-started

	w := writes.Do("save", func() (bool, error) { return false, nil })
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("write joined the in-flight read")
	}
	close(gate)
	if v, _ := r.Get(); !v {
		t.Error("read result lost")
	}
}

func TestDoRecoversPanic(t *testing.T) {
	var g Group[int]
	_, err := g.Do("p", func() (int, error) { panic("kaboom") }).Get()

	var se *errors.Error
	if !stderrors.As(err, &se) || se.Kind != errors.KindHandlerPanic {
		t.Fatalf("err = %v, want handler_panic", err)
	}
	if se.Phase != errors.PhaseCoalesce {
		t.Errorf("Phase = %v", se.Phase)
	}
}

func TestForgetStartsNewCall(t *testing.T) {
	var g Group[int]
	gate := make(chan struct{})
	started := make(chan struct{})

	a := g.Do("k", func() (int, error) {
		close(started)
		<-gate
		return 1, nil
	})
	<-started
	g.Forget("k")

	b := g.Do("k", func() (int, error) { return 2, nil })
	if a == b {
		t.Fatal("Forget kept the in-flight future")
	}
	if v, err := b.Get(); v != 2 || err != nil {
		t.Errorf("new call = (%d, %v)", v, err)
	}

	close(gate)
	if v, err := a.Get(); v != 1 || err != nil {
		t.Errorf("forgotten call = (%d, %v)", v, err)
	}
	if g.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", g.Calls())
	}
}
