package dispatch

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/native/fake"
	"github.com/wippyai/steam-dispatch/registry"
	"github.com/wippyai/steam-dispatch/schema"
	"go.bytecodealliance.org/wit"
)

type recorder struct {
	events []Event
	mu     sync.Mutex
}

func (r *recorder) OnDispatchEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type harness struct {
	sdk      *fake.SDK
	pending  *registry.Pending
	handlers *registry.Handlers
	loop     *Loop
	rec      *recorder
}

func newHarness(t *testing.T, cfg *Config) *harness {
	t.Helper()
	sdk := fake.New(&fake.Config{Pack: schema.PackSmall})
	sdk.Init()
	sdk.ManualDispatchInit()

	h := &harness{
		sdk:      sdk,
		pending:  registry.NewPending(),
		handlers: registry.NewHandlers(),
		rec:      &recorder{},
	}
	h.loop = New(sdk, schema.NewDecoder(sdk.Table()), h.pending, h.handlers, cfg)
	h.loop.Subscribe(h.rec)
	return h
}

func (h *harness) checkProtocol(t *testing.T) {
	t.Helper()
	if v := h.sdk.Violations(); len(v) > 0 {
		t.Errorf("protocol violations: %v", v)
	}
	c := h.sdk.Counters()
	if c.Pulled != c.Freed {
		t.Errorf("pulled %d messages but freed %d", c.Pulled, c.Freed)
	}
}

func TestTick_DecodeBeforeRelease(t *testing.T) {
	h := newHarness(t, nil)
	h.handlers.Set(schema.IDDlcInstalled, func(schema.Record) {})

	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 1})
	h.sdk.Push(steamdispatch.Envelope{Callback: 9999, Payload: []byte{1, 2}})
	h.sdk.Push(steamdispatch.Envelope{Callback: schema.IDDlcInstalled, Payload: []byte{1}})
	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 2})

	stats := h.loop.Tick(context.Background())
	if stats.Drained != 4 {
		t.Fatalf("Drained = %d, want 4", stats.Drained)
	}

	type step struct {
		pulled, decoded, released int
	}
	steps := make(map[int]*step)
	for i, e := range h.rec.snapshot() {
		if e.Seq == 0 {
			continue
		}
		s := steps[e.Seq]
		if s == nil {
			s = &step{pulled: -1, decoded: -1, released: -1}
			steps[e.Seq] = s
		}
		switch e.Type {
		case EventPulled:
			s.pulled = i
		case EventDecoded, EventDecodeFailed:
			s.decoded = i
		case EventReleased:
			s.released = i
		}
	}

	for seq := 1; seq <= 4; seq++ {
		s := steps[seq]
		if s == nil {
			t.Fatalf("no events for seq %d", seq)
		}
		if !(s.pulled < s.decoded && s.decoded < s.released) {
			t.Errorf("seq %d: pulled@%d decoded@%d released@%d", seq, s.pulled, s.decoded, s.released)
		}
		if seq > 1 && steps[seq-1].released > s.pulled {
			t.Errorf("seq %d pulled before seq %d released", seq, seq-1)
		}
	}
	h.checkProtocol(t)
}

func TestTick_ReversedCompletionOrder(t *testing.T) {
	h := newHarness(t, nil)

	h1, h2 := h.sdk.Issue(), h.sdk.Issue()
	got := make(map[steamdispatch.CallHandle]schema.Record)
	dec := schema.NewDecoder(h.sdk.Table())
	for _, call := range []steamdispatch.CallHandle{h1, h2} {
		call := call
		err := h.pending.Register(call, func(res steamdispatch.CallResult, err error) {
			if err != nil {
				t.Errorf("handle %d: %v", call, err)
				return
			}
			rec, derr := dec.Decode(res.Callback, res.Data)
			if derr != nil {
				t.Errorf("handle %d: decode: %v", call, derr)
			}
			got[call] = rec
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	_ = h.sdk.Complete(h2, schema.RemoteStorageFileReadAsyncComplete{Call: h2, Result: schema.ResultOK, Read: 2}, false)
	_ = h.sdk.Complete(h1, schema.RemoteStorageFileReadAsyncComplete{Call: h1, Result: schema.ResultOK, Read: 1}, false)

	stats := h.loop.Tick(context.Background())
	if stats.Delivered != 2 {
		t.Fatalf("Delivered = %d, want 2", stats.Delivered)
	}
	for call, read := range map[steamdispatch.CallHandle]uint32{h1: 1, h2: 2} {
		r, ok := got[call].(schema.RemoteStorageFileReadAsyncComplete)
		if !ok || r.Call != call || r.Read != read {
			t.Errorf("handle %d resolved with %+v", call, got[call])
		}
	}
	if h.pending.Len() != 0 {
		t.Errorf("pending = %d after resolution", h.pending.Len())
	}
	h.checkProtocol(t)
}

func TestTick_AtMostOneResolution(t *testing.T) {
	h := newHarness(t, nil)
	call := h.sdk.Issue()

	calls := 0
	_ = h.pending.Register(call, func(steamdispatch.CallResult, error) { calls++ })

	// the SDK never repeats a completion, but a duplicate must still be harmless
	_ = h.sdk.Complete(call, schema.RemoteStorageFileWriteAsyncComplete{Result: schema.ResultOK}, false)
	h.loop.Tick(context.Background())
	_ = h.sdk.Complete(call, schema.RemoteStorageFileWriteAsyncComplete{Result: schema.ResultOK}, false)

	stats := h.loop.Tick(context.Background())
	if calls != 1 {
		t.Fatalf("continuation ran %d times", calls)
	}
	if stats.Orphaned != 1 {
		t.Errorf("Orphaned = %d, want 1", stats.Orphaned)
	}
	if h.pending.Has(call) {
		t.Error("entry still present after resolution")
	}
}

func TestTick_OrphanedCompletion(t *testing.T) {
	h := newHarness(t, nil)

	live := h.sdk.Issue()
	resolved := false
	_ = h.pending.Register(live, func(steamdispatch.CallResult, error) { resolved = true })

	orphan := h.sdk.Issue()
	_ = h.sdk.Complete(orphan, schema.RemoteStorageFileWriteAsyncComplete{Result: schema.ResultOK}, false)

	stats := h.loop.Tick(context.Background())
	if stats.Orphaned != 1 {
		t.Fatalf("Orphaned = %d, want 1", stats.Orphaned)
	}
	if resolved || !h.pending.Has(live) {
		t.Fatal("orphan disturbed an unrelated pending entry")
	}

	_ = h.sdk.Complete(live, schema.RemoteStorageFileWriteAsyncComplete{Result: schema.ResultOK}, false)
	h.loop.Tick(context.Background())
	if !resolved {
		t.Error("live entry not resolved after orphan")
	}

	var orphanEvents int
	for _, e := range h.rec.snapshot() {
		if e.Type == EventOrphaned {
			orphanEvents++
			if !stderrors.Is(e.Err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindOrphanedCompletion}) {
				t.Errorf("orphan event error = %v", e.Err)
			}
			if e.Handle != orphan {
				t.Errorf("orphan event handle = %d, want %d", e.Handle, orphan)
			}
		}
	}
	if orphanEvents != 1 {
		t.Errorf("got %d orphan events", orphanEvents)
	}
	h.checkProtocol(t)
}

func TestTick_TransportFetchFailureLeavesCallPending(t *testing.T) {
	h := newHarness(t, nil)
	call := h.sdk.Issue()

	invoked := false
	_ = h.pending.Register(call, func(steamdispatch.CallResult, error) { invoked = true })
	h.sdk.FailFetch(call)
	_ = h.sdk.Complete(call, schema.RemoteStorageFileWriteAsyncComplete{Result: schema.ResultOK}, false)

	stats := h.loop.Tick(context.Background())
	if stats.Dropped != 1 || stats.Delivered != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if invoked {
		t.Error("continuation must not run when the fetch fails")
	}
	if !h.pending.Has(call) {
		t.Error("entry must stay pending after a fetch failure")
	}
	h.checkProtocol(t)
}

func TestTick_FailedCallReportsError(t *testing.T) {
	h := newHarness(t, nil)
	call := h.sdk.Issue()

	var gotErr error
	_ = h.pending.Register(call, func(_ steamdispatch.CallResult, err error) { gotErr = err })
	_ = h.sdk.Complete(call, schema.RemoteStorageFileReadAsyncComplete{Call: call, Result: schema.ResultIOFailure}, true)

	h.loop.Tick(context.Background())
	var se *errors.Error
	if !stderrors.As(gotErr, &se) || se.Kind != errors.KindCallFailed {
		t.Fatalf("err = %v, want call_failed", gotErr)
	}
	if se.Handle != uint64(call) {
		t.Errorf("error handle = %d", se.Handle)
	}
}

func TestTick_PersistentHandlerInvokedForEveryEvent(t *testing.T) {
	h := newHarness(t, nil)
	err := h.sdk.Table().Register(schema.Entry{
		ID:   42,
		Name: "Custom_t",
		Type: schema.NewRecordType("Custom_t", schema.NewField("m_nValue", wit.U32{})),
	})
	if err != nil {
		t.Fatal(err)
	}

	var seen []any
	h.handlers.Set(42, func(rec schema.Record) {
		v, _ := rec.(schema.Generic).Get("m_nValue")
		seen = append(seen, v)
	})

	_ = h.sdk.Emit(schema.Generic{Callback: 42, Fields: []schema.Field{{Name: "m_nValue", Value: uint32(10)}}})
	_ = h.sdk.Emit(schema.Generic{Callback: 42, Fields: []schema.Field{{Name: "m_nValue", Value: uint32(20)}}})

	h.loop.Tick(context.Background())
	if len(seen) != 2 || seen[0] != uint32(10) || seen[1] != uint32(20) {
		t.Errorf("handler saw %v, want [10 20]", seen)
	}
	if _, ok := h.handlers.Get(42); !ok {
		t.Error("persistent handler removed after delivery")
	}
}

func TestTick_UnsubscribedEventsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.sdk.Emit(schema.GameOverlayActivated{Active: true})

	stats := h.loop.Tick(context.Background())
	if stats.Drained != 1 || stats.Delivered != 0 || stats.Dropped != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	h.checkProtocol(t)
}

func TestTick_UnknownDiscriminatorDoesNotDisruptDrain(t *testing.T) {
	h := newHarness(t, nil)
	var apps []uint32
	h.handlers.Set(schema.IDDlcInstalled, func(rec schema.Record) {
		apps = append(apps, rec.(schema.DlcInstalled).AppID)
	})
	h.handlers.Set(9999, func(schema.Record) { t.Error("handler for unknown id must not run") })

	h.sdk.Push(steamdispatch.Envelope{Callback: 9999, Payload: []byte{0xAA}})
	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 730})

	stats := h.loop.Tick(context.Background())
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
	if len(apps) != 1 || apps[0] != 730 {
		t.Errorf("apps = %v, want [730]", apps)
	}
	h.checkProtocol(t)
}

func TestTick_MalformedRecordDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.handlers.Set(schema.IDDlcInstalled, func(schema.Record) {})

	h.sdk.Push(steamdispatch.Envelope{Callback: schema.IDDlcInstalled, Payload: []byte{1, 2, 3, 4, 5, 6}})
	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 5})

	stats := h.loop.Tick(context.Background())
	if stats.Failed != 1 || stats.Delivered != 1 {
		t.Errorf("stats = %+v", stats)
	}
	h.checkProtocol(t)
}

func TestTick_HandlerPanicDoesNotStopDrain(t *testing.T) {
	h := newHarness(t, nil)
	var apps []uint32
	h.handlers.Set(schema.IDDlcInstalled, func(rec schema.Record) {
		id := rec.(schema.DlcInstalled).AppID
		if id == 1 {
			panic("bad handler")
		}
		apps = append(apps, id)
	})
	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 1})
	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 2})

	stats := h.loop.Tick(context.Background())
	if stats.Panicked != 1 || stats.Delivered != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(apps) != 1 || apps[0] != 2 {
		t.Errorf("apps = %v, want [2]", apps)
	}

	var panicked bool
	for _, e := range h.rec.snapshot() {
		if e.Type == EventHandlerPanicked {
			panicked = stderrors.Is(e.Err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindHandlerPanic})
		}
	}
	if !panicked {
		t.Error("no handler_panic event")
	}
	h.checkProtocol(t)
}

func TestTick_RunFramePanicReleasesLock(t *testing.T) {
	var mu sync.Mutex
	h := newHarness(t, &Config{Lock: &mu})
	h.sdk.OnFrame(func() { panic("native fault") })

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("RunFrame panic was swallowed")
			}
		}()
		h.loop.Tick(context.Background())
	}()

	if !mu.TryLock() {
		t.Fatal("native lock still held after RunFrame panicked")
	}
	mu.Unlock()

	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 7})
	h.handlers.Set(schema.IDDlcInstalled, func(schema.Record) {})
	if stats := h.loop.Tick(context.Background()); stats.Delivered != 1 {
		t.Errorf("next tick stats = %+v", stats)
	}
	h.checkProtocol(t)
}

func TestTick_DeliveryHappensAfterRelease(t *testing.T) {
	lock := &sync.Mutex{}
	h := newHarness(t, &Config{Lock: lock})

	var app uint32
	h.handlers.Set(schema.IDDlcInstalled, func(rec schema.Record) {
		events := h.rec.snapshot()
		if last := events[len(events)-1]; last.Type != EventReleased {
			t.Errorf("handler ran after %s, want released", last.Type)
		}
		// the native lock is free: this would deadlock otherwise
		lock.Lock()
		app = h.sdk.AppID()
		lock.Unlock()
		if rec.(schema.DlcInstalled).AppID != 99 {
			t.Errorf("record changed after release: %+v", rec)
		}
	})
	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 99})

	h.loop.Tick(context.Background())
	if app != 480 {
		t.Errorf("AppID from handler = %d", app)
	}
}

func TestTick_StateTransitions(t *testing.T) {
	h := newHarness(t, nil)
	if h.loop.State() != StateIdle {
		t.Fatalf("initial state = %s", h.loop.State())
	}

	var during State
	h.loop.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == EventTickStarted {
			during = h.loop.State()
		}
	}))
	h.loop.Tick(context.Background())

	if during != StateDraining {
		t.Errorf("state during tick = %s", during)
	}
	if h.loop.State() != StateWaitingNextTick {
		t.Errorf("state after tick = %s", h.loop.State())
	}
	if h.loop.Ticks() != 1 {
		t.Errorf("Ticks = %d", h.loop.Ticks())
	}
}

func TestTick_TotalsAccumulate(t *testing.T) {
	h := newHarness(t, nil)
	h.handlers.Set(schema.IDSteamShutdown, func(schema.Record) {})

	for i := 0; i < 3; i++ {
		_ = h.sdk.Emit(schema.SteamShutdown{})
		h.loop.Tick(context.Background())
	}
	if got := h.loop.Totals(); got.Drained != 3 || got.Delivered != 3 {
		t.Errorf("Totals = %+v", got)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	h := newHarness(t, nil)
	n := 0
	unsubscribe := h.loop.Subscribe(ObserverFunc(func(Event) { n++ }))
	h.loop.Tick(context.Background())
	if n != 2 {
		t.Fatalf("got %d events for an empty tick, want 2", n)
	}
	unsubscribe()
	h.loop.Tick(context.Background())
	if n != 2 {
		t.Errorf("observer called after unsubscribe")
	}
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	h := newHarness(t, &Config{Interval: 5 * time.Millisecond})
	got := make(chan uint32, 1)
	h.handlers.Set(schema.IDDlcInstalled, func(rec schema.Record) {
		got <- rec.(schema.DlcInstalled).AppID
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()

	_ = h.sdk.Emit(schema.DlcInstalled{AppID: 570})
	select {
	case app := <-got:
		if app != 570 {
			t.Errorf("AppID = %d", app)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not invoked by Run")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if h.loop.Interval() != 5*time.Millisecond {
		t.Errorf("Interval = %v", h.loop.Interval())
	}
}

func TestEventAndStateNames(t *testing.T) {
	if EventReleased.String() != "released" || EventType(99).String() != "unknown" {
		t.Error("unexpected event names")
	}
	if StateWaitingNextTick.String() != "waiting" || State(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
