package dispatch

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/registry"
	"github.com/wippyai/steam-dispatch/schema"
	"go.uber.org/zap"
)

// DefaultInterval is the tick period used when Config.Interval is zero.
const DefaultInterval = 100 * time.Millisecond

// Config configures a Loop.
type Config struct {
	// Logger receives loop diagnostics. nil means the package Logger().
	Logger *zap.Logger

	// Lock serializes native calls. The bridge shares its lock with the loop
	// so facade calls and drains never touch the SDK at the same time.
	// nil means the loop uses a private mutex.
	Lock sync.Locker

	// Interval is the fixed tick period. 0 means DefaultInterval.
	Interval time.Duration
}

// Loop drains a Pipe and routes messages into the registries.
type Loop struct {
	pipe     steamdispatch.Pipe
	lock     sync.Locker
	decoder  *schema.Decoder
	pending  *registry.Pending
	handlers *registry.Handlers
	log      *zap.Logger

	observers []observerEntry
	totals    TickStats
	interval  time.Duration
	ticks     atomic.Uint64
	obsSeq    uint64
	tickMu    sync.Mutex
	obsMu     sync.RWMutex
	totalsMu  sync.Mutex
	state     atomic.Int32
}

type observerEntry struct {
	obs Observer
	id  uint64
}

// delivery is user code to run once the native message is released.
type delivery struct {
	run      func()
	handle   steamdispatch.CallHandle
	callback steamdispatch.CallbackID
}

// New creates a loop. A nil cfg means defaults.
func New(pipe steamdispatch.Pipe, decoder *schema.Decoder, pending *registry.Pending, handlers *registry.Handlers, cfg *Config) *Loop {
	l := &Loop{
		pipe:     pipe,
		decoder:  decoder,
		pending:  pending,
		handlers: handlers,
		interval: DefaultInterval,
	}
	if cfg != nil {
		l.lock = cfg.Lock
		l.log = cfg.Logger
		if cfg.Interval > 0 {
			l.interval = cfg.Interval
		}
	}
	if l.lock == nil {
		l.lock = &sync.Mutex{}
	}
	if l.log == nil {
		l.log = Logger()
	}
	if l.decoder == nil {
		l.decoder = schema.NewDecoder(nil)
	}
	return l
}

// Run ticks every interval until ctx ends. Ticks never overlap.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Debug("dispatch loop started", zap.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("dispatch loop stopped", zap.Uint64("ticks", l.ticks.Load()))
			return nil
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick advances the native queue and drains it once.
// It stops pulling early when ctx ends; the message in hand is always released.
func (l *Loop) Tick(ctx context.Context) TickStats {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	tick := l.ticks.Add(1)
	l.state.Store(int32(StateDraining))
	l.notify(Event{Type: EventTickStarted, Tick: tick})

	l.runFrame()

	var stats TickStats
	for seq := 1; ctx.Err() == nil; seq++ {
		d, more := l.next(tick, seq, &stats)
		if !more {
			break
		}
		if d != nil {
			l.deliver(tick, seq, d, &stats)
		}
	}

	l.totalsMu.Lock()
	l.totals.add(stats)
	l.totalsMu.Unlock()

	l.state.Store(int32(StateWaitingNextTick))
	l.notify(Event{Type: EventTickFinished, Tick: tick, Stats: stats})
	return stats
}

func (l *Loop) runFrame() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.pipe.RunFrame()
}

// next pulls, decodes, classifies and releases one message under the native lock.
func (l *Loop) next(tick uint64, seq int, stats *TickStats) (d *delivery, more bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	env, ok := l.pipe.NextCallback()
	if !ok {
		return nil, false
	}
	stats.Drained++
	l.notify(Event{Type: EventPulled, Tick: tick, Seq: seq, Callback: env.Callback})

	defer func() {
		l.pipe.FreeLastCallback()
		l.notify(Event{Type: EventReleased, Tick: tick, Seq: seq, Callback: env.Callback})
	}()
	defer func() {
		if r := recover(); r != nil {
			stats.Failed++
			err := errors.New(errors.PhaseDispatch, errors.KindHandlerPanic).
				Callback(int32(env.Callback)).
				Value(r).
				Detail("classification panic: %v", r).
				Build()
			l.log.Error("dispatch: message classification failed", zap.Error(err))
			d, more = nil, true
		}
	}()

	return l.classify(tick, seq, env, stats), true
}

func (l *Loop) classify(tick uint64, seq int, env steamdispatch.Envelope, stats *TickStats) *delivery {
	rec, err := l.decoder.Decode(env.Callback, env.Payload)
	if err != nil {
		l.notify(Event{Type: EventDecodeFailed, Tick: tick, Seq: seq, Callback: env.Callback, Err: err})
		if stderrors.Is(err, errors.ErrUnknownDiscriminator) {
			stats.Dropped++
			l.log.Debug("dispatch: dropping message without schema",
				zap.Int32("callback", int32(env.Callback)),
				zap.Int("size", len(env.Payload)))
			return nil
		}
		stats.Failed++
		l.log.Warn("dispatch: dropping malformed message", zap.Error(err))
		return nil
	}
	l.notify(Event{Type: EventDecoded, Tick: tick, Seq: seq, Callback: env.Callback})

	if cc, ok := rec.(schema.CallCompleted); ok {
		return l.completion(tick, seq, cc, stats)
	}

	h, ok := l.handlers.Get(env.Callback)
	if !ok {
		return nil
	}
	return &delivery{
		callback: env.Callback,
		run:      func() { h(rec) },
	}
}

func (l *Loop) completion(tick uint64, seq int, cc schema.CallCompleted, stats *TickStats) *delivery {
	data, failed, ok := l.pipe.CallResult(cc.Call, cc.Callback, cc.Size)
	if !ok {
		stats.Dropped++
		err := errors.TransportFetch(uint64(cc.Call), int32(cc.Callback))
		l.notify(Event{Type: EventFetchDropped, Tick: tick, Seq: seq, Callback: cc.Callback, Handle: cc.Call, Err: err})
		l.log.Debug("dispatch: call result fetch failed, dropping completion", zap.Error(err))
		return nil
	}

	cont, found := l.pending.Take(cc.Call)
	if !found {
		stats.Orphaned++
		err := errors.OrphanedCompletion(uint64(cc.Call), int32(cc.Callback))
		l.notify(Event{Type: EventOrphaned, Tick: tick, Seq: seq, Callback: cc.Callback, Handle: cc.Call, Err: err})
		l.log.Warn("dispatch: orphaned completion", zap.Error(err))
		return nil
	}

	var callErr error
	if failed {
		callErr = errors.CallFailed(int32(cc.Callback), uint64(cc.Call), "call result reported failure")
	}
	res := steamdispatch.CallResult{Callback: cc.Callback, Data: data}
	return &delivery{
		callback: cc.Callback,
		handle:   cc.Call,
		run:      func() { cont(res, callErr) },
	}
}

// deliver runs user code with the native lock released.
func (l *Loop) deliver(tick uint64, seq int, d *delivery, stats *TickStats) {
	defer func() {
		if r := recover(); r != nil {
			stats.Panicked++
			err := errors.HandlerPanic(int32(d.callback), uint64(d.handle), r)
			l.notify(Event{Type: EventHandlerPanicked, Tick: tick, Seq: seq, Callback: d.callback, Handle: d.handle, Err: err})
			l.log.Error("dispatch: handler panicked", zap.Error(err))
		}
	}()

	d.run()
	stats.Delivered++
	l.notify(Event{Type: EventDelivered, Tick: tick, Seq: seq, Callback: d.callback, Handle: d.handle})
}

// Subscribe adds an observer and returns a func that removes it.
func (l *Loop) Subscribe(o Observer) (unsubscribe func()) {
	l.obsMu.Lock()
	l.obsSeq++
	id := l.obsSeq
	l.observers = append(l.observers, observerEntry{obs: o, id: id})
	l.obsMu.Unlock()

	return func() {
		l.obsMu.Lock()
		defer l.obsMu.Unlock()
		for i, e := range l.observers {
			if e.id == id {
				l.observers = append(l.observers[:i], l.observers[i+1:]...)
				return
			}
		}
	}
}

func (l *Loop) notify(e Event) {
	l.obsMu.RLock()
	defer l.obsMu.RUnlock()
	for _, entry := range l.observers {
		entry.obs.OnDispatchEvent(e)
	}
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Ticks returns the number of ticks started.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Totals returns the stats accumulated over all ticks.
func (l *Loop) Totals() TickStats {
	l.totalsMu.Lock()
	defer l.totalsMu.Unlock()
	return l.totals
}

// Interval returns the tick period.
func (l *Loop) Interval() time.Duration {
	return l.interval
}
