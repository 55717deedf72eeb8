package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/coalesce"
	"github.com/wippyai/steam-dispatch/dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/future"
	"github.com/wippyai/steam-dispatch/registry"
	"github.com/wippyai/steam-dispatch/schema"
	"go.uber.org/zap"
)

// Bridge connects application goroutines to one native SDK instance.
type Bridge struct {
	native   steamdispatch.Native
	log      *zap.Logger
	decoder  *schema.Decoder
	pending  *registry.Pending
	handlers *registry.Handlers
	loop     *dispatch.Loop
	cancel   context.CancelFunc
	loopDone chan struct{}
	reads    coalesce.Group[[]byte]
	writes   coalesce.Group[bool]
	cfg      Config
	mu       sync.Mutex // native lock, shared with the loop
	shutdown sync.Once
	tornDown bool // guarded by mu

	initialized atomic.Bool
	closed      atomic.Bool
}

// New creates a bridge over native. A nil cfg means defaults.
func New(native steamdispatch.Native, cfg *Config) *Bridge {
	b := &Bridge{
		native:   native,
		pending:  registry.NewPending(),
		handlers: registry.NewHandlers(),
	}
	if cfg != nil {
		b.cfg = *cfg
	}
	if b.cfg.TicketBufferSize <= 0 {
		b.cfg.TicketBufferSize = DefaultTicketBufferSize
	}
	b.log = b.cfg.Logger
	if b.log == nil {
		b.log = Logger()
	}
	table := b.cfg.Table
	if table == nil {
		table = schema.NewTable(b.cfg.Pack)
	}
	b.decoder = schema.NewDecoder(table)
	b.loop = dispatch.New(loopPipe{b}, b.decoder, b.pending, b.handlers, &dispatch.Config{
		Logger:   b.log,
		Lock:     &b.mu,
		Interval: b.cfg.PollInterval,
	})
	return b
}

// loopPipe hands the SDK to the loop until Shutdown has torn it down.
// The loop calls every method with b.mu held.
type loopPipe struct{ b *Bridge }

func (p loopPipe) RunFrame() {
	if !p.b.tornDown {
		p.b.native.RunFrame()
	}
}

func (p loopPipe) NextCallback() (steamdispatch.Envelope, bool) {
	if p.b.tornDown {
		return steamdispatch.Envelope{}, false
	}
	return p.b.native.NextCallback()
}

func (p loopPipe) FreeLastCallback() {
	if !p.b.tornDown {
		p.b.native.FreeLastCallback()
	}
}

func (p loopPipe) CallResult(call steamdispatch.CallHandle, expected steamdispatch.CallbackID, size uint32) ([]byte, bool, bool) {
	if p.b.tornDown {
		return nil, false, false
	}
	return p.b.native.CallResult(call, expected, size)
}

// Initialize performs the native handshake and starts the dispatch loop.
// It fails with startup_failure when Steam is not available; the loop is only
// started after a successful handshake. Calling it again is a no-op.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return errors.Closed("initialize")
	}
	if b.initialized.Load() {
		b.mu.Unlock()
		return nil
	}

	if b.cfg.AppID != 0 && b.native.RestartAppIfNecessary(b.cfg.AppID) {
		b.mu.Unlock()
		return errors.New(errors.PhaseStartup, errors.KindStartupFailure).
			Value(b.cfg.AppID).
			Detail("app %d must be relaunched through Steam", b.cfg.AppID).
			Build()
	}
	if !b.native.Init() {
		b.mu.Unlock()
		return errors.StartupFailure("Steamworks SDK failed to initialize. Is Steam running?")
	}
	b.native.ManualDispatchInit()
	b.initialized.Store(true)
	b.mu.Unlock()

	b.log.Info("steam bridge initialized",
		zap.Uint32("app_id", b.cfg.AppID),
		zap.Uint32("pack", b.decoder.Table().Pack()),
		zap.Bool("manual_pump", b.cfg.ManualPump))

	if !b.cfg.ManualPump {
		loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		b.loopDone = make(chan struct{})
		go func() {
			defer close(b.loopDone)
			_ = b.loop.Run(loopCtx)
		}()
	}
	return nil
}

// usableLocked reports why native calls are not allowed. b.mu must be held.
func (b *Bridge) usableLocked(op string) error {
	if b.closed.Load() {
		return errors.Closed(op)
	}
	if !b.initialized.Load() {
		return errors.NotInitialized(errors.PhaseCall, "steam bridge")
	}
	return nil
}

// Invoke runs fn with exclusive access to the native client.
func (b *Bridge) Invoke(fn func(steamdispatch.Client)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.usableLocked("invoke"); err != nil {
		return err
	}
	fn(b.native)
	return nil
}

// Call issues a call-handle style operation. invoke runs under the native lock
// and returns the handle the SDK issued; the continuation is registered before
// the lock is released so the completion can never be drained first.
func (b *Bridge) Call(invoke func(steamdispatch.Client) steamdispatch.CallHandle) (*future.Future[steamdispatch.CallResult], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.usableLocked("call"); err != nil {
		return nil, err
	}

	handle := invoke(b.native)
	if handle == steamdispatch.InvalidCallHandle {
		return nil, errors.CallFailed(0, 0, "native call returned k_uAPICallInvalid")
	}

	f := future.New[steamdispatch.CallResult]()
	err := b.pending.Register(handle, func(res steamdispatch.CallResult, err error) {
		f.Settle(res, err)
	})
	if err != nil {
		b.log.Warn("steam bridge: call handle rejected", zap.Error(err))
		return nil, err
	}
	return f, nil
}

// RegisterHandler installs h as the persistent handler for id, replacing any
// handler already registered.
func (b *Bridge) RegisterHandler(id steamdispatch.CallbackID, h registry.Handler) {
	b.handlers.Set(id, h)
}

// UnregisterHandler removes the handler for id.
func (b *Bridge) UnregisterHandler(id steamdispatch.CallbackID) bool {
	return b.handlers.Remove(id)
}

// RequestOnce issues a native call whose answer is the next callback with id.
// It fails with already_in_flight when any handler is registered for id.
func (b *Bridge) RequestOnce(id steamdispatch.CallbackID, invoke func(steamdispatch.Client)) (*future.Future[schema.Record], error) {
	f := future.New[schema.Record]()
	release, err := b.handlers.Once(id, func(rec schema.Record) {
		f.Resolve(rec)
	})
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.usableLocked("request"); err != nil {
		release()
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			release()
		}
	}()
	invoke(b.native)
	ok = true
	return f, nil
}

// ReadCoalesced shares one execution of fn among concurrent reads of key.
func (b *Bridge) ReadCoalesced(key string, fn func() ([]byte, error)) *future.Future[[]byte] {
	if b.closed.Load() {
		return future.Rejected[[]byte](errors.Closed("read"))
	}
	return b.reads.Do(key, fn)
}

// WriteCoalesced shares one execution of fn among concurrent writes of key.
func (b *Bridge) WriteCoalesced(key string, fn func() (bool, error)) *future.Future[bool] {
	if b.closed.Load() {
		return future.Rejected[bool](errors.Closed("write"))
	}
	return b.writes.Do(key, fn)
}

// Poll drains the native queue once on the calling goroutine.
func (b *Bridge) Poll(ctx context.Context) (dispatch.TickStats, error) {
	b.mu.Lock()
	err := b.usableLocked("poll")
	b.mu.Unlock()
	if err != nil {
		return dispatch.TickStats{}, err
	}
	return b.loop.Tick(ctx), nil
}

// Await waits for f, bounded by Config.CallTimeout when set. Giving up does
// not remove the pending entry; a late completion still settles f.
func Await[T any](ctx context.Context, b *Bridge, f *future.Future[T]) (T, error) {
	if b.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
		defer cancel()
	}
	return f.Wait(ctx)
}

// Shutdown stops the loop, abandons pending calls without settling them and
// tears the SDK down. New calls fail with closed. It is safe to call more than once.
// When ctx ends before the loop stops, the teardown still happens and the
// timeout is returned; the loop no longer touches the SDK afterwards.
func (b *Bridge) Shutdown(ctx context.Context) error {
	var err error
	b.shutdown.Do(func() {
		b.mu.Lock()
		b.closed.Store(true)
		b.mu.Unlock()

		if b.cancel != nil {
			b.cancel()
			select {
			case <-b.loopDone:
			case <-ctx.Done():
				err = errors.Wrap(errors.PhaseShutdown, errors.KindTimeout, ctx.Err(), "dispatch loop did not stop")
			}
		}

		abandoned := b.pending.Close()
		b.handlers.Clear()

		if b.initialized.Load() {
			b.mu.Lock()
			b.tornDown = true
			b.native.Shutdown()
			b.mu.Unlock()
		}
		b.log.Info("steam bridge shut down", zap.Int("abandoned_calls", abandoned))
	})
	return err
}

// Stats is a snapshot of the bridge for monitoring.
type Stats struct {
	Totals         dispatch.TickStats
	Ticks          uint64
	Pending        int
	Handlers       int
	ReadsInFlight  int
	WritesInFlight int
	State          dispatch.State
	Initialized    bool
	Closed         bool
}

// Stats returns a snapshot of the bridge.
func (b *Bridge) Stats() Stats {
	return Stats{
		Totals:         b.loop.Totals(),
		Ticks:          b.loop.Ticks(),
		Pending:        b.pending.Len(),
		Handlers:       b.handlers.Len(),
		ReadsInFlight:  b.reads.InFlight(),
		WritesInFlight: b.writes.InFlight(),
		State:          b.loop.State(),
		Initialized:    b.initialized.Load(),
		Closed:         b.closed.Load(),
	}
}

// Loop returns the dispatch loop, for subscribing observers.
func (b *Bridge) Loop() *dispatch.Loop {
	return b.loop
}

// Pending returns the pending-call registry, for subscribing observers.
func (b *Bridge) Pending() *registry.Pending {
	return b.pending
}

// Handlers returns the persistent handler table, for subscribing observers.
func (b *Bridge) Handlers() *registry.Handlers {
	return b.handlers
}

// Decoder returns the decoder the loop uses.
func (b *Bridge) Decoder() *schema.Decoder {
	return b.decoder
}
