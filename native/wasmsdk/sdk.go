package wasmsdk

import (
	"context"
	"encoding/binary"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
)

// Config configures guest loading. A nil Config means defaults.
type Config struct {
	// Logger receives guest log lines and call failures. nil means the package Logger().
	Logger *zap.Logger

	// Name is the guest module name. Empty means "steam_api".
	Name string

	// MemoryLimitPages caps guest memory in 64KB pages. 0 means the wazero default.
	MemoryLimitPages uint32

	// WASI instantiates wasi_snapshot_preview1 for guests built against WASI.
	WASI bool
}

// SDK is a steamdispatch.Native backed by a WebAssembly guest.
//
// The Native interface has no error returns. A trapping guest call is logged,
// answered with the zero value and kept in Err.
type SDK struct {
	runtime wazero.Runtime
	mod     api.Module
	ctx     context.Context
	log     *zap.Logger
	fns     map[string]api.Function
	err     error
	out     uint32
	mu      sync.Mutex
}

var _ steamdispatch.Native = (*SDK)(nil)

// LoadFile reads a guest binary from path and loads it.
func LoadFile(ctx context.Context, path string, cfg *Config) (*SDK, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read guest "+path, err)
	}
	return Load(ctx, wasm, cfg)
}

// Load compiles and instantiates a guest. ctx bounds loading only; guest calls
// made later through the Native interface use a detached copy of it.
func Load(ctx context.Context, wasm []byte, cfg *Config) (*SDK, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Name == "" {
		c.Name = "steam_api"
	}

	rcfg := wazero.NewRuntimeConfig()
	if c.MemoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	s := &SDK{
		runtime: wazero.NewRuntimeWithConfig(ctx, rcfg),
		ctx:     context.WithoutCancel(ctx),
		log:     c.Logger,
		fns:     make(map[string]api.Function),
	}
	if s.log == nil {
		s.log = Logger()
	}
	if err := s.load(ctx, wasm, c); err != nil {
		_ = s.runtime.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *SDK) load(ctx context.Context, wasm []byte, c Config) error {
	if c.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, s.runtime); err != nil {
			return errors.Load("instantiate WASI", err)
		}
	}

	if _, err := s.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithFunc(s.hostLog).
		Export("log").
		Instantiate(ctx); err != nil {
		return errors.Load("instantiate host module", err)
	}

	compiled, err := s.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return errors.Load("compile guest", err)
	}
	mod, err := s.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName(c.Name).
		WithStartFunctions())
	if err != nil {
		return errors.Load("instantiate guest", err)
	}
	s.mod = mod

	if initFn := mod.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			return errors.Load("_initialize failed", err)
		}
	}

	if mod.Memory() == nil {
		return errors.New(errors.PhaseLoad, errors.KindNotFound).
			Detail("guest exports no memory").
			Build()
	}
	for _, name := range required {
		if s.fn(name) == nil {
			return errors.NotFound(errors.PhaseLoad, "export", name)
		}
	}

	out, err := s.alloc(outSize)
	if err != nil {
		return errors.Load("reserve out area", err)
	}
	s.out = out
	return nil
}

// Close releases the guest and the wazero runtime.
func (s *SDK) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime.Close(ctx)
}

// Err returns the last guest call failure, or nil.
func (s *SDK) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Memory returns the guest linear memory.
func (s *SDK) Memory() api.Memory {
	return s.mod.Memory()
}

func (s *SDK) hostLog(_ context.Context, m api.Module, level, ptr, size uint32) {
	msg, ok := m.Memory().Read(ptr, size)
	if !ok {
		s.log.Warn("wasmsdk: guest log out of bounds", zap.Uint32("ptr", ptr), zap.Uint32("size", size))
		return
	}
	text := string(msg)
	switch level {
	case 0:
		s.log.Debug(text, zap.String("source", "guest"))
	case 1:
		s.log.Info(text, zap.String("source", "guest"))
	case 2:
		s.log.Warn(text, zap.String("source", "guest"))
	default:
		s.log.Error(text, zap.String("source", "guest"))
	}
}

// fn returns the named export, or nil when the guest does not have it.
func (s *SDK) fn(name string) api.Function {
	if f, ok := s.fns[name]; ok {
		return f
	}
	f := s.mod.ExportedFunction(name)
	s.fns[name] = f
	return f
}

// call invokes an export. ok is false when the export is missing or trapped.
func (s *SDK) call(name string, args ...uint64) (res []uint64, ok bool) {
	f := s.fn(name)
	if f == nil {
		return nil, false
	}
	res, err := f.Call(s.ctx, args...)
	if err != nil {
		s.fail(name, err)
		return nil, false
	}
	return res, true
}

func (s *SDK) call32(name string, args ...uint64) uint32 {
	res, ok := s.call(name, args...)
	if !ok || len(res) == 0 {
		return 0
	}
	return uint32(res[0])
}

func (s *SDK) fail(op string, err error) {
	s.err = errors.Wrap(errors.PhaseCall, errors.KindCallFailed, err, op)
	s.log.Error("wasmsdk: guest call failed", zap.String("export", op), zap.Error(err))
}

func (s *SDK) alloc(size uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	res, err := s.fn(ExportAlloc).Call(s.ctx, api.EncodeU32(size))
	if err != nil {
		return 0, err
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return 0, errors.New(errors.PhaseCall, errors.KindCallFailed).
			Value(size).
			Detail("%s returned null", ExportAlloc).
			Build()
	}
	return ptr, nil
}

func (s *SDK) free(ptr uint32) {
	if ptr == 0 || s.fn(ExportFree) == nil {
		return
	}
	s.call(ExportFree, api.EncodeU32(ptr))
}

// stage copies data into a fresh guest allocation.
func (s *SDK) stage(data []byte) (uint32, bool) {
	ptr, err := s.alloc(uint32(len(data)))
	if err != nil {
		s.fail(ExportAlloc, err)
		return 0, false
	}
	if !s.mod.Memory().Write(ptr, data) {
		s.free(ptr)
		s.fail(ExportAlloc, errors.InvalidInput(errors.PhaseCall, "staged write out of bounds"))
		return 0, false
	}
	return ptr, true
}

// Init implements steamdispatch.Native.
func (s *SDK) Init() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call32(ExportInit) != 0
}

// ManualDispatchInit implements steamdispatch.Native.
func (s *SDK) ManualDispatchInit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call(ExportManualDispatchInit)
}

// RestartAppIfNecessary implements steamdispatch.Native. A guest without the
// export never requests a restart.
func (s *SDK) RestartAppIfNecessary(appID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call32(ExportRestartApp, api.EncodeU32(appID)) != 0
}

// Shutdown implements steamdispatch.Native.
func (s *SDK) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call(ExportShutdown)
}

// RunFrame implements steamdispatch.Pipe.
func (s *SDK) RunFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call(ExportRunFrame)
}

// NextCallback implements steamdispatch.Pipe. The payload aliases guest memory.
func (s *SDK) NextCallback() (steamdispatch.Envelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.call32(ExportNextCallback, api.EncodeU32(s.out)) == 0 {
		return steamdispatch.Envelope{}, false
	}

	mem := s.mod.Memory()
	hdr, ok := mem.Read(s.out, envelopeSize)
	if !ok {
		s.fail(ExportNextCallback, errors.InvalidInput(errors.PhaseDispatch, "envelope out of bounds"))
		return steamdispatch.Envelope{}, false
	}
	env := steamdispatch.Envelope{
		User:     int32(binary.LittleEndian.Uint32(hdr[0:])),
		Callback: steamdispatch.CallbackID(int32(binary.LittleEndian.Uint32(hdr[4:]))),
	}
	ptr, size := binary.LittleEndian.Uint32(hdr[8:]), binary.LittleEndian.Uint32(hdr[12:])

	// The message is pulled either way; an unreadable payload still goes back
	// to the loop so it is released.
	if payload, ok := mem.Read(ptr, size); ok {
		env.Payload = payload
	} else {
		s.log.Warn("wasmsdk: callback payload out of bounds",
			zap.Int32("callback", int32(env.Callback)),
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
	}
	return env, true
}

// FreeLastCallback implements steamdispatch.Pipe.
func (s *SDK) FreeLastCallback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call(ExportFreeLastCallback)
}

// CallResult implements steamdispatch.Pipe. The returned data is a copy.
func (s *SDK) CallResult(call steamdispatch.CallHandle, expected steamdispatch.CallbackID, size uint32) ([]byte, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.alloc(size)
	if err != nil {
		s.fail(ExportGetCallResult, err)
		return nil, false, false
	}
	defer s.free(buf)

	mem := s.mod.Memory()
	failedAt := s.out + envelopeSize
	mem.WriteUint32Le(failedAt, 0)

	ok := s.call32(ExportGetCallResult,
		uint64(call),
		api.EncodeU32(buf),
		api.EncodeU32(size),
		api.EncodeI32(int32(expected)),
		api.EncodeU32(failedAt)) != 0
	if !ok {
		return nil, false, false
	}

	data, inBounds := mem.Read(buf, size)
	if !inBounds {
		return nil, false, false
	}
	failed, _ := mem.ReadUint32Le(failedAt)
	return append([]byte(nil), data...), failed != 0, true
}
