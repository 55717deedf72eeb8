// Package fake provides a scriptable in-memory Steamworks SDK.
//
// The SDK keeps a message queue with the same pull/release discipline as the
// real manual-dispatch API. Tests push raw envelopes or records and complete
// call handles; the SDK records protocol violations (pulling before the last
// message was released, releasing twice) instead of crashing.
//
// Released payloads are overwritten with 0xDD so code that reads a payload
// after release sees garbage, like it would with native memory.
//
// File and auth-ticket operations answer on the next RunFrame, the way the
// Steam client does.
package fake

import (
	"fmt"
	"sync"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/schema"
)

// Config sets the values the fake SDK reports. A nil Config means defaults.
type Config struct {
	Files      map[string][]byte
	Language   string
	BetaName   string
	SteamID    uint64
	AppID      uint32
	Pack       uint32
	DLCCount   int32
	AuthResult schema.EResult
	InitFails  bool
	Restart    bool
	SteamDeck  bool

	PhoneIdentifying bool
	PhoneVerified    bool
}

// Counters reports how often the SDK entry points were used.
type Counters struct {
	Frames   int
	Pulled   int
	Freed    int
	Fetches  int
	Issued   int
	Inits    int
	Shutdown int
}

type callResult struct {
	data     []byte
	callback steamdispatch.CallbackID
	failed   bool
}

// SDK is a fake steamdispatch.Native. All methods are safe for concurrent use.
type SDK struct {
	table      *schema.Table
	files      map[string][]byte
	results    map[steamdispatch.CallHandle]callResult
	failFetch  map[steamdispatch.CallHandle]bool
	asyncReads map[steamdispatch.CallHandle][]byte
	current    *steamdispatch.Envelope
	cfg        Config
	queue      []steamdispatch.Envelope
	onFrame    []func()
	violations []string
	counters   Counters
	nextHandle uint64
	nextTicket uint32
	mu         sync.Mutex
	manual     bool
	up         bool
}

var _ steamdispatch.Native = (*SDK)(nil)

// New creates a fake SDK.
func New(cfg *Config) *SDK {
	s := &SDK{
		files:      make(map[string][]byte),
		results:    make(map[steamdispatch.CallHandle]callResult),
		failFetch:  make(map[steamdispatch.CallHandle]bool),
		asyncReads: make(map[steamdispatch.CallHandle][]byte),
		nextHandle: 0x1000,
		nextTicket: 1,
		cfg: Config{
			AppID:      480,
			SteamID:    76561197960287930,
			Language:   "english",
			AuthResult: schema.ResultOK,
		},
	}
	if cfg != nil {
		defaults := s.cfg
		s.cfg = *cfg
		if s.cfg.AppID == 0 {
			s.cfg.AppID = defaults.AppID
		}
		if s.cfg.SteamID == 0 {
			s.cfg.SteamID = defaults.SteamID
		}
		if s.cfg.Language == "" {
			s.cfg.Language = defaults.Language
		}
		if s.cfg.AuthResult == schema.ResultNone {
			s.cfg.AuthResult = defaults.AuthResult
		}
		for name, data := range cfg.Files {
			s.files[name] = append([]byte(nil), data...)
		}
	}
	s.table = schema.NewTable(s.cfg.Pack)
	return s
}

// Table returns the schema table used to encode records.
func (s *SDK) Table() *schema.Table {
	return s.table
}

// Push appends a raw message to the queue. The payload is copied.
func (s *SDK) Push(env steamdispatch.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLocked(env)
}

func (s *SDK) pushLocked(env steamdispatch.Envelope) {
	env.Payload = append([]byte(nil), env.Payload...)
	s.queue = append(s.queue, env)
}

// Emit encodes rec and appends it to the queue.
func (s *SDK) Emit(rec schema.Record) error {
	data, err := s.table.Encode(rec)
	if err != nil {
		return err
	}
	s.Push(steamdispatch.Envelope{User: 1, Callback: rec.CallbackID(), Payload: data})
	return nil
}

// Issue allocates a fresh call handle.
func (s *SDK) Issue() steamdispatch.CallHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked()
}

func (s *SDK) issueLocked() steamdispatch.CallHandle {
	s.nextHandle++
	s.counters.Issued++
	return steamdispatch.CallHandle(s.nextHandle)
}

// Complete stores rec as the result of call and queues its SteamAPICallCompleted_t.
func (s *SDK) Complete(call steamdispatch.CallHandle, rec schema.Record, failed bool) error {
	data, err := s.table.Encode(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(call, rec.CallbackID(), data, failed)
}

// CompleteRaw stores data as the result of call and queues its completion.
func (s *SDK) CompleteRaw(call steamdispatch.CallHandle, callback steamdispatch.CallbackID, data []byte, failed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(call, callback, data, failed)
}

func (s *SDK) completeLocked(call steamdispatch.CallHandle, callback steamdispatch.CallbackID, data []byte, failed bool) error {
	s.results[call] = callResult{
		data:     append([]byte(nil), data...),
		callback: callback,
		failed:   failed,
	}
	payload, err := s.table.Encode(schema.CallCompleted{Call: call, Callback: callback, Size: uint32(len(data))})
	if err != nil {
		return err
	}
	s.pushLocked(steamdispatch.Envelope{User: 1, Callback: schema.IDCallCompleted, Payload: payload})
	return nil
}

// FailFetch makes CallResult report a transport failure for call.
func (s *SDK) FailFetch(call steamdispatch.CallHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFetch[call] = true
}

// OnFrame runs fn during the next RunFrame, with the SDK unlocked.
func (s *SDK) OnFrame(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = append(s.onFrame, fn)
}

// File returns the stored contents of a cloud file.
func (s *SDK) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return append([]byte(nil), data...), ok
}

// Queued returns the number of messages waiting to be pulled.
func (s *SDK) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Counters returns a snapshot of the call counters.
func (s *SDK) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Violations returns the protocol violations seen so far.
func (s *SDK) Violations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.violations...)
}

func (s *SDK) violate(format string, args ...any) {
	s.violations = append(s.violations, fmt.Sprintf(format, args...))
}

// Init implements steamdispatch.Native.
func (s *SDK) Init() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Inits++
	s.up = !s.cfg.InitFails
	return s.up
}

// ManualDispatchInit implements steamdispatch.Native.
func (s *SDK) ManualDispatchInit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.up {
		s.violate("ManualDispatchInit before Init")
	}
	s.manual = true
}

// RestartAppIfNecessary implements steamdispatch.Native.
func (s *SDK) RestartAppIfNecessary(uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Restart
}

// Shutdown implements steamdispatch.Native.
func (s *SDK) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Shutdown++
	s.up = false
}

// RunFrame implements steamdispatch.Pipe.
func (s *SDK) RunFrame() {
	s.mu.Lock()
	s.counters.Frames++
	if !s.manual {
		s.violate("RunFrame without ManualDispatchInit")
	}
	frame := s.onFrame
	s.onFrame = nil
	s.mu.Unlock()

	for _, fn := range frame {
		fn()
	}
}

// NextCallback implements steamdispatch.Pipe.
func (s *SDK) NextCallback() (steamdispatch.Envelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.violate("NextCallback before FreeLastCallback (callback %d)", s.current.Callback)
	}
	if len(s.queue) == 0 {
		return steamdispatch.Envelope{}, false
	}
	env := s.queue[0]
	s.queue = s.queue[1:]
	s.current = &env
	s.counters.Pulled++
	return env, true
}

// FreeLastCallback implements steamdispatch.Pipe.
func (s *SDK) FreeLastCallback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		s.violate("FreeLastCallback without a message")
		return
	}
	for i := range s.current.Payload {
		s.current.Payload[i] = 0xDD
	}
	s.current = nil
	s.counters.Freed++
}

// CallResult implements steamdispatch.Pipe. Like the SDK it refuses unknown
// handles and mismatched callback ids or sizes.
func (s *SDK) CallResult(call steamdispatch.CallHandle, expected steamdispatch.CallbackID, size uint32) ([]byte, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Fetches++
	if s.failFetch[call] {
		return nil, false, false
	}
	r, ok := s.results[call]
	if !ok || r.callback != expected || uint32(len(r.data)) != size {
		return nil, false, false
	}
	delete(s.results, call)
	return append([]byte(nil), r.data...), r.failed, true
}
