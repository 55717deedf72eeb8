//go:build darwin || linux

package steamworks

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
)

// Interface accessor versions bound by this package.
const (
	symSteamUtils         = "SteamAPI_SteamUtils_v010"
	symSteamRemoteStorage = "SteamAPI_SteamRemoteStorage_v016"
	symSteamApps          = "SteamAPI_SteamApps_v008"
	symSteamUser          = "SteamAPI_SteamUser_v021"
)

// callbackMsg mirrors CallbackMsg_t.
type callbackMsg struct {
	user     int32
	callback int32
	param    *byte
	size     int32
	_        int32
}

// SDK is a steamdispatch.Native over a loaded libsteam_api.
type SDK struct {
	log    *zap.Logger
	path   string
	handle uintptr

	// Resolved after Init.
	pipe          int32
	utils         uintptr
	remoteStorage uintptr
	apps          uintptr
	user          uintptr

	steamInit             func() bool
	steamShutdown         func()
	restartAppIfNecessary func(appID uint32) bool
	getHSteamPipe         func() int32

	manualDispatchInit func()
	runFrame           func(pipe int32)
	getNextCallback    func(pipe int32, msg *callbackMsg) bool
	freeLastCallback   func(pipe int32)
	getAPICallResult   func(pipe int32, call uint64, out unsafe.Pointer, size int32, expected int32, failed *bool) bool

	steamUtils         func() uintptr
	steamRemoteStorage func() uintptr
	steamApps          func() uintptr
	steamUser          func() uintptr

	getAppID                  func(self uintptr) uint32
	isSteamRunningOnSteamDeck func(self uintptr) bool
	getSteamID                func(self uintptr) uint64
	isPhoneIdentifying        func(self uintptr) bool
	isPhoneVerified           func(self uintptr) bool
	getDLCCount               func(self uintptr) int32
	getCurrentGameLanguage    func(self uintptr) string
	getCurrentBetaName        func(self uintptr, name unsafe.Pointer, size int32) bool
	getFileSize               func(self uintptr, file string) int32
	fileRead                  func(self uintptr, file string, data unsafe.Pointer, size int32) int32
	fileWrite                 func(self uintptr, file string, data unsafe.Pointer, size int32) bool
	fileReadAsync             func(self uintptr, file string, offset, size uint32) uint64
	fileReadAsyncComplete     func(self uintptr, call uint64, buf unsafe.Pointer, size uint32) bool
	getAuthSessionTicket      func(self uintptr, ticket unsafe.Pointer, max int32, size *uint32, identity uintptr) uint32

	msg callbackMsg
	mu  sync.Mutex
}

var _ steamdispatch.Native = (*SDK)(nil)

// Open loads the Steamworks library at path. An empty path means DefaultLibrary().
// A nil logger means the package Logger().
func Open(path string, log *zap.Logger) (*SDK, error) {
	if path == "" {
		path = DefaultLibrary()
	}
	if log == nil {
		log = Logger()
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Load("dlopen "+path, err)
	}

	s := &SDK{log: log, path: path, handle: handle}
	if err := s.bindAll(); err != nil {
		_ = purego.Dlclose(handle)
		return nil, err
	}
	log.Debug("steamworks: library loaded", zap.String("path", path))
	return s, nil
}

func (s *SDK) bindAll() error {
	syms := []struct {
		fn   any
		name string
	}{
		{&s.steamInit, "SteamAPI_Init"},
		{&s.steamShutdown, "SteamAPI_Shutdown"},
		{&s.restartAppIfNecessary, "SteamAPI_RestartAppIfNecessary"},
		{&s.getHSteamPipe, "SteamAPI_GetHSteamPipe"},
		{&s.manualDispatchInit, "SteamAPI_ManualDispatch_Init"},
		{&s.runFrame, "SteamAPI_ManualDispatch_RunFrame"},
		{&s.getNextCallback, "SteamAPI_ManualDispatch_GetNextCallback"},
		{&s.freeLastCallback, "SteamAPI_ManualDispatch_FreeLastCallback"},
		{&s.getAPICallResult, "SteamAPI_ManualDispatch_GetAPICallResult"},
		{&s.steamUtils, symSteamUtils},
		{&s.steamRemoteStorage, symSteamRemoteStorage},
		{&s.steamApps, symSteamApps},
		{&s.steamUser, symSteamUser},
		{&s.getAppID, "SteamAPI_ISteamUtils_GetAppID"},
		{&s.isSteamRunningOnSteamDeck, "SteamAPI_ISteamUtils_IsSteamRunningOnSteamDeck"},
		{&s.getSteamID, "SteamAPI_ISteamUser_GetSteamID"},
		{&s.isPhoneIdentifying, "SteamAPI_ISteamUser_BIsPhoneIdentifying"},
		{&s.isPhoneVerified, "SteamAPI_ISteamUser_BIsPhoneVerified"},
		{&s.getDLCCount, "SteamAPI_ISteamApps_GetDLCCount"},
		{&s.getCurrentGameLanguage, "SteamAPI_ISteamApps_GetCurrentGameLanguage"},
		{&s.getCurrentBetaName, "SteamAPI_ISteamApps_GetCurrentBetaName"},
		{&s.getFileSize, "SteamAPI_ISteamRemoteStorage_GetFileSize"},
		{&s.fileRead, "SteamAPI_ISteamRemoteStorage_FileRead"},
		{&s.fileWrite, "SteamAPI_ISteamRemoteStorage_FileWrite"},
		{&s.fileReadAsync, "SteamAPI_ISteamRemoteStorage_FileReadAsync"},
		{&s.fileReadAsyncComplete, "SteamAPI_ISteamRemoteStorage_FileReadAsyncComplete"},
		{&s.getAuthSessionTicket, "SteamAPI_ISteamUser_GetAuthSessionTicket"},
	}
	for _, sym := range syms {
		if _, err := purego.Dlsym(s.handle, sym.name); err != nil {
			return errors.New(errors.PhaseLoad, errors.KindNotFound).
				Path(s.path).
				Cause(err).
				Detail("symbol %s", sym.name).
				Build()
		}
		purego.RegisterLibFunc(sym.fn, s.handle, sym.name)
	}
	return nil
}

// Path returns the library path the SDK was loaded from.
func (s *SDK) Path() string {
	return s.path
}

// Init implements steamdispatch.Native. It also resolves the pipe and the
// interface pointers the client calls need.
func (s *SDK) Init() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.steamInit() {
		return false
	}
	s.pipe = s.getHSteamPipe()
	s.utils = s.steamUtils()
	s.remoteStorage = s.steamRemoteStorage()
	s.apps = s.steamApps()
	s.user = s.steamUser()
	s.log.Debug("steamworks: initialized",
		zap.Int32("pipe", s.pipe),
		zap.Bool("utils", s.utils != 0),
		zap.Bool("remote_storage", s.remoteStorage != 0),
		zap.Bool("apps", s.apps != 0),
		zap.Bool("user", s.user != 0))
	return true
}

// ManualDispatchInit implements steamdispatch.Native.
func (s *SDK) ManualDispatchInit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manualDispatchInit()
}

// RestartAppIfNecessary implements steamdispatch.Native.
func (s *SDK) RestartAppIfNecessary(appID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restartAppIfNecessary(appID)
}

// Shutdown implements steamdispatch.Native.
func (s *SDK) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steamShutdown()
	s.utils, s.remoteStorage, s.apps, s.user = 0, 0, 0, 0
}

// RunFrame implements steamdispatch.Pipe.
func (s *SDK) RunFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runFrame(s.pipe)
}

// NextCallback implements steamdispatch.Pipe. The payload aliases SDK memory.
func (s *SDK) NextCallback() (steamdispatch.Envelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msg = callbackMsg{}
	if !s.getNextCallback(s.pipe, &s.msg) {
		return steamdispatch.Envelope{}, false
	}
	env := steamdispatch.Envelope{
		User:     s.msg.user,
		Callback: steamdispatch.CallbackID(s.msg.callback),
	}
	if s.msg.param != nil && s.msg.size > 0 {
		env.Payload = unsafe.Slice(s.msg.param, s.msg.size)
	}
	return env, true
}

// FreeLastCallback implements steamdispatch.Pipe.
func (s *SDK) FreeLastCallback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeLastCallback(s.pipe)
}

// CallResult implements steamdispatch.Pipe.
func (s *SDK) CallResult(call steamdispatch.CallHandle, expected steamdispatch.CallbackID, size uint32) ([]byte, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, max(size, 1))
	var failed bool
	ok := s.getAPICallResult(s.pipe, uint64(call), unsafe.Pointer(&buf[0]), int32(size), int32(expected), &failed)
	runtime.KeepAlive(buf)
	if !ok {
		return nil, false, false
	}
	return buf[:size], failed, true
}
