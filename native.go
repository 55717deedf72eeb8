package steamdispatch

// CallHandle identifies one asynchronous native operation (SteamAPICall_t).
// Handles are issued by the SDK and are never reused.
type CallHandle uint64

// InvalidCallHandle is returned by the SDK when it refuses a call (k_uAPICallInvalid).
const InvalidCallHandle CallHandle = 0

// CallbackID is the discriminator of a native message (the k_iCallback of a callback struct).
type CallbackID int32

// Envelope is one message drained from the native queue.
// Payload aliases native memory and is only valid until Pipe.FreeLastCallback.
type Envelope struct {
	Payload  []byte
	User     int32
	Callback CallbackID
}

// CallResult is the fetched result of a call-handle style operation.
type CallResult struct {
	Data     []byte
	Callback CallbackID
}

// Pipe is the manual-dispatch surface of the SDK.
type Pipe interface {
	// RunFrame advances the native queue.
	RunFrame()

	// NextCallback pulls the next queued message. ok is false when the queue is empty.
	NextCallback() (env Envelope, ok bool)

	// FreeLastCallback releases the message returned by the last NextCallback.
	FreeLastCallback()

	// CallResult fetches the result of a completed call. ok reports whether the
	// fetch itself worked; failed reports whether the call failed (IO failure).
	CallResult(call CallHandle, expected CallbackID, size uint32) (data []byte, failed bool, ok bool)
}

// Client is the subset of ISteamApps/ISteamUser/ISteamRemoteStorage/ISteamUtils
// the bridge exposes. None of these methods are safe for concurrent use.
type Client interface {
	AppID() uint32
	SteamID() uint64
	DLCCount() int32
	IsSteamRunningOnSteamDeck() bool
	IsPhoneIdentifying() bool
	IsPhoneVerified() bool
	CurrentGameLanguage() string
	CurrentBetaName() (name string, ok bool)

	FileSize(name string) int32
	FileRead(name string, buf []byte) int32
	FileWrite(name string, data []byte) bool
	FileReadAsync(name string, offset, size uint32) CallHandle
	FileReadAsyncComplete(call CallHandle, buf []byte) bool

	// AuthSessionTicket writes a ticket into buf and returns its handle and length.
	// The SDK answers later with GetAuthSessionTicketResponse_t.
	AuthSessionTicket(buf []byte) (ticket uint32, size uint32)
}

// Native is a complete SDK binding.
type Native interface {
	Pipe
	Client

	// Init performs the native handshake. It returns false when Steam is not running.
	Init() bool

	// ManualDispatchInit switches the SDK to manual callback dispatch.
	ManualDispatchInit()

	// RestartAppIfNecessary reports whether the process should exit so Steam can relaunch it.
	RestartAppIfNecessary(appID uint32) bool

	// Shutdown tears the SDK down.
	Shutdown()
}
