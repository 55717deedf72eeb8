package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseStartup  Phase = "startup"  // native handshake
	PhaseDispatch Phase = "dispatch" // drain loop
	PhaseDecode   Phase = "decode"   // payload to record
	PhaseCall     Phase = "call"     // issuing native calls
	PhaseRegister Phase = "register" // registry insertion
	PhaseCoalesce Phase = "coalesce" // coalesced operations
	PhaseShutdown Phase = "shutdown" // teardown
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseLoad     Phase = "load"     // native module loading
)

// Kind categorizes the error
type Kind string

const (
	KindStartupFailure       Kind = "startup_failure"
	KindOrphanedCompletion   Kind = "orphaned_completion"
	KindUnknownDiscriminator Kind = "unknown_discriminator"
	KindMalformedRecord      Kind = "malformed_record"
	KindTransportFetch       Kind = "transport_fetch"
	KindAlreadyInFlight      Kind = "already_in_flight"
	KindDuplicateHandle      Kind = "duplicate_handle"
	KindHandlerPanic         Kind = "handler_panic"
	KindNotInitialized       Kind = "not_initialized"
	KindClosed               Kind = "closed"
	KindInvalidInput         Kind = "invalid_input"
	KindNotFound             Kind = "not_found"
	KindCallFailed           Kind = "call_failed"
	KindTimeout              Kind = "timeout"
	KindLoad                 Kind = "load"
)

// Sentinels for errors.Is. Only Phase and Kind take part in matching.
var (
	ErrStartupFailure       = &Error{Phase: PhaseStartup, Kind: KindStartupFailure}
	ErrAlreadyInFlight      = &Error{Phase: PhaseRegister, Kind: KindAlreadyInFlight}
	ErrDuplicateHandle      = &Error{Phase: PhaseRegister, Kind: KindDuplicateHandle}
	ErrUnknownDiscriminator = &Error{Phase: PhaseDecode, Kind: KindUnknownDiscriminator}
	ErrMalformedRecord      = &Error{Phase: PhaseDecode, Kind: KindMalformedRecord}
	ErrClosed               = &Error{Phase: PhaseCall, Kind: KindClosed}
	ErrNotInitialized       = &Error{Phase: PhaseCall, Kind: KindNotInitialized}
	ErrTimeout              = &Error{Phase: PhaseCall, Kind: KindTimeout}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Detail   string
	Path     []string
	Handle   uint64
	Callback int32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	hasIDs := e.Callback != 0 || e.Handle != 0
	if hasIDs {
		b.WriteString(": ")
		if e.Callback != 0 {
			b.WriteString("callback ")
			b.WriteString(strconv.FormatInt(int64(e.Callback), 10))
		}
		if e.Handle != 0 {
			if e.Callback != 0 {
				b.WriteString(", ")
			}
			b.WriteString("handle ")
			b.WriteString(strconv.FormatUint(e.Handle, 10))
		}
	}

	if e.Detail != "" {
		if hasIDs {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the record/field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Callback sets the callback id involved
func (b *Builder) Callback(id int32) *Builder {
	b.err.Callback = id
	return b
}

// Handle sets the call handle involved
func (b *Builder) Handle(h uint64) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// StartupFailure creates a rejected-handshake error
func StartupFailure(detail string) *Error {
	return &Error{
		Phase:  PhaseStartup,
		Kind:   KindStartupFailure,
		Detail: detail,
	}
}

// UnknownDiscriminator creates an error for a callback id with no schema
func UnknownDiscriminator(id int32) *Error {
	return &Error{
		Phase:    PhaseDecode,
		Kind:     KindUnknownDiscriminator,
		Callback: id,
		Detail:   "no schema registered",
	}
}

// MalformedRecord creates a size mismatch error for a decoded record
func MalformedRecord(id int32, name string, want, got int) *Error {
	return &Error{
		Phase:    PhaseDecode,
		Kind:     KindMalformedRecord,
		Path:     []string{name},
		Callback: id,
		Detail:   fmt.Sprintf("expected %d bytes, got %d", want, got),
		Value:    got,
	}
}

// OrphanedCompletion creates an error for a completion with no registered continuation
func OrphanedCompletion(handle uint64, id int32) *Error {
	return &Error{
		Phase:    PhaseDispatch,
		Kind:     KindOrphanedCompletion,
		Handle:   handle,
		Callback: id,
		Detail:   "no registered continuation",
	}
}

// TransportFetch creates an error for a call result the native side refused to hand over
func TransportFetch(handle uint64, id int32) *Error {
	return &Error{
		Phase:    PhaseDispatch,
		Kind:     KindTransportFetch,
		Handle:   handle,
		Callback: id,
		Detail:   "call result fetch returned false",
	}
}

// AlreadyInFlight creates a single-flight rejection error
func AlreadyInFlight(id int32) *Error {
	return &Error{
		Phase:    PhaseRegister,
		Kind:     KindAlreadyInFlight,
		Callback: id,
		Detail:   "request already in progress",
	}
}

// DuplicateHandle creates an error for a call handle that already has a continuation
func DuplicateHandle(handle uint64) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindDuplicateHandle,
		Handle: handle,
		Detail: "continuation already registered",
	}
}

// HandlerPanic creates an error from a recovered panic value
func HandlerPanic(id int32, handle uint64, recovered any) *Error {
	err := &Error{
		Phase:    PhaseDispatch,
		Kind:     KindHandlerPanic,
		Callback: id,
		Handle:   handle,
		Detail:   fmt.Sprintf("panic: %v", recovered),
		Value:    recovered,
	}
	if cause, ok := recovered.(error); ok {
		err.Cause = cause
	}
	return err
}

// CallFailed creates an error for a native call that reported failure
func CallFailed(id int32, handle uint64, detail string) *Error {
	return &Error{
		Phase:    PhaseCall,
		Kind:     KindCallFailed,
		Callback: id,
		Handle:   handle,
		Detail:   detail,
	}
}

// Closed creates an error for operations attempted after shutdown
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s after shutdown", what),
	}
}

// NotInitialized creates a not-initialized error for missing native state
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Timeout creates an error for a wait that gave up before the future settled
func Timeout(cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindTimeout,
		Detail: "gave up waiting for result",
		Cause:  cause,
	}
}

// Load creates a native module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoad,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
