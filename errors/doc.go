// Package errors provides structured error types for the steam-dispatch library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the callback id and call handle involved, a field path for
// decode failures, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformedRecord).
//		Path("RemoteStorageFileReadAsyncComplete_t").
//		Callback(1332).
//		Detail("expected %d bytes, got %d", 24, 20).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AlreadyInFlight(163)
//	err := errors.DuplicateHandle(handle)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two errors match under errors.Is when Phase and Kind are equal, so the
// exported sentinels can be used as targets:
//
//	if errors.Is(err, errors.ErrAlreadyInFlight) { ... }
package errors
