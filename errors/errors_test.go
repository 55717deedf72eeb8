package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseDecode,
				Kind:     KindMalformedRecord,
				Path:     []string{"SteamAPICallCompleted_t", "m_cubParam"},
				Callback: 703,
				Handle:   99,
				Detail:   "short payload",
			},
			contains: []string{"[decode]", "malformed_record", "SteamAPICallCompleted_t.m_cubParam", "callback 703", "handle 99", "short payload"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDispatch,
				Kind:  KindOrphanedCompletion,
			},
			contains: []string{"[dispatch]", "orphaned_completion"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindLoad,
				Detail: "dlopen",
				Cause:  errors.New("no such file"),
			},
			contains: []string{"[load]", "load", "dlopen", "caused by", "no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseStartup,
		Kind:  KindStartupFailure,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should follow the cause chain")
	}
}

func TestError_Is(t *testing.T) {
	err := AlreadyInFlight(163)

	if !errors.Is(err, ErrAlreadyInFlight) {
		t.Error("errors.Is should match sentinel with same phase and kind")
	}
	if errors.Is(err, ErrDuplicateHandle) {
		t.Error("errors.Is should not match a different kind")
	}
	if err.Is(&Error{Phase: PhaseCall, Kind: KindAlreadyInFlight}) {
		t.Error("Is should not match a different phase")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindMalformedRecord).
		Path("DlcInstalled_t").
		Callback(1005).
		Handle(7).
		Value(3).
		Cause(cause).
		Detail("expected %d bytes, got %d", 4, 3).
		Build()

	if err.Phase != PhaseDecode || err.Kind != KindMalformedRecord {
		t.Errorf("Phase/Kind = %v/%v", err.Phase, err.Kind)
	}
	if len(err.Path) != 1 || err.Path[0] != "DlcInstalled_t" {
		t.Errorf("Path = %v", err.Path)
	}
	if err.Callback != 1005 || err.Handle != 7 {
		t.Errorf("Callback=%d Handle=%d", err.Callback, err.Handle)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v, want 3", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected 4 bytes, got 3" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("MalformedRecord", func(t *testing.T) {
		err := MalformedRecord(703, "SteamAPICallCompleted_t", 16, 12)
		if !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, "16") || !strings.Contains(err.Detail, "12") {
			t.Errorf("Detail = %q, should mention both sizes", err.Detail)
		}
	})

	t.Run("UnknownDiscriminator", func(t *testing.T) {
		err := UnknownDiscriminator(9999)
		if !errors.Is(err, ErrUnknownDiscriminator) || err.Callback != 9999 {
			t.Errorf("got %v", err)
		}
	})

	t.Run("HandlerPanic wraps error values", func(t *testing.T) {
		cause := errors.New("boom")
		err := HandlerPanic(42, 0, cause)
		if err.Kind != KindHandlerPanic {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !errors.Is(err, cause) {
			t.Error("panic value that is an error should become the cause")
		}
	})

	t.Run("HandlerPanic keeps other values", func(t *testing.T) {
		err := HandlerPanic(42, 0, "plain string")
		if err.Cause != nil {
			t.Errorf("Cause = %v, want nil", err.Cause)
		}
		if err.Value != "plain string" {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		if !errors.Is(Closed("call"), ErrClosed) {
			t.Error("Closed should match ErrClosed")
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		err := Timeout(errors.New("deadline"))
		if !errors.Is(err, ErrTimeout) {
			t.Error("Timeout should match ErrTimeout")
		}
	})
}
