package bridge

import (
	"context"
	"encoding/hex"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/future"
	"github.com/wippyai/steam-dispatch/schema"
	"go.uber.org/zap"
)

// AuthSessionTicket requests a session ticket and returns it hex encoded once
// Steam confirms it with GetAuthSessionTicketResponse_t.
func (b *Bridge) AuthSessionTicket(ctx context.Context) (string, error) {
	var (
		ticket []byte
		handle uint32
	)
	f, err := b.RequestOnce(schema.IDGetAuthSessionTicketResponse, func(c steamdispatch.Client) {
		buf := make([]byte, b.cfg.TicketBufferSize)
		var n uint32
		handle, n = c.AuthSessionTicket(buf)
		ticket = buf[:n]
	})
	if err != nil {
		return "", err
	}

	rec, err := Await(ctx, b, f)
	if err != nil {
		return "", err
	}
	resp, ok := rec.(schema.GetAuthSessionTicketResponse)
	if !ok {
		return "", errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Callback(int32(schema.IDGetAuthSessionTicketResponse)).
			Detail("unexpected record %T", rec).
			Build()
	}
	if !resp.Result.OK() {
		return "", errors.New(errors.PhaseCall, errors.KindCallFailed).
			Callback(int32(schema.IDGetAuthSessionTicketResponse)).
			Value(resp.Result).
			Detail("GetAuthSessionTicket failed: %s", resp.Result).
			Build()
	}
	if resp.AuthTicket != handle {
		b.log.Debug("steam bridge: auth response for another ticket",
			zap.Uint32("requested", handle),
			zap.Uint32("answered", resp.AuthTicket))
	}
	return hex.EncodeToString(ticket), nil
}

// ReadFile reads a Steam Cloud file. Concurrent reads of the same file share
// one native read. A missing or empty file fails with not_found.
func (b *Bridge) ReadFile(name string) *future.Future[[]byte] {
	return b.ReadCoalesced(name, func() ([]byte, error) {
		var (
			data    []byte
			readErr error
		)
		err := b.Invoke(func(c steamdispatch.Client) {
			size := c.FileSize(name)
			if size <= 0 {
				readErr = errors.NotFound(errors.PhaseCall, "file", name)
				return
			}
			buf := make([]byte, size)
			n := c.FileRead(name, buf)
			data = buf[:n]
		})
		if err != nil {
			return nil, err
		}
		return data, readErr
	})
}

// WriteFile writes a Steam Cloud file. A write issued while another write of
// the same file is in flight joins it and its data is not written.
func (b *Bridge) WriteFile(name string, data []byte) *future.Future[bool] {
	return b.WriteCoalesced(name, func() (bool, error) {
		var ok bool
		err := b.Invoke(func(c steamdispatch.Client) {
			ok = c.FileWrite(name, data)
		})
		if err != nil {
			return false, err
		}
		if !ok {
			return false, errors.New(errors.PhaseCall, errors.KindCallFailed).
				Path(name).
				Detail("FileWrite failed").
				Build()
		}
		return true, nil
	})
}

// ReadFileAsync reads a Steam Cloud file with ISteamRemoteStorage::FileReadAsync.
func (b *Bridge) ReadFileAsync(ctx context.Context, name string) ([]byte, error) {
	missing := false
	f, err := b.Call(func(c steamdispatch.Client) steamdispatch.CallHandle {
		size := c.FileSize(name)
		if size <= 0 {
			missing = true
			return steamdispatch.InvalidCallHandle
		}
		return c.FileReadAsync(name, 0, uint32(size))
	})
	if missing {
		return nil, errors.NotFound(errors.PhaseCall, "file", name)
	}
	if err != nil {
		return nil, err
	}

	res, err := Await(ctx, b, f)
	if err != nil {
		return nil, err
	}
	rec, err := b.decoder.Decode(res.Callback, res.Data)
	if err != nil {
		return nil, err
	}
	done, ok := rec.(schema.RemoteStorageFileReadAsyncComplete)
	if !ok {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Path(name).
			Callback(int32(res.Callback)).
			Detail("unexpected record %T", rec).
			Build()
	}
	if !done.Result.OK() {
		return nil, errors.New(errors.PhaseCall, errors.KindCallFailed).
			Path(name).
			Handle(uint64(done.Call)).
			Value(done.Result).
			Detail("FileReadAsync failed: %s", done.Result).
			Build()
	}

	buf := make([]byte, done.Read)
	var copied bool
	if err := b.Invoke(func(c steamdispatch.Client) {
		copied = c.FileReadAsyncComplete(done.Call, buf)
	}); err != nil {
		return nil, err
	}
	if !copied {
		return nil, errors.CallFailed(int32(res.Callback), uint64(done.Call), "FileReadAsyncComplete failed")
	}
	return buf, nil
}

// AppID returns the running app id.
func (b *Bridge) AppID() (uint32, error) {
	var v uint32
	err := b.Invoke(func(c steamdispatch.Client) { v = c.AppID() })
	return v, err
}

// SteamID returns the 64-bit id of the logged-in user.
func (b *Bridge) SteamID() (uint64, error) {
	var v uint64
	err := b.Invoke(func(c steamdispatch.Client) { v = c.SteamID() })
	return v, err
}

// DLCCount returns the number of DLCs of the app.
func (b *Bridge) DLCCount() (int32, error) {
	var v int32
	err := b.Invoke(func(c steamdispatch.Client) { v = c.DLCCount() })
	return v, err
}

// IsSteamRunningOnSteamDeck reports whether the app runs on a Steam Deck.
func (b *Bridge) IsSteamRunningOnSteamDeck() (bool, error) {
	var v bool
	err := b.Invoke(func(c steamdispatch.Client) { v = c.IsSteamRunningOnSteamDeck() })
	return v, err
}

// IsPhoneIdentifying reports whether the user's phone is used to identify them.
func (b *Bridge) IsPhoneIdentifying() (bool, error) {
	var v bool
	err := b.Invoke(func(c steamdispatch.Client) { v = c.IsPhoneIdentifying() })
	return v, err
}

// IsPhoneVerified reports whether the user has a verified phone on the account.
func (b *Bridge) IsPhoneVerified() (bool, error) {
	var v bool
	err := b.Invoke(func(c steamdispatch.Client) { v = c.IsPhoneVerified() })
	return v, err
}

// CurrentGameLanguage returns the language the user selected for the app.
func (b *Bridge) CurrentGameLanguage() (string, error) {
	var v string
	err := b.Invoke(func(c steamdispatch.Client) { v = c.CurrentGameLanguage() })
	return v, err
}

// CurrentBetaName returns the beta branch the app runs on, or "" for the default branch.
func (b *Bridge) CurrentBetaName() (string, error) {
	var v string
	err := b.Invoke(func(c steamdispatch.Client) {
		if name, ok := c.CurrentBetaName(); ok {
			v = name
		}
	})
	return v, err
}
