//go:build darwin || linux

package steamworks

import (
	"runtime"
	"unsafe"

	steamdispatch "github.com/wippyai/steam-dispatch"
)

// betaNameCap is the buffer handed to GetCurrentBetaName.
const betaNameCap = 128

func (s *SDK) AppID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.utils == 0 {
		return 0
	}
	return s.getAppID(s.utils)
}

func (s *SDK) SteamID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == 0 {
		return 0
	}
	return s.getSteamID(s.user)
}

func (s *SDK) IsPhoneIdentifying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == 0 {
		return false
	}
	return s.isPhoneIdentifying(s.user)
}

func (s *SDK) IsPhoneVerified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == 0 {
		return false
	}
	return s.isPhoneVerified(s.user)
}

func (s *SDK) DLCCount() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apps == 0 {
		return 0
	}
	return s.getDLCCount(s.apps)
}

func (s *SDK) IsSteamRunningOnSteamDeck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.utils == 0 {
		return false
	}
	return s.isSteamRunningOnSteamDeck(s.utils)
}

func (s *SDK) CurrentGameLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apps == 0 {
		return ""
	}
	return s.getCurrentGameLanguage(s.apps)
}

func (s *SDK) CurrentBetaName() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apps == 0 {
		return "", false
	}
	buf := make([]byte, betaNameCap)
	ok := s.getCurrentBetaName(s.apps, unsafe.Pointer(&buf[0]), betaNameCap)
	runtime.KeepAlive(buf)
	if !ok {
		return "", false
	}
	return cstring(buf), true
}

func (s *SDK) FileSize(name string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteStorage == 0 {
		return 0
	}
	return s.getFileSize(s.remoteStorage, name)
}

func (s *SDK) FileRead(name string, buf []byte) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteStorage == 0 || len(buf) == 0 {
		return 0
	}
	n := s.fileRead(s.remoteStorage, name, unsafe.Pointer(&buf[0]), int32(len(buf)))
	runtime.KeepAlive(buf)
	return n
}

func (s *SDK) FileWrite(name string, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteStorage == 0 {
		return false
	}
	var p unsafe.Pointer
	if len(data) > 0 {
		p = unsafe.Pointer(&data[0])
	}
	ok := s.fileWrite(s.remoteStorage, name, p, int32(len(data)))
	runtime.KeepAlive(data)
	return ok
}

func (s *SDK) FileReadAsync(name string, offset, size uint32) steamdispatch.CallHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteStorage == 0 {
		return steamdispatch.InvalidCallHandle
	}
	return steamdispatch.CallHandle(s.fileReadAsync(s.remoteStorage, name, offset, size))
}

func (s *SDK) FileReadAsyncComplete(call steamdispatch.CallHandle, buf []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteStorage == 0 || len(buf) == 0 {
		return false
	}
	ok := s.fileReadAsyncComplete(s.remoteStorage, uint64(call), unsafe.Pointer(&buf[0]), uint32(len(buf)))
	runtime.KeepAlive(buf)
	return ok
}

// AuthSessionTicket calls GetAuthSessionTicket without a network identity.
func (s *SDK) AuthSessionTicket(buf []byte) (uint32, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == 0 || len(buf) == 0 {
		return 0, 0
	}
	var size uint32
	ticket := s.getAuthSessionTicket(s.user, unsafe.Pointer(&buf[0]), int32(len(buf)), &size, 0)
	runtime.KeepAlive(buf)
	return ticket, size
}

func cstring(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
