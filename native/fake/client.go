package fake

import (
	"encoding/binary"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/schema"
)

func (s *SDK) AppID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.AppID
}

func (s *SDK) SteamID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SteamID
}

func (s *SDK) DLCCount() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.DLCCount
}

func (s *SDK) IsSteamRunningOnSteamDeck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SteamDeck
}

func (s *SDK) IsPhoneIdentifying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.PhoneIdentifying
}

func (s *SDK) IsPhoneVerified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.PhoneVerified
}

func (s *SDK) CurrentGameLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Language
}

func (s *SDK) CurrentBetaName() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.BetaName, s.cfg.BetaName != ""
}

func (s *SDK) FileSize(name string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int32(len(s.files[name]))
}

func (s *SDK) FileRead(name string, buf []byte) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int32(copy(buf, s.files[name]))
}

func (s *SDK) FileWrite(name string, data []byte) bool {
	if name == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
	return true
}

// FileReadAsync queues a RemoteStorageFileReadAsyncComplete_t result for the next frame.
func (s *SDK) FileReadAsync(name string, offset, size uint32) steamdispatch.CallHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[name]
	if !ok || uint64(offset)+uint64(size) > uint64(len(data)) {
		return steamdispatch.InvalidCallHandle
	}
	call := s.issueLocked()
	s.asyncReads[call] = append([]byte(nil), data[offset:offset+size]...)
	s.onFrame = append(s.onFrame, func() {
		_ = s.Complete(call, schema.RemoteStorageFileReadAsyncComplete{
			Call:   call,
			Result: schema.ResultOK,
			Offset: offset,
			Read:   size,
		}, false)
	})
	return call
}

func (s *SDK) FileReadAsyncComplete(call steamdispatch.CallHandle, buf []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.asyncReads[call]
	if !ok || len(buf) < len(data) {
		return false
	}
	delete(s.asyncReads, call)
	copy(buf, data)
	return true
}

// AuthSessionTicket writes a deterministic ticket and queues its
// GetAuthSessionTicketResponse_t for the next frame.
func (s *SDK) AuthSessionTicket(buf []byte) (uint32, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket := s.nextTicket
	s.nextTicket++

	const size = 16
	if len(buf) < size {
		return 0, 0
	}
	binary.LittleEndian.PutUint32(buf[0:], 0x14)
	binary.LittleEndian.PutUint32(buf[4:], ticket)
	binary.LittleEndian.PutUint64(buf[8:], s.cfg.SteamID)

	result := s.cfg.AuthResult
	s.onFrame = append(s.onFrame, func() {
		_ = s.Emit(schema.GetAuthSessionTicketResponse{AuthTicket: ticket, Result: result})
	})
	return ticket, size
}
