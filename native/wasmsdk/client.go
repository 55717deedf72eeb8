package wasmsdk

import (
	"github.com/tetratelabs/wazero/api"

	steamdispatch "github.com/wippyai/steam-dispatch"
)

func (s *SDK) AppID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call32(ExportAppID)
}

func (s *SDK) SteamID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.call(ExportSteamID)
	if !ok || len(res) == 0 {
		return 0
	}
	return res[0]
}

func (s *SDK) DLCCount() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int32(s.call32(ExportDLCCount))
}

func (s *SDK) IsSteamRunningOnSteamDeck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call32(ExportIsSteamDeck) != 0
}

func (s *SDK) IsPhoneIdentifying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call32(ExportIsPhoneIdentifying) != 0
}

func (s *SDK) IsPhoneVerified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call32(ExportIsPhoneVerified) != 0
}

func (s *SDK) CurrentGameLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.readString(ExportGameLanguage)
	return v
}

// CurrentBetaName reports false when the guest returns a negative length.
func (s *SDK) CurrentBetaName() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readString(ExportBetaName)
}

func (s *SDK) FileSize(name string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int32
	s.withBytes([]byte(name), func(ptr, size uint32) {
		n = int32(s.call32(ExportFileSize, api.EncodeU32(ptr), api.EncodeU32(size)))
	})
	return n
}

func (s *SDK) FileRead(name string, buf []byte) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int32
	s.withBytes([]byte(name), func(namePtr, nameLen uint32) {
		s.withBuffer(buf, func(bufPtr uint32) uint32 {
			n = int32(s.call32(ExportFileRead,
				api.EncodeU32(namePtr), api.EncodeU32(nameLen),
				api.EncodeU32(bufPtr), api.EncodeU32(uint32(len(buf)))))
			if n < 0 {
				return 0
			}
			return uint32(n)
		})
	})
	return n
}

func (s *SDK) FileWrite(name string, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.withBytes([]byte(name), func(namePtr, nameLen uint32) {
		s.withBytes(data, func(dataPtr, dataLen uint32) {
			ok = s.call32(ExportFileWrite,
				api.EncodeU32(namePtr), api.EncodeU32(nameLen),
				api.EncodeU32(dataPtr), api.EncodeU32(dataLen)) != 0
		})
	})
	return ok
}

func (s *SDK) FileReadAsync(name string, offset, size uint32) steamdispatch.CallHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var call steamdispatch.CallHandle
	s.withBytes([]byte(name), func(ptr, n uint32) {
		res, ok := s.call(ExportFileReadAsync,
			api.EncodeU32(ptr), api.EncodeU32(n),
			api.EncodeU32(offset), api.EncodeU32(size))
		if ok && len(res) > 0 {
			call = steamdispatch.CallHandle(res[0])
		}
	})
	return call
}

func (s *SDK) FileReadAsyncComplete(call steamdispatch.CallHandle, buf []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.withBuffer(buf, func(ptr uint32) uint32 {
		ok = s.call32(ExportFileReadAsyncComplete,
			uint64(call), api.EncodeU32(ptr), api.EncodeU32(uint32(len(buf)))) != 0
		if !ok {
			return 0
		}
		return uint32(len(buf))
	})
	return ok
}

// AuthSessionTicket writes the ticket into buf. The guest reports the ticket
// length through an out parameter.
func (s *SDK) AuthSessionTicket(buf []byte) (uint32, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sizeAt := s.out + envelopeSize + 4
	s.mod.Memory().WriteUint32Le(sizeAt, 0)

	var ticket, size uint32
	s.withBuffer(buf, func(ptr uint32) uint32 {
		ticket = s.call32(ExportAuthSessionTicket,
			api.EncodeU32(ptr), api.EncodeU32(uint32(len(buf))), api.EncodeU32(sizeAt))
		size, _ = s.mod.Memory().ReadUint32Le(sizeAt)
		if size > uint32(len(buf)) {
			size = uint32(len(buf))
		}
		return size
	})
	return ticket, size
}

func (s *SDK) readString(export string) (string, bool) {
	if s.fn(export) == nil {
		return "", false
	}
	n := -1
	buf := make([]byte, stringCap)
	s.withBuffer(buf, func(ptr uint32) uint32 {
		got := int32(s.call32(export, api.EncodeU32(ptr), api.EncodeU32(stringCap)))
		if got < 0 {
			return 0
		}
		if got > stringCap {
			got = stringCap
		}
		n = int(got)
		return uint32(got)
	})
	if n < 0 {
		return "", false
	}
	return string(buf[:n]), true
}

// withBytes stages data in guest memory for the duration of fn.
func (s *SDK) withBytes(data []byte, fn func(ptr, size uint32)) {
	ptr, ok := s.stage(data)
	if !ok {
		return
	}
	defer s.free(ptr)
	fn(ptr, uint32(len(data)))
}

// withBuffer gives fn a guest buffer the size of buf and copies back the
// number of bytes fn reports.
func (s *SDK) withBuffer(buf []byte, fn func(ptr uint32) uint32) {
	ptr, err := s.alloc(uint32(len(buf)))
	if err != nil {
		s.fail(ExportAlloc, err)
		return
	}
	defer s.free(ptr)

	n := fn(ptr)
	if n == 0 {
		return
	}
	if data, ok := s.mod.Memory().Read(ptr, n); ok {
		copy(buf, data)
	}
}
