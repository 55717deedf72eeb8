//go:build !(darwin || linux)

package steamworks

import (
	"runtime"

	"go.uber.org/zap"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/errors"
)

// SDK is unavailable on this platform.
type SDK struct {
	steamdispatch.Native
}

// Open always fails on this platform.
func Open(path string, _ *zap.Logger) (*SDK, error) {
	return nil, errors.Load("steamworks backend is not supported on "+runtime.GOOS, nil)
}

// Path returns the empty string.
func (s *SDK) Path() string {
	return ""
}
