package steamworks

import "runtime"

// DefaultLibrary returns the file name of the Steamworks redistributable for
// the running platform. The dynamic loader resolves it against its search path.
func DefaultLibrary() string {
	return libraryFor(runtime.GOOS)
}

func libraryFor(goos string) string {
	switch goos {
	case "darwin":
		return "libsteam_api.dylib"
	case "windows":
		return "steam_api64.dll"
	default:
		return "libsteam_api.so"
	}
}
