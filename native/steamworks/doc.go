// Package steamworks binds the Steamworks flat API from libsteam_api with
// purego, without cgo.
//
// Only the manual-dispatch entry points and the handful of interface
// functions the bridge uses are bound. Callback payloads returned by
// NextCallback point into SDK memory and are only valid until
// FreeLastCallback.
//
// Loading is supported on darwin and linux. On other platforms Open fails
// with a load error.
package steamworks
