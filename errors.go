package shadertoggle

import "errors"

// Sentinel errors returned by Engine.
var (
	// ErrNoDevice is returned by New without WithDevice.
	ErrNoDevice = errors.New("shadertoggle: no device")

	// ErrNoRuntime is returned by New without WithEffectRuntime.
	ErrNoRuntime = errors.New("shadertoggle: no effect runtime")

	// ErrNoViewProvider is returned by New without WithViewProvider.
	ErrNoViewProvider = errors.New("shadertoggle: no view provider")

	// ErrUnknownGroup is returned for a group ID that is not configured.
	ErrUnknownGroup = errors.New("shadertoggle: unknown group")
)
