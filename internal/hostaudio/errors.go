package hostaudio

import "errors"

// Error kinds named in spec.md §7. HostApi errors are transient and counted
// toward a worker's recovery budget; the other two are fatal for the
// session that hit them.
var (
	// ErrEndpointNotFound means the three-pass resolver exhausted every
	// pass against the current device enumeration.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrUnsupported is returned by Open when the requested format has a
	// zero sample rate or channel count. Devices are always configured for
	// 32-bit float samples; the device's own native format is not checked.
	ErrUnsupported = errors.New("unsupported stream format")

	// ErrHostAPI wraps a transient failure from the underlying audio
	// backend (device busy, stream glitch, backend-reported error).
	ErrHostAPI = errors.New("host audio api error")

	// ErrNotStarted is returned by Start/Read/Write before Open has
	// succeeded (Format reports ok=false instead).
	ErrNotStarted = errors.New("session not started")
)
