package capture

import (
	"errors"
	"time"
)

// Sentinel errors surfaced by the capture provider binding.
var (
	// ErrNoFrame means the zero-wait poll found no new frame. Not a failure.
	ErrNoFrame = errors.New("no new frame available")

	// ErrAccessLost means the duplication session is no longer valid, e.g.
	// after a display mode change. The session must be destroyed and
	// re-acquired.
	ErrAccessLost = errors.New("duplication access lost")

	// ErrOutputNotFound means the monitor index exceeds the available outputs.
	ErrOutputNotFound = errors.New("output not found")

	// ErrNotSupported is returned on platforms without a capture provider.
	ErrNotSupported = errors.New("display duplication not supported on this platform")
)

// OutputInfo describes one display output of the capture provider.
type OutputInfo struct {
	Index  int
	Name   string
	X      int
	Y      int
	Width  int
	Height int

	// RotationDegrees is the output rotation: 0, 90, 180 or 270.
	RotationDegrees int

	// Monitor is the opaque platform monitor identifier for this output.
	Monitor uintptr
}

// DisplayInfo is the HDR/SDR metadata of an output's attached display,
// captured once when duplication is established.
type DisplayInfo struct {
	HDR          bool
	SDRWhiteNits float32
}

// Frame is one captured update delivered by the provider. It stays valid
// until the owning Duplication's ReleaseFrame call.
type Frame interface {
	// Texture resolves the frame's native GPU resource. May fail even after
	// a successful acquire; the frame must still be released exactly once.
	// The returned texture must be released by the caller before ReleaseFrame.
	Texture() (Texture, error)
}

// Duplication is an established capture session for one output.
type Duplication interface {
	// AcquireNextFrame polls for the next frame, waiting at most timeout.
	// Returns ErrNoFrame when no new frame arrived within the timeout and
	// ErrAccessLost when the session became invalid. Every successful
	// acquire must be paired with exactly one ReleaseFrame.
	AcquireNextFrame(timeout time.Duration) (Frame, error)

	// ReleaseFrame returns the current frame to the provider. No-op when no
	// frame is held.
	ReleaseFrame()

	// DisplayInfo returns the HDR/SDR metadata recorded when the
	// duplication was established. Not refreshed per frame.
	DisplayInfo() DisplayInfo

	Close()
}

// Provider is the display-capture capability: it enumerates outputs and
// duplicates them into frame streams.
type Provider interface {
	Outputs() ([]OutputInfo, error)

	// Output returns the descriptor for one output, or ErrOutputNotFound
	// when idx exceeds the available outputs.
	Output(idx int) (OutputInfo, error)

	// Duplicate establishes a duplication session for the output, preferring
	// the listed formats widest-first. Falls back to the provider's default
	// 8-bit path when extended formats are unavailable.
	Duplicate(idx int, preferred []ColorFormat) (Duplication, error)
}
