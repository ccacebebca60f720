package path

import "github.com/Fallstop/SpeedSwitchHub/internal/pcm"

// Capturer is the producer half's view of a capture session
// (internal/hostaudio.CaptureSession satisfies this). Declared here, not
// imported from hostaudio, so tests can supply a fake without depending on
// malgo (accept interfaces, return structs).
type Capturer interface {
	Open(endpointID string, format pcm.Format) error
	Start() error
	Stop() error
	Read(dest []float32) (int, error)
	Format() (pcm.Format, bool)
	Close() error
}

// Renderer is the consumer half's view of a render session
// (internal/hostaudio.RenderSession satisfies this).
type Renderer interface {
	Open(endpointID string, format pcm.Format) error
	Start() error
	Stop() error
	Write(src []float32) (int, error)
	Format() (pcm.Format, bool)
	Close() error
}
