// Package path implements the producer/consumer worker pair for one
// forwarding path (spec.md §4.5): a capture half that pulls PCM frames from
// a CaptureSession into a SampleRing, and a render half that drains the
// ring into a RenderSession, with hot-swap, underrun/overflow handling, and
// bounded stream recovery.
package path

import (
	"sync"
	"sync/atomic"

	"github.com/Fallstop/SpeedSwitchHub/internal/pcm"
	"github.com/Fallstop/SpeedSwitchHub/internal/ring"
)

// MaxRecoveryAttempts bounds consecutive transient I/O failures before a
// worker gives up and propagates (spec.md §4.5, §7).
const MaxRecoveryAttempts = 5

// Target is a readers-writer-locked endpoint identifier. Any number of
// workers may read it concurrently; the control dispatcher is the sole
// writer and never holds the lock across I/O (spec.md §9).
type Target struct {
	mu    sync.RWMutex
	value string
}

// NewTarget constructs a Target holding the given initial endpoint id.
func NewTarget(initial string) *Target {
	return &Target{value: initial}
}

// Get returns the current endpoint id.
func (t *Target) Get() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Set overwrites the current endpoint id. Called by the control dispatcher.
func (t *Target) Set(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value = id
}

// FormatSnapshot holds the producer's last-observed capture format for the
// consumer to read. Writes only happen on session open/recover (rare); a
// readers-writer lock is adequate (spec.md §5).
type FormatSnapshot struct {
	mu      sync.RWMutex
	format  pcm.Format
	present bool
}

// Set publishes a newly negotiated capture format.
func (f *FormatSnapshot) Set(format pcm.Format) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.format = format
	f.present = true
}

// Get returns the last published format, and whether one has ever been
// published.
func (f *FormatSnapshot) Get() (pcm.Format, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.format, f.present
}

// State is the shared control record for one path (spec.md §3's
// PathState): the SampleRing connecting the two worker halves, the
// hot-swappable target(s), the mic-only enable gate, the capture format
// snapshot, and the process-wide run flag.
type State struct {
	Ring *ring.SampleRing

	// CaptureTarget is hot-swappable only on the mic path; the speaker
	// path's producer reads it but nothing ever calls Set on it.
	CaptureTarget *Target

	// RenderTarget is hot-swappable only on the speaker path; the mic
	// path's consumer reads it but nothing ever calls Set on it.
	RenderTarget *Target

	// Enabled gates the mic path only; always true for the speaker path.
	Enabled *atomic.Bool

	CaptureFormat *FormatSnapshot

	// Run is shared across both paths and the control dispatcher; it
	// transitions true -> false exactly once.
	Run *atomic.Bool
}

// NewState builds a path's shared record. captureTarget and renderTarget
// are the starting endpoint ids; enabled seeds the mic gate (pass an
// always-true flag for the speaker path).
func NewState(capacitySamples int, captureTarget, renderTarget string, enabled *atomic.Bool, run *atomic.Bool) *State {
	return &State{
		Ring:          ring.New(capacitySamples),
		CaptureTarget: NewTarget(captureTarget),
		RenderTarget:  NewTarget(renderTarget),
		Enabled:       enabled,
		CaptureFormat: &FormatSnapshot{},
		Run:           run,
	}
}
