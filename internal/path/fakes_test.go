package path

import (
	"errors"
	"sync"

	"github.com/Fallstop/SpeedSwitchHub/internal/pcm"
)

// fakeCapturer is an in-memory Capturer double. openFail names endpoints
// that always error; openFailCount/readFail simulate a transient run of N
// consecutive failures before the underlying device recovers.
type fakeCapturer struct {
	mu sync.Mutex

	openFail      map[string]bool
	openFailCount int // remaining Open calls that return an error
	readFail      int // remaining Read calls that return an error

	opened  string
	started bool
	closed  bool
	format  pcm.Format

	feed []float32 // samples returned on the next Read calls, FIFO
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{openFail: map[string]bool{}, format: pcm.Format{SampleRate: 48000, Channels: 2}}
}

func (f *fakeCapturer) Open(endpointID string, format pcm.Format) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openFail[endpointID] {
		return errors.New("fake open failure")
	}
	if f.openFailCount > 0 {
		f.openFailCount--
		return errors.New("fake transient open failure")
	}
	f.opened = endpointID
	f.format = format
	return nil
}

func (f *fakeCapturer) Start() error { f.started = true; return nil }
func (f *fakeCapturer) Stop() error  { f.started = false; return nil }
func (f *fakeCapturer) Close() error { f.closed = true; return nil }

func (f *fakeCapturer) Format() (pcm.Format, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format, f.opened != ""
}

func (f *fakeCapturer) Read(dest []float32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readFail > 0 {
		f.readFail--
		return 0, errors.New("fake read failure")
	}
	n := copy(dest, f.feed)
	f.feed = f.feed[n:]
	return n, nil
}

func (f *fakeCapturer) push(samples []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feed = append(f.feed, samples...)
}

// fakeRenderer is an in-memory Renderer double recording every Write.
type fakeRenderer struct {
	mu sync.Mutex

	openFail      map[string]bool
	openFailCount int // remaining Open calls that return an error
	writeFail     int

	opened  string
	started bool
	closed  bool
	format  pcm.Format

	written []float32
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{openFail: map[string]bool{}, format: pcm.Format{SampleRate: 48000, Channels: 2}}
}

func (f *fakeRenderer) Open(endpointID string, format pcm.Format) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openFail[endpointID] {
		return errors.New("fake open failure")
	}
	if f.openFailCount > 0 {
		f.openFailCount--
		return errors.New("fake transient open failure")
	}
	f.opened = endpointID
	f.format = format
	return nil
}

func (f *fakeRenderer) Start() error { f.started = true; return nil }
func (f *fakeRenderer) Stop() error  { f.started = false; return nil }
func (f *fakeRenderer) Close() error { f.closed = true; return nil }

func (f *fakeRenderer) Format() (pcm.Format, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format, f.opened != ""
}

func (f *fakeRenderer) Write(src []float32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeFail > 0 {
		f.writeFail--
		return 0, errors.New("fake write failure")
	}
	f.written = append(f.written, src...)
	return len(src), nil
}

func (f *fakeRenderer) snapshot() []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]float32, len(f.written))
	copy(out, f.written)
	return out
}
