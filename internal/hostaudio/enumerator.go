// Package hostaudio binds the engine's CaptureSession/RenderSession
// contracts (spec.md §4.3) to github.com/gen2brain/malgo, the same
// miniaudio binding the teacher repository depends on. malgo is
// callback-driven rather than poll-driven, so each session owns a small
// internal SampleRing that the malgo callback fills (capture) or drains
// (render); Read/Write against that ring reproduce the poll-style contract
// the spec describes.
package hostaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/Fallstop/SpeedSwitchHub/internal/resolver"
)

// Enumerator lists malgo devices and resolves a resolver.Device back to the
// raw malgo.DeviceID a session needs to open it.
type Enumerator struct {
	ctx *malgo.AllocatedContext
}

// NewEnumerator wraps a live malgo context. The context is owned by the
// caller (the Engine) and shared across every session.
func NewEnumerator(ctx *malgo.AllocatedContext) *Enumerator {
	return &Enumerator{ctx: ctx}
}

func toMalgoDir(direction resolver.Direction) malgo.DeviceType {
	if direction == resolver.Capture {
		return malgo.Capture
	}
	return malgo.Playback
}

// Devices implements resolver.Enumerator.
func (e *Enumerator) Devices(direction resolver.Direction) ([]resolver.Device, error) {
	infos, err := e.ctx.Devices(toMalgoDir(direction))
	if err != nil {
		return nil, fmt.Errorf("enumerate %s devices: %w", direction, err)
	}
	out := make([]resolver.Device, len(infos))
	for i, info := range infos {
		out[i] = resolver.Device{ID: idString(info.ID), Name: info.Name()}
	}
	return out, nil
}

// rawID re-resolves a stable ID string back to the malgo.DeviceID needed by
// malgo.DeviceConfig. Only called at session open / hot-swap, never in the
// hot path.
func (e *Enumerator) rawID(direction resolver.Direction, id string) (malgo.DeviceID, bool) {
	infos, err := e.ctx.Devices(toMalgoDir(direction))
	if err != nil {
		return malgo.DeviceID{}, false
	}
	for _, info := range infos {
		if idString(info.ID) == id {
			return info.ID, true
		}
	}
	return malgo.DeviceID{}, false
}

func idString(id malgo.DeviceID) string {
	return fmt.Sprintf("%x", id)
}
