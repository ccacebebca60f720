// Package resolver implements the three-pass endpoint lookup described in
// spec.md §4.2: exact device ID, then case-insensitive exact friendly name,
// then case-insensitive substring of friendly name against the supplied id.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Direction selects which half of the host's device enumeration to search.
type Direction int

const (
	Capture Direction = iota
	Render
)

func (d Direction) String() string {
	if d == Capture {
		return "capture"
	}
	return "render"
}

// Device is the minimal view of a host-enumerated endpoint the resolver
// needs: a stable ID and a human-readable friendly name.
type Device struct {
	ID   string
	Name string
}

// Enumerator lists devices for one direction. Production code backs this
// with the host audio API (internal/hostaudio); tests back it with a fake.
type Enumerator interface {
	Devices(direction Direction) ([]Device, error)
}

// ErrNotFound is returned when none of the three passes match any device.
var ErrNotFound = errors.New("endpoint not found")

// Resolve finds the device matching id in the given direction, trying in
// order: exact ID, case-insensitive exact name, case-insensitive substring
// of name against id. The first pass with any hit wins; ties within a pass
// go to the first device in enumeration order.
func Resolve(enum Enumerator, id string, direction Direction) (Device, error) {
	devices, err := enum.Devices(direction)
	if err != nil {
		return Device{}, fmt.Errorf("enumerate %s devices: %w", direction, err)
	}

	for _, d := range devices {
		if d.ID == id {
			return d, nil
		}
	}

	lowerID := strings.ToLower(id)
	for _, d := range devices {
		if strings.ToLower(d.Name) == lowerID {
			return d, nil
		}
	}

	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), lowerID) {
			log.Warn("endpoint resolved by ambiguous substring match",
				"direction", direction.String(), "requested", id, "matched", d.Name, "id", d.ID)
			return d, nil
		}
	}

	return Device{}, fmt.Errorf("%w: %q among %s devices %v", ErrNotFound, id, direction, names(devices))
}

func names(devices []Device) []string {
	out := make([]string, len(devices))
	for i, d := range devices {
		out[i] = d.Name
	}
	return out
}
