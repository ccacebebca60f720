// Package logging wires the single structured logger shared by the engine,
// the path workers, and the control dispatcher. The teacher emits bare
// fmt.Printf to stdout, which fits a one-shot CLI but not a daemon that runs
// headless under a supervisor; github.com/charmbracelet/log supplies leveled,
// timestamped, key=value output instead (same dependency the pack's
// doismellburning-samoyed repo uses for its own always-on daemon).
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// New builds the process-wide logger. debug raises the level to Debug;
// otherwise Info and above are emitted.
func New(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return logger
}
