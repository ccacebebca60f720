// Package recovery guards goroutines against an unrecovered panic taking
// down the process silently. A panic here means corrupted in-memory state
// (a ring index, a session handle) rather than a transient I/O failure, so
// unlike the bounded-retry recovery in internal/path, it is always fatal.
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"
)

// HandlePanic should be deferred at the top of main(). It logs panic
// details and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		os.Exit(1)
	}
}

// HandlePanicFunc logs panic details, runs cleanup, then exits with code 1.
// Engine.Run defers this around every spawned path worker so a panicking
// producer or consumer still reports itself on errCh before the process
// goes down, instead of the goroutine just vanishing.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}

// Usage in a spawned path worker (see internal/engine's spawn helper):
//go func() {
//	defer recovery.HandlePanicFunc(func() {
//		errCh <- fmt.Errorf("%s: panic recovered", name)
//	})
//	errCh <- producer.Run()
//}()
