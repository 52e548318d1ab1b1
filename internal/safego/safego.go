// Package safego launches background goroutines that survive their own panics.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a new goroutine under task's name. A panic in fn is logged
// with its stack and swallowed, so one bad activity write or sweep cycle
// cannot take the server down.
func Go(task string, fn func()) {
	go func() {
		defer Recover(task)
		fn()
	}()
}

// Recover logs a recovered panic for task. It must be deferred directly.
func Recover(task string) {
	if r := recover(); r != nil {
		slog.Error("recovered panic in background task",
			"task", task,
			"panic", r,
			"stack", string(debug.Stack()),
		)
	}
}
