// Package safego launches background goroutines that recover their own
// panics.
package safego

import "log/slog"

// Go runs fn in a new goroutine and turns any panic into an error log
// instead of a process crash. Use it for fire-and-forget work such as
// last-used stamping and background sweeps, where nothing upstream would
// ever observe the panic.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "panic", r)
			}
		}()
		fn()
	}()
}
