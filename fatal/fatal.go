// Package fatal implements the abort-and-let-the-supervisor-restart
// policy for invariant violations.
// Fatal errors should never happen in correct code, so detecting one is
// worth a loud, synchronous process exit rather than an attempted recovery
// that could silently mask corrupted state.
package fatal

import "os"

// Logger is the minimal surface fatal.Abort needs; logging.Logger
// satisfies it.
type Logger interface {
	Crit(msg string, args ...interface{})
	Sync() error
}

// exitFunc is swapped out in tests so Abort doesn't actually exit the test
// binary.
var exitFunc = os.Exit

// Abort logs reason at critical severity, flushes the logger, and exits
// with the invariant-violation status code, 2.
func Abort(log Logger, reason string, args ...interface{}) {
	log.Crit(reason, args...)
	_ = log.Sync()
	exitFunc(2)
}
