// Package monitoring carries the process-wide diagnostic logger the
// correction pipelines write through. Long stack runs log chunk
// progress and timing; embedders that want silence (or capture) swap
// the sink instead of filtering stderr.
package monitoring

import "log"

// Logf is the diagnostic log sink. It defaults to log.Printf and may be
// replaced with SetLogger; callers format subsystem tags themselves,
// e.g. Logf("[ifc] corrected %d frames", n).
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the log sink. A nil f installs a no-op sink.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Quiet mutes the package logger. Equivalent to SetLogger(nil); reads
// better at call sites that only ever want silence.
func Quiet() {
	SetLogger(nil)
}
