// Package monitoring holds the diagnostic loggers shared by the detection
// packages.
package monitoring

import "log"

// Logf reports conditions a caller should notice, such as a detection method
// being skipped. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf reports stage timings and intermediate sizes. It is muted until
// SetDebugLogger installs a sink.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

func noop(string, ...interface{}) {}

// SetLogger replaces Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = noop
		return
	}
	Logf = f
}

// SetDebugLogger replaces Debugf. Passing nil mutes it.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Debugf = noop
		return
	}
	Debugf = f
}
