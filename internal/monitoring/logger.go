// Package monitoring holds the shared diagnostic logger used by the
// infrastructure packages and the Prometheus metrics the engine exports.
package monitoring

import "log"

// Logf is the shared diagnostic logger. It defaults to log.Printf and can be
// redirected or muted with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
