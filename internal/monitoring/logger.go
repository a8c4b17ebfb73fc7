// internal/monitoring/logger.go
package monitoring

import "log"

// Logf is the logger for per-tick paths (scan hops, capture lines,
// feedback driver writes). It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
