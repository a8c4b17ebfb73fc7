// internal/restart/restart.go
package restart

import (
	"log"
	"os"
	"sync"
	"syscall"
)

// Restarter performs a full subsystem restart. Implementations backed by
// the host do not return.
type Restarter interface {
	Restart(reason string)
}

// Func adapts a function to Restarter.
type Func func(reason string)

func (f Func) Restart(reason string) { f(reason) }

// Exec restarts by replacing the current process image with a fresh copy
// of itself, the host analogue of a chip reset. Every in-memory state,
// including the protocol engine session, starts from cold.
type Exec struct {
	// Before runs ahead of the exec, e.g. to close serial ports.
	Before func()
}

func (e Exec) Restart(reason string) {
	log.Printf("restart: %s", reason)
	if e.Before != nil {
		e.Before()
	}
	exe, err := os.Executable()
	if err != nil {
		log.Fatalf("restart: resolve executable: %v", err)
	}
	err = syscall.Exec(exe, os.Args, os.Environ())
	// Exec only returns on failure; exit so a supervisor restarts us.
	log.Fatalf("restart: exec %s: %v", exe, err)
}

// Recorder is a Restarter that only records requests. Used in tests and
// dry runs.
type Recorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *Recorder) Restart(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

// Reasons returns all recorded restart reasons.
func (r *Recorder) Reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}
