// internal/trigger/trigger.go
package trigger

// Flag is a single-bit latch: set by an interrupt-style source, read and
// cleared by the main loop. Firing an already set flag is a no-op.
type Flag struct {
	ch chan struct{}
}

func New() *Flag {
	return &Flag{ch: make(chan struct{}, 1)}
}

// Fire sets the flag. Never blocks.
func (f *Flag) Fire() {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

// Take reports whether the flag was set and clears it.
func (f *Flag) Take() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}
