// internal/uplink/policy.go
package uplink

// Resetter clears the aggregation store.
type Resetter interface {
	Reset()
}

// Rotator rotates the anonymization salt.
type Rotator interface {
	Rotate() uint16
}

// ApplyPolicy runs the between-cycle reset decision. In cumulative mode
// nothing changes. Otherwise the store is cleared and the salt rotated so
// an identifier seen again next cycle hashes to a different key.
// It reports whether a reset happened.
func ApplyPolicy(cumulative bool, store Resetter, s Rotator) bool {
	if cumulative {
		return false
	}
	store.Reset()
	s.Rotate()
	return true
}
