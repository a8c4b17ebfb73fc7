// internal/capture/capture.go
package capture

import (
	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/salt"
)

// Tuner retunes the capture radio to a channel.
type Tuner interface {
	SetChannel(ch uint8) error
}

// Observation is one raw identifier sighting.
type Observation struct {
	Category aggregate.Category
	ID       []byte
	RSSI     int
}

// Filter turns raw observations into salted keys in the store.
// It applies the detection-range limit and drops disabled categories.
type Filter struct {
	store      *aggregate.Store
	salt       *salt.Salt
	rssiLimit  int
	bleEnabled bool
}

// NewFilter builds a filter. rssiLimit is in dBm; 0 disables the limiter.
func NewFilter(store *aggregate.Store, s *salt.Salt, rssiLimit int, bleEnabled bool) *Filter {
	return &Filter{
		store:      store,
		salt:       s,
		rssiLimit:  rssiLimit,
		bleEnabled: bleEnabled,
	}
}

// Observe records obs. It reports whether a new key was counted.
func (f *Filter) Observe(obs Observation) bool {
	if obs.Category == aggregate.CategoryBLE && !f.bleEnabled {
		return false
	}
	if f.rssiLimit != 0 && obs.RSSI < f.rssiLimit {
		return false
	}
	if len(obs.ID) == 0 {
		return false
	}
	return f.store.Add(obs.Category, aggregate.Key(f.salt.Hash(obs.ID)))
}

// Disabled is a Tuner for builds without capture hardware.
type Disabled struct{}

func (Disabled) SetChannel(uint8) error { return nil }
