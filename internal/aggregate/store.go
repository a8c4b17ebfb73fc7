// internal/aggregate/store.go
package aggregate

import "sync"

// Category namespaces observation keys by radio technology.
type Category uint8

const (
	CategoryWifi Category = iota // category A
	CategoryBLE                  // category B

	numCategories
)

func (c Category) String() string {
	switch c {
	case CategoryWifi:
		return "wifi"
	case CategoryBLE:
		return "ble"
	default:
		return "unknown"
	}
}

// Key is an opaque salted hash of one transient identifier.
type Key uint32

// Counts is a point-in-time snapshot of the store.
type Counts struct {
	Total uint16
	Wifi  uint16
	BLE   uint16
}

// Store holds the deduplicated key set for the current cycle plus
// per-category counters.
//
// Ownership: the capture side is the only inserter; Reset is called only
// by the uplink gate at a cycle boundary. The set and the counters change
// together under one lock, so Len always equals Counts().Total (below
// saturation) and Total is always Wifi+BLE.
type Store struct {
	mu    sync.Mutex
	keys  map[Key]struct{}
	total uint32
	cat   [numCategories]uint32
}

func New() *Store {
	return &Store{keys: make(map[Key]struct{})}
}

// Add inserts key under category. It reports whether the key was new.
// A key already seen under any category is not counted again.
func (s *Store) Add(c Category, k Key) bool {
	if c >= numCategories {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.keys[k]; seen {
		return false
	}
	s.keys[k] = struct{}{}
	s.total++
	s.cat[c]++
	return true
}

// Len is the number of unique keys in the set.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Counts snapshots the counters. Values saturate at 65535.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Total: sat16(s.total),
		Wifi:  sat16(s.cat[CategoryWifi]),
		BLE:   sat16(s.cat[CategoryBLE]),
	}
}

// Reset clears the key set and all counters.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[Key]struct{})
	s.total = 0
	s.cat = [numCategories]uint32{}
}

func sat16(v uint32) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
