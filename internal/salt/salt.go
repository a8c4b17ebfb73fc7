// internal/salt/salt.go
package salt

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"sync/atomic"
)

// Salt is the anonymization salt mixed into every identifier hash.
// Rotating it makes the same identifier hash differently afterwards.
type Salt struct {
	v atomic.Uint32

	// source is replaceable in tests.
	source func() uint16
}

// New returns a salt seeded from crypto/rand.
func New() *Salt {
	s := &Salt{source: randomU16}
	s.Rotate()
	return s
}

// NewWithSource is New with a deterministic value source.
func NewWithSource(src func() uint16) *Salt {
	s := &Salt{source: src}
	s.Rotate()
	return s
}

// Rotate draws a new salt value, never equal to the previous one.
func (s *Salt) Rotate() uint16 {
	prev := uint16(s.v.Load())
	next := s.source()
	for i := 0; next == prev && i < 8; i++ {
		next = s.source()
	}
	if next == prev {
		next = prev + 1
	}
	s.v.Store(uint32(next))
	return next
}

// Value returns the current salt.
func (s *Salt) Value() uint16 {
	return uint16(s.v.Load())
}

// Hash returns the salted 32-bit key for a raw identifier.
func (s *Salt) Hash(id []byte) uint32 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], s.Value())
	h := fnv.New32a()
	_, _ = h.Write(id)
	_, _ = h.Write(b[:])
	return h.Sum32()
}

func randomU16() uint16 {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return binary.BigEndian.Uint16(b[:])
}
