// internal/payload/constants.go
package payload

// Uplink payload layout constants.
// These values define the wire format the network server decodes and
// MUST NOT be configurable.

// ---- PORTS ----

// PortCounts carries the counter payload.
const PortCounts uint8 = 1

// ---- GEOMETRY ----

// Size is the fixed payload length in bytes.
const Size = 4

// OffsetWifi holds category A (wifi) unique count, big-endian uint16.
const OffsetWifi = 0

// OffsetBLE holds category B (ble) unique count, big-endian uint16.
const OffsetBLE = 2
