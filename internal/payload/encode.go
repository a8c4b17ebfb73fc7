// internal/payload/encode.go
package payload

import (
	"encoding/binary"

	"github.com/tamzrod/paxcounter/internal/aggregate"
)

// Encode converts a counts snapshot into the uplink payload.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(c aggregate.Counts) []byte {
	b := make([]byte, Size)
	binary.BigEndian.PutUint16(b[OffsetWifi:], c.Wifi)
	binary.BigEndian.PutUint16(b[OffsetBLE:], c.BLE)
	return b
}
