// internal/capture/sniffer.go
package capture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/monitoring"
	"github.com/tamzrod/paxcounter/internal/serialport"
)

var ErrBadLine = errors.New("capture: malformed observation line")

// Sniffer talks to a monitor-mode capture coprocessor over a serial port.
//
// Device -> host, one observation per line:
//
//	W,<mac>,<rssi>    wifi probe / frame source
//	B,<mac>,<rssi>    ble advertisement
//
// Host -> device:
//
//	CH=<n>            retune to channel n
type Sniffer struct {
	port    serialport.Port
	writeMu sync.Mutex
}

func NewSniffer(p serialport.Port) *Sniffer {
	return &Sniffer{port: p}
}

// SetChannel implements Tuner.
func (s *Sniffer) SetChannel(ch uint8) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	cmd := fmt.Sprintf("CH=%d\n", ch)
	n, err := s.port.Write([]byte(cmd))
	if err != nil {
		return err
	}
	if n != len(cmd) {
		return fmt.Errorf("capture: short write (%d of %d)", n, len(cmd))
	}
	return nil
}

// Run feeds every parsed line into f until ctx is done.
// Malformed lines are logged and skipped.
func (s *Sniffer) Run(ctx context.Context, f *Filter) error {
	return serialport.ReadLines(ctx, s.port, func(line string) {
		obs, err := ParseLine(line)
		if err != nil {
			monitoring.Logf("capture: %v (line=%q)", err, line)
			return
		}
		f.Observe(obs)
	})
}

func (s *Sniffer) Close() error { return s.port.Close() }

// ParseLine decodes one device line into an Observation.
func ParseLine(line string) (Observation, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Observation{}, fmt.Errorf("%w: want 3 fields, got %d", ErrBadLine, len(parts))
	}

	var obs Observation
	switch parts[0] {
	case "W":
		obs.Category = aggregate.CategoryWifi
	case "B":
		obs.Category = aggregate.CategoryBLE
	default:
		return Observation{}, fmt.Errorf("%w: unknown category %q", ErrBadLine, parts[0])
	}

	mac, err := net.ParseMAC(parts[1])
	if err != nil {
		return Observation{}, fmt.Errorf("%w: %v", ErrBadLine, err)
	}
	obs.ID = mac

	rssi, err := strconv.Atoi(parts[2])
	if err != nil {
		return Observation{}, fmt.Errorf("%w: rssi: %v", ErrBadLine, err)
	}
	obs.RSSI = rssi
	return obs, nil
}
