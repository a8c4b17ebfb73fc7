// internal/serialport/lines.go
package serialport

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// ReadLines scans r and hands every trimmed, non-empty line to handle
// until ctx is done or the reader fails.
// The blocking scan runs in its own goroutine so cancellation is prompt.
func ReadLines(ctx context.Context, r io.Reader, handle func(line string)) error {
	scan := bufio.NewScanner(r)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			handle(line)
		}
	}
}
