// Package echo is the UART echo core: a byte transform, the controller that
// applies it, and the loop that moves bytes from receive to transmit.
package echo

import "context"

// Port is the UART surface driven by Run: await exactly one received byte,
// and transmit bytes from a buffer. Implementations must return once ctx is
// done.
type Port interface {
	RecvByteContext(ctx context.Context) (byte, error)
	Write(p []byte) (int, error)
}

// Run echoes every byte received on port through c, one byte in flight at a
// time. A failed receive skips the cycle without calling c or port.Write; a
// failed write is dropped. Neither is reported. Run returns ctx.Err() once
// ctx is done and otherwise never returns.
func Run(ctx context.Context, port Port, c *Controller) error {
	var buf [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := port.RecvByteContext(ctx)
		if err != nil {
			continue
		}
		buf[0] = c.Process(b)
		_, _ = port.Write(buf[:])
	}
}
