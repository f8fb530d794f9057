package uartx

import (
	"errors"
	"strings"
)

var (
	// ErrBufferEmpty is returned by ReadByte when no received byte is buffered.
	ErrBufferEmpty = errors.New("UART buffer empty")
	// ErrClosed is returned by blocking receives once Close has been called.
	ErrClosed = errors.New("UART closed")

	ErrInvalidDataBits = errors.New("invalid databits")
	ErrInvalidStopBits = errors.New("invalid stopbits")
)

// LineError is the set of receive faults latched by the driver since the
// last blocking receive. The faulty bytes themselves are never buffered.
type LineError uint8

const (
	LineOverrun  LineError = 1 << iota // hardware FIFO overrun (OE)
	LineBreak                          // break condition (BE)
	LineParity                         // parity mismatch (PE)
	LineFraming                        // missing stop bit (FE)
	LineOverflow                       // software RX ring full, byte dropped
)

var lineErrorNames = [...]struct {
	flag LineError
	name string
}{
	{LineOverrun, "overrun"},
	{LineBreak, "break"},
	{LineParity, "parity"},
	{LineFraming, "framing"},
	{LineOverflow, "overflow"},
}

// Has reports whether all bits of flag are set in e.
func (e LineError) Has(flag LineError) bool { return flag != 0 && e&flag == flag }

func (e LineError) Error() string {
	var sb strings.Builder
	sb.WriteString("uart line error:")
	for _, n := range lineErrorNames {
		if e&n.flag != 0 {
			sb.WriteByte(' ')
			sb.WriteString(n.name)
		}
	}
	if e&^(LineOverrun|LineBreak|LineParity|LineFraming|LineOverflow) != 0 {
		sb.WriteString(" unknown")
	}
	return sb.String()
}
