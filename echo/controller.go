package echo

// State is the controller's position in the receive/echo cycle.
type State uint8

const (
	StateIdle State = iota
	StateReceiving
	StateEchoing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateEchoing:
		return "echoing"
	}
	return "unknown"
}

// Controller turns each received byte into the byte to transmit. It is
// created once at startup and owned by the echo loop. The bookkeeping it
// carries never influences the byte returned by Process.
type Controller struct {
	state     State
	baudRate  uint32
	echoCount uint64
	lastChar  byte
	hasLast   bool
}

// NewController returns an idle controller at DefaultBaudRate.
func NewController() *Controller {
	return &Controller{baudRate: DefaultBaudRate}
}

// NewControllerWithBaudRate returns an idle controller with br clamped to
// the supported range.
func NewControllerWithBaudRate(br uint32) *Controller {
	return &Controller{baudRate: ClampBaudRate(br)}
}

// Process returns the echo for ch. It never blocks or fails and leaves the
// controller idle.
func (c *Controller) Process(ch byte) byte {
	c.state = StateReceiving
	c.lastChar, c.hasLast = ch, true
	c.state = StateEchoing
	out := CharToEcho(ch)
	c.echoCount++
	c.state = StateIdle
	return out
}

// State reports the controller's current phase.
func (c *Controller) State() State { return c.state }

// IsIdle reports whether the controller is between bytes.
func (c *Controller) IsIdle() bool { return c.state == StateIdle }

// BaudRate returns the configured, clamped line rate.
func (c *Controller) BaudRate() uint32 { return c.baudRate }

// SetBaudRate records br clamped to the supported range.
func (c *Controller) SetBaudRate(br uint32) { c.baudRate = ClampBaudRate(br) }

// EchoCount is the number of bytes processed; it wraps at 2^64.
func (c *Controller) EchoCount() uint64 { return c.echoCount }

// LastChar returns the most recently processed byte, or false before the
// first call to Process.
func (c *Controller) LastChar() (byte, bool) { return c.lastChar, c.hasLast }
