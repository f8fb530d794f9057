//go:build !rp2040 && !rp2350

package uartx

import (
	"context"
	"sync"
)

// Host shim: an in-memory UART with the same receive/transmit surface as the
// PL011 driver, no device/rp or machine deps. Receive and InjectLineError
// stand in for the ISR; Sent and FailWrites expose the TX side. Host writes
// never queue, so the TX side is always writable.

type UART struct {
	mu       sync.Mutex
	rx       ring
	rxErr    LineError
	tx       []byte
	txErr    error
	txCalls  int
	notify   chan struct{}
	txNotify chan struct{}
	closed   chan struct{}
	baudRate uint32
}

// NewUART returns an idle host UART.
func NewUART() *UART {
	return &UART{
		notify:   make(chan struct{}, 1),
		txNotify: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

// Public instances to mirror real build.
var (
	UART0 = NewUART()
	UART1 = NewUART()
)

// UARTConfig mirrors the fields of machine.UARTConfig the driver consumes.
type UARTConfig struct {
	BaudRate uint32
}

func (u *UART) Configure(cfg UARTConfig) error {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	u.mu.Lock()
	u.baudRate = cfg.BaudRate
	u.rx = ring{}
	u.rxErr = 0
	u.mu.Unlock()
	return nil
}

// BaudRate returns the last configured rate.
func (u *UART) BaudRate() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.baudRate
}

// ---------- RX ----------

func (u *UART) Readable() <-chan struct{} { return u.notify }

// Read is non-blocking: 0, nil means nothing buffered.
func (u *UART) Read(p []byte) (int, error) {
	return u.TryRead(p), nil
}

func (u *UART) TryRead(p []byte) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.readInto(p)
}

func (u *UART) ReadByte() (byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.rx.len() == 0 {
		return 0, ErrBufferEmpty
	}
	return u.rx.get(), nil
}

func (u *UART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.len()
}

// Receive queues one byte as if the ISR had drained it from the FIFO.
// A full ring drops the byte and latches LineOverflow.
func (u *UART) Receive(b byte) {
	u.mu.Lock()
	if !u.rx.put(b) {
		u.rxErr |= LineOverflow
	}
	u.mu.Unlock()
	u.tryNotify()
}

// InjectLineError latches receive faults as if the ISR had seen them.
func (u *UART) InjectLineError(e LineError) {
	u.mu.Lock()
	u.rxErr |= e
	u.mu.Unlock()
	u.tryNotify()
}

func (u *UART) takeLineError() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	e := u.rxErr
	u.rxErr = 0
	if e == 0 {
		return nil
	}
	return e
}

func (u *UART) RecvByteContext(ctx context.Context) (byte, error) {
	for {
		if err := u.takeLineError(); err != nil {
			return 0, err
		}
		if b, err := u.ReadByte(); err == nil {
			return b, nil
		}
		select {
		case <-u.notify:
		case <-u.closed:
			return 0, ErrClosed
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// ---------- TX ----------

// Writable is signalled after every accepted write.
func (u *UART) Writable() <-chan struct{} { return u.txNotify }

// TryWrite accepts all of p, or nothing while writes are failing.
func (u *UART) TryWrite(p []byte) int {
	n, _ := u.Write(p)
	return n
}

// TxFree reports a full ring's worth of space: nothing is ever queued.
func (u *UART) TxFree() int { return len(u.rx.buf) - 1 }

// Write records p as transmitted, or fails without recording when a write
// error has been set with FailWrites.
func (u *UART) Write(p []byte) (int, error) {
	select {
	case <-u.closed:
		return 0, ErrClosed
	default:
	}
	u.mu.Lock()
	u.txCalls++
	if err := u.txErr; err != nil {
		u.mu.Unlock()
		return 0, err
	}
	u.tx = append(u.tx, p...)
	u.mu.Unlock()
	select {
	case u.txNotify <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (u *UART) WriteByte(c byte) error {
	_, err := u.Write([]byte{c})
	return err
}

// Flush is a no-op: host writes are on the wire once Write returns.
func (u *UART) Flush() error { return nil }

// FailWrites makes subsequent writes fail with err; nil restores them.
func (u *UART) FailWrites(err error) {
	u.mu.Lock()
	u.txErr = err
	u.mu.Unlock()
}

// Sent returns a copy of everything written so far.
func (u *UART) Sent() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.tx...)
}

// TxAttempts counts Write calls, failed ones included.
func (u *UART) TxAttempts() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.txCalls
}

func (u *UART) Close() error {
	select {
	case <-u.closed:
	default:
		close(u.closed)
	}
	return nil
}

// tryNotify simulates the ISR's coalesced wake-up.
func (u *UART) tryNotify() {
	select {
	case u.notify <- struct{}{}:
	default:
	}
}

// -------- tiny ring buffer (bytes) --------

type ring struct {
	buf        [128]byte
	head, tail int
}

func (r *ring) len() int {
	if r.head >= r.tail {
		return r.head - r.tail
	}
	return len(r.buf) - r.tail + r.head
}

// put stores b unless the ring is full; one slot stays unused.
func (r *ring) put(b byte) bool {
	next := (r.head + 1) % len(r.buf)
	if next == r.tail {
		return false
	}
	r.buf[r.head] = b
	r.head = next
	return true
}

func (r *ring) get() byte {
	if r.len() == 0 {
		return 0
	}
	b := r.buf[r.tail]
	r.tail = (r.tail + 1) % len(r.buf)
	return b
}

func (r *ring) readInto(p []byte) int {
	n := 0
	for n < len(p) && r.len() > 0 {
		p[n] = r.get()
		n++
	}
	return n
}
