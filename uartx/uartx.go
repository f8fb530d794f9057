// uartx/uartx.go

//go:build rp2040 || rp2350

// Package uartx provides an interrupt-driven UART driver with blocking
// single-byte receive and explicit non-blocking and flush operations. Write
// blocks until data is accepted by the driver (software TX buffer and/or
// hardware FIFO). Flush provides an explicit "on the wire" completion.
//
// Receive faults (overrun, break, parity, framing, ring overflow) are latched
// by the ISR and reported once by the next RecvByteContext as a LineError.
package uartx

import (
	"context"
	"device/rp"
	"time"
)

// Readable returns a coalesced notification for RX readiness.
// The channel is level-coalesced; callers must re-check state after waking.
func (uart *UART) Readable() <-chan struct{} { return uart.notify }

// Writable returns a coalesced notification for TX progress or space.
// The channel is level-coalesced; callers must re-check state after waking.
func (uart *UART) Writable() <-chan struct{} { return uart.txNotify }

// TryRead returns immediately with up to len(p) bytes copied from the RX buffer.
// It never blocks and never returns an error. A return value of 0 means "no data now".
func (uart *UART) TryRead(p []byte) int {
	n := 0
	for n < len(p) {
		b, err := uart.ReadByte()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n
}

// Read is non-blocking, matching machine.UART.Read: it returns 0, nil when
// nothing is buffered.
func (uart *UART) Read(p []byte) (int, error) {
	return uart.TryRead(p), nil
}

// ReadByte reads a single byte from the software RX buffer.
// If there is no data available, it returns ErrBufferEmpty.
func (uart *UART) ReadByte() (byte, error) {
	b, ok := uart.Buffer.Get()
	if !ok {
		return 0, ErrBufferEmpty
	}
	return b, nil
}

// RecvByteContext blocks for a single byte, a latched LineError, Close or
// until ctx is done. A LineError is returned once and then cleared.
func (uart *UART) RecvByteContext(ctx context.Context) (byte, error) {
	for {
		if err := uart.takeLineError(); err != nil {
			return 0, err
		}
		if b, err := uart.ReadByte(); err == nil {
			return b, nil
		}
		select {
		case <-uart.notify:
			// coalesced wake; re-check
		case <-uart.closed:
			return 0, ErrClosed
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// TryWrite returns immediately with 0..len(p) bytes accepted into the hardware FIFO
// and/or the software TX buffer. A return value of 0 means "no space now".
func (uart *UART) TryWrite(p []byte) int {
	return uart.attemptSend(p)
}

// WriteByte writes a single byte. It blocks until the byte is accepted by the driver.
func (uart *UART) WriteByte(c byte) error {
	_, err := uart.Write([]byte{c})
	return err
}

// Write blocks until all bytes in p have been accepted by the driver (queued
// to software TX and/or hardware FIFO). It does not wait for the UART to
// drain; use Flush for on-the-wire completion.
func (uart *UART) Write(p []byte) (int, error) {
	sent := 0
	for sent < len(p) {
		n := uart.TryWrite(p[sent:])
		if n > 0 {
			sent += n
			continue
		}
		select {
		case <-uart.txNotify:
		case <-uart.closed:
			return sent, ErrClosed
		}
	}
	return sent, nil
}

// Flush blocks until all queued bytes have left the PL011: the software TX buffer is empty,
// the TX FIFO is empty, and the line is not busy. PL011 does not interrupt on BUSY
// deassertion, so Flush also polls on a short tick.
func (uart *UART) Flush() error {
	tick := uart.drainTick()
	for {
		if uart.TxBuffer.Used() == 0 && uart.txFifoEmpty() && uart.txLineIdle() {
			return nil
		}
		select {
		case <-uart.txNotify:
		case <-time.After(tick):
		}
	}
}

// drainTick is about two character times at 8N1, never below 20µs.
func (uart *UART) drainTick() time.Duration {
	if uart.baud == 0 {
		return 50 * time.Microsecond
	}
	perBit := time.Second / time.Duration(uart.baud)
	t := 2 * 10 * perBit
	if t < 20*time.Microsecond {
		t = 20 * time.Microsecond
	}
	return t
}

// Buffered returns the number of bytes currently stored in the software RX buffer.
func (uart *UART) Buffered() int {
	return int(uart.Buffer.Used())
}

// TxFree returns the remaining space in the software TX buffer in bytes.
func (uart *UART) TxFree() int { return int(uart.TxBuffer.Free()) }

// Receive inserts one byte into the software RX buffer. It is called by the
// interrupt handler; a full ring drops the byte and latches LineOverflow.
func (uart *UART) Receive(data byte) {
	if !uart.Buffer.Put(data) {
		uart.latch(LineOverflow)
	}
}

// Close unblocks waiters and masks RX interrupts.
func (uart *UART) Close() error {
	select {
	case <-uart.closed:
	default:
		close(uart.closed)
	}
	uart.Bus.UARTIMSC.ClearBits(rp.UART0_UARTIMSC_RXIM | rp.UART0_UARTIMSC_RTIM)
	return nil
}
