//go:build rp2040 || rp2350

package uartx

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
)

// UART represents a single PL011 instance on RP2040/RP2350.
// Invariants (TX path):
//   - Steady-state writer to UARTDR is the ISR.
//   - Foreground writes UARTDR only when TXIM is masked (we own the start) or
//     in the "masked kick" corner case (TXIM enabled, no TX IRQ pending, FIFO empty).
//
// Invariants (RX path):
//   - Only the ISR puts into Buffer and sets bits in rxErr.
//   - The foreground clears rxErr with interrupts disabled.
type UART struct {
	// RX
	Buffer *RingBuffer        // software RX ring
	Bus    *rp.UART0_Type     // PL011 register block
	rxErr  volatile.Register8 // latched LineError bits

	// TX
	TxBuffer *RingBuffer   // software TX ring drained by the ISR
	txNotify chan struct{} // coalesced TX readiness/drain notifications

	Interrupt interrupt.Interrupt
	notify    chan struct{} // coalesced RX readiness notifications
	closed    chan struct{}

	baud uint32
}

// Configure sets up the PL011, its pins and interrupts. It leaves RXIM/RTIM
// enabled and TXIM masked (enabled on demand by attemptSend).
func (uart *UART) Configure(cfg UARTConfig) error {
	initUART(uart)

	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}

	if cfg.TX == machine.NoPin && cfg.RX == machine.NoPin {
		cfg.TX = machine.UART_TX_PIN
		cfg.RX = machine.UART_RX_PIN
	}

	uart.Bus.UARTCR.ClearBits(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)

	// Mux pins before touching baud/format.
	if cfg.TX != machine.NoPin {
		cfg.TX.Configure(machine.PinConfig{Mode: machine.PinUART})
	}
	if cfg.RX != machine.NoPin {
		cfg.RX.Configure(machine.PinConfig{Mode: machine.PinUART})
	}

	uart.SetBaudRate(cfg.BaudRate)
	if err := uart.SetFormat(8, 1, ParityNone); err != nil {
		return err
	}

	// Clear pending IRQs, purge the RX FIFO and any sticky errors left from reset.
	uart.Bus.UARTICR.Set(0x7FF)
	for !uart.Bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) {
		_ = uart.Bus.UARTDR.Get()
	}
	uart.Bus.UARTRSR.Set(0)
	uart.Buffer.Clear()
	uart.rxErr.Set(0)

	// No flow control: RTS/CTS stay unmuxed.
	uart.Bus.UARTCR.Set(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)

	uart.Interrupt.SetPriority(0x80)
	uart.Interrupt.Enable()
	// IFLS=0: RX/TX thresholds at 1/8 for lowest echo latency.
	uart.Bus.UARTIFLS.Set(0)
	uart.Bus.UARTIMSC.Set(rp.UART0_UARTIMSC_RXIM | rp.UART0_UARTIMSC_RTIM)

	// FIFO starts empty.
	select {
	case uart.txNotify <- struct{}{}:
	default:
	}

	return nil
}

// SetBaudRate programs the PL011 integer and fractional divisors and performs
// the "dummy" LCR_H write required to latch them.
func (uart *UART) SetBaudRate(br uint32) {
	uart.baud = br
	div := 8 * machine.CPUFrequency() / br

	ibrd := div >> 7
	var fbrd uint32
	switch {
	case ibrd == 0:
		ibrd = 1
		fbrd = 0
	case ibrd >= 65535:
		ibrd = 65535
		fbrd = 0
	default:
		fbrd = ((div & 0x7f) + 1) / 2
	}

	uart.Bus.UARTIBRD.Set(ibrd)
	uart.Bus.UARTFBRD.Set(fbrd)

	uart.Bus.UARTLCR_H.Set(uart.Bus.UARTLCR_H.Get())
}

// SetFormat sets data bits, stop bits and parity, and enables the FIFOs.
// It writes the full LCR_H value (not OR-ing).
func (uart *UART) SetFormat(databits, stopbits uint8, parity UARTParity) error {
	if databits < 5 || databits > 8 {
		return ErrInvalidDataBits
	}
	if stopbits != 1 && stopbits != 2 {
		return ErrInvalidStopBits
	}

	var pen, pev uint32
	if parity != ParityNone {
		pen = rp.UART0_UARTLCR_H_PEN
		if parity == ParityEven {
			pev = rp.UART0_UARTLCR_H_EPS
		}
	}
	const fen = rp.UART0_UARTLCR_H_FEN

	val := uint32(databits-5)<<rp.UART0_UARTLCR_H_WLEN_Pos |
		uint32(stopbits-1)<<rp.UART0_UARTLCR_H_STP2_Pos |
		pen | pev | fen

	uart.Bus.UARTLCR_H.Set(val)
	return nil
}

// initUART asserts and releases the peripheral reset for the selected PL011.
func initUART(uart *UART) {
	var resetVal uint32
	switch uart.Bus {
	case rp.UART0:
		resetVal = rp.RESETS_RESET_UART0
	case rp.UART1:
		resetVal = rp.RESETS_RESET_UART1
	}

	rp.RESETS.RESET.SetBits(resetVal)
	rp.RESETS.RESET.ClearBits(resetVal)
	for !rp.RESETS.RESET_DONE.HasBits(resetVal) {
	}
}

// takeLineError returns and clears the latched receive faults.
func (uart *UART) takeLineError() error {
	state := interrupt.Disable()
	e := LineError(uart.rxErr.Get())
	uart.rxErr.Set(0)
	interrupt.Restore(state)
	if e == 0 {
		return nil
	}
	return e
}

// latch is ISR-only.
func (uart *UART) latch(e LineError) {
	uart.rxErr.Set(uart.rxErr.Get() | uint8(e))
}

// --- TX helpers ---

// attemptSend accepts up to len(p) bytes without blocking and returns
// the number accepted. Foreground writes to UARTDR only when:
//   - TXIM is masked (we own the start), or
//   - TXIM is enabled but there is no pending TX IRQ (TXMIS==0) and the
//     FIFO is empty (TXFE==1): in that case we briefly mask TXIM, seed
//     the FIFO, then re-enable TXIM to ensure a level transition is seen.
//
// Any remainder goes into the software TX ring for the ISR to drain.
func (uart *UART) attemptSend(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	const (
		bTXIM  = uint32(rp.UART0_UARTIMSC_TXIM)
		fTXFE  = uint32(rp.UART0_UARTFR_TXFE)
		mTXMIS = uint32(rp.UART0_UARTMIS_TXMIS)
	)

	sent := 0
	if !uart.Bus.UARTIMSC.HasBits(bTXIM) {
		sent = uart.tryWriteHW(p)
		uart.Bus.UARTIMSC.SetBits(bTXIM)
	} else if uart.Bus.UARTFR.HasBits(fTXFE) && !uart.Bus.UARTMIS.HasBits(mTXMIS) {
		uart.Bus.UARTIMSC.ClearBits(bTXIM)
		sent = uart.tryWriteHW(p)
		uart.Bus.UARTIMSC.SetBits(bTXIM)
	}

	if sent < len(p) {
		sent += uart.enqueueTX(p[sent:])
		uart.Bus.UARTIMSC.SetBits(bTXIM)
	}
	return sent
}

// txFifoEmpty reports TXFE. PL011 does not interrupt on TXFE alone.
func (uart *UART) txFifoEmpty() bool {
	return uart.Bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFE)
}

// txLineIdle reports FR.BUSY==0 (shifter idle). Polled only.
func (uart *UART) txLineIdle() bool {
	return !uart.Bus.UARTFR.HasBits(rp.UART0_UARTFR_BUSY)
}

// tryWriteHW pushes into the HW FIFO until TXFF.
func (uart *UART) tryWriteHW(p []byte) int {
	i := 0
	for i < len(p) && !uart.Bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF) {
		uart.Bus.UARTDR.Set(uint32(p[i]))
		i++
	}
	return i
}

// enqueueTX inserts into the software TX ring until full.
func (uart *UART) enqueueTX(p []byte) int {
	i := 0
	for i < len(p) && uart.TxBuffer.Put(p[i]) {
		i++
	}
	return i
}

// --- ISR ---

// handleInterrupt services RX level/timeout and TX level interrupts.
//
// RX: drain DR until RXFE. Bytes carrying OE/BE/PE/FE are dropped and their
// flags latched for the next blocking receive. Then clear RXIC/RTIC and the
// sticky RSR errors and coalesce a Readable() wake.
//
// TX: while !TXFF, move SW->HW; coalesce a Writable() wake; when SW is empty
// and TXFE, coalesce a final "drained" wake and mask TXIM; clear TXIC.
func (uart *UART) handleInterrupt(interrupt.Interrupt) {
	mis := uart.Bus.UARTMIS.Get()

	if mis&(rp.UART0_UARTMIS_RXMIS|rp.UART0_UARTMIS_RTMIS) != 0 {
		for !uart.Bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) {
			r := uart.Bus.UARTDR.Get()
			if e := drLineError(r); e != 0 {
				uart.latch(e)
				continue
			}
			uart.Receive(byte(r & 0xFF))
		}
		uart.Bus.UARTICR.Set(rp.UART0_UARTICR_RXIC | rp.UART0_UARTICR_RTIC)
		uart.Bus.UARTRSR.Set(0)

		select {
		case uart.notify <- struct{}{}:
		default:
		}
	}

	if mis&rp.UART0_UARTMIS_TXMIS != 0 {
		for !uart.Bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF) {
			b, ok := uart.TxBuffer.Get()
			if !ok {
				break
			}
			uart.Bus.UARTDR.Set(uint32(b))
		}

		select {
		case uart.txNotify <- struct{}{}:
		default:
		}

		if uart.TxBuffer.Used() == 0 && uart.txFifoEmpty() {
			select {
			case uart.txNotify <- struct{}{}:
			default:
			}
			uart.Bus.UARTIMSC.ClearBits(rp.UART0_UARTIMSC_TXIM)
		}

		uart.Bus.UARTICR.Set(rp.UART0_UARTICR_TXIC)
	}
}

// drLineError maps the per-byte error bits of a UARTDR read.
func drLineError(dr uint32) LineError {
	var e LineError
	if dr&rp.UART0_UARTDR_OE != 0 {
		e |= LineOverrun
	}
	if dr&rp.UART0_UARTDR_BE != 0 {
		e |= LineBreak
	}
	if dr&rp.UART0_UARTDR_PE != 0 {
		e |= LineParity
	}
	if dr&rp.UART0_UARTDR_FE != 0 {
		e |= LineFraming
	}
	return e
}
