//go:build rp2040 || rp2350

package uartx

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
)

type UARTConfig = machine.UARTConfig
type UARTParity = machine.UARTParity
type Pin = machine.Pin

const (
	ParityNone = machine.ParityNone
	ParityEven = machine.ParityEven
	ParityOdd  = machine.ParityOdd

	NoPin = machine.NoPin

	// Pico default UART pins.
	UART0_TX_PIN = machine.GPIO0
	UART0_RX_PIN = machine.GPIO1
	UART1_TX_PIN = machine.GPIO8
	UART1_RX_PIN = machine.GPIO9
)

// UART on the RP2040/RP2350
var (
	UART0  = &_UART0
	_UART0 = UART{
		Bus: rp.UART0,
		// RX
		Buffer: NewRingBuffer(),
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
		// TX
		TxBuffer: NewRingBuffer(),
		txNotify: make(chan struct{}, 1),
	}

	UART1  = &_UART1
	_UART1 = UART{
		Bus: rp.UART1,
		// RX
		Buffer: NewRingBuffer(),
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
		// TX
		TxBuffer: NewRingBuffer(),
		txNotify: make(chan struct{}, 1),
	}
)

func init() {
	UART0.Interrupt = interrupt.New(rp.IRQ_UART0_IRQ, _UART0.handleInterrupt)
	UART1.Interrupt = interrupt.New(rp.IRQ_UART1_IRQ, _UART1.handleInterrupt)
}
