//go:build rp2040 || rp2350

// Command uartecho is the board firmware: every byte received on UART0
// (TX=GP0, RX=GP1) is written straight back.
package main

import (
	"context"
	"time"

	"github.com/jangala-dev/tinygo-uartecho/echo"
	"github.com/jangala-dev/tinygo-uartecho/uartx"
)

func main() {
	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{
		BaudRate: echo.DefaultBaudRate,
		TX:       uartx.UART0_TX_PIN,
		RX:       uartx.UART0_RX_PIN,
	}); err != nil {
		println("uart0 configure error:", err.Error())
		halt()
	}

	ctrl := echo.NewControllerWithBaudRate(echo.DefaultBaudRate)
	_ = echo.Run(context.Background(), u, ctrl)
	halt()
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
