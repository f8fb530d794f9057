// Command uartecho-host runs the echo loop against an OS serial device, for
// exercising a link or a USB-UART adapter without a board.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
