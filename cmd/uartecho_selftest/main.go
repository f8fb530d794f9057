//go:build rp2040 || rp2350

// Command uartecho_selftest checks the echo firmware on one board. The echo
// loop runs on UART0 while UART1 plays the remote sender. Wire GP8 -> GP1
// and GP0 -> GP9 before flashing.
package main

import (
	"context"
	"crypto/sha1"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-uartecho/echo"
	"github.com/jangala-dev/tinygo-uartecho/uartx"
)

var (
	dut  = uartx.UART0
	peer = uartx.UART1
)

func drain(u *uartx.UART) {
	var tmp [64]byte
	for u.TryRead(tmp[:]) > 0 {
	}
}

// sendAllContext writes p using TryWrite+Writable with a context timeout.
// It waits for TX ring space before offering more than the FIFO can take.
func sendAllContext(ctx context.Context, u *uartx.UART, p []byte) (int, error) {
	sent := 0
	for sent < len(p) {
		if u.TxFree() > 0 {
			if n := u.TryWrite(p[sent:]); n > 0 {
				sent += n
				continue
			}
		}
		select {
		case <-u.Writable():
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
	return sent, nil
}

// recvExact reads exactly n bytes (or ctx error) using TryRead+Readable.
func recvExact(ctx context.Context, u *uartx.UART, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	var buf [128]byte
	for len(out) < n {
		want := n - len(out)
		if want > len(buf) {
			want = len(buf)
		}
		if k := u.TryRead(buf[:want]); k > 0 {
			out = append(out, buf[:k]...)
			continue
		}
		select {
		case <-u.Readable():
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, nil
}

// roundTrip sends p from the peer and waits for the same number of echoed bytes.
func roundTrip(p []byte, d time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	go func() { _, _ = sendAllContext(ctx, peer, p) }()
	return recvExact(ctx, peer, len(p))
}

func ledBlink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}

func main() {
	// Give the monitor time to attach.
	time.Sleep(3 * time.Second)
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	println("uartecho self-test starting")

	if err := dut.Configure(uartx.UARTConfig{
		BaudRate: echo.DefaultBaudRate,
		TX:       uartx.UART0_TX_PIN,
		RX:       uartx.UART0_RX_PIN,
	}); err != nil {
		println("uart0 configure failed:", err.Error())
		halt()
	}
	if err := peer.Configure(uartx.UARTConfig{
		BaudRate: echo.DefaultBaudRate,
		TX:       uartx.UART1_TX_PIN,
		RX:       uartx.UART1_RX_PIN,
	}); err != nil {
		println("uart1 configure failed:", err.Error())
		halt()
	}

	ctrl := echo.NewController()
	go echo.Run(context.Background(), dut, ctrl)

	drain(peer)

	pass, fail := 0, 0
	run := func(name string, f func() string) {
		println("")
		println("[Test]", name)
		if msg := f(); msg == "" {
			println("  PASS")
			pass++
		} else {
			println("  FAIL:", msg)
			fail++
		}
	}

	single := func(b byte) func() string {
		return func() string {
			drain(peer)
			got, err := roundTrip([]byte{b}, 500*time.Millisecond)
			if err != nil {
				return "timeout"
			}
			if got[0] != b {
				return "wrong byte"
			}
			return ""
		}
	}

	run("echo 'A'", single(0x41))
	run("echo NUL", single(0x00))

	run("line fault then 0x5A", func() string {
		drain(peer)
		before := ctrl.EchoCount()

		// A break on the wire (TX held low at a tenth of the rate) reads as
		// framing/break errors on UART0.
		peer.SetBaudRate(echo.DefaultBaudRate / 10)
		_ = peer.WriteByte(0x00)
		_ = peer.Flush()
		peer.SetBaudRate(echo.DefaultBaudRate)
		time.Sleep(20 * time.Millisecond)

		var stray [8]byte
		n := peer.TryRead(stray[:])
		for _, b := range stray[:n] {
			if b == 0x00 {
				return "slow byte echoed cleanly; no fault seen"
			}
		}
		if ctrl.EchoCount() != before {
			return "faulted byte reached the controller"
		}

		got, err := roundTrip([]byte{0x5A}, 500*time.Millisecond)
		if err != nil {
			return "timeout after fault"
		}
		if got[0] != 0x5A {
			return "wrong byte after fault"
		}
		if ctrl.EchoCount()-before != 1 {
			return "fault produced extra echoes"
		}
		return ""
	})

	run("all byte values in order", func() string {
		drain(peer)
		src := make([]byte, 256)
		for i := range src {
			src[i] = byte(i)
		}
		got, err := roundTrip(src, 2*time.Second)
		if err != nil {
			return "timeout/short read"
		}
		for i := range src {
			if got[i] != src[i] {
				return "mismatch at " + itoa(i)
			}
		}
		return ""
	})

	run("binary: 4 KiB integrity (SHA-1)", func() string {
		drain(peer)
		n := 4 * 1024
		src := make([]byte, n)
		var x uint32 = 0x12345678
		for i := range src {
			x = 1664525*x + 1013904223
			src[i] = byte(x >> 24)
		}
		got, err := roundTrip(src, 3*time.Second)
		if err != nil || len(got) != n {
			return "timeout/short read"
		}
		if sha1.Sum(got) != sha1.Sum(src) {
			return "hash mismatch"
		}
		return ""
	})

	println("")
	println("Summary")
	println("  passed =", pass)
	println("  failed =", fail)
	println("  echoed =", itoa(int(ctrl.EchoCount())))
	if fail == 0 {
		ledBlink(3, 120*time.Millisecond)
		halt()
	}
	for {
		ledBlink(1, 600*time.Millisecond)
		time.Sleep(800 * time.Millisecond)
	}
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}

// --- tiny helpers (no fmt) ---

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	return string(buf[i:])
}
