//go:build !rp2040 && !rp2350

package echo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangala-dev/tinygo-uartecho/echo"
	"github.com/jangala-dev/tinygo-uartecho/uartx"
)

// startEcho runs the loop against a host UART until the test ends.
func startEcho(t *testing.T) (*uartx.UART, *echo.Controller) {
	t.Helper()
	u := uartx.NewUART()
	require.NoError(t, u.Configure(uartx.UARTConfig{BaudRate: echo.DefaultBaudRate}))

	c := echo.NewController()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- echo.Run(ctx, u, c) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Error("echo loop did not stop")
		}
	})
	return u, c
}

func waitSent(t *testing.T, u *uartx.UART, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(u.Sent()) >= n },
		time.Second, time.Millisecond, "waiting for %d echoed bytes", n)
}

func TestEcho_UppercaseA(t *testing.T) {
	u, _ := startEcho(t)
	u.Receive(0x41)
	waitSent(t, u, 1)
	assert.Equal(t, []byte{0x41}, u.Sent())
}

func TestEcho_NulByte(t *testing.T) {
	u, _ := startEcho(t)
	u.Receive(0x00)
	waitSent(t, u, 1)
	assert.Equal(t, []byte{0x00}, u.Sent())
}

func TestEcho_RecoversAfterLineError(t *testing.T) {
	u, c := startEcho(t)

	u.InjectLineError(uartx.LineFraming)
	u.Receive(0x5A)
	waitSent(t, u, 1)

	assert.Equal(t, []byte{0x5A}, u.Sent())
	assert.Equal(t, uint64(1), c.EchoCount())
}

func TestEcho_ContinuesAfterWriteFailure(t *testing.T) {
	u, c := startEcho(t)

	u.FailWrites(errors.New("tx fault"))
	u.Receive('a')
	require.Eventually(t, func() bool { return u.TxAttempts() == 1 },
		time.Second, time.Millisecond)
	assert.Empty(t, u.Sent())
	assert.Equal(t, uint64(1), c.EchoCount())

	u.FailWrites(nil)
	u.Receive('b')
	waitSent(t, u, 1)
	assert.Equal(t, []byte("b"), u.Sent())
}

func TestEcho_AllByteValuesInOrder(t *testing.T) {
	u, _ := startEcho(t)

	want := make([]byte, 0, 256)
	for i := 0; i < 256; i++ {
		u.Receive(byte(i))
		want = append(want, byte(i))
		waitSent(t, u, len(want))
	}
	assert.Equal(t, want, u.Sent())
}
