//go:build !rp2040 && !rp2350

package uartx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRead_NonBlockingSemantics(t *testing.T) {
	u := NewUART()
	buf := make([]byte, 8)

	if n, err := u.Read(buf); err != nil || n != 0 {
		t.Fatalf("Read on empty: n=%d err=%v; want 0,nil", n, err)
	}

	u.Receive('A')
	u.Receive('B')
	u.Receive('C')

	n, err := u.Read(buf)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != 3 || string(buf[:n]) != "ABC" {
		t.Fatalf("got n=%d data=%q; want 3, \"ABC\"", n, string(buf[:n]))
	}

	if n, _ := u.Read(buf); n != 0 {
		t.Fatalf("expected empty after drain, got n=%d", n)
	}
	if _, err := u.ReadByte(); !errors.Is(err, ErrBufferEmpty) {
		t.Fatalf("ReadByte on empty: err=%v; want ErrBufferEmpty", err)
	}
}

func TestRecvByteContext_UnblocksOnReceive(t *testing.T) {
	u := NewUART()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var got byte
	var err error

	go func() {
		defer close(done)
		got, err = u.RecvByteContext(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	u.Receive('Z')

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for RecvByteContext")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 'Z' {
		t.Fatalf("got %q want %q", got, 'Z')
	}
}

func TestRecvByteContext_ReportsLineErrorOnce(t *testing.T) {
	u := NewUART()
	ctx := context.Background()

	u.InjectLineError(LineFraming | LineOverrun)
	u.Receive(0x5A)

	_, err := u.RecvByteContext(ctx)
	var le LineError
	if !errors.As(err, &le) {
		t.Fatalf("err=%v; want LineError", err)
	}
	if !le.Has(LineFraming) || !le.Has(LineOverrun) || le.Has(LineParity) {
		t.Fatalf("flags=%08b; want framing|overrun", uint8(le))
	}

	b, err := u.RecvByteContext(ctx)
	if err != nil {
		t.Fatalf("second receive: unexpected error %v", err)
	}
	if b != 0x5A {
		t.Fatalf("got 0x%02X want 0x5A", b)
	}
}

func TestRecvByteContext_RespectsContext(t *testing.T) {
	u := NewUART()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := u.RecvByteContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v; want DeadlineExceeded", err)
	}
}

func TestReceive_OverflowLatchesLineError(t *testing.T) {
	u := NewUART()
	for i := 0; i < 200; i++ {
		u.Receive(byte(i))
	}
	if got := u.Buffered(); got != 127 {
		t.Fatalf("Buffered=%d; want 127", got)
	}

	_, err := u.RecvByteContext(context.Background())
	var le LineError
	if !errors.As(err, &le) || !le.Has(LineOverflow) {
		t.Fatalf("err=%v; want LineOverflow", err)
	}
	b, err := u.RecvByteContext(context.Background())
	if err != nil || b != 0 {
		t.Fatalf("got 0x%02X, %v; want oldest byte 0x00", b, err)
	}
}

func TestRecvByteContext_RespectsClose(t *testing.T) {
	u := NewUART()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := u.RecvByteContext(ctx)
		done <- err
	}()

	_ = u.Close()
	_ = u.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("err=%v; want ErrClosed", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for RecvByteContext to return after close")
	}
}

func TestNonBlockingReadAfterMultipleNotifies(t *testing.T) {
	u := NewUART()
	u.tryNotify()
	u.tryNotify()
	u.tryNotify() // no data
	if n, err := u.Read(make([]byte, 4)); err != nil || n != 0 {
		t.Fatalf("Read on empty after notifies: n=%d err=%v", n, err)
	}
}

func TestWrite_RecordsAndFails(t *testing.T) {
	u := NewUART()
	if err := u.WriteByte('a'); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}

	boom := errors.New("tx fault")
	u.FailWrites(boom)
	if n, err := u.Write([]byte("bc")); !errors.Is(err, boom) || n != 0 {
		t.Fatalf("Write while failing: n=%d err=%v", n, err)
	}
	u.FailWrites(nil)
	if _, err := u.Write([]byte("d")); err != nil {
		t.Fatalf("Write after restore: %v", err)
	}

	if got := string(u.Sent()); got != "ad" {
		t.Fatalf("Sent=%q; want \"ad\"", got)
	}
}

func TestTryWrite_SignalsWritable(t *testing.T) {
	u := NewUART()
	if free := u.TxFree(); free != 127 {
		t.Fatalf("TxFree=%d; want 127", free)
	}

	if n := u.TryWrite([]byte("xy")); n != 2 {
		t.Fatalf("TryWrite n=%d; want 2", n)
	}
	select {
	case <-u.Writable():
	default:
		t.Fatal("no Writable notification after accepted write")
	}

	u.FailWrites(errors.New("tx fault"))
	if n := u.TryWrite([]byte("z")); n != 0 {
		t.Fatalf("TryWrite while failing n=%d; want 0", n)
	}
	select {
	case <-u.Writable():
		t.Fatal("Writable signalled for a rejected write")
	default:
	}

	if got := string(u.Sent()); got != "xy" {
		t.Fatalf("Sent=%q; want \"xy\"", got)
	}
}

func TestConfigure_DefaultsBaud(t *testing.T) {
	u := NewUART()
	u.Receive('x')
	if err := u.Configure(UARTConfig{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if got := u.BaudRate(); got != 115200 {
		t.Fatalf("BaudRate=%d; want 115200", got)
	}
	if got := u.Buffered(); got != 0 {
		t.Fatalf("Buffered=%d after Configure; want 0", got)
	}
}

func TestLineError_Error(t *testing.T) {
	cases := []struct {
		e    LineError
		want string
	}{
		{LineOverrun, "uart line error: overrun"},
		{LineParity | LineFraming, "uart line error: parity framing"},
		{LineBreak | LineOverflow, "uart line error: break overflow"},
		{LineError(0x80), "uart line error: unknown"},
	}
	for _, c := range cases {
		if got := c.e.Error(); got != c.want {
			t.Fatalf("%08b.Error()=%q; want %q", uint8(c.e), got, c.want)
		}
	}
}
