//go:build rp2040 || rp2350

package uartx

import "runtime/volatile"

// bufferSize is a power of two so the uint8 head/tail wrap cleanly.
const bufferSize uint8 = 128

// RingBuffer is a single-producer single-consumer byte ring shared between
// the ISR and the foreground. It follows machine.RingBuffer's API and adds
// Size and Free.
type RingBuffer struct {
	buf  [bufferSize]volatile.Register8
	head volatile.Register8
	tail volatile.Register8
}

// NewRingBuffer returns a new ring buffer.
func NewRingBuffer() *RingBuffer {
	return &RingBuffer{}
}

// Size returns the total capacity of the buffer in bytes.
func (rb *RingBuffer) Size() uint8 {
	return bufferSize
}

// Used returns how many bytes are buffered.
func (rb *RingBuffer) Used() uint8 {
	return rb.head.Get() - rb.tail.Get()
}

// Free returns how many bytes can be put before the ring is full.
func (rb *RingBuffer) Free() uint8 {
	return rb.Size() - rb.Used()
}

// Put stores a byte, returning false when the ring is full.
func (rb *RingBuffer) Put(val byte) bool {
	if rb.Free() == 0 {
		return false
	}
	h := rb.head.Get()
	rb.buf[(h+1)%bufferSize].Set(val) // write data before publishing head
	rb.head.Set(h + 1)
	return true
}

// Get returns the oldest byte, or (0, false) when empty.
func (rb *RingBuffer) Get() (byte, bool) {
	if rb.Used() == 0 {
		return 0, false
	}
	t := rb.tail.Get()
	v := rb.buf[(t+1)%bufferSize].Get() // read before publishing tail
	rb.tail.Set(t + 1)
	return v, true
}

// Clear empties the ring. Only call with the ISR quiesced.
func (rb *RingBuffer) Clear() {
	rb.head.Set(0)
	rb.tail.Set(0)
}
