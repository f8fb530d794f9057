package echo

// CharToEcho maps a received byte to the byte sent back. Echo is a literal
// pass-through; this is the hook for a custom echo transformation.
func CharToEcho(b byte) byte {
	return b
}
