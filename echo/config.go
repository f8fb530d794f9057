package echo

// Serial line rates, in bits per second.
const (
	DefaultBaudRate uint32 = 115200
	MinBaudRate     uint32 = 9600
	MaxBaudRate     uint32 = 921600
)

// ClampBaudRate limits br to [MinBaudRate, MaxBaudRate].
func ClampBaudRate(br uint32) uint32 {
	switch {
	case br < MinBaudRate:
		return MinBaudRate
	case br > MaxBaudRate:
		return MaxBaudRate
	}
	return br
}
