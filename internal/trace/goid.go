package trace

import "runtime"

// GoroutineID returns the ID of the calling goroutine, parsed from the
// "goroutine N [" header of its stack trace. It returns 0 if the header
// cannot be parsed.
func GoroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]

	const prefix = "goroutine "
	if len(b) < len(prefix) || string(b[:len(prefix)]) != prefix {
		return 0
	}
	var id uint64
	for _, c := range b[len(prefix):] {
		if c == ' ' {
			return id
		}
		if c < '0' || c > '9' {
			return 0
		}
		id = id*10 + uint64(c-'0')
	}
	return 0
}
