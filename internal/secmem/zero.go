// Package secmem provides helpers for clearing secret key material from
// memory. It has no dependents outside this module.
package secmem

// Zero overwrites buf with zero bytes in place. The loop form (rather than
// a single-call clear) is used so the compiler cannot recognize the buffer
// as dead and elide the write; callers must still treat Go's GC-managed
// memory as best-effort zeroization, not a hard guarantee.
func Zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// ZeroAll zeroes every buffer passed in, skipping nil slices.
func ZeroAll(bufs ...[]byte) {
	for _, b := range bufs {
		if b != nil {
			Zero(b)
		}
	}
}
