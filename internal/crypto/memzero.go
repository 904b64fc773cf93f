package crypto

import (
	"crypto/subtle"
	"runtime"
)

// Wipe zeroes b. It is best-effort: copies the runtime made are not reached.
//
//go:noinline
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(&b)
}
