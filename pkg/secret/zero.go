package secret

import (
	"crypto/subtle"
	"runtime"
	"sync/atomic"
)

// Zero overwrites b with zeros up to its capacity.
func Zero(b []byte) {
	if 0 == cap(b) {
		return
	}
	full := b[:cap(b)]
	subtle.ConstantTimeCopy(1, full, make([]byte, len(full)))
	runtime.KeepAlive(full)
}

// bytesCell holds the buffer of a Password.
// It is the argument of the Password runtime cleanup, so it never references its Password.
type bytesCell struct {
	b []byte
}

func (self *bytesCell) zero() {
	Zero(self.b)
	self.b = self.b[:0]
}

// cleanupHook, when set, is called with each cell zeroed by a Password runtime cleanup.
var cleanupHook atomic.Pointer[func(*bytesCell)]

func cleanupCell(cell *bytesCell) {
	cell.zero()
	if hook := cleanupHook.Load(); nil != hook {
		(*hook)(cell)
	}
}
