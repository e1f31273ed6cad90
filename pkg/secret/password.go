// Package secret holds operator passwords.
//
// A Password is either known, carrying the bytes typed by the operator, or unknown, meaning the
// operator withdrew. Presence is stored as a constant-time Choice and the contents can only be
// extracted once, through IntoKnown. Password never exposes equality, ordering, hashing or
// printing of its bytes.
package secret

import (
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"runtime"
)

// UnknownCapacity is the buffer capacity reserved by Unknown passwords.
const UnknownCapacity = 64

// redacted replaces secret contents wherever a Password would be printed or logged.
const redacted = "secret.Password(REDACTED)"

// Choice is a constant-time boolean, 1 means true and 0 means false.
type Choice uint8

const (
	False = Choice(0)
	True  = Choice(1)
)

// Password is an operator password whose presence is tested in constant time.
//
// Password buffers are zeroed by Clear, by IntoKnown when the password is unknown, and by a
// runtime cleanup when an unconsumed Password becomes unreachable.
type Password struct {
	known Choice
	cell  *bytesCell
}

// New returns a Password holding password, known if known is True.
// New takes ownership of password.
func New(password []byte, known Choice) *Password {
	self := &Password{
		known: Choice(subtle.ConstantTimeSelect(int(known&1), 1, 0)),
		cell:  &bytesCell{b: password},
	}
	runtime.AddCleanup(self, cleanupCell, self.cell)

	return self
}

// FromKnown returns a known Password holding password.
// FromKnown takes ownership of password.
func FromKnown(password []byte) *Password {
	return New(password, True)
}

// Unknown returns a Password that signals the operator has no password to give.
//
// Its buffer is empty but reserves UnknownCapacity bytes, like a cleared short password.
func Unknown() *Password {
	return New(make([]byte, 0, UnknownCapacity), False)
}

// IsKnown returns true if self holds an operator password.
// It never inspects the password bytes.
func (self *Password) IsKnown() bool {
	if nil == self {
		return false
	}
	return 1 == subtle.ConstantTimeByteEq(uint8(self.known), uint8(True))
}

// IntoKnown returns the password bytes and true if self is known.
//
// IntoKnown consumes self: afterwards self is unknown and empty. The caller owns the returned
// bytes and should Zero them once verified.
func (self *Password) IntoKnown() ([]byte, bool) {
	b, known := self.take()
	if 0 == known {
		Zero(b)
		return nil, false
	}
	return b, true
}

// Clear zeroes the password buffer and marks self unknown.
func (self *Password) Clear() {
	if nil == self || nil == self.cell {
		return
	}
	self.known = False
	self.cell.zero()
}

// take detaches the buffer from self without branching on presence.
func (self *Password) take() ([]byte, Choice) {
	if nil == self || nil == self.cell {
		return nil, False
	}
	b, known := self.cell.b, self.known
	self.cell.b = nil
	self.known = False

	return b, known
}

// String implements fmt.Stringer without revealing the password.
func (self *Password) String() string {
	return redacted
}

// GoString implements fmt.GoStringer without revealing the password.
func (self *Password) GoString() string {
	return redacted
}

// Format implements fmt.Formatter, every verb prints the redaction marker.
func (self *Password) Format(f fmt.State, verb rune) {
	io.WriteString(f, redacted)
}

// LogValue implements slog.LogValuer without revealing the password.
func (self *Password) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalJSON always errors, a Password is never serialized.
func (self *Password) MarshalJSON() ([]byte, error) {
	return nil, wrapError(ErrorNoMarshal, "refusing to marshal Password to JSON")
}

// MarshalText always errors, a Password is never serialized.
func (self *Password) MarshalText() ([]byte, error) {
	return nil, wrapError(ErrorNoMarshal, "refusing to marshal Password to text")
}

// MarshalBinary always errors, a Password is never serialized.
func (self *Password) MarshalBinary() ([]byte, error) {
	return nil, wrapError(ErrorNoMarshal, "refusing to marshal Password to binary")
}

var _ slog.LogValuer = &Password{}
var _ fmt.Formatter = &Password{}
