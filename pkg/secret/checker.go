package secret

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const minSaltSize = 16

// Argon2Params configures the argon2id key derivation of an Argon2Checker.
type Argon2Params struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"` // KiB
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"keylen"`
}

// DefaultArgon2Params are interactive login parameters.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
}

// Check errors if self can not be used for key derivation.
func (self Argon2Params) Check() error {
	switch {
	case 0 == self.Time:
		return wrapError(ErrorParameters, "Time must be positive")
	case 0 == self.Threads:
		return wrapError(ErrorParameters, "Threads must be positive")
	case self.Memory < 8*uint32(self.Threads):
		return wrapError(ErrorParameters, "Memory %d KiB below 8 KiB per thread", self.Memory)
	case self.KeyLen < 16:
		return wrapError(ErrorParameters, "KeyLen %d below 16", self.KeyLen)
	}
	return nil
}

// Argon2Checker verifies operator passwords against an argon2id derived key.
type Argon2Checker struct {
	Params Argon2Params `json:"params"`
	Salt   []byte       `json:"salt"`
	Key    []byte       `json:"key"`
}

// NewArgon2Checker returns an Argon2Checker accepting password.
// password is consumed and zeroed. It errors if password is unknown or params are invalid.
func NewArgon2Checker(password *Password, params Argon2Params) (*Argon2Checker, error) {
	b, known := password.IntoKnown()
	defer Zero(b)
	if !known {
		return nil, newError("can not derive a key from an unknown password")
	}
	err := params.Check()
	if nil != err {
		return nil, err
	}

	salt := make([]byte, 32)
	rand.Read(salt) // never errors according to crypto/rand doc

	rv := &Argon2Checker{Params: params, Salt: salt}
	rv.Key = rv.derive(b)

	return rv, nil
}

// Check returns true if password is known and matches self Key.
//
// password is consumed and zeroed. The key derivation runs whether password is known or not.
func (self *Argon2Checker) Check(password *Password) bool {
	b, known := password.take()
	defer Zero(b)
	if nil != self.Params.Check() || len(self.Salt) < minSaltSize {
		return false
	}

	key := self.derive(b)
	defer Zero(key)
	match := subtle.ConstantTimeCompare(key, self.Key)

	return 1 == (match & int(known))
}

func (self *Argon2Checker) derive(b []byte) []byte {
	p := self.Params
	return argon2.IDKey(b, self.Salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}
