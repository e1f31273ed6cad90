// Package setup decides how the signer bootstraps from the presence of its account file.
package setup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Tbaut/manta-signer/internal/observability"
)

// Phase is the bootstrap decision taken from the account file.
type Phase int

const (
	PhaseUnknown Phase = iota
	Login
	CreateAccount
)

var phaseNames = [...]string{
	PhaseUnknown:  "unknown",
	Login:         "login",
	CreateAccount: "create-account",
}

func (self Phase) String() string {
	if self < 0 || int(self) >= len(phaseNames) {
		return phaseNames[PhaseUnknown]
	}
	return phaseNames[self]
}

// MarshalText encodes self as its kebab case name.
func (self Phase) MarshalText() ([]byte, error) {
	return []byte(self.String()), nil
}

// UnmarshalText decodes a kebab case phase name.
func (self *Phase) UnmarshalText(text []byte) error {
	for pos, name := range phaseNames {
		if name == string(text) {
			*self = Phase(pos)
			return nil
		}
	}
	return newError("unknown phase %q", text)
}

// Setup is the result of Resolve.
// Mnemonic is only set when Phase is CreateAccount.
type Setup struct {
	Phase    Phase
	Mnemonic *Mnemonic
}

// Inspect returns the Phase implied by the file at dataPath without side effects.
//
// It returns Login if dataPath is a regular file and CreateAccount if nothing exists at
// dataPath. It errors with ErrorInvalidFormat if dataPath is occupied by something else,
// including dangling or looping symlinks, and with ErrorIO if dataPath can not be inspected.
func Inspect(dataPath string) (Phase, error) {
	info, err := os.Stat(dataPath)
	switch {
	case nil == err && info.Mode().IsRegular():
		return Login, nil
	case nil == err:
		return PhaseUnknown, wrapError(
			ErrorInvalidFormat,
			"%s is not a regular file, mode %s", dataPath, info.Mode().Type(),
		)
	}

	linfo, lerr := os.Lstat(dataPath)
	if nil == lerr {
		// the slot is taken by an unusable symlink
		return PhaseUnknown, wrapError(
			ErrorInvalidFormat,
			"%s is not a regular file, mode %s", dataPath, linfo.Mode().Type(),
		)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return CreateAccount, nil
	}

	return PhaseUnknown, flagError(ErrorIO, err, "failed stat %s", dataPath)
}

// Resolve returns the Setup for dataPath.
//
// When the account file does not exist, Resolve creates its directory and returns a
// CreateAccount Setup holding a Mnemonic drawn from gen. A nil gen uses Bip39{}.
func Resolve(ctx context.Context, dataPath string, gen Generator) (Setup, error) {
	log := observability.GetObservability(ctx).Log()

	phase, err := Inspect(dataPath)
	if nil != err {
		return Setup{}, err
	}
	if Login == phase {
		log.Debug("account file found", "path", dataPath, "phase", phase)
		return Setup{Phase: Login}, nil
	}

	dir := filepath.Dir(dataPath)
	err = os.MkdirAll(dir, 0700)
	if nil != err {
		return Setup{}, flagError(ErrorIO, err, "failed creating %s", dir)
	}

	if nil == gen {
		gen = Bip39{}
	}
	mnemonic, err := gen.Generate()
	if nil != err {
		return Setup{}, wrapError(err, "failed generating mnemonic")
	}
	log.Info("account file missing", "path", dataPath, "phase", phase)

	return Setup{Phase: CreateAccount, Mnemonic: mnemonic}, nil
}
