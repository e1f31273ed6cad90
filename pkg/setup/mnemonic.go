package setup

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/Tbaut/manta-signer/pkg/secret"
)

// DefaultEntropyBits gives 12 words mnemonics.
const DefaultEntropyBits = 128

// Mnemonic is a BIP-39 recovery phrase.
// Its String method never reveals the phrase, use Phrase or Words to display it to the operator.
type Mnemonic struct {
	phrase []byte
}

// ParseMnemonic returns the Mnemonic for phrase.
// It errors if phrase is not a valid BIP-39 mnemonic.
func ParseMnemonic(phrase string) (*Mnemonic, error) {
	phrase = strings.Join(strings.Fields(phrase), " ")
	if !bip39.IsMnemonicValid(phrase) {
		return nil, newError("invalid mnemonic")
	}
	return &Mnemonic{phrase: []byte(phrase)}, nil
}

// Phrase returns the space separated mnemonic words.
func (self *Mnemonic) Phrase() string {
	return string(self.phrase)
}

// Words returns the mnemonic words.
func (self *Mnemonic) Words() []string {
	return strings.Fields(string(self.phrase))
}

// Clear zeroes the mnemonic.
func (self *Mnemonic) Clear() {
	secret.Zero(self.phrase)
	self.phrase = nil
}

const redactedMnemonic = "setup.Mnemonic(REDACTED)"

func (self *Mnemonic) String() string {
	return redactedMnemonic
}

func (self *Mnemonic) GoString() string {
	return redactedMnemonic
}

// Format implements fmt.Formatter, every verb prints the redaction marker.
func (self *Mnemonic) Format(f fmt.State, verb rune) {
	io.WriteString(f, redactedMnemonic)
}

// LogValue implements slog.LogValuer.
func (self *Mnemonic) LogValue() slog.Value {
	return slog.StringValue(redactedMnemonic)
}

// MarshalJSON errors with secret.ErrorNoMarshal.
func (self *Mnemonic) MarshalJSON() ([]byte, error) {
	return nil, wrapError(secret.ErrorNoMarshal, "Mnemonic is not serializable")
}

// MarshalText errors with secret.ErrorNoMarshal.
func (self *Mnemonic) MarshalText() ([]byte, error) {
	return nil, wrapError(secret.ErrorNoMarshal, "Mnemonic is not serializable")
}

// Generator produces fresh mnemonics for account creation.
type Generator interface {
	Generate() (*Mnemonic, error)
}

// GeneratorFunc is an adapter that allows using ordinary functions as Generator.
type GeneratorFunc func() (*Mnemonic, error)

func (self GeneratorFunc) Generate() (*Mnemonic, error) {
	return self()
}

// Bip39 is a Generator that draws mnemonic entropy from crypto/rand.
type Bip39 struct {
	// EntropyBits is a multiple of 32 in [128, 256], 0 means DefaultEntropyBits.
	EntropyBits int
}

// Generate returns a new random Mnemonic.
func (self Bip39) Generate() (*Mnemonic, error) {
	bits := self.EntropyBits
	if 0 == bits {
		bits = DefaultEntropyBits
	}
	entropy, err := bip39.NewEntropy(bits)
	if nil != err {
		return nil, wrapError(err, "failed generating %d bits of entropy", bits)
	}
	defer secret.Zero(entropy)

	phrase, err := bip39.NewMnemonic(entropy)
	if nil != err {
		return nil, wrapError(err, "failed encoding entropy")
	}

	return &Mnemonic{phrase: []byte(phrase)}, nil
}

var _ Generator = Bip39{}
