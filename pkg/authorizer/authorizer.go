// Package authorizer defines the capability a signing service uses to obtain operator passwords.
//
// The signing service calls Setup once, then for each authorization need it calls Wake, calls
// Password one or more times (each call after the first meaning the previous password was
// rejected) and closes the round with exactly one of Sleep, Success or Failure. Authorizer
// implementations rely on that ordering, callers must not overlap calls on the same instance.
package authorizer

import (
	"context"

	"github.com/Tbaut/manta-signer/pkg/config"
	"github.com/Tbaut/manta-signer/pkg/secret"
)

// Authorizer connects a signing service with the front-end that reaches the operator.
//
// P is the prompt pushed by Wake, M and E are the opaque success and failure payloads of
// Sleep. Their zero values are the default payloads.
type Authorizer[P, M, E any] interface {
	// Password blocks until the front-end supplies a password or signals it has none,
	// in which case the returned Password is unknown.
	Password(ctx context.Context) (*secret.Password, error)

	// Setup runs one-time front-end preparation before the first round.
	Setup(ctx context.Context, cfg config.Config) error

	// Wake notifies the front-end that a password is wanted.
	// It does not wait for the password, which is obtained with Password.
	Wake(ctx context.Context, prompt P) error

	// Sleep ends the current round with result.
	Sleep(ctx context.Context, result Result[M, E]) error
}

// Result is the verdict carried by Sleep, either a Message or an Err payload.
type Result[M, E any] struct {
	Message M
	Err     E
	failed  bool
}

// Ok returns a successful Result carrying msg.
func Ok[M, E any](msg M) Result[M, E] {
	return Result[M, E]{Message: msg}
}

// Fail returns a failed Result carrying err.
func Fail[M, E any](err E) Result[M, E] {
	return Result[M, E]{Err: err, failed: true}
}

// IsOk returns true if self is a successful Result.
func (self Result[M, E]) IsOk() bool {
	return !self.failed
}

// Success ends the round of a with a successful Result carrying msg.
func Success[P, M, E any](ctx context.Context, a Authorizer[P, M, E], msg M) error {
	return a.Sleep(ctx, Ok[M, E](msg))
}

// Failure ends the round of a with a failed Result carrying err.
func Failure[P, M, E any](ctx context.Context, a Authorizer[P, M, E], err E) error {
	return a.Sleep(ctx, Fail[M](err))
}

// Defaults provides no-op Setup, Wake and Sleep methods.
// Embed it in a type that implements Password to obtain an Authorizer.
type Defaults[P, M, E any] struct{}

func (self Defaults[P, M, E]) Setup(ctx context.Context, cfg config.Config) error {
	return nil
}

func (self Defaults[P, M, E]) Wake(ctx context.Context, prompt P) error {
	return nil
}

func (self Defaults[P, M, E]) Sleep(ctx context.Context, result Result[M, E]) error {
	return nil
}

// Hooks is an Authorizer assembled from optional callbacks.
// A nil callback behaves like Defaults, except PasswordFunc which is mandatory.
type Hooks[P, M, E any] struct {
	PasswordFunc func(ctx context.Context) (*secret.Password, error)
	SetupFunc    func(ctx context.Context, cfg config.Config) error
	WakeFunc     func(ctx context.Context, prompt P) error
	SleepFunc    func(ctx context.Context, result Result[M, E]) error
}

func (self Hooks[P, M, E]) Password(ctx context.Context) (*secret.Password, error) {
	if nil == self.PasswordFunc {
		return nil, wrapError(ErrorNoPassword, "nil PasswordFunc")
	}
	return self.PasswordFunc(ctx)
}

func (self Hooks[P, M, E]) Setup(ctx context.Context, cfg config.Config) error {
	if nil == self.SetupFunc {
		return nil
	}
	return self.SetupFunc(ctx, cfg)
}

func (self Hooks[P, M, E]) Wake(ctx context.Context, prompt P) error {
	if nil == self.WakeFunc {
		return nil
	}
	return self.WakeFunc(ctx, prompt)
}

func (self Hooks[P, M, E]) Sleep(ctx context.Context, result Result[M, E]) error {
	if nil == self.SleepFunc {
		return nil
	}
	return self.SleepFunc(ctx, result)
}

var _ Authorizer[string, struct{}, struct{}] = Hooks[string, struct{}, struct{}]{}
