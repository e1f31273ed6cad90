package authorizer

import (
	"context"

	"github.com/Tbaut/manta-signer/internal/observability"
	"github.com/Tbaut/manta-signer/pkg/secret"
)

// Checker verifies operator passwords against the account.
// Check consumes password.
type Checker interface {
	Check(password *secret.Password) bool
}

// CheckerFunc is an adapter that allows using ordinary functions as Checker.
type CheckerFunc func(password *secret.Password) bool

func (self CheckerFunc) Check(password *secret.Password) bool {
	return self(password)
}

var _ Checker = &secret.Argon2Checker{}

// Authorize runs one authorization round of a for prompt.
//
// It wakes a, then requests passwords until checker accepts one, closing the round with
// Success, or until the front-end sends an unknown password, closing the round with Failure.
// Rejected passwords are retried without limit. Authorize returns true if a password was
// accepted. It errors without closing the round if a can not be reached.
func Authorize[P, M, E any](ctx context.Context, a Authorizer[P, M, E], prompt P, checker Checker) (bool, error) {
	log := observability.GetObservability(ctx).Log()

	err := a.Wake(ctx, prompt)
	if nil != err {
		return false, wrapError(err, "failed Wake")
	}

	for attempt := 1; ; attempt++ {
		password, err := a.Password(ctx)
		if nil != err {
			return false, wrapError(err, "failed Password, attempt %d", attempt)
		}
		if !password.IsKnown() {
			log.Debug("authorization withdrawn", "attempt", attempt)
			var failure E
			return false, wrapError(Failure(ctx, a, failure), "failed Failure")
		}
		accepted := checker.Check(password)
		password.Clear()
		if accepted {
			log.Debug("authorization granted", "attempt", attempt)
			var message M
			return true, wrapError(Success(ctx, a, message), "failed Success")
		}
		log.Debug("password rejected", "attempt", attempt)
	}
}
