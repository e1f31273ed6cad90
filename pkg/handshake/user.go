package handshake

import (
	"context"

	"github.com/google/uuid"

	"github.com/Tbaut/manta-signer/internal/observability"
	"github.com/Tbaut/manta-signer/pkg/authorizer"
	"github.com/Tbaut/manta-signer/pkg/config"
	"github.com/Tbaut/manta-signer/pkg/secret"
)

// UserConfig configures a User.
type UserConfig[P any] struct {
	// Emitter pushes prompts to the front-end, nil disables pushing.
	Emitter Emitter[P]

	// ResourceDirectory holds proving keys staged by Setup, "" disables staging.
	ResourceDirectory string
}

// User is the Authorizer a signing service uses to reach the operator through an armed Store.
//
// A User is driven by a single signing service loop. It is not safe for concurrent use.
type User[P, M, E any] struct {
	ch        Channel
	emitter   Emitter[P]
	resources string

	// waiting is true while a known password returned by Password awaits its verdict.
	waiting bool
	round   uuid.UUID
}

// NewUser returns a User reading passwords from ch.
func NewUser[P, M, E any](ch Channel, cfg UserConfig[P]) *User[P, M, E] {
	return &User[P, M, E]{
		ch:        ch,
		emitter:   cfg.Emitter,
		resources: cfg.ResourceDirectory,
	}
}

// Password blocks until the front-end submits a password or cancels.
//
// If the previous call returned a known password and the round is still open, that password
// was rejected: Password first tells the front-end to prompt again. Password fails with
// ErrorClosed when the Store is disarmed.
func (self *User[P, M, E]) Password(ctx context.Context) (*secret.Password, error) {
	if self.waiting {
		err := self.sendVerdict(ctx, true)
		if nil != err {
			return nil, wrapError(err, "failed requesting password retry")
		}
	}

	if self.detached() {
		return nil, wrapError(ErrorClosed, "front-end detached")
	}
	var pw *secret.Password
	select {
	case pw = <-self.ch.password:
	case <-self.ch.done:
		return nil, wrapError(ErrorClosed, "front-end detached")
	case <-ctx.Done():
		return nil, wrapError(ctx.Err(), "failed waiting password")
	}
	self.waiting = pw.IsKnown()

	return pw, nil
}

// Setup stages the proving keys found in the User resource directory.
func (self *User[P, M, E]) Setup(ctx context.Context, cfg config.Config) error {
	return StageResources(ctx, self.resources, cfg.ProvingKeyDirectory)
}

// Wake opens a round and pushes prompt to the front-end.
func (self *User[P, M, E]) Wake(ctx context.Context, prompt P) error {
	self.round = uuid.New()
	observability.GetObservability(ctx).Log().Info("authorization requested", "round", self.round)

	if nil == self.emitter {
		return nil
	}
	err := self.emitter.Emit(ctx, Event[P]{Tag: EventAuthorize, Round: self.round, Prompt: prompt})

	return wrapError(err, "failed pushing prompt")
}

// Sleep closes the round, releasing the front-end submission parked on its verdict.
// The verdict sent to the front-end does not depend on result.
func (self *User[P, M, E]) Sleep(ctx context.Context, result authorizer.Result[M, E]) error {
	self.waiting = false
	err := self.sendVerdict(ctx, false)
	if nil != err {
		return wrapError(err, "failed closing round")
	}
	observability.GetObservability(ctx).Log().Info(
		"authorization round closed",
		"round", self.round,
		"ok", result.IsOk(),
	)

	return nil
}

func (self *User[P, M, E]) sendVerdict(ctx context.Context, retry bool) error {
	if self.detached() {
		return wrapError(ErrorClosed, "front-end detached")
	}
	select {
	case self.ch.retry <- retry:
		return nil
	case <-self.ch.done:
		return wrapError(ErrorClosed, "front-end detached")
	case <-ctx.Done():
		return wrapError(ctx.Err(), "failed sending verdict")
	}
}

// detached returns true once the Store pair of self has been disarmed.
func (self *User[P, M, E]) detached() bool {
	select {
	case <-self.ch.done:
		return true
	default:
		return false
	}
}

var _ authorizer.Authorizer[string, struct{}, struct{}] = &User[string, struct{}, struct{}]{}
