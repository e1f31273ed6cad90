package handshake

import (
	"context"

	"github.com/google/uuid"

	"github.com/Tbaut/manta-signer/internal/transport"
)

const (
	// EventAuthorize is pushed by Wake when a password is wanted.
	EventAuthorize = "authorize"
)

// Event is pushed to the front-end. It never carries secret material.
type Event[P any] struct {
	Tag    string    `json:"tag" cbor:"1,keyasint"`
	Round  uuid.UUID `json:"round" cbor:"2,keyasint"`
	Prompt P         `json:"prompt" cbor:"3,keyasint"`
}

// Check implements transport.Checker.
func (self Event[P]) Check() error {
	if "" == self.Tag {
		return newError("empty Event Tag")
	}
	if uuid.Nil == self.Round {
		return newError("nil Event Round")
	}
	return nil
}

// Emitter pushes Events to the front-end. Emit must not wait for the operator.
type Emitter[P any] interface {
	Emit(ctx context.Context, evt Event[P]) error
}

// EmitterFunc is an adapter that allows using ordinary functions as Emitter.
type EmitterFunc[P any] func(ctx context.Context, evt Event[P]) error

func (self EmitterFunc[P]) Emit(ctx context.Context, evt Event[P]) error {
	return self(ctx, evt)
}

// TransportEmitter writes Events as messages on a Transport.
type TransportEmitter[P any] struct {
	T transport.MessageTransport
}

// NewTransportEmitter returns a TransportEmitter writing Events serialized by s to t.
func NewTransportEmitter[P any](t transport.Transport, s transport.Serializer) TransportEmitter[P] {
	return TransportEmitter[P]{T: transport.MessageTransport{Transport: t, S: s}}
}

func (self TransportEmitter[P]) Emit(ctx context.Context, evt Event[P]) error {
	return wrapError(self.T.WriteMessage(evt), "failed writing %s event", evt.Tag)
}

var _ Emitter[string] = TransportEmitter[string]{}
