// Package handshake hands operator passwords from a front-end to a signing service.
//
// A Store is shared by the front-end and the signing service. Arming the Store creates a
// channel pair: a single slot password channel going to the service and a single slot verdict
// channel coming back, telling the front-end whether to prompt again. The service reads
// passwords through a User, the Authorizer implementation bound to the armed pair.
//
// The Store mutex only guards arming and disarming, passwords and verdicts go through the
// channels without holding it.
package handshake

import (
	"context"
	"sync"

	"github.com/Tbaut/manta-signer/internal/observability"
	"github.com/Tbaut/manta-signer/pkg/secret"
)

// pair is the set of channels created by one Store Arm.
type pair struct {
	password chan *secret.Password // front-end to service, capacity 1
	retry    chan bool             // service to front-end, capacity 1
	turn     chan struct{}         // producer token, holds a value when free
	done     chan struct{}         // closed on disarm
}

func newPair() *pair {
	p := &pair{
		password: make(chan *secret.Password, 1),
		retry:    make(chan bool, 1),
		turn:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	p.turn <- struct{}{}

	return p
}

// close releases parties blocked on p and zeroes any password left in the slot.
// It must be called once, by whoever removed p from its Store.
func (self *pair) close() {
	if nil == self {
		return
	}
	close(self.done)
	self.drain()
}

// drain zeroes the password left in the slot if any.
func (self *pair) drain() {
	for {
		select {
		case pw := <-self.password:
			pw.Clear()
		default:
			return
		}
	}
}

// acquire takes the producer turn.
//
// A verdict buffered when the turn is taken was sent for a submission that nobody awaits,
// acquire discards it so that the new submission only observes its own verdicts.
func (self *pair) acquire(ctx context.Context) error {
	err := self.check(ctx)
	if nil != err {
		return err
	}
	select {
	case <-self.turn:
	case <-self.done:
		return wrapError(ErrorClosed, "store disarmed")
	case <-ctx.Done():
		return wrapError(ctx.Err(), "failed waiting producer turn")
	}
	err = self.check(ctx)
	if nil != err {
		self.release()
		return err
	}
	select {
	case <-self.retry:
	default:
	}

	return nil
}

// check errors if self was disarmed or ctx is done.
func (self *pair) check(ctx context.Context) error {
	select {
	case <-self.done:
		return wrapError(ErrorClosed, "store disarmed")
	default:
	}
	return wrapError(ctx.Err(), "producer context done")
}

func (self *pair) release() {
	self.turn <- struct{}{}
}

// send puts pw in the password slot, blocking while the slot is occupied.
// pw is zeroed if it could not be sent or if self was disarmed while sending it.
func (self *pair) send(ctx context.Context, pw *secret.Password) error {
	select {
	case self.password <- pw:
		select {
		case <-self.done:
			// close may have drained the slot before pw landed in it
			self.drain()
			return wrapError(ErrorClosed, "store disarmed")
		default:
			return nil
		}
	case <-self.done:
		pw.Clear()
		return wrapError(ErrorClosed, "store disarmed")
	case <-ctx.Done():
		pw.Clear()
		return wrapError(ctx.Err(), "failed sending password")
	}
}

func (self *pair) verdict(ctx context.Context) (bool, error) {
	select {
	case retry := <-self.retry:
		return retry, nil
	case <-self.done:
		return false, wrapError(ErrorClosed, "store disarmed")
	case <-ctx.Done():
		return false, wrapError(ctx.Err(), "failed waiting verdict")
	}
}

// Channel is the signing service end of an armed Store.
type Channel struct {
	password <-chan *secret.Password
	retry    chan<- bool
	done     <-chan struct{}
}

// Store is the front-end end of the password handshake.
// The zero Store is disarmed and ready to use. Store must not be copied after first use.
type Store struct {
	mut     sync.Mutex
	current *pair
}

// NewStore returns a disarmed Store.
func NewStore() *Store {
	return &Store{}
}

// Arm creates a new channel pair and returns its service end.
// If self was already armed, the previous pair is disarmed first.
func (self *Store) Arm(ctx context.Context) Channel {
	p := newPair()

	self.mut.Lock()
	old := self.current
	self.current = p
	self.mut.Unlock()

	if nil != old {
		observability.GetObservability(ctx).Log().Warn("password store re-armed, previous service detached")
		old.close()
	}
	observability.GetObservability(ctx).Log().Debug("password store armed")

	return Channel{password: p.password, retry: p.retry, done: p.done}
}

// Disarm detaches the armed pair if any.
//
// Pending Submit calls return false and blocked User calls fail with ErrorClosed.
// Later submissions are ignored until the next Arm.
func (self *Store) Disarm(ctx context.Context) {
	self.mut.Lock()
	old := self.current
	self.current = nil
	self.mut.Unlock()

	if nil != old {
		old.close()
		observability.GetObservability(ctx).Log().Debug("password store disarmed")
	}
}

// Armed returns true if a channel pair is currently armed.
func (self *Store) Armed() bool {
	return nil != self.load()
}

func (self *Store) load() *pair {
	self.mut.Lock()
	defer self.mut.Unlock()

	return self.current
}

// Submit hands password to the signing service and waits for its verdict.
//
// It returns true if the service asks for another password, meaning password was rejected,
// and false if the round is closed. Submit returns false without blocking when the Store is
// not armed, and false as soon as the Store is disarmed or ctx is done.
// Submit takes ownership of password.
func (self *Store) Submit(ctx context.Context, password *secret.Password) bool {
	retry, err := self.submit(ctx, password, true)
	if nil != err {
		observability.GetObservability(ctx).Log().Debug("password submission dropped", "error", err)
	}
	return retry
}

// SubmitExact hands password to the signing service without waiting for a verdict.
//
// It is meant for passwords known to be right, such as the one chosen at account creation.
// The service still closes the round with Sleep, and that verdict stays buffered until the
// next producer call takes the turn. A Submit issued before the service closes the round
// may therefore observe this round's verdict, front-ends should wait for the next wake.
// SubmitExact takes ownership of password.
func (self *Store) SubmitExact(ctx context.Context, password *secret.Password) {
	_, err := self.submit(ctx, password, false)
	if nil != err {
		observability.GetObservability(ctx).Log().Debug("exact password submission dropped", "error", err)
	}
}

// Cancel tells the signing service that the operator withdrew the current round.
func (self *Store) Cancel(ctx context.Context) {
	_, err := self.submit(ctx, secret.Unknown(), false)
	if nil != err {
		observability.GetObservability(ctx).Log().Debug("password cancellation dropped", "error", err)
	}
}

func (self *Store) submit(ctx context.Context, password *secret.Password, await bool) (bool, error) {
	p := self.load()
	if nil == p {
		password.Clear()
		return false, wrapError(ErrorClosed, "store not armed")
	}

	err := p.acquire(ctx)
	if nil != err {
		password.Clear()
		return false, err
	}
	defer p.release()

	err = p.send(ctx, password)
	if nil != err || !await {
		return false, err
	}

	return p.verdict(ctx)
}
