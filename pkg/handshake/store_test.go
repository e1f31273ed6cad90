package handshake

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"

	"github.com/Tbaut/manta-signer/internal/observability"
	"github.com/Tbaut/manta-signer/pkg/authorizer"
	"github.com/Tbaut/manta-signer/pkg/secret"
)

type testUser = User[string, struct{}, struct{}]

var closeOk = authorizer.Ok[struct{}, struct{}](struct{}{})

func newTestUser(ch Channel) *testUser {
	return NewUser[string, struct{}, struct{}](ch, UserConfig[string]{})
}

func known(pw string) *secret.Password {
	return secret.FromKnown([]byte(pw))
}

// submitAsync runs store.Submit in a new goroutine, its verdict is sent on the returned channel.
func submitAsync(ctx context.Context, store *Store, pw string) <-chan bool {
	rc := make(chan bool, 1)
	go func() {
		rc <- store.Submit(ctx, known(pw))
	}()
	return rc
}

func expectPending(t *testing.T, rc <-chan bool, label string) {
	t.Helper()
	select {
	case retry := <-rc:
		t.Fatalf("%s: Submit returned %v, expected it to be blocked", label, retry)
	default:
	}
}

func expectVerdict(t *testing.T, rc <-chan bool, expected bool, label string) {
	t.Helper()
	select {
	case retry := <-rc:
		if retry != expected {
			t.Fatalf("%s: Submit returned %v != %v", label, retry, expected)
		}
	default:
		t.Fatalf("%s: Submit still blocked", label)
	}
}

func reveal(t *testing.T, pw *secret.Password) string {
	t.Helper()
	b, ok := pw.IntoKnown()
	if !ok {
		t.Fatal("received unknown password")
	}
	defer secret.Zero(b)
	return string(b)
}

func TestSubmitNotArmed(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		if store.Armed() {
			t.Fatal("[0]: new Store is armed")
		}

		buf := []byte("not armed")
		if store.Submit(ctx, secret.FromKnown(buf)) {
			t.Error("[1]: Submit on disarmed Store returned true")
		}
		for i, b := range buf {
			if 0 != b {
				t.Fatalf("[2]: dropped password byte #%d not zeroed", i)
			}
		}

		// must return without blocking
		store.SubmitExact(ctx, known("exact"))
		store.Cancel(ctx)

		var zero Store
		if zero.Submit(ctx, known("zero")) {
			t.Error("[3]: Submit on zero Store returned true")
		}
	})
}

func TestRoundTrip(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		user := newTestUser(store.Arm(ctx))
		defer store.Disarm(ctx)

		rc1 := submitAsync(ctx, store, "p1")
		pw, err := user.Password(ctx)
		if nil != err {
			t.Fatalf("[0]: failed Password, got error %v", err)
		}
		if got := reveal(t, pw); "p1" != got {
			t.Fatalf(`[1]: Password returned "%s" != "p1"`, got)
		}

		// a second submission waits for the first verdict
		rc2 := submitAsync(ctx, store, "p2")
		synctest.Wait()
		expectPending(t, rc1, "[2]")
		expectPending(t, rc2, "[3]")

		err = user.Sleep(ctx, closeOk)
		if nil != err {
			t.Fatalf("[4]: failed Sleep, got error %v", err)
		}
		synctest.Wait()
		expectVerdict(t, rc1, false, "[5]")
		expectPending(t, rc2, "[6]")

		// the next round consumes p2
		pw, err = user.Password(ctx)
		if nil != err {
			t.Fatalf("[7]: failed Password, got error %v", err)
		}
		if got := reveal(t, pw); "p2" != got {
			t.Fatalf(`[8]: Password returned "%s" != "p2"`, got)
		}
		err = authorizer.Failure[string, struct{}, struct{}](ctx, user, struct{}{})
		if nil != err {
			t.Fatalf("[9]: failed Failure, got error %v", err)
		}
		synctest.Wait()
		expectVerdict(t, rc2, false, "[10]")
	})
}

func TestRetry(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		user := newTestUser(store.Arm(ctx))
		defer store.Disarm(ctx)

		rc1 := submitAsync(ctx, store, "wrong")
		pw, err := user.Password(ctx)
		if nil != err {
			t.Fatalf("[0]: failed Password, got error %v", err)
		}
		pw.Clear()
		synctest.Wait()
		expectPending(t, rc1, "[1]")

		// asking again rejects "wrong"
		type reply struct {
			pw  *secret.Password
			err error
		}
		replies := make(chan reply, 1)
		go func() {
			pw, err := user.Password(ctx)
			replies <- reply{pw: pw, err: err}
		}()
		synctest.Wait()
		expectVerdict(t, rc1, true, "[2]")
		select {
		case <-replies:
			t.Fatal("[3]: Password returned before any new submission")
		default:
		}

		rc2 := submitAsync(ctx, store, "right")
		r := <-replies
		if nil != r.err {
			t.Fatalf("[4]: failed Password, got error %v", r.err)
		}
		if got := reveal(t, r.pw); "right" != got {
			t.Fatalf(`[5]: Password returned "%s" != "right"`, got)
		}
		synctest.Wait()
		expectPending(t, rc2, "[6]")

		err = user.Sleep(ctx, closeOk)
		if nil != err {
			t.Fatalf("[7]: failed Sleep, got error %v", err)
		}
		synctest.Wait()
		expectVerdict(t, rc2, false, "[8]")
	})
}

func TestCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		user := newTestUser(store.Arm(ctx))
		defer store.Disarm(ctx)

		store.Cancel(ctx)
		pw, err := user.Password(ctx)
		if nil != err {
			t.Fatalf("[0]: failed Password, got error %v", err)
		}
		if pw.IsKnown() {
			t.Fatal("[1]: Cancel delivered a known password")
		}
		err = authorizer.Failure[string, struct{}, struct{}](ctx, user, struct{}{})
		if nil != err {
			t.Fatalf("[2]: failed Failure, got error %v", err)
		}

		// the verdict nobody awaited is not observed by the next submission
		rc := submitAsync(ctx, store, "next")
		synctest.Wait()
		expectPending(t, rc, "[3]")

		pw, err = user.Password(ctx)
		if nil != err {
			t.Fatalf("[4]: failed Password, got error %v", err)
		}
		if got := reveal(t, pw); "next" != got {
			t.Fatalf(`[5]: Password returned "%s" != "next"`, got)
		}
		synctest.Wait()
		expectPending(t, rc, "[6]")

		err = user.Sleep(ctx, closeOk)
		if nil != err {
			t.Fatalf("[7]: failed Sleep, got error %v", err)
		}
		synctest.Wait()
		expectVerdict(t, rc, false, "[8]")
	})
}

func TestSubmitExact(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		user := newTestUser(store.Arm(ctx))
		defer store.Disarm(ctx)

		// returns without a verdict
		store.SubmitExact(ctx, known("exact"))

		pw, err := user.Password(ctx)
		if nil != err {
			t.Fatalf("[0]: failed Password, got error %v", err)
		}
		if got := reveal(t, pw); "exact" != got {
			t.Fatalf(`[1]: Password returned "%s" != "exact"`, got)
		}

		// the service rejects it, the retry request is left in the verdict slot
		errc := make(chan error, 1)
		go func() {
			pw, err := user.Password(ctx)
			if nil == err {
				b, _ := pw.IntoKnown()
				if "typed" != string(b) {
					err = errors.New(`Password did not return "typed"`)
				}
				secret.Zero(b)
			}
			errc <- err
		}()
		synctest.Wait()

		rc := submitAsync(ctx, store, "typed")
		err = <-errc
		if nil != err {
			t.Fatalf("[2]: failed Password, got error %v", err)
		}
		synctest.Wait()
		expectPending(t, rc, "[3]")

		err = user.Sleep(ctx, closeOk)
		if nil != err {
			t.Fatalf("[4]: failed Sleep, got error %v", err)
		}
		synctest.Wait()
		expectVerdict(t, rc, false, "[5]")
	})
}

func TestDisarm(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		user := newTestUser(store.Arm(ctx))
		if !store.Armed() {
			t.Fatal("[0]: Store not armed after Arm")
		}

		// a blocked Password call is released
		errc := make(chan error, 1)
		go func() {
			_, err := user.Password(ctx)
			errc <- err
		}()
		synctest.Wait()
		store.Disarm(ctx)
		err := <-errc
		if !errors.Is(err, ErrorClosed) {
			t.Fatalf("[1]: blocked Password did not fail with ErrorClosed, got %v", err)
		}
		if store.Armed() {
			t.Fatal("[2]: Store armed after Disarm")
		}

		// later calls
		if store.Submit(ctx, known("late")) {
			t.Error("[3]: Submit after Disarm returned true")
		}
		_, err = user.Password(ctx)
		if !errors.Is(err, ErrorClosed) {
			t.Errorf("[4]: Password after Disarm did not fail with ErrorClosed, got %v", err)
		}
		err = user.Sleep(ctx, closeOk)
		if !errors.Is(err, ErrorClosed) {
			t.Errorf("[5]: Sleep after Disarm did not fail with ErrorClosed, got %v", err)
		}

		// Disarm with nothing armed is a no-op
		store.Disarm(ctx)
	})
}

func TestDisarmReleasesSubmit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		user := newTestUser(store.Arm(ctx))

		rc1 := submitAsync(ctx, store, "p1")
		pw, err := user.Password(ctx)
		if nil != err {
			t.Fatalf("[0]: failed Password, got error %v", err)
		}
		pw.Clear()
		rc2 := submitAsync(ctx, store, "p2")
		synctest.Wait()
		expectPending(t, rc1, "[1]")
		expectPending(t, rc2, "[2]")

		store.Disarm(ctx)
		synctest.Wait()
		expectVerdict(t, rc1, false, "[3]")
		expectVerdict(t, rc2, false, "[4]")
	})
}

func TestDisarmZeroesPending(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		store.Arm(ctx)

		buf := []byte("pending")
		store.SubmitExact(ctx, secret.FromKnown(buf))
		store.Disarm(ctx)
		for i, b := range buf {
			if 0 != b {
				t.Fatalf("[%d]: pending password byte not zeroed", i)
			}
		}
	})
}

func TestDisarmRacingSubmit(t *testing.T) {
	ctx := observability.Quiet(t.Context())
	for pos := range 200 {
		store := NewStore()
		store.Arm(ctx)

		buf := []byte("racing disarm")
		sent := make(chan struct{})
		go func() {
			defer close(sent)
			store.SubmitExact(ctx, secret.FromKnown(buf))
		}()
		store.Disarm(ctx)
		<-sent

		for i, b := range buf {
			if 0 != b {
				t.Fatalf("#%d: password byte #%d left in disarmed slot", pos, i)
			}
		}
	}
}

func TestRearm(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		first := newTestUser(store.Arm(ctx))
		second := newTestUser(store.Arm(ctx))
		defer store.Disarm(ctx)

		_, err := first.Password(ctx)
		if !errors.Is(err, ErrorClosed) {
			t.Fatalf("[0]: Password on replaced pair did not fail with ErrorClosed, got %v", err)
		}

		rc := submitAsync(ctx, store, "p")
		pw, err := second.Password(ctx)
		if nil != err {
			t.Fatalf("[1]: failed Password, got error %v", err)
		}
		if got := reveal(t, pw); "p" != got {
			t.Fatalf(`[2]: Password returned "%s" != "p"`, got)
		}
		err = second.Sleep(ctx, closeOk)
		if nil != err {
			t.Fatalf("[3]: failed Sleep, got error %v", err)
		}
		synctest.Wait()
		expectVerdict(t, rc, false, "[4]")
	})
}

func TestContextDone(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := observability.TestContext(t)
		store := NewStore()
		user := newTestUser(store.Arm(ctx))
		defer store.Disarm(ctx)

		cctx, cancel := context.WithCancel(ctx)
		errc := make(chan error, 1)
		go func() {
			_, err := user.Password(cctx)
			errc <- err
		}()
		synctest.Wait()
		cancel()
		err := <-errc
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("[0]: Password did not fail with context.Canceled, got %v", err)
		}

		if store.Submit(cctx, known("canceled")) {
			t.Error("[1]: Submit with canceled context returned true")
		}
	})
}
