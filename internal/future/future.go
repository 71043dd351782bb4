// Package future provides a single-assignment asynchronous result pair.
//
// A Promise is the exclusive writer; the Future it pairs with is a small
// copyable value that any number of holders may inspect, wait on, or attach
// continuations to. A Future transitions away from Pending at most once and
// its terminal state never changes afterwards.
//
// Continuations run synchronously: in the goroutine that completes the
// Promise when registered before completion, or immediately in the
// registering goroutine when the Future is already terminal. Each registered
// continuation runs exactly once. Registration order is honoured among
// continuations registered before the completing transition; one registered
// concurrently with completion runs in its own goroutine and may overlap
// the delivery of earlier ones.
package future

import (
	"context"
	"errors"
	"sync"
)

// State enumerates the lifecycle of a Future.
type State int

const (
	// Pending means the paired Promise has not completed yet.
	Pending State = iota
	// Ready means the Promise supplied a value.
	Ready
	// Failed means the Promise supplied an error.
	Failed
	// Discarded means the Promise observed a discard request and gave up
	// on producing a result.
	Discarded
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// ErrBrokenPromise is the failure reason installed when a Promise is
// abandoned without ever being completed.
var ErrBrokenPromise = errors.New("broken promise: abandoned before completion")

// ErrDiscarded is returned by Await and Err when the Future was discarded.
var ErrDiscarded = errors.New("future discarded")

type shared[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}

	// Continuations waiting for the terminal transition, registration order.
	callbacks []func()

	// Advisory cancellation plumbing. discardRequested is sticky and
	// independent of the terminal state.
	discardRequested bool
	onDiscard        []func()
}

// transition performs the single Pending -> terminal move. It reports false
// when another writer already won, which callers treat as a detected
// contract violation rather than silently retrying.
func (s *shared[T]) transition(state State, value T, err error) bool {
	s.mu.Lock()
	if s.state != Pending {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.value = value
	s.err = err
	cbs := s.callbacks
	s.callbacks = nil
	s.onDiscard = nil
	close(s.done)
	s.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
	return true
}

// Promise is the write side of a Future. The zero value is not usable;
// construct with NewPromise.
type Promise[T any] struct {
	s *shared[T]
}

// NewPromise returns a pending Promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{s: &shared[T]{done: make(chan struct{})}}
}

// Future returns the read side paired with this Promise. The returned value
// may be copied freely; all copies share the same state.
func (p *Promise[T]) Future() Future[T] {
	return Future[T]{s: p.s}
}

// Set completes the Future with a value. It reports whether the transition
// happened; false means the Future was already terminal and the call was a
// detected no-op.
func (p *Promise[T]) Set(value T) bool {
	return p.s.transition(Ready, value, nil)
}

// Fail completes the Future with an error. A nil err is recorded as a
// generic failure so a failed Future never carries a nil reason.
func (p *Promise[T]) Fail(err error) bool {
	if err == nil {
		err = errors.New("promise failed")
	}
	var zero T
	return p.s.transition(Failed, zero, err)
}

// Discard moves the Future to Discarded. Typically called from an OnDiscard
// observer once the producer decides to honour a discard request.
func (p *Promise[T]) Discard() bool {
	var zero T
	return p.s.transition(Discarded, zero, nil)
}

// Abandon fails a still-pending Promise with ErrBrokenPromise. Producers
// defer it so a Promise can never be dropped silently, leaving waiters
// hung. Abandon after completion is a no-op.
func (p *Promise[T]) Abandon() bool {
	var zero T
	return p.s.transition(Failed, zero, ErrBrokenPromise)
}

// DiscardRequested reports whether any Future holder has requested a
// discard. Producers may poll this instead of registering OnDiscard.
func (p *Promise[T]) DiscardRequested() bool {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.discardRequested
}

// OnDiscard registers an observer invoked once if a discard request
// arrives while the Future is still pending. If a request was already made
// the observer runs immediately. Observers registered after completion
// never run.
func (p *Promise[T]) OnDiscard(fn func()) {
	s := p.s
	s.mu.Lock()
	if s.discardRequested {
		s.mu.Unlock()
		fn()
		return
	}
	if s.state == Pending {
		s.onDiscard = append(s.onDiscard, fn)
	}
	s.mu.Unlock()
}

// Future is the read side of a Promise. Copies share state.
type Future[T any] struct {
	s *shared[T]
}

// State returns the point-in-time state.
func (f Future[T]) State() State {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.state
}

// IsPending reports whether the Future has not completed.
func (f Future[T]) IsPending() bool { return f.State() == Pending }

// IsReady reports whether the Future completed with a value.
func (f Future[T]) IsReady() bool { return f.State() == Ready }

// IsFailed reports whether the Future completed with an error.
func (f Future[T]) IsFailed() bool { return f.State() == Failed }

// IsDiscarded reports whether the Future was discarded.
func (f Future[T]) IsDiscarded() bool { return f.State() == Discarded }

// Value returns the result and true when the Future is Ready.
func (f Future[T]) Value() (T, bool) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.state != Ready {
		var zero T
		return zero, false
	}
	return f.s.value, true
}

// Err returns the failure reason when Failed, ErrDiscarded when Discarded,
// and nil otherwise.
func (f Future[T]) Err() error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	switch f.s.state {
	case Failed:
		return f.s.err
	case Discarded:
		return ErrDiscarded
	default:
		return nil
	}
}

// Done returns a channel closed on the terminal transition, for use in
// select statements.
func (f Future[T]) Done() <-chan struct{} {
	return f.s.done
}

// Await blocks until the Future completes or ctx is done. This is the only
// blocking entry point; everything else on a Future returns immediately.
func (f Future[T]) Await(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-f.s.done:
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	switch f.s.state {
	case Ready:
		return f.s.value, nil
	case Failed:
		return zero, f.s.err
	default:
		return zero, ErrDiscarded
	}
}

// Discard requests cancellation. It is advisory: the producer is not
// obliged to stop, and the Future may still complete normally. Requests
// made after completion are no-ops.
func (f Future[T]) Discard() {
	s := f.s
	s.mu.Lock()
	if s.state != Pending || s.discardRequested {
		s.mu.Unlock()
		return
	}
	s.discardRequested = true
	obs := s.onDiscard
	s.onDiscard = nil
	s.mu.Unlock()

	for _, fn := range obs {
		fn()
	}
}

// register queues fn for the terminal transition, or runs it immediately if
// the Future is already terminal.
func (f Future[T]) register(fn func()) {
	s := f.s
	s.mu.Lock()
	if s.state == Pending {
		s.callbacks = append(s.callbacks, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// OnAny registers a continuation invoked with the Future once it reaches
// any terminal state. It returns the receiver for chaining. Registration
// order is guaranteed only among continuations registered before the
// terminal transition; a continuation registered while the transition is in
// flight runs in the registering goroutine and is unordered relative to the
// ones the completing goroutine is still delivering.
func (f Future[T]) OnAny(fn func(Future[T])) Future[T] {
	f.register(func() { fn(f) })
	return f
}

// OnReady registers a continuation invoked with the value if the Future
// becomes Ready.
func (f Future[T]) OnReady(fn func(T)) Future[T] {
	f.register(func() {
		if value, ok := f.Value(); ok {
			fn(value)
		}
	})
	return f
}

// OnFailed registers a continuation invoked with the error if the Future
// fails.
func (f Future[T]) OnFailed(fn func(error)) Future[T] {
	f.register(func() {
		if f.State() == Failed {
			fn(f.Err())
		}
	})
	return f
}

// OnDiscarded registers a continuation invoked if the Future is discarded.
func (f Future[T]) OnDiscarded(fn func()) Future[T] {
	f.register(func() {
		if f.State() == Discarded {
			fn()
		}
	})
	return f
}
