// Package reaper tracks child-process terminations and reports them through
// futures, so no caller thread ever blocks in a wait call.
//
// The package maintains a process-wide singleton registry from pid to the
// promise that will carry its exit status. The registry is initialized on
// first use and lives until process exit; it is never torn down or
// reinitialized. A platform watcher runs in the background: on POSIX a
// single goroutine woken by SIGCHLD that collects status non-blockingly for
// every registered pid, on Windows one waiting goroutine per registered
// process handle.
package reaper

import (
	"fmt"
	"os"
	"sync"

	"github.com/Paintersrp/reeve/internal/future"
	"github.com/Paintersrp/reeve/internal/metrics"
)

// ExitKind discriminates how a subprocess terminated.
type ExitKind int

const (
	// KindUnknown means the process vanished without an observable status,
	// for example because something else collected it first.
	KindUnknown ExitKind = iota
	// KindExited means the process terminated normally with an exit code.
	KindExited
	// KindSignaled means the process was terminated by a signal.
	KindSignaled
)

func (k ExitKind) String() string {
	switch k {
	case KindExited:
		return "exited"
	case KindSignaled:
		return "signaled"
	default:
		return "unknown"
	}
}

// ExitStatus describes the termination of a subprocess. It is immutable
// once produced.
type ExitStatus struct {
	Kind   ExitKind
	Code   int    // exit code, valid when Kind is KindExited
	Signal string // signal name, valid when Kind is KindSignaled
}

// Exited returns a status for a normal termination.
func Exited(code int) ExitStatus {
	return ExitStatus{Kind: KindExited, Code: code}
}

// Signaled returns a status for a signal-driven termination.
func Signaled(signal string) ExitStatus {
	return ExitStatus{Kind: KindSignaled, Signal: signal}
}

// Unknown returns a status for a process that vanished without an
// observable exit.
func Unknown() ExitStatus {
	return ExitStatus{Kind: KindUnknown}
}

// Success reports whether the status is a clean zero exit.
func (s ExitStatus) Success() bool {
	return s.Kind == KindExited && s.Code == 0
}

func (s ExitStatus) String() string {
	switch s.Kind {
	case KindExited:
		return fmt.Sprintf("exited with code %d", s.Code)
	case KindSignaled:
		return fmt.Sprintf("terminated by signal %s", s.Signal)
	default:
		return "exit status unknown"
	}
}

type entry struct {
	promise *future.Promise[ExitStatus]
	proc    *os.Process
}

// Reaper owns the pid registry and the background watcher. Use Default for
// the process-wide instance; separate instances exist only for tests.
type Reaper struct {
	mu      sync.Mutex
	pending map[int]*entry

	watchOnce sync.Once
	kick      chan struct{}
}

var (
	defaultOnce   sync.Once
	defaultReaper *Reaper
)

// Default returns the process-wide reaper, creating it on first use.
func Default() *Reaper {
	defaultOnce.Do(func() {
		defaultReaper = New()
	})
	return defaultReaper
}

// New constructs an idle reaper. The watcher starts on the first Register.
func New() *Reaper {
	return &Reaper{
		pending: make(map[int]*entry),
		kick:    make(chan struct{}, 1),
	}
}

// Register inserts pid into the registry and returns the future that will
// carry its exit status. Callers must register immediately after spawning,
// before acting on the pid in any other way, so that registration
// happens-before any possible fulfillment.
//
// Registering a pid that already has a pending entry is a fatal invariant
// violation: at most one promise may exist per live pid, and an OS pid
// cannot be reused while its entry is pending. Register panics rather than
// silently overwriting.
func (r *Reaper) Register(pid int, proc *os.Process) future.Future[ExitStatus] {
	r.mu.Lock()
	if _, ok := r.pending[pid]; ok {
		r.mu.Unlock()
		panic(fmt.Sprintf("reaper: duplicate registration for pid %d", pid))
	}
	promise := future.NewPromise[ExitStatus]()
	r.pending[pid] = &entry{promise: promise, proc: proc}
	n := len(r.pending)
	r.mu.Unlock()

	metrics.SetReaperPending(n)
	r.startWatcher()
	r.notifyRegistered(pid, proc)
	return promise.Future()
}

// Pending returns the number of registered pids whose exit has not been
// observed yet.
func (r *Reaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Reaper) pendingPids() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	pids := make([]int, 0, len(r.pending))
	for pid := range r.pending {
		pids = append(pids, pid)
	}
	return pids
}

// take removes and returns the entry for pid. A nil return means the pid
// was not (or no longer is) registered.
func (r *Reaper) take(pid int) *entry {
	r.mu.Lock()
	e, ok := r.pending[pid]
	if ok {
		delete(r.pending, pid)
	}
	n := len(r.pending)
	r.mu.Unlock()
	if ok {
		metrics.SetReaperPending(n)
	}
	return e
}

// fulfill resolves the registered promise for pid with the given status.
func (r *Reaper) fulfill(pid int, status ExitStatus) {
	e := r.take(pid)
	if e == nil {
		panic(fmt.Sprintf("reaper: observed exit of pid %d with no registration", pid))
	}
	metrics.IncReaped(status.Kind.String())
	e.promise.Set(status)
}

// fail resolves the registered promise for pid with an error collecting its
// status. Post-launch collection errors surface through the future, never
// as panics across the async boundary.
func (r *Reaper) fail(pid int, err error) {
	e := r.take(pid)
	if e == nil {
		panic(fmt.Sprintf("reaper: failed collection for pid %d with no registration", pid))
	}
	metrics.IncReaped("error")
	e.promise.Fail(err)
}
