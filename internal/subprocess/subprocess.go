package subprocess

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/Paintersrp/reeve/internal/future"
	"github.com/Paintersrp/reeve/internal/metrics"
	"github.com/Paintersrp/reeve/internal/reaper"
)

// SetupError reports a failure while resolving a stream redirection. No
// process is spawned when it is returned.
type SetupError struct {
	Stream string
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("set up %s: %v", e.Stream, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// SpawnError reports a failure of the process-creation primitive itself.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Flags is a set of named options stringified into argv tokens before
// spawn. Names are rendered in sorted order so the produced argument
// vector is deterministic.
type Flags map[string]string

// Stringify renders the flags as --name=value tokens.
func (f Flags) Stringify() []string {
	if len(f) == 0 {
		return nil
	}
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	tokens := make([]string, 0, len(names))
	for _, name := range names {
		tokens = append(tokens, fmt.Sprintf("--%s=%s", name, f[name]))
	}
	return tokens
}

// Environ returns the process-wide environment snapshot as name=value
// pairs, read at call time.
func Environ() []string {
	return os.Environ()
}

// Spec fully describes one launch attempt.
type Spec struct {
	// Path is the program to execute, resolved against PATH when it
	// contains no separator.
	Path string
	// Args is the argument vector including Args[0]; when empty it
	// defaults to {Path}.
	Args []string
	// Flags are stringified and appended to the argument vector.
	Flags Flags
	// Env replaces the inherited environment wholesale when non-nil. A nil
	// Env launches with the current Environ snapshot.
	Env []string
	// Dir is the child's working directory; empty inherits the parent's.
	Dir string

	Stdin  IO
	Stdout IO
	Stderr IO
}

// Subprocess is the caller-facing handle for a launched child: its pid,
// the parent-side pipe endpoints, and the future carrying its exit status.
type Subprocess struct {
	pid    int
	stdin  *Endpoint
	stdout *Endpoint
	stderr *Endpoint
	status future.Future[reaper.ExitStatus]
}

// Pid returns the child's process id.
func (s *Subprocess) Pid() int { return s.pid }

// Status returns the future fulfilled with the child's exit status.
// Discarding it is advisory: it neither kills the child nor suppresses
// endpoint cleanup.
func (s *Subprocess) Status() future.Future[reaper.ExitStatus] { return s.status }

// Stdin returns the parent-side write end of the child's stdin, or nil
// unless the stream was launched in pipe mode.
func (s *Subprocess) Stdin() *Endpoint { return s.stdin }

// Stdout returns the parent-side read end of the child's stdout, or nil
// unless the stream was launched in pipe mode. The endpoint stays readable
// after the child exits until drained to EOF, at which point it closes
// itself.
func (s *Subprocess) Stdout() *Endpoint { return s.stdout }

// Stderr returns the parent-side read end of the child's stderr, or nil
// unless the stream was launched in pipe mode. Same post-exit semantics as
// Stdout.
func (s *Subprocess) Stderr() *Endpoint { return s.stderr }

// closeStdin drops the parent's write end once the child is gone. No more
// input can be delivered, and closing lets a blocked writer fail fast
// instead of hanging on a full pipe nobody reads.
func (s *Subprocess) closeStdin() {
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
}

// Launch resolves the spec's stream redirections, starts the child with
// the resolved endpoints wired to its standard streams, registers the pid
// with the process-wide reaper, and returns without blocking.
//
// Every failure path is local: a *SetupError or *SpawnError comes back
// with all endpoints this call opened already closed. Rollback close
// errors are joined behind the primary error and never mask it. Nothing is
// retried; retry policy belongs to the caller.
func Launch(spec Spec) (*Subprocess, error) {
	// Resolution order is stdin, stdout, stderr; a later failure unwinds
	// everything resolved so far.
	in, err := spec.Stdin.resolveInput()
	if err != nil {
		metrics.IncLaunchFailure("io_setup")
		return nil, setupFailure("stdin", err)
	}
	out, err := spec.Stdout.resolveOutput()
	if err != nil {
		metrics.IncLaunchFailure("io_setup")
		return nil, setupFailure("stdout", err, in)
	}
	errp, err := spec.Stderr.resolveOutput()
	if err != nil {
		metrics.IncLaunchFailure("io_setup")
		return nil, setupFailure("stderr", err, in, out)
	}

	argv := spec.Args
	if len(argv) == 0 {
		argv = []string{spec.Path}
	}
	argv = append(argv[:len(argv):len(argv)], spec.Flags.Stringify()...)

	env := spec.Env
	if env == nil {
		env = Environ()
	}

	path, err := exec.LookPath(spec.Path)
	if err != nil {
		metrics.IncLaunchFailure("spawn")
		return nil, spawnFailure(spec.Path, err, in, out, errp)
	}

	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Dir:   spec.Dir,
		Env:   env,
		Files: []*os.File{in.child.File(), out.child.File(), errp.child.File()},
		Sys:   sysProcAttr(),
	})
	if err != nil {
		metrics.IncLaunchFailure("spawn")
		return nil, spawnFailure(path, err, in, out, errp)
	}

	// Register before anything else can act on the pid, so fulfillment
	// strictly follows registration.
	reapFuture := reaper.Default().Register(proc.Pid, proc)
	metrics.IncLaunches()

	// Drop the child's ends; keeping them open would defer EOF on the
	// parent's read ends past the child's exit.
	_ = in.closeChild()
	_ = out.closeChild()
	_ = errp.closeChild()

	s := &Subprocess{
		pid:    proc.Pid,
		stdin:  in.parent,
		stdout: out.parent,
		stderr: errp.parent,
	}

	// Chain the caller-facing future through an intermediate promise. The
	// cleanup continuation holds the Subprocess alive until the child has
	// terminated, and a discard on the caller's future cannot detach it.
	//
	// Cleanup closes only the stdin write end. The stdout/stderr read ends
	// stay open so output buffered in the pipe survives the child's exit;
	// they close themselves at EOF, which the exit guarantees because every
	// write end is gone by then.
	cleanup := future.NewPromise[reaper.ExitStatus]()
	s.status = cleanup.Future()
	reapFuture.OnAny(func(f future.Future[reaper.ExitStatus]) {
		s.closeStdin()
		if status, ok := f.Value(); ok {
			cleanup.Set(status)
		} else {
			cleanup.Fail(f.Err())
		}
	})

	return s, nil
}

func setupFailure(stream string, err error, resolved ...*pair) error {
	primary := &SetupError{Stream: stream, Err: err}
	return joinRollback(primary, resolved)
}

func spawnFailure(path string, err error, resolved ...*pair) error {
	primary := &SpawnError{Path: path, Err: err}
	return joinRollback(primary, resolved)
}

// joinRollback closes every endpoint the launch attempt opened. The
// primary error stays first so rollback problems never mask it.
func joinRollback(primary error, resolved []*pair) error {
	var closeErrs []error
	for _, p := range resolved {
		if err := p.close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	if len(closeErrs) == 0 {
		return primary
	}
	return errors.Join(append([]error{primary}, closeErrs...)...)
}
