package subprocess

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// Direction describes which way data flows through an endpoint.
type Direction int

const (
	DirUnset Direction = iota
	DirRead
	DirWrite
)

func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	default:
		return "unset"
	}
}

// Endpoint is one end of a pipe, an opened file, or an inherited
// descriptor, abstracted across platforms. An endpoint closes at most once
// regardless of how many parties call Close; the ownership flag records
// whether the launcher (and its successor, the Subprocess) or the original
// caller is responsible for eventual closure.
type Endpoint struct {
	file        *os.File
	dir         Direction
	owned       bool
	inheritable bool
	closed      atomic.Bool
}

func newEndpoint(file *os.File, dir Direction, owned, inheritable bool) *Endpoint {
	return &Endpoint{file: file, dir: dir, owned: owned, inheritable: inheritable}
}

// File exposes the underlying descriptor. The endpoint retains ownership;
// callers must not close the returned file directly.
func (e *Endpoint) File() *os.File {
	return e.file
}

// Direction returns the endpoint's data-flow direction.
func (e *Endpoint) Direction() Direction {
	return e.dir
}

// Inheritable reports whether the endpoint is destined for the child's
// standard stream slot.
func (e *Endpoint) Inheritable() bool {
	return e.inheritable
}

// Owned reports whether the launcher is responsible for closing the
// endpoint.
func (e *Endpoint) Owned() bool {
	return e.owned
}

// Closed reports whether Close has already run.
func (e *Endpoint) Closed() bool {
	return e.closed.Load()
}

// Close releases the underlying descriptor. Only the first call closes;
// later calls are no-ops, which makes the automatic cleanup attached to
// the exit-status future safe even when the caller closed first.
func (e *Endpoint) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.file.Close()
}

// Read implements io.Reader on the underlying descriptor. A read endpoint
// closes itself once it observes EOF, so drained pipes release their
// descriptor without an explicit Close.
func (e *Endpoint) Read(p []byte) (int, error) {
	n, err := e.file.Read(p)
	if errors.Is(err, io.EOF) {
		_ = e.Close()
	}
	return n, err
}

// Write implements io.Writer on the underlying descriptor.
func (e *Endpoint) Write(p []byte) (int, error) {
	return e.file.Write(p)
}
