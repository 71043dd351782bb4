package subprocess

import (
	"errors"
	"fmt"
	"os"
)

// FDMode selects the ownership semantics for an IO built from an existing
// descriptor.
type FDMode int

const (
	// FDDuplicate resolves to an independent duplicate of the descriptor.
	// The launcher owns the duplicate and closes it once the child has
	// inherited it; the caller's original is untouched.
	FDDuplicate FDMode = iota
	// FDTransfer hands the descriptor over as-is. The launcher never
	// closes it; responsibility stays with the original caller (or moves
	// to the child once it has inherited it).
	FDTransfer
)

type ioMode int

const (
	modeUnset ioMode = iota
	modePipe
	modePath
	modeFD
)

// IO is a declarative redirection policy for a single child stream. It is
// lazy: nothing is opened until a launch attempt resolves it.
type IO struct {
	mode   ioMode
	path   string
	file   *os.File
	fdMode FDMode
}

// Pipe redirects the stream through a new OS pipe. The child inherits one
// end; the parent keeps the other, exposed on the returned Subprocess.
func Pipe() IO {
	return IO{mode: modePipe}
}

// Path redirects the stream to the named file: opened read-only for stdin,
// created (append) for stdout and stderr.
func Path(path string) IO {
	return IO{mode: modePath, path: path}
}

// FD redirects the stream to an existing open descriptor with the given
// ownership mode.
func FD(file *os.File, mode FDMode) IO {
	return IO{mode: modeFD, file: file, fdMode: mode}
}

// pair holds the endpoints resolved for one stream. child is wired to the
// child's stream slot; parent is the end retained by this process, present
// for pipe mode only.
type pair struct {
	parent *Endpoint
	child  *Endpoint
}

// close releases every endpoint of the pair that the launcher owns,
// joining any close errors. Used for rollback and for child-side closure
// after a successful spawn.
func (p *pair) close() error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, e := range []*Endpoint{p.parent, p.child} {
		if e != nil && e.Owned() {
			if err := e.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// closeChild releases just the child-side endpoint if the launcher owns
// it. After a successful spawn the parent must not keep the child's pipe
// ends open, or EOF on the parent's read end would never arrive.
func (p *pair) closeChild() error {
	if p.child != nil && p.child.Owned() {
		return p.child.Close()
	}
	return nil
}

// resolveInput materializes the spec for the child's stdin. The child
// reads; for pipe mode the parent keeps the write end.
func (io IO) resolveInput() (*pair, error) {
	switch io.mode {
	case modePipe:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("create pipe: %w", err)
		}
		return &pair{
			child:  newEndpoint(r, DirRead, true, true),
			parent: newEndpoint(w, DirWrite, true, false),
		}, nil
	case modePath:
		f, err := os.Open(io.path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", io.path, err)
		}
		return &pair{child: newEndpoint(f, DirRead, true, true)}, nil
	case modeFD:
		child, err := io.resolveFD(DirRead)
		if err != nil {
			return nil, err
		}
		return &pair{child: child}, nil
	default:
		return nil, errors.New("stream redirection unspecified")
	}
}

// resolveOutput materializes the spec for the child's stdout or stderr.
// The child writes; for pipe mode the parent keeps the read end.
func (io IO) resolveOutput() (*pair, error) {
	switch io.mode {
	case modePipe:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("create pipe: %w", err)
		}
		return &pair{
			parent: newEndpoint(r, DirRead, true, false),
			child:  newEndpoint(w, DirWrite, true, true),
		}, nil
	case modePath:
		f, err := os.OpenFile(io.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", io.path, err)
		}
		return &pair{child: newEndpoint(f, DirWrite, true, true)}, nil
	case modeFD:
		child, err := io.resolveFD(DirWrite)
		if err != nil {
			return nil, err
		}
		return &pair{child: child}, nil
	default:
		return nil, errors.New("stream redirection unspecified")
	}
}

// resolveFD validates the supplied descriptor and applies the ownership
// mode. An FD spec supplies only the side matching the stream's direction.
func (io IO) resolveFD(dir Direction) (*Endpoint, error) {
	if io.file == nil {
		return nil, errors.New("nil descriptor")
	}
	if _, err := io.file.Stat(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}
	switch io.fdMode {
	case FDDuplicate:
		dup, err := duplicateFile(io.file)
		if err != nil {
			return nil, fmt.Errorf("duplicate descriptor: %w", err)
		}
		return newEndpoint(dup, dir, true, true), nil
	case FDTransfer:
		return newEndpoint(io.file, dir, false, true), nil
	default:
		return nil, fmt.Errorf("unknown descriptor ownership mode %d", io.fdMode)
	}
}
