// Package subprocess launches external programs with declarative standard
// stream redirection and reports their termination through futures.
//
// Callers describe each of stdin, stdout and stderr with an IO spec (Pipe,
// Path, or an existing descriptor), then call Launch. Launch resolves the
// specs into stream endpoints, starts the child with the endpoints wired to
// its standard streams, registers the pid with the reaper before returning,
// and hands back a Subprocess without blocking. Any failure during setup
// rolls back exactly the endpoints this launch opened; no partial
// Subprocess is ever returned.
//
// When the exit-status future completes, the parent's stdin write end is
// closed automatically. The stdout and stderr read ends are left open so
// output buffered in the pipe survives the child's exit; they close
// themselves once drained to EOF, which the exit guarantees since the
// child's write ends are gone. A launch that pipes a stream it never reads
// should close that endpoint itself.
// Discarding the status future is advisory and never kills the child;
// callers that want a timeout race the future against a timer and deliver a
// signal themselves.
package subprocess
