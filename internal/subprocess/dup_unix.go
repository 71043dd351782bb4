//go:build !windows

package subprocess

import (
	"os"

	"golang.org/x/sys/unix"
)

// duplicateFile returns an independent duplicate of f. The duplicate is
// close-on-exec in the parent; it reaches the intended child only through
// the explicit stream wiring, never by ambient inheritance into other
// concurrently launched children.
func duplicateFile(f *os.File) (*os.File, error) {
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(fd)
	return os.NewFile(uintptr(fd), f.Name()), nil
}
