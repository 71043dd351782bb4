//go:build windows

package subprocess

import (
	"os"

	"golang.org/x/sys/windows"
)

// duplicateFile returns an independent duplicate of f's handle. The
// duplicate is not marked inheritable; it reaches the intended child only
// through the explicit stream wiring.
func duplicateFile(f *os.File) (*os.File, error) {
	current := windows.CurrentProcess()
	var dup windows.Handle
	err := windows.DuplicateHandle(
		current,
		windows.Handle(f.Fd()),
		current,
		&dup,
		0,
		false,
		windows.DUPLICATE_SAME_ACCESS,
	)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(dup), f.Name()), nil
}
