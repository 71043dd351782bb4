//go:build !windows

package cli

import (
	"errors"
	"syscall"
	"time"

	"github.com/Paintersrp/reeve/internal/subprocess"
)

// terminate asks the child to exit, escalating to SIGKILL once the grace
// period lapses. Children run in their own process group, so the negative
// pid reaches the whole tree.
func terminate(sub *subprocess.Subprocess, grace time.Duration) {
	// Attempt a graceful shutdown first.
	if err := syscall.Kill(-sub.Pid(), syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return
	}

	select {
	case <-sub.Status().Done():
		return
	case <-time.After(grace):
	}

	_ = syscall.Kill(-sub.Pid(), syscall.SIGKILL)
}
