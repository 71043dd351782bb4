//go:build !windows

package reaper

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval bounds how stale the registry can get if a SIGCHLD was
// consumed before its pid was registered or dropped by signal coalescing.
const pollInterval = 500 * time.Millisecond

func (r *Reaper) startWatcher() {
	r.watchOnce.Do(func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, unix.SIGCHLD)
		go r.watchLoop(sigc)
	})
}

// notifyRegistered wakes the watcher so a child that exited before its
// SIGCHLD could be matched to a registration is collected promptly.
func (r *Reaper) notifyRegistered(pid int, proc *os.Process) {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *Reaper) watchLoop(sigc <-chan os.Signal) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sigc:
		case <-r.kick:
		case <-ticker.C:
		}
		for _, pid := range r.pendingPids() {
			r.collect(pid)
		}
	}
}

// collect performs one non-blocking status collection for a single pid.
// Waiting per registered pid, never for the whole process group, keeps the
// reaper from stealing exit statuses owned by other code in this process.
func (r *Reaper) collect(pid int) {
	var status unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &status, unix.WNOHANG, nil)
		if err == unix.EINTR {
			continue
		}
		switch {
		case err == unix.ECHILD:
			// The process vanished without an observable status.
			r.fulfill(pid, Unknown())
		case err != nil:
			r.fail(pid, fmt.Errorf("wait4 pid %d: %w", pid, err))
		case wpid == 0:
			// Still running.
		case status.Exited():
			r.fulfill(pid, Exited(status.ExitStatus()))
		case status.Signaled():
			r.fulfill(pid, Signaled(status.Signal().String()))
		}
		return
	}
}
