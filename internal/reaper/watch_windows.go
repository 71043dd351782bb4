//go:build windows

package reaper

import (
	"fmt"
	"os"
)

func (r *Reaper) startWatcher() {}

// notifyRegistered starts a waiting goroutine for the registered process.
// Windows has no SIGCHLD equivalent, so each registration gets its own
// handle wait.
func (r *Reaper) notifyRegistered(pid int, proc *os.Process) {
	go func() {
		if proc == nil {
			found, err := os.FindProcess(pid)
			if err != nil {
				r.fail(pid, fmt.Errorf("find process %d: %w", pid, err))
				return
			}
			proc = found
		}
		state, err := proc.Wait()
		if err != nil {
			r.fail(pid, fmt.Errorf("wait for pid %d: %w", pid, err))
			return
		}
		r.fulfill(pid, Exited(state.ExitCode()))
	}()
}
