//go:build windows

package cli

import (
	"os"
	"time"

	"github.com/Paintersrp/reeve/internal/subprocess"
)

func terminate(sub *subprocess.Subprocess, grace time.Duration) {
	proc, err := os.FindProcess(sub.Pid())
	if err != nil {
		return
	}
	// Attempt a graceful shutdown first.
	_ = proc.Signal(os.Interrupt)

	select {
	case <-sub.Status().Done():
		return
	case <-time.After(grace):
	}

	_ = proc.Kill()
}
