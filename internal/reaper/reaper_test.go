package reaper

import (
	"context"
	"os"
	stdruntime "runtime"
	"syscall"
	"testing"
	"time"
)

func spawnShell(t *testing.T, script string) *os.Process {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("reaper tests use /bin/sh and are skipped on windows")
	}
	proc, err := os.StartProcess("/bin/sh", []string{"/bin/sh", "-c", script}, &os.ProcAttr{})
	if err != nil {
		t.Fatalf("start process: %v", err)
	}
	return proc
}

func awaitStatus(t *testing.T, r *Reaper, proc *os.Process) ExitStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := r.Register(proc.Pid, proc).Await(ctx)
	if err != nil {
		t.Fatalf("await exit status: %v", err)
	}
	return status
}

func TestRegisterDeliversExitCode(t *testing.T) {
	r := New()
	proc := spawnShell(t, "exit 7")

	status := awaitStatus(t, r, proc)
	if status.Kind != KindExited || status.Code != 7 {
		t.Fatalf("status = %v, want exited with code 7", status)
	}
	if status.Success() {
		t.Fatal("nonzero exit reported as success")
	}
	if r.Pending() != 0 {
		t.Fatalf("pending registrations = %d after fulfillment, want 0", r.Pending())
	}
}

func TestRegisterDeliversSignal(t *testing.T) {
	r := New()
	proc := spawnShell(t, "sleep 30")

	f := r.Register(proc.Pid, proc)
	if err := syscall.Kill(proc.Pid, syscall.SIGKILL); err != nil {
		t.Fatalf("kill: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := f.Await(ctx)
	if err != nil {
		t.Fatalf("await exit status: %v", err)
	}
	if status.Kind != KindSignaled {
		t.Fatalf("status = %v, want signaled", status)
	}
}

func TestRegisterAfterChildAlreadyExited(t *testing.T) {
	r := New()
	proc := spawnShell(t, "exit 0")

	// Let the child become a zombie before anyone is watching. The
	// registration kick must still collect it without a fresh SIGCHLD.
	time.Sleep(200 * time.Millisecond)

	status := awaitStatus(t, r, proc)
	if !status.Success() {
		t.Fatalf("status = %v, want clean exit", status)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	r := New()
	proc := spawnShell(t, "sleep 30")

	f := r.Register(proc.Pid, proc)
	defer func() {
		if recover() == nil {
			t.Fatal("second Register for the same pid did not panic")
		}
		_ = syscall.Kill(proc.Pid, syscall.SIGKILL)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := f.Await(ctx); err != nil {
			t.Fatalf("await after cleanup kill: %v", err)
		}
	}()
	r.Register(proc.Pid, proc)
}

func TestExitStatusStrings(t *testing.T) {
	cases := []struct {
		status ExitStatus
		want   string
	}{
		{Exited(0), "exited with code 0"},
		{Exited(42), "exited with code 42"},
		{Signaled("killed"), "terminated by signal killed"},
		{Unknown(), "exit status unknown"},
	}
	for _, tc := range cases {
		if got := tc.status.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}
