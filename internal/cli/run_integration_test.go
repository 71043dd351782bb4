package cli

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/reeve/internal/cliutil"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on /bin/sh")
	}
}

func TestRunStreamsOutputAndMirrorsExitCode(t *testing.T) {
	skipOnWindows(t)

	root := NewRootCmd()
	var out bytes.Buffer
	var errBuf bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errBuf)
	root.SetArgs([]string{"run", "--json", "--", "sh", "-c", "echo run-hi; exit 3"})

	err := root.ExecuteContext(stdcontext.Background())
	var exit *exitError
	if !errors.As(err, &exit) {
		t.Fatalf("expected exit error, got %v (stderr %s)", err, errBuf.String())
	}
	if exit.code != 3 {
		t.Fatalf("exit code = %d, want 3", exit.code)
	}

	var sawLine bool
	dec := json.NewDecoder(&out)
	for dec.More() {
		var record cliutil.LogRecord
		if err := dec.Decode(&record); err != nil {
			t.Fatalf("decode log record: %v", err)
		}
		if record.Stream == "stdout" && record.Message == "run-hi" {
			sawLine = true
			if record.Pid <= 0 {
				t.Fatalf("log record missing pid: %+v", record)
			}
		}
	}
	if !sawLine {
		t.Fatalf("expected stdout line in output, got:\n%s", out.String())
	}
}

func TestRunSucceedsSilently(t *testing.T) {
	skipOnWindows(t)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"run", "--json", "--", "sh", "-c", "exit 0"})

	if err := root.ExecuteContext(stdcontext.Background()); err != nil {
		t.Fatalf("run failed: %v\n%s", err, out.String())
	}
}

func TestRunTerminatesChildOnCancellation(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"run", "--json", "--grace", "1s", "--", "sleep", "30"})

	start := time.Now()
	err := root.ExecuteContext(ctx)
	if err == nil {
		t.Fatal("expected cancellation to surface an error")
	}
	var exit *exitError
	if errors.As(err, &exit) {
		t.Fatalf("expected signal termination, got exit error %v", err)
	}
	if !strings.Contains(err.Error(), "signal") {
		t.Fatalf("error = %v, want signal termination", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("run took %v to unwind after cancellation", elapsed)
	}
}

func TestRunFromManifest(t *testing.T) {
	skipOnWindows(t)

	path := writeManifest(t, `
command: ["sh", "-c", "echo from-manifest"]
stdout:
  mode: pipe
stderr:
  mode: discard
`)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"run", "--json", "-f", path})

	if err := root.ExecuteContext(stdcontext.Background()); err != nil {
		t.Fatalf("run failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "from-manifest") {
		t.Fatalf("expected manifest command output, got:\n%s", out.String())
	}
}
