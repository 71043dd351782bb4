package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launch.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestCheckPrintsResolvedPlan(t *testing.T) {
	path := writeManifest(t, `
command: ["sh", "-c", "echo hi"]
flags:
  verbose: "true"
stdout:
  mode: pipe
stderr:
  mode: path
  path: logs/err.log
`)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"check", "-f", path})

	if err := root.Execute(); err != nil {
		t.Fatalf("check failed: %v\n%s", err, out.String())
	}

	text := out.String()
	for _, want := range []string{
		"is valid",
		"Command: sh -c echo hi",
		"Flags:   --verbose=true",
		"Env:     inherited",
		"stdin=inherit",
		"stdout=pipe",
		"stderr=path(",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("check output missing %q:\n%s", want, text)
		}
	}
}

func TestCheckRejectsInvalidManifest(t *testing.T) {
	path := writeManifest(t, `
command: ["true"]
comand: ["typo"]
`)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"check", "-f", path})

	err := root.Execute()
	if err == nil {
		t.Fatal("expected invalid manifest to fail check")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("error = %v, want schema validation failure", err)
	}
}

func TestCheckReportsMissingManifest(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"check", "-f", filepath.Join(t.TempDir(), "missing.yaml")})

	if err := root.Execute(); err == nil {
		t.Fatal("expected missing manifest to fail check")
	}
}
