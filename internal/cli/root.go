package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reeve/internal/launchfile"
	"github.com/Paintersrp/reeve/internal/subprocess"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var manifest string

	root := &cobra.Command{
		Use:   "reeve",
		Short: "Supervised child-process launcher",
	}

	root.PersistentFlags().
		StringVarP(&manifest, "file", "f", "launch.yaml", "Path to launch manifest")

	ctx := &context{manifest: &manifest}
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newCheckCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	manifest *string
}

// resolveSpec builds a launch spec from trailing argv when present, falling
// back to the manifest named by --file. Ad-hoc commands pipe both output
// streams and share the parent's stdin.
func (c *context) resolveSpec(args []string) (subprocess.Spec, error) {
	if len(args) > 0 {
		return subprocess.Spec{
			Path:   args[0],
			Args:   append([]string(nil), args...),
			Stdin:  subprocess.FD(os.Stdin, subprocess.FDDuplicate),
			Stdout: subprocess.Pipe(),
			Stderr: subprocess.Pipe(),
		}, nil
	}

	doc, err := launchfile.Load(*c.manifest)
	if err != nil {
		return subprocess.Spec{}, err
	}
	return doc.Spec()
}

// exitError carries a child's nonzero exit code to the process boundary so
// reeve can mirror it without printing a redundant message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
