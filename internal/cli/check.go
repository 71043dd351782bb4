package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reeve/internal/launchfile"
)

func newCheckCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the launch manifest and print the resolved plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := launchfile.Load(*ctx.manifest)
			if err != nil {
				return err
			}
			spec, err := doc.Spec()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Manifest %s is valid.\n", *ctx.manifest)
			fmt.Fprintf(out, "Command: %s\n", strings.Join(spec.Args, " "))
			if len(spec.Flags) > 0 {
				fmt.Fprintf(out, "Flags:   %s\n", strings.Join(spec.Flags.Stringify(), " "))
			}
			if spec.Dir != "" {
				fmt.Fprintf(out, "Workdir: %s\n", spec.Dir)
			}
			if spec.Env == nil {
				fmt.Fprintln(out, "Env:     inherited")
			} else {
				fmt.Fprintf(out, "Env:     %d entries\n", len(spec.Env))
			}
			fmt.Fprintf(out, "Streams: stdin=%s stdout=%s stderr=%s\n",
				describeStream(doc.Stdin), describeStream(doc.Stdout), describeStream(doc.Stderr))
			return nil
		},
	}
	return cmd
}

func describeStream(s launchfile.Stream) string {
	mode := s.Mode
	if mode == "" {
		mode = launchfile.ModeInherit
	}
	if mode == launchfile.ModePath {
		return fmt.Sprintf("path(%s)", s.Path)
	}
	return mode
}
