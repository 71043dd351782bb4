package cli

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/reeve/internal/cliutil"
	"github.com/Paintersrp/reeve/internal/logmux"
	"github.com/Paintersrp/reeve/internal/metrics"
	"github.com/Paintersrp/reeve/internal/reaper"
	"github.com/Paintersrp/reeve/internal/subprocess"
)

func newRunCmd(ctx *context) *cobra.Command {
	var (
		jsonLogs      bool
		metricsListen string
		grace         time.Duration
		logBuffer     int
	)

	cmd := &cobra.Command{
		Use:   "run [-- command [args...]]",
		Short: "Launch a child process and stream its output",
		Long: `Run launches a child process, either from the launch manifest or from the
argv supplied after --, streams its piped output to the terminal, and exits
with the child's exit code. Interrupting reeve forwards a graceful shutdown
request to the child before escalating.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := ctx.resolveSpec(args)
			if err != nil {
				return err
			}

			stopMetrics, err := serveMetrics(metricsListen)
			if err != nil {
				return err
			}
			defer stopMetrics()

			sub, err := subprocess.Launch(spec)
			if err != nil {
				return err
			}

			mux := logmux.New(logBuffer)
			if out := sub.Stdout(); out != nil {
				mux.Tail(out, logmux.StreamStdout)
			}
			if errp := sub.Stderr(); errp != nil {
				mux.Tail(errp, logmux.StreamStderr)
			}

			status := sub.Status()
			go func() {
				select {
				case <-cmd.Context().Done():
					terminate(sub, grace)
				case <-status.Done():
				}
			}()
			go func() {
				<-status.Done()
				mux.Close()
			}()

			pretty := !jsonLogs && term.IsTerminal(int(os.Stdout.Fd()))
			var enc *json.Encoder
			if !pretty {
				enc = json.NewEncoder(cmd.OutOrStdout())
			}
			for entry := range mux.Output() {
				if pretty {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %-6s | %s\n",
						entry.Time.Format("15:04:05"), entry.Stream, entry.Line)
				} else {
					cliutil.EncodeLogEvent(enc, cmd.ErrOrStderr(), sub.Pid(), entry)
				}
			}

			result, ok := status.Value()
			if !ok {
				if err := status.Err(); err != nil {
					return fmt.Errorf("await child: %w", err)
				}
				return errors.New("child status discarded")
			}
			if result.Success() {
				return nil
			}
			if result.Kind == reaper.KindExited {
				return &exitError{code: result.Code}
			}
			return errors.New(result.String())
		},
	}

	cmd.Flags().BoolVar(&jsonLogs, "json", false, "Emit output lines as JSON records even on a terminal")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address to expose Prometheus metrics on while the child runs")
	cmd.Flags().DurationVar(&grace, "grace", 2*time.Second, "Grace period between the shutdown request and a forced kill")
	cmd.Flags().IntVar(&logBuffer, "log-buffer", 256, "Output line buffer size before lines are dropped")

	return cmd
}

func serveMetrics(addr string) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	server := &http.Server{Handler: handler}
	go func() {
		_ = server.Serve(lis)
	}()
	return func() {
		shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}
