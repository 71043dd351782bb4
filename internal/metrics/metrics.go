package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	launches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reeve",
		Name:      "launches_total",
		Help:      "Total number of subprocesses launched successfully.",
	})

	launchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reeve",
		Name:      "launch_failures_total",
		Help:      "Total number of failed launch attempts, by failing stage.",
	}, []string{"stage"})

	reaped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reeve",
		Name:      "reaped_total",
		Help:      "Total number of subprocess terminations observed, by status kind.",
	}, []string{"kind"})

	reaperPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "reeve",
		Name:      "reaper_pending",
		Help:      "Number of registered subprocesses whose exit has not been observed yet.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reeve",
		Name:      "build_info",
		Help:      "Build metadata for the running reeve binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(launches, launchFailures, reaped, reaperPending, buildInfo)
}

// Registry returns the Prometheus registry containing all reeve metrics.
func Registry() *prometheus.Registry {
	return registry
}

// IncLaunches records one successful launch.
func IncLaunches() {
	launches.Inc()
}

// IncLaunchFailure records a failed launch attempt for the given stage
// ("io_setup" or "spawn").
func IncLaunchFailure(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	launchFailures.WithLabelValues(stage).Inc()
}

// IncReaped records one observed termination with the given status kind.
func IncReaped(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	reaped.WithLabelValues(kind).Inc()
}

// SetReaperPending records the current number of unreaped registrations.
func SetReaperPending(n int) {
	reaperPending.Set(float64(n))
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
