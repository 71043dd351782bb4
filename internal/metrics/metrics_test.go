package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/reeve/internal/metrics"
)

func TestRegistryExposesMetrics(t *testing.T) {
	t.Helper()

	metrics.EmitBuildInfo()
	metrics.IncLaunches()
	metrics.IncLaunchFailure("spawn")
	metrics.IncReaped("exited")
	metrics.SetReaperPending(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code from metrics handler: %d", rec.Code)
	}

	body := rec.Body.String()
	for _, line := range []string{
		"reeve_launches_total 1",
		"reeve_launch_failures_total{stage=\"spawn\"} 1",
		"reeve_reaped_total{kind=\"exited\"} 1",
		"reeve_reaper_pending 3",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected metric line %q in body:\n%s", line, body)
		}
	}

	if !strings.Contains(body, "reeve_build_info{") {
		t.Fatalf("expected build info metric in body:\n%s", body)
	}
	if !strings.Contains(body, "go_version=") {
		t.Fatalf("expected go_version label on build info metric:\n%s", body)
	}
}
