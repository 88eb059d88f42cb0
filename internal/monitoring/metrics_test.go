package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsRegistered checks that the collectors accept their labels.
func TestMetricsRegistered(t *testing.T) {
	Announcements.WithLabelValues("test").Inc()
	if got := testutil.ToFloat64(Announcements.WithLabelValues("test")); got != 1 {
		t.Errorf("announcements = %v, want 1", got)
	}
	TrackedThreats.WithLabelValues("test").Set(3)
	if got := testutil.ToFloat64(TrackedThreats.WithLabelValues("test")); got != 3 {
		t.Errorf("tracked = %v, want 3", got)
	}
	FetchResults.WithLabelValues("test", "ok").Inc()
	FetchDuration.WithLabelValues("test").Observe(0.2)
	if n := testutil.CollectAndCount(FetchDuration); n != 1 {
		t.Errorf("fetch duration series = %d, want 1", n)
	}
}
