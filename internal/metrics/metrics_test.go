package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AuthAttempt("login", "success")
	m.AuthAttempt("login", "success")
	m.AuthAttempt("login", "role_mismatch")
	m.TableSelected("customer")
	m.ResolverState("authenticated")
	m.OrderPlaced()
	closed := m.StreamOpened()

	tests := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{name: "login success", collector: m.authAttempts.WithLabelValues("login", "success"), want: 2},
		{name: "login mismatch", collector: m.authAttempts.WithLabelValues("login", "role_mismatch"), want: 1},
		{name: "customer table", collector: m.tableSelections.WithLabelValues("customer"), want: 1},
		{name: "authenticated state", collector: m.resolverStates.WithLabelValues("authenticated"), want: 1},
		{name: "orders", collector: m.ordersPlaced, want: 1},
		{name: "open streams", collector: m.openStreams, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.collector); got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}

	closed()
	if got := testutil.ToFloat64(m.openStreams); got != 0 {
		t.Errorf("open streams after close = %v, want 0", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.AuthAttempt("login", "success")
	m.TableSelected("anonymous")
	m.ResolverState("anonymous")
	m.OrderPlaced()
	m.StreamOpened()()
}
