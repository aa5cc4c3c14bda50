package rconmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	rconmetrics "github.com/dantte-lp/gorcon/internal/metrics"
)

func TestNewCollectorRegisters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := rconmetrics.NewCollector(reg)

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != 5 {
		t.Fatalf("GatherAndCount = %d, want 5", count)
	}
	if c == nil {
		t.Fatal("NewCollector returned nil")
	}
}

func TestCollectorConnectionOpenedAndClosed(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := rconmetrics.NewCollector(reg)

	c.ConnectionOpened()
	c.ConnectionOpened()
	if got := testutil.ToFloat64(c.ConnectionsActive); got != 2 {
		t.Fatalf("ConnectionsActive = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ConnectionsTotal); got != 2 {
		t.Fatalf("ConnectionsTotal = %v, want 2", got)
	}

	c.ConnectionClosed()
	if got := testutil.ToFloat64(c.ConnectionsActive); got != 1 {
		t.Fatalf("ConnectionsActive after close = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ConnectionsTotal); got != 2 {
		t.Fatalf("ConnectionsTotal after close = %v, want 2 (unaffected)", got)
	}
}

func TestCollectorCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := rconmetrics.NewCollector(reg)

	c.AuthFailure()
	c.AuthFailure()
	c.FrameRejected()
	c.CommandExecuted()
	c.CommandExecuted()
	c.CommandExecuted()

	if got := testutil.ToFloat64(c.AuthFailuresTotal); got != 2 {
		t.Fatalf("AuthFailuresTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.FramesRejectedTotal); got != 1 {
		t.Fatalf("FramesRejectedTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.CommandsExecutedTotal); got != 3 {
		t.Fatalf("CommandsExecutedTotal = %v, want 3", got)
	}
}
