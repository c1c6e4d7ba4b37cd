package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ternvale/excache"
)

func TestCollectorExportsManagedCaches(t *testing.T) {
	ctx := context.Background()
	m := excache.NewManager("excache://metrics", excache.ManagerOptions{})
	defer m.Close()

	c, err := excache.ConfigureCache(m, "users", excache.Configuration[string, int]{
		SweepInterval:     -1,
		StatisticsEnabled: true,
		ManagementEnabled: true,
	})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}
	if err := c.Put(ctx, "k", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatalf("Get miss")
	}
	if _, ok, _ := c.Get(ctx, "absent"); ok {
		t.Fatalf("unexpected hit")
	}

	col := NewCollector(m)
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(col); err != nil {
		t.Fatalf("Register: %v", err)
	}

	expected := `
# HELP excache_hits_total Lookups that returned a live value.
# TYPE excache_hits_total counter
excache_hits_total{cache="users",uri="excache://metrics"} 1
# HELP excache_misses_total Lookups that found nothing usable.
# TYPE excache_misses_total counter
excache_misses_total{cache="users",uri="excache://metrics"} 1
# HELP excache_puts_total Stores, inserts and replacements alike.
# TYPE excache_puts_total counter
excache_puts_total{cache="users",uri="excache://metrics"} 1
# HELP excache_size Live entries currently held.
# TYPE excache_size gauge
excache_size{cache="users",uri="excache://metrics"} 1
`
	if err := testutil.CollectAndCompare(col, strings.NewReader(expected),
		"excache_hits_total", "excache_misses_total", "excache_puts_total", "excache_size"); err != nil {
		t.Fatalf("unexpected metrics:\n%v", err)
	}
}

func TestCollectorSkipsUnmanagedCaches(t *testing.T) {
	m := excache.NewManager("excache://metrics", excache.ManagerOptions{})
	defer m.Close()

	if _, err := excache.ConfigureCache(m, "hidden", excache.Configuration[string, int]{
		SweepInterval:     -1,
		StatisticsEnabled: true,
	}); err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}

	col := NewCollector(m)
	if n := testutil.CollectAndCount(col); n != 0 {
		t.Fatalf("collected %d series from an unmanaged cache, want 0", n)
	}

	if err := m.EnableManagement("hidden", true); err != nil {
		t.Fatalf("EnableManagement: %v", err)
	}
	if n := testutil.CollectAndCount(col); n == 0 {
		t.Fatalf("managed cache exported no series")
	}
}
