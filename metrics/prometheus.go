// Package metrics exposes cache statistics to Prometheus.
//
// A Collector walks a Manager's caches at scrape time and emits one
// series per counter per cache, labeled by cache name. Only caches with
// management enabled are reported; toggle per cache with
// Manager.EnableManagement.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ternvale/excache"
)

type Collector struct {
	mgr *excache.Manager

	hits         *prometheus.Desc
	misses       *prometheus.Desc
	puts         *prometheus.Desc
	removals     *prometheus.Desc
	expiries     *prometheus.Desc
	loads        *prometheus.Desc
	loadFailures *prometheus.Desc
	sweepRuns    *prometheus.Desc
	size         *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector over mgr. Register it with a
// prometheus.Registerer; the manager URI is attached as a constant
// label so several managers can share one registry.
func NewCollector(mgr *excache.Manager) *Collector {
	const ns = "excache"
	labels := []string{"cache"}
	constLabels := prometheus.Labels{"uri": mgr.URI()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(ns+"_"+name, help, labels, constLabels)
	}
	return &Collector{
		mgr:          mgr,
		hits:         desc("hits_total", "Lookups that returned a live value."),
		misses:       desc("misses_total", "Lookups that found nothing usable."),
		puts:         desc("puts_total", "Stores, inserts and replacements alike."),
		removals:     desc("removals_total", "Explicit removals of live entries."),
		expiries:     desc("expiries_total", "Entries dropped by lazy or active expiry."),
		loads:        desc("loads_total", "Loader invocations on lookup misses."),
		loadFailures: desc("load_failures_total", "Loader invocations that returned an error."),
		sweepRuns:    desc("sweep_runs_total", "Completed active expiry passes."),
		size:         desc("size", "Live entries currently held."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.puts
	ch <- c.removals
	ch <- c.expiries
	ch <- c.loads
	ch <- c.loadFailures
	ch <- c.sweepRuns
	ch <- c.size
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, name := range c.mgr.CacheNames() {
		cache, ok := c.mgr.Lookup(name)
		if !ok || !cache.ManagementEnabled() {
			continue
		}
		s := cache.Stats()
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), name)
		}
		counter(c.hits, s.Hits)
		counter(c.misses, s.Misses)
		counter(c.puts, s.Puts)
		counter(c.removals, s.Removals)
		counter(c.expiries, s.Expiries)
		counter(c.loads, s.Loads)
		counter(c.loadFailures, s.LoadFailures)
		counter(c.sweepRuns, s.SweepRuns)
		if s.Size >= 0 {
			ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size), name)
		}
	}
}
