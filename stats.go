package excache

import "sync/atomic"

// Stats is a point-in-time snapshot of a cache's counters. Size is -1
// when the underlying store cannot count its entries.
type Stats struct {
	Hits         uint64
	Misses       uint64
	Puts         uint64
	Removals     uint64
	Expiries     uint64
	Loads        uint64
	LoadFailures uint64
	SweepRuns    uint64
	Size         int
}

// counters aggregates the hot-path statistics. Recording is gated by the
// enabled flag so disabled statistics cost one atomic load per event.
type counters struct {
	enabled atomic.Bool

	hits         atomic.Uint64
	misses       atomic.Uint64
	puts         atomic.Uint64
	removals     atomic.Uint64
	expiries     atomic.Uint64
	loads        atomic.Uint64
	loadFailures atomic.Uint64
	sweepRuns    atomic.Uint64
}

func (c *counters) on() bool { return c.enabled.Load() }

func (c *counters) hit() {
	if c.on() {
		c.hits.Add(1)
	}
}

func (c *counters) miss() {
	if c.on() {
		c.misses.Add(1)
	}
}

func (c *counters) put() {
	if c.on() {
		c.puts.Add(1)
	}
}

func (c *counters) removal() {
	if c.on() {
		c.removals.Add(1)
	}
}

func (c *counters) expired(n uint64) {
	if c.on() {
		c.expiries.Add(n)
	}
}

func (c *counters) load() {
	if c.on() {
		c.loads.Add(1)
	}
}

func (c *counters) loadFailure() {
	if c.on() {
		c.loadFailures.Add(1)
	}
}

func (c *counters) sweepRun() {
	if c.on() {
		c.sweepRuns.Add(1)
	}
}

func (c *counters) snapshot(size int) Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Puts:         c.puts.Load(),
		Removals:     c.removals.Load(),
		Expiries:     c.expiries.Load(),
		Loads:        c.loads.Load(),
		LoadFailures: c.loadFailures.Load(),
		SweepRuns:    c.sweepRuns.Load(),
		Size:         size,
	}
}
