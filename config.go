package excache

import "time"

const (
	defaultShardCount    = 16
	defaultSweepInterval = time.Minute
)

// Configuration describes a native in-memory cache. The zero value is
// usable: eternal entries, default sharding, statistics disabled.
//
// Configurations are cloned on registration, so mutating one after
// ConfigureCache has no effect on the live cache. Policy, Logger and
// Hooks values must be immutable or concurrency-safe; the policies
// shipped with this package are plain immutable values.
type Configuration[K comparable, V any] struct {
	// ExpiryPolicy decides entry lifetimes. nil means EternalPolicy.
	ExpiryPolicy ExpiryPolicy

	// ShardCount is rounded up to the next power of two. 0 => 16.
	ShardCount int

	// SweepInterval drives the background expiry sweep. 0 => 1m.
	// Negative disables the sweep; lazy expiry on reads still applies.
	SweepInterval time.Duration

	StatisticsEnabled bool
	ManagementEnabled bool

	Logger Logger // nil => manager's logger, else NopLogger
	Hooks  Hooks  // nil => manager's hooks, else NopHooks
}

// clone returns an independent copy. All fields are values or
// immutable-by-contract interfaces, so a value copy suffices.
func (c Configuration[K, V]) clone() Configuration[K, V] { return c }
