package excache

import (
	"fmt"
	"time"
)

// Duration is the span a cache entry stays valid after a lifecycle
// event. Two sentinels exist beyond plain spans: ZeroDuration marks an
// entry as already expired, Eternal exempts it from expiry-based
// removal. The zero value of Duration is ZeroDuration.
type Duration struct {
	span    time.Duration
	eternal bool
}

var (
	// ZeroDuration marks an entry as expired the instant it is applied.
	ZeroDuration = Duration{}

	// Eternal exempts an entry from expiry-based removal.
	Eternal = Duration{eternal: true}
)

// NewDuration builds a Duration of amount*unit. amount must be
// non-negative and unit positive; anything else fails with
// ErrInvalidDuration.
func NewDuration(amount int64, unit time.Duration) (Duration, error) {
	if amount < 0 || unit <= 0 {
		return Duration{}, fmt.Errorf("%w: amount=%d unit=%v", ErrInvalidDuration, amount, unit)
	}
	return Duration{span: time.Duration(amount) * unit}, nil
}

// Span builds a Duration from a raw time.Duration. Negative spans
// collapse to ZeroDuration.
func Span(d time.Duration) Duration {
	if d < 0 {
		return ZeroDuration
	}
	return Duration{span: d}
}

// IsEternal reports whether the duration never expires.
func (d Duration) IsEternal() bool { return d.eternal }

// IsZero reports whether the duration means "expired immediately".
func (d Duration) IsZero() bool { return !d.eternal && d.span == 0 }

// Span returns the underlying span. Zero for the sentinels.
func (d Duration) Span() time.Duration {
	if d.eternal {
		return 0
	}
	return d.span
}

// Deadline resolves the absolute expiry instant for an event at now.
// Eternal durations have no deadline and report the zero time.
func (d Duration) Deadline(now time.Time) time.Time {
	if d.eternal {
		return time.Time{}
	}
	return now.Add(d.span)
}

func (d Duration) String() string {
	if d.eternal {
		return "eternal"
	}
	return d.span.String()
}
