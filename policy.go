package excache

import "time"

// EntryMeta is the immutable timestamp view handed to expiry policies.
type EntryMeta struct {
	CreatedAt      time.Time
	LastAccessedAt time.Time
	LastModifiedAt time.Time
}

// ExpiryPolicy decides how long an entry remains valid after each
// lifecycle event. Implementations must be pure functions of the entry
// metadata and the event time: they are invoked concurrently and must
// not keep state or produce side effects. Returning ok=false leaves the
// entry's current deadline unchanged.
type ExpiryPolicy interface {
	// ExpiryForCreation runs when an entry is first stored. ok=false is
	// treated as Eternal since a fresh entry has no prior deadline.
	ExpiryForCreation(meta EntryMeta, now time.Time) (Duration, bool)

	// ExpiryForAccess runs after a successful read of the entry.
	ExpiryForAccess(meta EntryMeta, now time.Time) (Duration, bool)

	// ExpiryForUpdate runs when an existing entry's value is replaced.
	ExpiryForUpdate(meta EntryMeta, now time.Time) (Duration, bool)
}

var (
	_ ExpiryPolicy = CreatedPolicy{}
	_ ExpiryPolicy = AccessedPolicy{}
	_ ExpiryPolicy = ModifiedPolicy{}
	_ ExpiryPolicy = TouchedPolicy{}
	_ ExpiryPolicy = EternalPolicy{}
)

// CreatedPolicy fixes the deadline at creation time. Reads and updates
// do not move it.
type CreatedPolicy struct{ Duration Duration }

func (p CreatedPolicy) ExpiryForCreation(EntryMeta, time.Time) (Duration, bool) {
	return p.Duration, true
}
func (CreatedPolicy) ExpiryForAccess(EntryMeta, time.Time) (Duration, bool) {
	return Duration{}, false
}
func (CreatedPolicy) ExpiryForUpdate(EntryMeta, time.Time) (Duration, bool) {
	return Duration{}, false
}

// AccessedPolicy refreshes the deadline on every read. Entries are
// eternal until first accessed: creation and updates leave the deadline
// alone.
type AccessedPolicy struct{ Duration Duration }

func (AccessedPolicy) ExpiryForCreation(EntryMeta, time.Time) (Duration, bool) {
	return Duration{}, false
}
func (p AccessedPolicy) ExpiryForAccess(EntryMeta, time.Time) (Duration, bool) {
	return p.Duration, true
}
func (AccessedPolicy) ExpiryForUpdate(EntryMeta, time.Time) (Duration, bool) {
	return Duration{}, false
}

// ModifiedPolicy refreshes the deadline on creation and every update;
// reads do not move it.
type ModifiedPolicy struct{ Duration Duration }

func (p ModifiedPolicy) ExpiryForCreation(EntryMeta, time.Time) (Duration, bool) {
	return p.Duration, true
}
func (ModifiedPolicy) ExpiryForAccess(EntryMeta, time.Time) (Duration, bool) {
	return Duration{}, false
}
func (p ModifiedPolicy) ExpiryForUpdate(EntryMeta, time.Time) (Duration, bool) {
	return p.Duration, true
}

// TouchedPolicy refreshes the deadline on creation and every subsequent
// read or update.
type TouchedPolicy struct{ Duration Duration }

func (p TouchedPolicy) ExpiryForCreation(EntryMeta, time.Time) (Duration, bool) {
	return p.Duration, true
}
func (p TouchedPolicy) ExpiryForAccess(EntryMeta, time.Time) (Duration, bool) {
	return p.Duration, true
}
func (p TouchedPolicy) ExpiryForUpdate(EntryMeta, time.Time) (Duration, bool) {
	return p.Duration, true
}

// EternalPolicy never expires entries. It is the default when a
// configuration carries no policy.
type EternalPolicy struct{}

func (EternalPolicy) ExpiryForCreation(EntryMeta, time.Time) (Duration, bool) {
	return Eternal, true
}
func (EternalPolicy) ExpiryForAccess(EntryMeta, time.Time) (Duration, bool) {
	return Duration{}, false
}
func (EternalPolicy) ExpiryForUpdate(EntryMeta, time.Time) (Duration, bool) {
	return Duration{}, false
}
