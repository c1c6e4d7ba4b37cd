package excache

import (
	"fmt"
	"reflect"

	"github.com/ternvale/excache/internal/util"
)

// NamedCache is the untyped management view of a cache registered with a
// Manager. Metadata accessors (Name, KeyType, Stats, the toggles) stay
// valid after the cache is closed; operational methods do not.
type NamedCache interface {
	Name() string
	KeyType() reflect.Type
	ValueType() reflect.Type

	// Len reports the number of live entries, or -1 when the underlying
	// store cannot count.
	Len() int

	// Clear drops every entry without firing removal hooks.
	Clear() error

	// Close is idempotent and terminal.
	Close() error
	IsClosed() bool

	Stats() Stats
	StatisticsEnabled() bool
	SetStatisticsEnabled(bool)
	ManagementEnabled() bool
	SetManagementEnabled(bool)

	// Unwrap copies the implementation into target, a non-nil pointer
	// the concrete cache type is assignable to. Unsupported targets fail
	// with ErrUnwrap.
	Unwrap(target any) error
}

// KeyPrefix returns the backend keyspace a backed cache of the given
// name owns, e.g. for scoping a redis reset pattern ("<prefix>*").
func KeyPrefix(name string) string { return util.Prefix(name) }

// unwrapInto is the shared best-effort downcast behind Unwrap.
func unwrapInto(target, impl any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", ErrUnwrap)
	}
	ev := rv.Elem()
	iv := reflect.ValueOf(impl)
	if !iv.Type().AssignableTo(ev.Type()) {
		return fmt.Errorf("%w: %s is not assignable to %s", ErrUnwrap, iv.Type(), ev.Type())
	}
	ev.Set(iv)
	return nil
}
