package excache

import (
	"errors"
	"fmt"
	"reflect"
)

// Error taxonomy. Callers discriminate with errors.Is / errors.As:
// ErrClosed marks state problems (recreate or reopen, then retry),
// ErrInvalidConfig, ErrInvalidDuration, ErrUnwrap and TypeMismatchError
// mark caller mistakes, ErrUnsupported marks optional features a given
// implementation does not provide.
var (
	// ErrClosed reports an operation attempted on a closed cache,
	// manager, or provider.
	ErrClosed = errors.New("excache: closed")

	// ErrCacheNotFound reports a name with no live cache behind it.
	ErrCacheNotFound = errors.New("excache: cache not found")

	// ErrInvalidConfig reports a configuration that cannot build a cache.
	ErrInvalidConfig = errors.New("excache: invalid configuration")

	// ErrInvalidDuration reports a negative amount or non-positive unit.
	ErrInvalidDuration = errors.New("excache: invalid duration")

	// ErrUnsupported reports an optional feature the implementation does
	// not provide.
	ErrUnsupported = errors.New("excache: unsupported operation")

	// ErrUnwrap reports an Unwrap target the implementation cannot
	// satisfy.
	ErrUnwrap = errors.New("excache: unsupported unwrap target")

	// ErrNoName reports a missing cache name.
	ErrNoName = errors.New("excache: cache name is required")

	// ErrNilKey reports an absent key where one is required.
	ErrNilKey = errors.New("excache: key is required")
)

// TypeMismatchError reports a typed lookup whose requested key/value
// types differ from those the named cache was registered with.
type TypeMismatchError struct {
	Name       string
	Requested  string
	Registered string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("excache: cache %q is registered as %s, requested %s",
		e.Name, e.Registered, e.Requested)
}

func mismatch[K comparable, V any](name string, existing NamedCache) *TypeMismatchError {
	return &TypeMismatchError{
		Name:       name,
		Requested:  fmt.Sprintf("(%v -> %v)", reflect.TypeFor[K](), reflect.TypeFor[V]()),
		Registered: fmt.Sprintf("(%v -> %v)", existing.KeyType(), existing.ValueType()),
	}
}
