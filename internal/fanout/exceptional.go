// Package fanout provides the concurrency primitives used to query many
// independent providers at once: a value-or-error result container, a
// deadline-bounded aggregation engine, and a generic HTTP service caller
// with per-call-site hooks.
package fanout

import (
	"fmt"
	"reflect"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
)

// Exceptional holds either a value or the error that prevented one. It is
// the unit of information flow across every fan-out join in the system;
// nothing is allowed to panic or propagate past an aggregation boundary.
// Exactly one of the two states is populated.
type Exceptional[T any] struct {
	value    T
	err      error
	hasValue bool
}

// OK wraps a success value.
func OK[T any](value T) Exceptional[T] {
	return Exceptional[T]{value: value, hasValue: true}
}

// Err wraps a failure. A nil error is itself a caller bug, so it is captured
// as an InvalidArgument failure rather than silently becoming a success.
func Err[T any](err error) Exceptional[T] {
	if err == nil {
		err = errkind.InvalidArgument("fanout: nil error passed to Err")
	}
	return Exceptional[T]{err: err}
}

// HasValue reports whether the container holds a success value.
func (e Exceptional[T]) HasValue() bool { return e.hasValue }

// Value returns the success value. Only meaningful when HasValue is true.
func (e Exceptional[T]) Value() T { return e.value }

// Err returns the captured failure. Only meaningful when HasValue is false.
func (e Exceptional[T]) Err() error { return e.err }

// Equal compares values when both sides hold values, errors otherwise.
func (e Exceptional[T]) Equal(other Exceptional[T]) bool {
	if e.hasValue != other.hasValue {
		return false
	}
	if e.hasValue {
		return reflect.DeepEqual(e.value, other.value)
	}
	if e.err == other.err {
		return true
	}
	return e.err != nil && other.err != nil && e.err.Error() == other.err.Error()
}

func (e Exceptional[T]) String() string {
	if e.hasValue {
		return fmt.Sprintf("Exceptional(%v)", e.value)
	}
	return fmt.Sprintf("Exceptional(%v)", e.err)
}
