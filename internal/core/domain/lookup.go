package domain

// LookupStatus is the outcome of a cache lookup.
type LookupStatus uint8

const (
	// LookupNotFound means nothing was recorded.
	LookupNotFound LookupStatus = iota
	// LookupFound means a value was recorded and decoded.
	LookupFound
	// LookupRemoved means the entry was deleted during the current invocation.
	LookupRemoved
)

// Lookup is the explicit result of reading cached state.
type Lookup[T any] struct {
	status LookupStatus
	value  T
}

// Found wraps a present value.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{status: LookupFound, value: v}
}

// NotFound reports a missing value.
func NotFound[T any]() Lookup[T] {
	return Lookup[T]{status: LookupNotFound}
}

// Removed reports a value deleted in this invocation.
func Removed[T any]() Lookup[T] {
	return Lookup[T]{status: LookupRemoved}
}

// Status returns the lookup outcome.
func (l Lookup[T]) Status() LookupStatus {
	return l.status
}

// Get returns the value and whether it was found.
func (l Lookup[T]) Get() (T, bool) {
	return l.value, l.status == LookupFound
}
