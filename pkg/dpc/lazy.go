package dpc

import "sync"

// Lazy is a memoization cell. The first Get runs the compute function and
// keeps its result; later calls return the stored value until Reset. A
// failed computation is not stored. Lazy is safe for concurrent use and
// runs at most one computation at a time.
type Lazy[T any] struct {
	mu    sync.Mutex
	value T
	ok    bool
}

// Get returns the cached value, computing it first if needed.
func (l *Lazy[T]) Get(compute func() (T, error)) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ok {
		return l.value, nil
	}
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	l.value, l.ok = v, true
	return v, nil
}

// Peek returns the cached value without computing anything.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.ok
}

// Cached reports whether a value is stored.
func (l *Lazy[T]) Cached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ok
}

// Set stores v as if it had been computed.
func (l *Lazy[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value, l.ok = v, true
}

// Reset drops the stored value.
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	l.value, l.ok = zero, false
}
