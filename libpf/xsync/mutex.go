// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package xsync // import "go.opentelemetry.io/wallprof/libpf/xsync"

import "sync"

// Mutex is a thin wrapper around sync.Mutex that hides away the data it protects. The only
// way to reach the guarded value is through Lock or Do, so forgetting to take the lock does
// not compile.
//
//	type Registry struct {
//		entries xsync.Mutex[map[string]int]
//	}
//
//	func (r *Registry) Add(name string) {
//		entries := r.entries.Lock()
//		defer r.entries.Unlock(&entries)
//		(*entries)[name]++
//	}
type Mutex[T any] struct {
	guarded T
	mutex   sync.Mutex
}

// NewMutex creates a new mutex guarding the given value.
func NewMutex[T any](guarded T) Mutex[T] {
	return Mutex[T]{
		guarded: guarded,
	}
}

// Lock locks the mutex, returning a pointer to the protected data.
//
// The caller **must not** let the returned pointer leak out of the scope of the function where
// it was originally created, except for temporarily borrowing it to other functions.
func (mtx *Mutex[T]) Lock() *T {
	mtx.mutex.Lock()
	return &mtx.guarded
}

// Unlock unlocks the mutex after previously being locked by Lock.
//
// Pass a reference to the pointer returned from Lock here to ensure it is invalidated.
func (mtx *Mutex[T]) Unlock(ref **T) {
	*ref = nil
	mtx.mutex.Unlock()
}

// Do runs fn while holding the lock and returns its error.
func (mtx *Mutex[T]) Do(fn func(guarded *T) error) error {
	guarded := mtx.Lock()
	defer mtx.Unlock(&guarded)
	return fn(guarded)
}
