// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package orderedset implements an interning set that hands out dense indices in
// first-seen order.
package orderedset // import "go.opentelemetry.io/wallprof/internal/orderedset"

// OrderedSet is a set that keeps order of insertion. Indices are stable: once a key has been
// added it keeps its index for the lifetime of the set.
type OrderedSet[T comparable] struct {
	indices map[T]int
	values  []T
}

// New creates an empty set with room for capacity elements.
func New[T comparable](capacity int) *OrderedSet[T] {
	return &OrderedSet[T]{
		indices: make(map[T]int, capacity),
		values:  make([]T, 0, capacity),
	}
}

// Add adds an element to the set and returns its index.
func (os *OrderedSet[T]) Add(key T) int {
	idx, _ := os.AddWithCheck(key)
	return idx
}

// AddWithCheck adds an element to the set, returns its index and whether it was already
// present.
func (os *OrderedSet[T]) AddWithCheck(key T) (int, bool) {
	if idx, exists := os.indices[key]; exists {
		return idx, true
	}

	idx := len(os.values)
	os.indices[key] = idx
	os.values = append(os.values, key)
	return idx, false
}

// Index returns the index of key without inserting it.
func (os *OrderedSet[T]) Index(key T) (int, bool) {
	idx, exists := os.indices[key]
	return idx, exists
}

// At returns the element stored at idx.
func (os *OrderedSet[T]) At(idx int) T {
	return os.values[idx]
}

// Len returns the number of elements in the set.
func (os *OrderedSet[T]) Len() int {
	return len(os.values)
}

// ToSlice returns the elements of the set as a slice, in insertion order.
func (os *OrderedSet[T]) ToSlice() []T {
	ret := make([]T, len(os.values))
	copy(ret, os.values)
	return ret
}
