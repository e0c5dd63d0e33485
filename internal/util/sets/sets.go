package sets

import (
	"cmp"
	"slices"
)

// Set is a hash set of comparable keys. The zero value is nil; build one
// with New.
type Set[T comparable] map[T]struct{}

// New returns a set holding vals.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts value into the set and reports whether it was absent.
func (s Set[T]) Add(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Has reports membership.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Delete removes v and reports whether it was present.
func (s Set[T]) Delete(v T) bool {
	if _, ok := s[v]; !ok {
		return false
	}
	delete(s, v)
	return true
}

// Clone returns a shallow copy.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the members ordered by cmpFn.
func Sorted[T comparable](s Set[T], cmpFn func(a, b T) int) []T {
	out := make([]T, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.SortFunc(out, cmpFn)
	return out
}

// SortedOrdered returns the members of an ordered set in ascending order.
func SortedOrdered[T cmp.Ordered](s Set[T]) []T {
	return Sorted(s, cmp.Compare[T])
}
