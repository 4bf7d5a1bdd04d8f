// Package collection provides generic helpers for slices, used by the
// analytics roll-ups.
//
//	totals := collection.Map(orders, func(o models.Order) float64 { return o.Total })
//	byDay := collection.GroupBy(orders, func(o models.Order) string { return o.OrderTime.Format(time.DateOnly) })
package collection

import "sort"

// Map transforms each element of slice s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter returns elements of s for which fn returns true.
func Filter[T any](s []T, fn func(T) bool) []T {
	var out []T
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// Group is one GroupBy bucket.
type Group[T any] struct {
	Key   string
	Items []T
}

// GroupBy partitions s by the key returned by fn. Groups keep the order in
// which their key was first seen.
func GroupBy[T any](s []T, fn func(T) string) []Group[T] {
	var out []Group[T]
	index := make(map[string]int)
	for _, v := range s {
		k := fn(v)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Group[T]{Key: k})
		}
		out[i].Items = append(out[i].Items, v)
	}
	return out
}

// SortBy returns a stably sorted copy of s.
func SortBy[T any](s []T, less func(a, b T) bool) []T {
	out := append([]T(nil), s...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Sum adds fn(v) over s.
func Sum[T any](s []T, fn func(T) float64) float64 {
	var total float64
	for _, v := range s {
		total += fn(v)
	}
	return total
}

// Flatten concatenates nested slices.
func Flatten[T any](s [][]T) []T {
	var out []T
	for _, inner := range s {
		out = append(out, inner...)
	}
	return out
}

// Take returns at most the first n elements.
func Take[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
