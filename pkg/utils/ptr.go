// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package utils provides small shared helpers.
package utils

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}

// Coalesce returns the first non-zero value from the given arguments.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
