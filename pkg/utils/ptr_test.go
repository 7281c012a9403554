// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPtr(t *testing.T) {
	s := Ptr("hello")
	require.NotNil(t, s)
	assert.Equal(t, "hello", *s)

	n := Ptr(42)
	require.NotNil(t, n)
	assert.Equal(t, 42, *n)
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{
			name:     "first non-empty wins",
			values:   []string{"", "second", "third"},
			expected: "second",
		},
		{
			name:     "all empty",
			values:   []string{"", ""},
			expected: "",
		},
		{
			name:     "no values",
			values:   nil,
			expected: "",
		},
		{
			name:     "first already set",
			values:   []string{"first", "second"},
			expected: "first",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Coalesce(tc.values...))
		})
	}
}
