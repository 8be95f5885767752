package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "trims and drops empties",
			input:    []string{"  0xnotary ", "", "  "},
			expected: []string{"0xnotary"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"broker-1:9092", "broker-2:9092", "broker-1:9092"},
			expected: []string{"broker-1:9092", "broker-2:9092"},
		},
		{
			name:     "case sensitive",
			input:    []string{"0xAB", "0xab"},
			expected: []string{"0xAB", "0xab"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
