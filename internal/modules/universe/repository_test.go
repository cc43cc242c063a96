package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "no duplicates",
			input:    []string{"AAPL", "MSFT", "GOOGL"},
			expected: []string{"AAPL", "MSFT", "GOOGL"},
		},
		{
			name:     "duplicates keep first occurrence order",
			input:    []string{"AAPL", "MSFT", "AAPL", "GOOGL", "MSFT"},
			expected: []string{"AAPL", "MSFT", "GOOGL"},
		},
		{
			name:     "empty strings dropped",
			input:    []string{"", "AAPL", ""},
			expected: []string{"AAPL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Dedupe(tt.input))
		})
	}
}
