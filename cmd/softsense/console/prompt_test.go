package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected string
	}{
		{"empty falls back to default", "", "y"},
		{"exact match", "n", "n"},
		{"case folded", "N", "n"},
		{"unmatched falls back to default", "maybe", "y"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, normalizeAnswer(test.response, yesNoConstraints))
		})
	}
}
