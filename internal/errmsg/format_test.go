//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpDeckLoad,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpDeckLoad,
			err:      errors.New("unsupported audio format"),
			expected: "Failed to load track: unsupported audio format",
		},
		{
			name:     "library scan operation",
			op:       OpLibraryScan,
			err:      errors.New("permission denied"),
			expected: "Failed to scan library: permission denied",
		},
		{
			name:     "cache operation",
			op:       OpSourceCache,
			err:      errors.New("404 Not Found"),
			expected: "Failed to cache remote audio: 404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.op, tt.err); got != tt.expected {
				t.Errorf("Format() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			context:  "main",
			expected: "",
		},
		{
			name:     "empty context falls back to Format",
			err:      errors.New("boom"),
			expected: "Failed to scan library: boom",
		},
		{
			name:     "context is quoted",
			context:  "main",
			err:      errors.New("boom"),
			expected: "Failed to scan library 'main': boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatWith(OpLibraryScan, tt.context, tt.err); got != tt.expected {
				t.Errorf("FormatWith() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatDeck(t *testing.T) {
	got := FormatDeck(2, OpDeckLoad, errors.New("no such file"))
	if want := "Deck 2: failed to load track: no such file"; got != want {
		t.Errorf("FormatDeck() = %q, want %q", got, want)
	}
	if got := FormatDeck(1, OpDeckLoad, nil); got != "" {
		t.Errorf("FormatDeck(nil) = %q, want empty", got)
	}
}
