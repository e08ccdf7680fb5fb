// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Deck operations
	OpDeckLoad   Op = "load track"
	OpDeckOutput Op = "write audio"
	OpAutoLoad   Op = "pick next track"

	// Library operations
	OpLibraryOpen Op = "open library"
	OpLibraryScan Op = "scan library"
	OpSourceAdd   Op = "add library source"
	OpSourceLoad  Op = "load library sources"

	// Source operations
	OpSourceCache Op = "cache remote audio"
	OpSourceProbe Op = "probe audio"

	// Initialization
	OpConfigLoad Op = "load configuration"
	OpInitialize Op = "initialize console"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// FormatDeck prefixes the message with the deck it concerns.
func FormatDeck(deck int, op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Deck %d: failed to %s: %v", deck, op, err)
}
