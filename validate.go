package parley

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxPromptLength is the longest prompt, in characters, the server accepts.
const MaxPromptLength = 2000

// ValidatePrompt checks that a prompt is non-blank and within MaxPromptLength.
func ValidatePrompt(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("prompt must not be empty: %w", ErrValidation)
	}
	if n := utf8.RuneCountInString(content); n > MaxPromptLength {
		return fmt.Errorf("prompt is %d characters, limit is %d: %w", n, MaxPromptLength, ErrValidation)
	}
	return nil
}

// ValidateMessage checks that a message has a known role.
func ValidateMessage(msg Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("unknown role %q: %w", msg.Role, ErrValidation)
	}
	return nil
}
