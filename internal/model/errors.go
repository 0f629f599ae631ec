package model

import (
	"fmt"
	"strings"
)

// ValidationError is a locally detected problem with user input. It is
// raised before anything reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ValidateTitle rejects empty and whitespace-only titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	return nil
}
