package recovery

import (
	"fmt"
)

// ExhaustedError is returned when the primary operation and every fallback
// supplier failed.
type ExhaustedError struct {
	Primary  error
	Fallback error // last fallback failure; nil when the chain was empty
}

func (e *ExhaustedError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("recovery exhausted: primary: %v; no fallback available", e.Primary)
	}
	return fmt.Sprintf("recovery exhausted: primary: %v; last fallback: %v", e.Primary, e.Fallback)
}

// Unwrap exposes both failures to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	if e.Fallback == nil {
		return []error{e.Primary}
	}
	return []error{e.Primary, e.Fallback}
}
