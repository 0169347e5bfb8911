package model

import "fmt"

// ValidationError reports a malformed feed request. It is surfaced to the
// caller and never causes a ledger mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
