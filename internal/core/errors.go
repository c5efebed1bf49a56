package core

import (
	"fmt"
	"strings"
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AuthorizationError reports that the declared authorizer does not satisfy the
// signer requirement. Required is kept so callers can display it.
type AuthorizationError struct {
	Required     []Role
	AuthorizedBy Role
}

func (e *AuthorizationError) Error() string {
	names := make([]string, len(e.Required))
	for i, r := range e.Required {
		names[i] = string(r)
	}
	return "this transaction requires authorization from: " + strings.Join(names, ", ")
}

// NotFoundError reports a failed lookup by name.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}
