package generation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidResponse is returned when a 2xx reply lacks the expected field.
var ErrInvalidResponse = errors.New("invalid response from server")

// RemoteError is a non-2xx reply from the AI service.
type RemoteError struct {
	Path   string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ai-service %s returned %d: %s", e.Path, e.Status, e.Body)
}

// TransportError means no HTTP response was received at all.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ai-service %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FieldError is one failed form rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned by the client when a request fails Validate.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldMap flattens the errors for the API envelope, first message wins.
func (e *ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := m[f.Field]; !ok {
			m[f.Field] = f.Message
		}
	}
	return m
}
