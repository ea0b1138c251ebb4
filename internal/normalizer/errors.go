package normalizer

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload matches every MalformedPayloadError via errors.Is.
var ErrMalformedPayload = errors.New("malformed payload")

// MalformedPayloadError reports a payload whose root structure could not be read.
type MalformedPayloadError struct {
	Source string
	Reason string
	Cause  error
}

func (e *MalformedPayloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: malformed payload: %s: %v", e.Source, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: malformed payload: %s", e.Source, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Cause }

func (e *MalformedPayloadError) Is(target error) bool { return target == ErrMalformedPayload }

func malformed(source, reason string, cause error) error {
	return &MalformedPayloadError{Source: source, Reason: reason, Cause: cause}
}
