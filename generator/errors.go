package generator

import (
	"errors"
	"fmt"
)

// Reason classifies a failed generation.
type Reason string

const (
	ReasonEmptyInput         Reason = "empty_input"
	ReasonTransportFailure   Reason = "transport_failure"
	ReasonSchemaParseFailure Reason = "schema_parse_failure"
)

// ParseFailureMessage is the user-facing text for SchemaParseFailure.
const ParseFailureMessage = "Could not parse the AI's recruitment strategy. Please try again."

// GenerationError is returned by Agent.Generate. It is terminal for that call.
type GenerationError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ReasonOf reports the Reason carried by err, or "" if err is not a GenerationError.
func ReasonOf(err error) Reason {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return ""
}

func emptyInputError() error {
	return &GenerationError{Reason: ReasonEmptyInput, Message: "hiring notes are empty"}
}

func transportError(err error) error {
	return &GenerationError{Reason: ReasonTransportFailure, Message: "generation service unavailable", Err: err}
}

func parseError(err error) error {
	return &GenerationError{Reason: ReasonSchemaParseFailure, Message: ParseFailureMessage, Err: err}
}
