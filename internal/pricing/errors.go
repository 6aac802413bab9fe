package pricing

import "errors"

// ErrInvalidInput matches every validation failure returned by this package.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError carries the user-facing validation message.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

// Is reports ErrInvalidInput as a match so callers can use errors.Is.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(msg string) error {
	return &InvalidInputError{Message: msg}
}
