package citation

import (
	"errors"
	"fmt"
)

// ErrUnreadable is returned when the citation file cannot be opened or read.
var ErrUnreadable = errors.New("citation file unreadable")

// ErrMalformed is returned when the citation file is not valid YAML or does
// not have the expected shape.
var ErrMalformed = errors.New("citation file malformed")

// ErrMissingField is returned when a mandatory field (title, authors, license
// or version) is absent from the citation record.
var ErrMissingField = errors.New("mandatory field missing")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
