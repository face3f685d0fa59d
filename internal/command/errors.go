package command

import (
	"errors"
	"fmt"
)

// MissingRequiredFieldError describes why Build returned no command line.
// Build itself never returns errors; callers construct this to report the failure.
type MissingRequiredFieldError struct {
	Kind  Kind
	Entry string
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("%s: %s is not set", e.Kind, e.Field)
	}
	return fmt.Sprintf("%s: %s is not set in configuration entry %q", e.Kind, e.Field, e.Entry)
}

func (e *MissingRequiredFieldError) InvalidInput() bool {
	return true
}

// -- Sentinels --

var (
	ErrUnknownKind = errors.New("unknown command kind")
)
