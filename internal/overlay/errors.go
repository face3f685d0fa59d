package overlay

import (
	"errors"
	"fmt"
)

// ExtractionFailedError is returned when the environment could not be
// extracted from Conan. No state is changed when it is returned.
type ExtractionFailedError struct {
	Kind  Kind
	Cause error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("failed to extract %s environment: %v", e.Kind, e.Cause)
}

func (e *ExtractionFailedError) Unwrap() error { return e.Cause }

// ApplyError is returned when a variable cannot be written to the environment.
type ApplyError struct {
	Name  string
	Cause error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to apply environment variable %s: %v", e.Name, e.Cause)
}

func (e *ApplyError) Unwrap() error { return e.Cause }

// InvalidNameError is returned for variable names an environment cannot hold.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid environment variable name %q", e.Name)
}

// StateError is returned when persisted state cannot be read or written.
type StateError struct {
	Op    string
	Key   string
	Cause error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("failed to %s state %s: %v", e.Op, e.Key, e.Cause)
}

func (e *StateError) Unwrap() error { return e.Cause }

// MirrorWriteError is returned when the mirror file cannot be written.
type MirrorWriteError struct {
	Path  string
	Cause error
}

func (e *MirrorWriteError) Error() string {
	return fmt.Sprintf("failed to write environment mirror %s: %v", e.Path, e.Cause)
}

func (e *MirrorWriteError) Unwrap() error { return e.Cause }

// -- Sentinels --

var (
	ErrUnknownKind = errors.New("unknown environment kind")
	ErrNotActive   = errors.New("no environment is active")
)
