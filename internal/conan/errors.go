package conan

import "fmt"

// CommandFailedError is returned when a Conan command exits unsuccessfully.
type CommandFailedError struct {
	Command  string
	ExitCode int
	Cause    error
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("conan %s failed with exit code %d: %v", e.Command, e.ExitCode, e.Cause)
}

func (e *CommandFailedError) Unwrap() error { return e.Cause }
