package extract

import (
	"errors"
	"fmt"
)

// ErrMalformedOutput is returned when the capture script prints something
// other than a JSON object of strings and nulls.
var ErrMalformedOutput = errors.New("malformed environment output")

// ScriptError is returned when the capture script exits unsuccessfully.
type ScriptError struct {
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ScriptError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("environment capture exited with status %d: %v", e.ExitCode, e.Cause)
	}
	return fmt.Sprintf("environment capture exited with status %d: %v\n%s", e.ExitCode, e.Cause, e.Stderr)
}

func (e *ScriptError) Unwrap() error { return e.Cause }
