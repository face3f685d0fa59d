package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

var validLogLevels = map[string]bool{
	"DEBUG":   true,
	"INFO":    true,
	"WARN":    true,
	"WARNING": true,
	"ERROR":   true,
}

// Validate checks config values for correctness.
// Returns an error listing every invalid value.
func (c *Config) Validate() error {
	var errs []string

	// Conan validation
	if strings.TrimSpace(c.Conan.Program) == "" {
		errs = append(errs, "conan.program must not be empty")
	}
	if strings.TrimSpace(c.Conan.PythonInterpreter) == "" {
		errs = append(errs, "conan.python_interpreter must not be empty")
	}
	if c.Conan.ExtractionTimeoutSeconds < 1 {
		errs = append(errs, "conan.extraction_timeout_seconds must be >= 1")
	}
	if c.Conan.CommandTimeoutSeconds < 1 {
		errs = append(errs, "conan.command_timeout_seconds must be >= 1")
	}

	// Env validation
	if c.Env.MirrorFile == "" {
		errs = append(errs, "env.mirror_file must not be empty")
	} else if filepath.IsAbs(c.Env.MirrorFile) {
		errs = append(errs, "env.mirror_file must be relative to the workspace root")
	}

	// Executor validation
	if c.Executor.MaxOutputSize < 1 {
		errs = append(errs, "executor.max_output_size must be >= 1")
	}
	if c.Executor.GracefulShutdownMs < 1 {
		errs = append(errs, "executor.graceful_shutdown_ms must be >= 1")
	}

	// Log validation
	if !validLogLevels[strings.ToUpper(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q is not one of DEBUG, INFO, WARN, ERROR", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
