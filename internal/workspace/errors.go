package workspace

import (
	"errors"
	"fmt"

	"github.com/Cyclone1070/conanws/internal/command"
)

// ConfigurationMissingError is returned when a workspace has no settings file.
type ConfigurationMissingError struct {
	Root string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("no conan settings found in workspace %s (run `conanws init` to create %s)", e.Root, SettingsFiles[0])
}

// SettingsParseError is returned when a settings file cannot be decoded.
type SettingsParseError struct {
	Path  string
	Cause error
}

func (e *SettingsParseError) Error() string {
	return fmt.Sprintf("failed to parse settings file %s: %v", e.Path, e.Cause)
}

func (e *SettingsParseError) Unwrap() error { return e.Cause }

// NoEntriesError is returned when the settings hold no entries for a kind.
type NoEntriesError struct {
	Kind command.Kind
	Path string
}

func (e *NoEntriesError) Error() string {
	return fmt.Sprintf("no %q entries in %s", e.Kind, e.Path)
}

// EntryNotFoundError is returned when a named entry does not exist.
type EntryNotFoundError struct {
	Kind command.Kind
	Name string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("no %q entry named %q", e.Kind, e.Name)
}

// -- Sentinels --

var (
	ErrNoWorkspace     = errors.New("no workspace selected")
	ErrNothingSelected = errors.New("no configuration entry selected")
	ErrSettingsExist   = errors.New("settings file already exists")
)
