// Package workspace loads the per-workspace Conan settings file and selects
// configuration entries from it.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/Cyclone1070/conanws/internal/command"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// SettingsFiles lists the settings file locations relative to the workspace
// root, in lookup order.
var SettingsFiles = []string{
	filepath.Join(".vscode", "conan-settings.json"),
	filepath.Join(".vscode", "conan-settings.yaml"),
	filepath.Join(".vscode", "conan-settings.yml"),
}

// Settings holds the configuration entries of one workspace, grouped by kind.
type Settings struct {
	Root    string
	Path    string
	entries map[command.Kind][]command.Config
}

// Entries returns the configuration entries for kind, in file order.
func (s *Settings) Entries(kind command.Kind) []command.Config {
	return s.entries[kind]
}

// Find returns the entry of kind with the given name.
func (s *Settings) Find(kind command.Kind, name string) (command.Config, error) {
	for _, e := range s.entries[kind] {
		if e.Name == name {
			return e, nil
		}
	}
	return command.Config{}, &EntryNotFoundError{Kind: kind, Name: name}
}

// Chooser picks one of several candidates. It reports false when the user
// dismissed the choice.
type Chooser interface {
	ChooseOne(ctx context.Context, title string, candidates []string) (int, bool, error)
}

// Select returns the entry named name, or asks chooser when name is empty.
func (s *Settings) Select(ctx context.Context, kind command.Kind, name string, chooser Chooser) (command.Config, error) {
	entries := s.entries[kind]
	if len(entries) == 0 {
		return command.Config{}, &NoEntriesError{Kind: kind, Path: s.Path}
	}
	if name != "" {
		return s.Find(kind, name)
	}

	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Name
		if e.Description != "" {
			labels[i] += " - " + e.Description
		}
	}
	idx, ok, err := chooser.ChooseOne(ctx, "Select "+string(kind)+" configuration", labels)
	if err != nil {
		return command.Config{}, err
	}
	if !ok || idx < 0 || idx >= len(entries) {
		return command.Config{}, ErrNothingSelected
	}
	return entries[idx], nil
}

// Loader reads workspace settings from a filesystem.
type Loader struct {
	fs afero.Fs
}

// NewLoader creates a Loader on the given filesystem.
func NewLoader(fs afero.Fs) *Loader {
	if fs == nil {
		panic("fs is required")
	}
	return &Loader{fs: fs}
}

// Load finds and decodes the settings file of the workspace at root.
// Unknown keys are ignored; missing fields decode as "not set".
func (l *Loader) Load(root string) (*Settings, error) {
	if root == "" {
		return nil, ErrNoWorkspace
	}

	for _, rel := range SettingsFiles {
		path := filepath.Join(root, rel)
		data, err := afero.ReadFile(l.fs, path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}

		raw, err := decodeDocument(path, data)
		if err != nil {
			return nil, &SettingsParseError{Path: path, Cause: err}
		}

		entries, err := decodeEntries(raw)
		if err != nil {
			return nil, &SettingsParseError{Path: path, Cause: err}
		}
		return &Settings{Root: root, Path: path, entries: entries}, nil
	}

	return nil, &ConfigurationMissingError{Root: root}
}

func decodeDocument(path string, data []byte) (map[string]any, error) {
	raw := map[string]any{}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func decodeEntries(raw map[string]any) (map[command.Kind][]command.Config, error) {
	entries := make(map[command.Kind][]command.Config)
	for _, kind := range command.Kinds() {
		value, ok := raw[kind.SettingsKey()]
		if !ok {
			continue
		}

		var list []command.Config
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &list,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(value); err != nil {
			return nil, &decodeError{kind: kind, cause: err}
		}
		entries[kind] = list
	}
	return entries, nil
}

type decodeError struct {
	kind  command.Kind
	cause error
}

func (e *decodeError) Error() string { return string(e.kind) + ": " + e.cause.Error() }
func (e *decodeError) Unwrap() error { return e.cause }
