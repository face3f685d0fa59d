package workspace

import (
	"encoding/json"
	"path/filepath"

	"github.com/Cyclone1070/conanws/internal/command"
	"github.com/spf13/afero"
)

// document fixes the key order of a written settings file.
type document struct {
	Create        []command.Config `json:"create"`
	Install       []command.Config `json:"install"`
	Build         []command.Config `json:"build"`
	Source        []command.Config `json:"source"`
	Package       []command.Config `json:"package"`
	PackageExport []command.Config `json:"package-export"`
}

// WriteTemplate writes a settings file holding one default entry per kind.
// It refuses to overwrite an existing settings file.
func (l *Loader) WriteTemplate(root string) (string, error) {
	if root == "" {
		return "", ErrNoWorkspace
	}
	for _, rel := range SettingsFiles {
		if exists, _ := afero.Exists(l.fs, filepath.Join(root, rel)); exists {
			return "", ErrSettingsExist
		}
	}

	doc := document{
		Create:        []command.Config{command.DefaultConfig(command.KindCreate)},
		Install:       []command.Config{command.DefaultConfig(command.KindInstall)},
		Build:         []command.Config{command.DefaultConfig(command.KindBuild)},
		Source:        []command.Config{command.DefaultConfig(command.KindSource)},
		Package:       []command.Config{command.DefaultConfig(command.KindPackage)},
		PackageExport: []command.Config{command.DefaultConfig(command.KindPackageExport)},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(root, SettingsFiles[0])
	if err := l.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := afero.WriteFile(l.fs, path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Root resolves the workspace root from an explicit directory or the current
// working directory.
func Root(dir string, getwd func() (string, error)) (string, error) {
	if dir != "" {
		return dir, nil
	}
	wd, err := getwd()
	if err != nil || wd == "" {
		return "", ErrNoWorkspace
	}
	return wd, nil
}
