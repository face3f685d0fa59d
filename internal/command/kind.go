package command

import "fmt"

// Kind identifies one of the Conan sub-commands a configuration entry targets.
type Kind string

const (
	KindCreate        Kind = "create"
	KindInstall       Kind = "install"
	KindBuild         Kind = "build"
	KindSource        Kind = "source"
	KindPackage       Kind = "package"
	KindPackageExport Kind = "package-export"
)

// Kinds returns every supported kind in menu order.
func Kinds() []Kind {
	return []Kind{KindCreate, KindInstall, KindBuild, KindSource, KindPackage, KindPackageExport}
}

// ParseKind maps a user-facing name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	if s == "export-pkg" {
		return KindPackageExport, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Subcommand returns the Conan sub-command name for the kind.
func (k Kind) Subcommand() string {
	if k == KindPackageExport {
		return "export-pkg"
	}
	return string(k)
}

// SettingsKey returns the key grouping entries of this kind in the workspace settings file.
func (k Kind) SettingsKey() string {
	return string(k)
}
