// Package command maps configuration entries to Conan command lines.
//
// Build is pure: it touches neither the filesystem nor the environment, and
// identical inputs always render the identical command line.
package command

import (
	"path/filepath"
	"strings"

	"github.com/Cyclone1070/conanws/internal/tool/service/path"
)

type field int

const (
	fieldReference field = iota
	fieldProfile
	fieldInstallFolder
	fieldBuildFolder
	fieldPackageFolder
	fieldSourceFolder
	fieldArgs
)

// flagSpec is one optional element of a command line.
type flagSpec struct {
	field field
	flag  string
}

var (
	specReference     = flagSpec{field: fieldReference}
	specProfile       = flagSpec{field: fieldProfile, flag: "-pr"}
	specInstallFolder = flagSpec{field: fieldInstallFolder, flag: "-if"}
	specBuildFolder   = flagSpec{field: fieldBuildFolder, flag: "-bf"}
	specPackageFolder = flagSpec{field: fieldPackageFolder, flag: "-pf"}
	specSourceFolder  = flagSpec{field: fieldSourceFolder, flag: "-sf"}
	specArgs          = flagSpec{field: fieldArgs}
)

// layouts fixes, per kind, which optional fields are read and in what order
// they follow the recipe path.
var layouts = map[Kind][]flagSpec{
	KindCreate:        {specReference, specProfile, specArgs},
	KindInstall:       {specProfile, specInstallFolder, specArgs},
	KindBuild:         {specInstallFolder, specBuildFolder, specPackageFolder, specSourceFolder, specArgs},
	KindSource:        {specInstallFolder, specSourceFolder, specArgs},
	KindPackage:       {specInstallFolder, specBuildFolder, specPackageFolder, specSourceFolder, specArgs},
	KindPackageExport: {specInstallFolder, specBuildFolder, specPackageFolder, specSourceFolder, specProfile, specArgs},
}

// CommandLine is an immutable sequence of tokens, starting with the Conan
// sub-command. The program name is not included.
type CommandLine struct {
	tokens []string
}

// Tokens returns a copy of the command line tokens.
func (c CommandLine) Tokens() []string {
	out := make([]string, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// Argv returns the full argument vector for executing the command with program.
func (c CommandLine) Argv(program string) []string {
	return append([]string{program}, c.tokens...)
}

// String renders the tokens separated by single spaces.
func (c CommandLine) String() string {
	return strings.Join(c.tokens, " ")
}

// Build constructs the command line for kind from cfg, resolving every path
// against workspaceRoot. It reports false when the recipe field is empty or
// the kind is unknown; that is its only failure mode.
func Build(kind Kind, workspaceRoot string, cfg Config) (CommandLine, bool) {
	layout, ok := layouts[kind]
	if !ok || cfg.ConanFile == "" {
		return CommandLine{}, false
	}

	resolver := path.NewResolver(workspaceRoot)
	tokens := []string{kind.Subcommand(), recipePath(resolver, cfg.ConanFile)}

	for _, spec := range layout {
		switch spec.field {
		case fieldReference:
			if cfg.User != "" && cfg.Channel != "" {
				tokens = append(tokens, cfg.User+"/"+cfg.Channel)
			}
		case fieldProfile:
			if cfg.Profile != "" {
				tokens = append(tokens, spec.flag, cfg.Profile)
			}
		case fieldArgs:
			tokens = append(tokens, splitArgs(cfg.Args)...)
		default:
			if v := folderValue(spec.field, cfg); v != "" {
				tokens = append(tokens, spec.flag, resolver.Resolve(v))
			}
		}
	}

	return CommandLine{tokens: tokens}, true
}

// recipePath resolves the recipe field. A value without an extension names the
// folder holding the recipe, so the conventional file name is appended.
func recipePath(resolver *path.Resolver, value string) string {
	resolved := resolver.Resolve(value)
	if filepath.Ext(resolved) == "" {
		return filepath.Join(resolved, RecipeFile)
	}
	return resolved
}

func folderValue(f field, cfg Config) string {
	switch f {
	case fieldInstallFolder:
		return cfg.InstallFolder
	case fieldBuildFolder:
		return cfg.BuildFolder
	case fieldPackageFolder:
		return cfg.PackageFolder
	case fieldSourceFolder:
		return cfg.SourceFolder
	}
	return ""
}
