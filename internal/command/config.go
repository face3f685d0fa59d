package command

// RecipeFile is the conventional Conan recipe file name.
const RecipeFile = "conanfile.py"

// Config is one named configuration entry for a sub-command.
// Every field is optional except ConanFile; an empty string means "not set".
// Which fields a kind reads is fixed by its layout (see builder.go).
type Config struct {
	Name        string `mapstructure:"name" json:"name" yaml:"name"`
	Description string `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`

	ConanFile string `mapstructure:"conanFile" json:"conanFile" yaml:"conanFile"`
	Profile   string `mapstructure:"profile" json:"profile,omitempty" yaml:"profile,omitempty"`
	User      string `mapstructure:"user" json:"user,omitempty" yaml:"user,omitempty"`
	Channel   string `mapstructure:"channel" json:"channel,omitempty" yaml:"channel,omitempty"`
	Args      string `mapstructure:"args" json:"args,omitempty" yaml:"args,omitempty"`

	InstallFolder string `mapstructure:"installFolder" json:"installFolder,omitempty" yaml:"installFolder,omitempty"`
	BuildFolder   string `mapstructure:"buildFolder" json:"buildFolder,omitempty" yaml:"buildFolder,omitempty"`
	PackageFolder string `mapstructure:"packageFolder" json:"packageFolder,omitempty" yaml:"packageFolder,omitempty"`
	SourceFolder  string `mapstructure:"sourceFolder" json:"sourceFolder,omitempty" yaml:"sourceFolder,omitempty"`
}

// DefaultConfig returns the template entry for a kind, as written by `conanws init`.
// Only fields the kind's layout reads are populated.
func DefaultConfig(kind Kind) Config {
	cfg := Config{
		Name:        "default",
		Description: "Default " + string(kind) + " configuration",
		ConanFile:   RecipeFile,
	}
	for _, f := range layouts[kind] {
		switch f.field {
		case fieldProfile:
			cfg.Profile = "default"
		case fieldInstallFolder:
			cfg.InstallFolder = "install"
		case fieldBuildFolder:
			cfg.BuildFolder = "build"
		case fieldPackageFolder:
			cfg.PackageFolder = "package"
		case fieldSourceFolder:
			cfg.SourceFolder = "source"
		}
	}
	// Profiles are opt-in for export-pkg; the package is already built.
	if kind == KindPackageExport {
		cfg.Profile = ""
	}
	return cfg
}
