package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Conan    ConanConfig    `json:"conan"`
	Env      EnvConfig      `json:"env"`
	Executor ExecutorConfig `json:"executor"`
	Log      LogConfig      `json:"log"`
}

type ConanConfig struct {
	Program                  string `json:"program"`                    // Default: "conan"
	PythonInterpreter        string `json:"python_interpreter"`         // Default: "python3"
	ExtractionTimeoutSeconds int    `json:"extraction_timeout_seconds"` // Default: 120
	CommandTimeoutSeconds    int    `json:"command_timeout_seconds"`    // Default: 3600
}

type EnvConfig struct {
	MirrorEnabled bool   `json:"mirror_enabled"` // Default: false
	MirrorFile    string `json:"mirror_file"`    // Default: ".conan.env" (relative to workspace root)
	StateDir      string `json:"state_dir"`      // Default: "" (resolved to ~/.local/state/conanws)
}

type ExecutorConfig struct {
	MaxOutputSize      int64 `json:"max_output_size"`      // Default: 10 * 1024 * 1024 (10MB)
	GracefulShutdownMs int   `json:"graceful_shutdown_ms"` // Default: 2000
}

type LogConfig struct {
	Level  string `json:"level"`  // Default: "INFO"
	Pretty bool   `json:"pretty"` // Default: true
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Conan: ConanConfig{
			Program:                  "conan",
			PythonInterpreter:        "python3",
			ExtractionTimeoutSeconds: 120,
			CommandTimeoutSeconds:    3600,
		},
		Env: EnvConfig{
			MirrorEnabled: false,
			MirrorFile:    ".conan.env",
		},
		Executor: ExecutorConfig{
			MaxOutputSize:      10 * 1024 * 1024,
			GracefulShutdownMs: 2000,
		},
		Log: LogConfig{
			Level:  "INFO",
			Pretty: true,
		},
	}
}
