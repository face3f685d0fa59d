package config

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFileSystem implements FileSystem for testing.
type MockFileSystem struct {
	HomeDir     string
	HomeDirErr  error
	Files       map[string][]byte
	ReadFileErr error
}

func (m *MockFileSystem) UserHomeDir() (string, error) {
	return m.HomeDir, m.HomeDirErr
}

func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	if m.ReadFileErr != nil {
		return nil, m.ReadFileErr
	}
	data, ok := m.Files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

const configPath = "/home/user/.config/conanws/config.json"

// --- HAPPY PATH TESTS ---

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{},
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "conan", cfg.Conan.Program)
	assert.Equal(t, "python3", cfg.Conan.PythonInterpreter)
	assert.Equal(t, 120, cfg.Conan.ExtractionTimeoutSeconds)
	assert.Equal(t, ".conan.env", cfg.Env.MirrorFile)
	assert.False(t, cfg.Env.MirrorEnabled)
}

func TestLoad_FullOverride_AllValuesReplaced(t *testing.T) {
	configJSON := `{
		"conan": {"program": "conan1", "python_interpreter": "/opt/py/bin/python", "extraction_timeout_seconds": 30, "command_timeout_seconds": 60},
		"env": {"mirror_enabled": true, "mirror_file": "build.env", "state_dir": "/tmp/state"},
		"executor": {"max_output_size": 1024, "graceful_shutdown_ms": 50},
		"log": {"level": "DEBUG", "pretty": false}
	}`
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(configJSON)},
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "conan1", cfg.Conan.Program)
	assert.Equal(t, "/opt/py/bin/python", cfg.Conan.PythonInterpreter)
	assert.Equal(t, 30, cfg.Conan.ExtractionTimeoutSeconds)
	assert.True(t, cfg.Env.MirrorEnabled)
	assert.Equal(t, "build.env", cfg.Env.MirrorFile)
	assert.Equal(t, int64(1024), cfg.Executor.MaxOutputSize)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoad_PartialOverride_MergesWithDefaults(t *testing.T) {
	configJSON := `{"env": {"mirror_enabled": true}}`
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(configJSON)},
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.True(t, cfg.Env.MirrorEnabled)              // Overridden
	assert.Equal(t, ".conan.env", cfg.Env.MirrorFile)  // Default preserved
	assert.Equal(t, "conan", cfg.Conan.Program)        // Default
	assert.Equal(t, 2000, cfg.Executor.GracefulShutdownMs)
}

func TestLoad_CommentsAreStripped(t *testing.T) {
	configJSON := `{
		// use the pinned interpreter
		"conan": {"python_interpreter": "/venv/bin/python" /* venv */}
	}`
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(configJSON)},
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "/venv/bin/python", cfg.Conan.PythonInterpreter)
}

func TestLoad_HomeDirError_ReturnsDefaults(t *testing.T) {
	fs := &MockFileSystem{HomeDirErr: errors.New("no home")}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

// --- UNHAPPY PATH TESTS ---

func TestLoad_MalformedJSON_ReturnsError(t *testing.T) {
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(`{invalid json`)},
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PermissionDenied_ReturnsError(t *testing.T) {
	fs := &MockFileSystem{
		HomeDir:     "/home/user",
		ReadFileErr: os.ErrPermission,
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidValues_FailsValidation(t *testing.T) {
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(`{"conan": {"extraction_timeout_seconds": 0}}`)},
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "extraction_timeout_seconds")
}

func TestStateDir(t *testing.T) {
	loader := NewLoaderWithFS(&MockFileSystem{HomeDir: "/home/user"})

	t.Run("Default Under Home", func(t *testing.T) {
		dir, err := loader.StateDir(DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, "/home/user/.local/state/conanws", dir)
	})

	t.Run("Explicit Override", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Env.StateDir = "/var/lib/conanws"
		dir, err := loader.StateDir(cfg)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/conanws", dir)
	})
}
