package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Cyclone1070/conanws/internal/command"
	"github.com/Cyclone1070/conanws/internal/config"
	"github.com/Cyclone1070/conanws/internal/overlay"
	"github.com/Cyclone1070/conanws/internal/tool/service/executor"
	"github.com/Cyclone1070/conanws/internal/workspace"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ws = "/home/user/ws"

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type fakeExec struct {
	runFunc func(command []string, opts executor.Options) (*executor.Result, error)
	calls   [][]string
}

func (f *fakeExec) Run(_ context.Context, command []string, opts executor.Options) (*executor.Result, error) {
	f.calls = append(f.calls, command)
	if f.runFunc != nil {
		return f.runFunc(command, opts)
	}
	return &executor.Result{}, nil
}

type fakeChooser struct {
	index  int
	ok     bool
	titles []string
}

func (f *fakeChooser) ChooseOne(_ context.Context, title string, candidates []string) (int, bool, error) {
	f.titles = append(f.titles, title)
	return f.index, f.ok, nil
}

type passthroughRenderer struct{}

func (passthroughRenderer) Render(content string, _ int) (string, error) {
	return content, nil
}

type interactiveCall struct {
	argv []string
	dir  string
	env  []string
}

type harness struct {
	deps        *Dependencies
	fs          afero.Fs
	env         *overlay.MapEnvironment
	exec        *fakeExec
	chooser     *fakeChooser
	interactive []interactiveCall
	exitCode    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fs:      afero.NewMemMapFs(),
		env:     overlay.NewMapEnvironment([]string{"PATH=/usr/bin", "CC=gcc"}),
		exec:    &fakeExec{},
		chooser: &fakeChooser{ok: true},
	}
	require.NoError(t, h.fs.MkdirAll(ws, 0o755))
	h.deps = &Dependencies{
		Config:   config.DefaultConfig(),
		StateDir: "/state",
		Fs:       h.fs,
		Env:      h.env,
		Exec:     h.exec,
		Interactive: func(_ context.Context, argv []string, dir string, env []string) (int, error) {
			h.interactive = append(h.interactive, interactiveCall{argv: argv, dir: dir, env: env})
			return h.exitCode, nil
		},
		Chooser:  h.chooser,
		Renderer: passthroughRenderer{},
		Getwd:    func() (string, error) { return ws, nil },
		Shell:    func() string { return "/bin/bash" },
	}
	return h
}

func (h *harness) run(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	h.deps.Stdout = &out
	h.deps.Stderr = &errOut
	cmd := newRootCmd(h.deps)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) writeSettings(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.fs, ws+"/.vscode/conan-settings.json", []byte(content), 0o644))
}

// extractionOutput answers capture script calls with stdout and every other
// command with success.
func extractionOutput(stdout string) func([]string, executor.Options) (*executor.Result, error) {
	return func(command []string, _ executor.Options) (*executor.Result, error) {
		if len(command) > 2 && (command[2] == "build" || command[2] == "run") {
			return &executor.Result{Stdout: stdout}, nil
		}
		return &executor.Result{}, nil
	}
}

func envValue(environ []string, name string) (string, bool) {
	v, ok := overlay.NewMapEnvironment(environ).Lookup(name)
	return v, ok
}

func TestInitThenDryRun(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run("init")
	require.NoError(t, err)
	assert.Contains(t, stderr, "created "+ws+"/.vscode/conan-settings.json")

	stdout, _, err := h.run("package-export", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t,
		"conan export-pkg /home/user/ws/conanfile.py -if /home/user/ws/install -bf /home/user/ws/build -pf /home/user/ws/package -sf /home/user/ws/source\n",
		stdout)
	assert.Empty(t, h.exec.calls)
}

func TestInit_ExistingSettings(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"build": []}`)

	_, stderr, err := h.run("init")

	require.NoError(t, err)
	assert.Contains(t, stderr, "already exists")
}

func TestExportPkgAlias(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"package-export": [{"name": "x", "conanFile": "conanfile.py"}]}`)

	stdout, _, err := h.run("export-pkg", "--dry-run")

	require.NoError(t, err)
	assert.Equal(t, "conan export-pkg /home/user/ws/conanfile.py\n", stdout)
}

func TestBuild_RunsConanInWorkspace(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{
		// comments are allowed
		"install": [{"name": "default", "conanFile": "conanfile.py", "profile": "default", "installFolder": "out"}]
	}`)
	var gotOpts executor.Options
	h.exec.runFunc = func(_ []string, opts executor.Options) (*executor.Result, error) {
		gotOpts = opts
		return &executor.Result{}, nil
	}

	_, stderr, err := h.run("install")

	require.NoError(t, err)
	require.Len(t, h.exec.calls, 1)
	assert.Equal(t, []string{"conan", "install", ws + "/conanfile.py", "-pr", "default", "-if", ws + "/out"}, h.exec.calls[0])
	assert.Equal(t, ws, gotOpts.Dir)
	assert.Contains(t, stderr, "conan install finished")
}

func TestBuild_ChooserPicksEntry(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"build": [
		{"name": "debug", "conanFile": "conanfile.py", "buildFolder": "build/debug"},
		{"name": "release", "conanFile": "conanfile.py", "buildFolder": "build/release"}
	]}`)
	h.chooser.index = 1

	stdout, _, err := h.run("build", "--dry-run")

	require.NoError(t, err)
	assert.Equal(t, "conan build /home/user/ws/conanfile.py -bf /home/user/ws/build/release\n", stdout)
	assert.Equal(t, []string{"Select build configuration"}, h.chooser.titles)
}

func TestBuild_ChooserDismissed(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"build": [{"name": "a", "conanFile": "x.py"}, {"name": "b", "conanFile": "y.py"}]}`)
	h.chooser.ok = false

	_, stderr, err := h.run("build")

	require.NoError(t, err)
	assert.Contains(t, stderr, "no build configuration selected")
	assert.Empty(t, h.exec.calls)
}

func TestBuild_MissingRecipe(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"source": [{"name": "fetch", "sourceFolder": "src"}]}`)

	_, _, err := h.run("source", "--name", "fetch")

	var missing *command.MissingRequiredFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, `source: conanFile is not set in configuration entry "fetch"`, err.Error())
	assert.Empty(t, h.exec.calls)
}

func TestBuild_NoSettings(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run("create")

	require.NoError(t, err)
	assert.Contains(t, stderr, "Warning: no conan settings found in workspace "+ws)
	assert.NotContains(t, stderr, "Error")
	assert.Empty(t, h.exec.calls)
}

func TestBuild_NoWorkspace(t *testing.T) {
	h := newHarness(t)
	h.deps.Getwd = func() (string, error) { return "", errors.New("no cwd") }

	_, _, err := h.run("build")

	assert.ErrorIs(t, err, workspace.ErrNoWorkspace)
}

func TestBuild_ConanFailureExitCode(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"build": [{"name": "b", "conanFile": "conanfile.py"}]}`)
	h.exec.runFunc = func([]string, executor.Options) (*executor.Result, error) {
		return &executor.Result{ExitCode: 3}, errors.New("exit status 3")
	}

	_, stderr, err := h.run("build")

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.code)
	assert.Contains(t, stderr, "failed with exit code 3")
}

func TestBuild_ConanTimeout(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"build": [{"name": "b", "conanFile": "conanfile.py"}]}`)
	h.exec.runFunc = func([]string, executor.Options) (*executor.Result, error) {
		return &executor.Result{ExitCode: -1}, executor.ErrTimeout
	}

	_, _, err := h.run("build")

	assert.ErrorIs(t, err, executor.ErrTimeout)
	var exitErr *exitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestBuild_UsesActiveEnvironment(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"build": [{"name": "b", "conanFile": "conanfile.py"}]}`)
	h.exec.runFunc = extractionOutput(`{"CONAN_MARKER":"on"}`)
	_, _, err := h.run("env", "activate", "build", "--", ".")
	require.NoError(t, err)

	var gotEnv []string
	h.exec.runFunc = func(_ []string, opts executor.Options) (*executor.Result, error) {
		gotEnv = opts.Env
		return &executor.Result{}, nil
	}
	_, _, err = h.run("build")

	require.NoError(t, err)
	v, ok := envValue(gotEnv, "CONAN_MARKER")
	assert.True(t, ok)
	assert.Equal(t, "on", v)
}

func TestEnvLifecycle(t *testing.T) {
	h := newHarness(t)
	h.exec.runFunc = extractionOutput(`{"CC":"clang","CONAN_OLD":null}`)

	_, stderr, err := h.run("env", "activate", "build", "--", ".", "-pr", "default")
	require.NoError(t, err)
	assert.Contains(t, stderr, "activated conan build environment")
	assert.Contains(t, stderr, "conanws env shell")
	require.Len(t, h.exec.calls, 1)
	assert.Equal(t, []string{"build", ".", "-pr", "default"}, h.exec.calls[0][2:])
	v, _ := h.env.Lookup("CC")
	assert.Equal(t, "clang", v)

	stdout, _, err := h.run("env", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Conan build environment")
	assert.Contains(t, stdout, "| CC | `clang` |")
	assert.Contains(t, stdout, "| CONAN_OLD | *unset* |")

	// A new process starts from the original environment.
	h.env = overlay.NewMapEnvironment([]string{"PATH=/usr/bin", "CC=gcc"})
	h.deps.Env = h.env
	_, _, err = h.run("env", "exec", "--", "make", "-j4")
	require.NoError(t, err)
	require.Len(t, h.interactive, 1)
	assert.Equal(t, []string{"make", "-j4"}, h.interactive[0].argv)
	assert.Equal(t, ws, h.interactive[0].dir)
	v, _ = envValue(h.interactive[0].env, "CC")
	assert.Equal(t, "clang", v)

	_, stderr, err = h.run("env", "restore")
	require.NoError(t, err)
	assert.Contains(t, stderr, "restored")

	stdout, _, err = h.run("env", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No environment is active")

	_, stderr, err = h.run("env", "restore")
	require.NoError(t, err)
	assert.Contains(t, stderr, "no conan environment is active")
}

func TestEnvActivate_ArgsFromInstallEntry(t *testing.T) {
	h := newHarness(t)
	h.writeSettings(t, `{"install": [{"name": "default", "conanFile": "conanfile.py", "profile": "gcc12", "installFolder": "install", "args": "--build missing"}]}`)
	h.exec.runFunc = extractionOutput(`{}`)

	_, _, err := h.run("env", "activate", "run")

	require.NoError(t, err)
	require.Len(t, h.exec.calls, 1)
	assert.Equal(t, []string{"run", ws + "/conanfile.py", "-pr", "gcc12", "--build", "missing"}, h.exec.calls[0][2:])
}

func TestEnvActivate_NoSettingsUsesRoot(t *testing.T) {
	h := newHarness(t)
	h.exec.runFunc = extractionOutput(`{}`)

	_, _, err := h.run("env", "activate", "build")

	require.NoError(t, err)
	assert.Equal(t, []string{"build", ws}, h.exec.calls[0][2:])
}

func TestEnvActivate_ExtractionFailure(t *testing.T) {
	h := newHarness(t)
	h.exec.runFunc = func([]string, executor.Options) (*executor.Result, error) {
		return &executor.Result{ExitCode: 1, Stderr: "ERROR: recipe not found"}, errors.New("exit status 1")
	}
	before := h.env.Environ()

	_, _, err := h.run("env", "activate", "build", "--", ".")

	var extractErr *overlay.ExtractionFailedError
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, err.Error(), "recipe not found")
	assert.Equal(t, before, h.env.Environ())
}

func TestEnvActivate_UnknownKind(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("env", "activate", "test")

	assert.ErrorIs(t, err, overlay.ErrUnknownKind)
}

func TestEnvActivate_MirrorWarnsWhenNotIgnored(t *testing.T) {
	h := newHarness(t)
	h.deps.Config.Env.MirrorEnabled = true
	h.exec.runFunc = extractionOutput(`{"CC":"clang"}`)

	_, stderr, err := h.run("env", "activate", "build", "--", ".")
	require.NoError(t, err)
	assert.Contains(t, stderr, ".conan.env is not ignored by git")

	data, err := afero.ReadFile(h.fs, ws+"/.conan.env")
	require.NoError(t, err)
	assert.Contains(t, string(data), "CC=\"clang\"\n")

	require.NoError(t, afero.WriteFile(h.fs, ws+"/.gitignore", []byte(".conan.env\n"), 0o644))
	_, stderr, err = h.run("env", "activate", "build", "--", ".")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "not ignored")

	_, _, err = h.run("env", "restore")
	require.NoError(t, err)
	data, err = afero.ReadFile(h.fs, ws+"/.conan.env")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestEnvShow_ReportsMirrorDrift(t *testing.T) {
	h := newHarness(t)
	h.deps.Config.Env.MirrorEnabled = true
	require.NoError(t, afero.WriteFile(h.fs, ws+"/.gitignore", []byte(".conan.env\n"), 0o644))
	h.exec.runFunc = extractionOutput(`{"CC":"clang","LDFLAGS":"-Wl,-rpath,$ORIGIN/../lib"}`)

	_, _, err := h.run("env", "activate", "build", "--", ".")
	require.NoError(t, err)

	_, stderr, err := h.run("env", "show")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Warning")

	require.NoError(t, afero.WriteFile(h.fs, ws+"/.conan.env", []byte("CC=gcc\n"), 0o644))
	_, stderr, err = h.run("env", "show")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Warning: "+ws+"/.conan.env does not match the active environment")
	assert.Contains(t, stderr, "conanws env activate build")

	_, _, err = h.run("env", "restore")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(h.fs, ws+"/.conan.env", []byte("CC=gcc\n"), 0o644))
	_, stderr, err = h.run("env", "show")
	require.NoError(t, err)
	assert.Contains(t, stderr, "holds variables but no conan environment is active")
}

func TestEnvShell_ExitCode(t *testing.T) {
	h := newHarness(t)
	h.exitCode = 130

	_, stderr, err := h.run("env", "shell")

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 130, exitErr.code)
	assert.Equal(t, []string{"/bin/bash"}, h.interactive[0].argv)
	assert.Contains(t, stderr, "no conan environment is active")
}

func TestWorkspaceFlag(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/other/.vscode/conan-settings.yaml",
		[]byte("source:\n  - name: s\n    conanFile: conanfile.py\n"), 0o644))

	stdout, _, err := h.run("--workspace", "/other", "source", "--dry-run")

	require.NoError(t, err)
	assert.Equal(t, "conan source /other/conanfile.py\n", stdout)
}
