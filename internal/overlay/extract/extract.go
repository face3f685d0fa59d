// Package extract obtains environment overlays by running Conan's virtual
// environment generators through a small Python script.
package extract

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Cyclone1070/conanws/internal/config"
	"github.com/Cyclone1070/conanws/internal/logging"
	"github.com/Cyclone1070/conanws/internal/overlay"
	"github.com/Cyclone1070/conanws/internal/tool/service/executor"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

//go:embed capture_env.py
var captureScript []byte

// stderrTail bounds how much script output is kept in errors.
const stderrTail = 4096

// CommandRunner runs a command to completion.
type CommandRunner interface {
	Run(ctx context.Context, command []string, opts executor.Options) (*executor.Result, error)
}

// Extractor implements overlay.Extractor.
type Extractor struct {
	runner      CommandRunner
	interpreter string
	timeout     time.Duration
	lookPath    func(string) (string, error)
	log         zerolog.Logger
}

// New creates an Extractor. The interpreter and timeout come from cfg.Conan.
func New(runner CommandRunner, cfg *config.Config) *Extractor {
	if runner == nil {
		panic("runner is required")
	}
	if cfg == nil {
		panic("cfg is required")
	}
	return &Extractor{
		runner:      runner,
		interpreter: cfg.Conan.PythonInterpreter,
		timeout:     time.Duration(cfg.Conan.ExtractionTimeoutSeconds) * time.Second,
		lookPath:    exec.LookPath,
		log:         logging.With("extract"),
	}
}

// Extract runs the capture script for kind and returns the variables it
// reports, in the order reported. The interpreter's directory is prepended
// to PATH so tools installed next to it stay reachable.
// Every failure is returned as an *overlay.ExtractionFailedError.
func (e *Extractor) Extract(ctx context.Context, kind overlay.Kind, req overlay.ExtractRequest) (overlay.Overlay, error) {
	o, err := e.extract(ctx, kind, req)
	if err != nil {
		return nil, &overlay.ExtractionFailedError{Kind: kind, Cause: err}
	}
	return o, nil
}

func (e *Extractor) extract(ctx context.Context, kind overlay.Kind, req overlay.ExtractRequest) (overlay.Overlay, error) {
	interpreter := req.Interpreter
	if interpreter == "" {
		interpreter = e.interpreter
	}

	script, cleanup, err := writeScript()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	command := append([]string{interpreter, script, string(kind)}, req.Args...)
	e.log.Debug().Strs("command", command).Str("dir", req.WorkingDir).Msg("capturing environment")

	res, err := e.runner.Run(ctx, command, executor.Options{
		Dir:     req.WorkingDir,
		Env:     req.Env,
		Timeout: e.timeout,
	})
	if err != nil {
		se := &ScriptError{Cause: err}
		if res != nil {
			se.ExitCode = res.ExitCode
			se.Stderr = tail(res.Stderr, stderrTail)
		}
		return nil, se
	}

	o, err := Parse(res.Stdout)
	if err != nil {
		return nil, err
	}
	if dir := e.interpreterDir(interpreter); dir != "" {
		o = prependPath(o, req.Env, dir)
	}
	return o, nil
}

// Parse decodes a JSON object mapping names to a string (set) or null (unset).
// Keys keep document order.
func Parse(output string) (overlay.Overlay, error) {
	output = strings.TrimSpace(output)
	if !gjson.Valid(output) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedOutput)
	}
	doc := gjson.Parse(output)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected an object", ErrMalformedOutput)
	}

	var o overlay.Overlay
	var parseErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.String:
			o = append(o, overlay.Set(key.String(), value.String()))
		case gjson.Null:
			o = append(o, overlay.Unset(key.String()))
		default:
			parseErr = fmt.Errorf("%w: value of %s is %s", ErrMalformedOutput, key.String(), value.Type)
			return false
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return o, nil
}

func (e *Extractor) interpreterDir(interpreter string) string {
	resolved := interpreter
	if !strings.ContainsRune(interpreter, filepath.Separator) && !strings.ContainsRune(interpreter, '/') {
		p, err := e.lookPath(interpreter)
		if err != nil {
			return ""
		}
		resolved = p
	}
	dir := filepath.Dir(resolved)
	if dir == "." {
		return ""
	}
	return dir
}

// prependPath puts dir in front of the PATH the overlay sets, or of the
// environment's PATH when the overlay leaves it alone.
func prependPath(o overlay.Overlay, environ []string, dir string) overlay.Overlay {
	current, inOverlay := o.Lookup("PATH")
	base := ""
	switch {
	case inOverlay && current != nil:
		base = *current
	case !inOverlay:
		base = envValue(environ, "PATH")
	}

	list := filepath.SplitList(base)
	if len(list) > 0 && list[0] == dir {
		return o
	}
	value := dir
	if base != "" {
		value = dir + string(os.PathListSeparator) + base
	}

	out := make(overlay.Overlay, 0, len(o)+1)
	replaced := false
	for _, p := range o {
		if p.Name == "PATH" {
			if replaced {
				continue
			}
			p = overlay.Set("PATH", value)
			replaced = true
		}
		out = append(out, p)
	}
	if !replaced {
		out = append(out, overlay.Set("PATH", value))
	}
	return out
}

func envValue(environ []string, name string) string {
	value := ""
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			value = v
		}
	}
	return value
}

// writeScript stores the embedded capture script in a temp file.
func writeScript() (string, func(), error) {
	f, err := os.CreateTemp("", "conanws-capture-*.py")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.Write(captureScript); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
