package overlay

import (
	"errors"
	"maps"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// Mirror keeps a dotenv copy of the active overlay in the workspace,
// for tools that read environment files instead of inheriting a process
// environment.
type Mirror struct {
	fs      afero.Fs
	path    string
	enabled func() bool
}

// NewMirror creates a mirror writing to path. enabled is consulted before
// every write; when it reports false the file is left untouched.
func NewMirror(fs afero.Fs, path string, enabled func() bool) *Mirror {
	if fs == nil {
		panic("fs is required")
	}
	if enabled == nil {
		panic("enabled is required")
	}
	return &Mirror{fs: fs, path: path, enabled: enabled}
}

// Path returns the mirror file location.
func (m *Mirror) Path() string {
	return m.path
}

// valueEscaper quotes the characters godotenv treats specially inside double
// quotes, so Read returns every value verbatim.
var valueEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	"\r", `\r`,
	`"`, `\"`,
	"!", `\!`,
	"$", `\$`,
	"`", "\\`",
)

// Write replaces the file content with one NAME="value" line per overlay
// pair, in overlay order. Unset pairs are written with an empty value. An
// empty overlay empties the file.
func (m *Mirror) Write(o Overlay) error {
	if !m.enabled() {
		return nil
	}
	var b strings.Builder
	for _, p := range o {
		b.WriteString(p.Name)
		b.WriteString(`="`)
		if p.Value != nil {
			b.WriteString(valueEscaper.Replace(*p.Value))
		}
		b.WriteString("\"\n")
	}
	if err := afero.WriteFile(m.fs, m.path, []byte(b.String()), 0o644); err != nil {
		return &MirrorWriteError{Path: m.path, Cause: err}
	}
	return nil
}

// Read parses the mirror file. A missing file reads as empty.
func (m *Mirror) Read() (map[string]string, error) {
	f, err := m.fs.Open(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return godotenv.Parse(f)
}

// InSync reports whether the file holds exactly the values of o, which is
// nil when no overlay is active. A disabled mirror is always in sync.
func (m *Mirror) InSync(o Overlay) (bool, error) {
	if !m.enabled() {
		return true, nil
	}
	got, err := m.Read()
	if err != nil {
		return false, err
	}
	want := make(map[string]string, len(o))
	for _, p := range o {
		want[p.Name] = ""
		if p.Value != nil {
			want[p.Name] = *p.Value
		}
	}
	return maps.Equal(got, want), nil
}
