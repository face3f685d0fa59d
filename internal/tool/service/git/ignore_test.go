package git

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

const workspaceRoot = "/workspace"

// failingFs fails every read, to exercise the read error path.
type failingFs struct {
	afero.Fs
}

func (f failingFs) Open(name string) (afero.File, error) {
	return nil, errors.New("disk failure")
}

func newMatcher(t *testing.T, files map[string]string) *IgnoreMatcher {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	matcher, err := NewIgnoreMatcher(fs, workspaceRoot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return matcher
}

func TestIgnoreMatcher(t *testing.T) {
	t.Run("gitignore at workspace root", func(t *testing.T) {
		matcher := newMatcher(t, map[string]string{
			"/workspace/.gitignore": "# environment mirror\n.conan.env\nbuild/\n",
		})

		if !matcher.ShouldIgnore(".conan.env") {
			t.Error("expected .conan.env to be ignored")
		}
		if !matcher.ShouldIgnore("build/CMakeCache.txt") {
			t.Error("expected build/CMakeCache.txt to be ignored")
		}
		if matcher.ShouldIgnore("conanfile.py") {
			t.Error("expected conanfile.py not to be ignored")
		}
	})

	t.Run("no ignore files", func(t *testing.T) {
		matcher := newMatcher(t, nil)

		if matcher.ShouldIgnore(".conan.env") {
			t.Error("expected nothing to be ignored without ignore files")
		}
	})

	t.Run("info exclude", func(t *testing.T) {
		matcher := newMatcher(t, map[string]string{
			"/workspace/.git/info/exclude": "*.env\n",
		})

		if !matcher.ShouldIgnore(".conan.env") {
			t.Error("expected .conan.env to be ignored via info/exclude")
		}
	})

	t.Run("gitignore negation overrides exclude", func(t *testing.T) {
		matcher := newMatcher(t, map[string]string{
			"/workspace/.git/info/exclude": "*.env\n",
			"/workspace/.gitignore":        "!.conan.env\n",
		})

		if matcher.ShouldIgnore(".conan.env") {
			t.Error("expected negated pattern to win")
		}
		if !matcher.ShouldIgnore("other.env") {
			t.Error("expected other.env to stay ignored")
		}
	})

	t.Run("windows line endings", func(t *testing.T) {
		matcher := newMatcher(t, map[string]string{
			"/workspace/.gitignore": "*.log\r\nnode_modules\r\n",
		})

		if !matcher.ShouldIgnore("app.log") {
			t.Error("failed to match pattern with CRLF")
		}
		if !matcher.ShouldIgnore("node_modules/foo") {
			t.Error("failed to match directory with CRLF")
		}
	})

	t.Run("path normalization", func(t *testing.T) {
		matcher := newMatcher(t, map[string]string{"/workspace/.gitignore": "*.log"})

		if !matcher.ShouldIgnore("foo//bar.log") {
			t.Error("failed to ignore path with consecutive slashes")
		}
		if !matcher.ShouldIgnore("./baz.log") {
			t.Error("failed to ignore path with dot prefix")
		}
	})
}

func TestNewIgnoreMatcher_ReadError(t *testing.T) {
	_, err := NewIgnoreMatcher(failingFs{afero.NewMemMapFs()}, workspaceRoot)

	var gitErr *GitignoreReadError
	if !errors.As(err, &gitErr) {
		t.Fatalf("expected GitignoreReadError, got %T: %v", err, err)
	}
}
