// Package git answers whether workspace files are excluded from version control.
package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/spf13/afero"
)

// GitignoreReadError is returned when an ignore file exists but cannot be read.
type GitignoreReadError struct {
	Path  string
	Cause error
}

func (e *GitignoreReadError) Error() string {
	return fmt.Sprintf("failed to read ignore file at %s: %v", e.Path, e.Cause)
}
func (e *GitignoreReadError) Unwrap() error { return e.Cause }

// ignoreFiles are read in order; later patterns take precedence.
var ignoreFiles = []string{
	filepath.Join(".git", "info", "exclude"),
	".gitignore",
}

// IgnoreMatcher matches workspace-relative paths against the ignore
// patterns at the workspace root.
type IgnoreMatcher struct {
	matcher gitignore.Matcher
}

// NewIgnoreMatcher loads the ignore patterns of workspaceRoot.
// Missing ignore files are not an error; the matcher then ignores nothing.
func NewIgnoreMatcher(fs afero.Fs, workspaceRoot string) (*IgnoreMatcher, error) {
	if fs == nil {
		panic("fs is required")
	}
	if workspaceRoot == "" {
		panic("workspaceRoot is required")
	}

	var patterns []gitignore.Pattern
	for _, name := range ignoreFiles {
		path := filepath.Join(workspaceRoot, name)
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &GitignoreReadError{Path: path, Cause: err}
		}
		patterns = append(patterns, parsePatterns(string(data))...)
	}
	if len(patterns) == 0 {
		return &IgnoreMatcher{}, nil
	}
	return &IgnoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ShouldIgnore reports whether relativePath is ignored.
func (m *IgnoreMatcher) ShouldIgnore(relativePath string) bool {
	if m.matcher == nil {
		return false
	}
	return m.matcher.Match(splitPath(relativePath), false)
}

func parsePatterns(content string) []gitignore.Pattern {
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns
}

// splitPath splits a path into segments for gitignore matching.
// It normalizes path separators and filters out empty and "." segments.
func splitPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
