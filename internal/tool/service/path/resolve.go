package path

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkspaceFolderVar is expanded to the workspace root inside configured paths.
const WorkspaceFolderVar = "${workspaceFolder}"

// Resolver provides path resolution relative to a workspace root.
type Resolver struct {
	workspaceRoot string
}

// NewResolver creates a new path resolver for the given workspace.
func NewResolver(workspaceRoot string) *Resolver {
	return &Resolver{
		workspaceRoot: workspaceRoot,
	}
}

// Root returns the workspace root the resolver was created with.
func (r *Resolver) Root() string {
	return r.workspaceRoot
}

// CanonicaliseRoot canonicalises a workspace root path by making it absolute and resolving symlinks.
// Returns an error if the path doesn't exist or isn't a directory.
func CanonicaliseRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &WorkspaceRootError{Root: absRoot, Cause: err}
	}

	// Resolve symlinks in the workspace root to get canonical path
	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", &WorkspaceRootError{Root: absRoot, Cause: err}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", &WorkspaceRootError{Root: resolved, Cause: err}
	}
	if !info.IsDir() {
		return "", &WorkspaceRootError{Root: resolved, Cause: fmt.Errorf("%w: %s", ErrNotADirectory, resolved)}
	}
	return resolved, nil
}

// Resolve maps a configured path value to a cleaned absolute path.
// ${workspaceFolder} is expanded first; relative values are joined under the
// workspace root and absolute values are only cleaned. Unlike Abs, the result
// may lie outside the workspace (build folders often do).
func (r *Resolver) Resolve(value string) string {
	expanded := strings.ReplaceAll(value, WorkspaceFolderVar, r.workspaceRoot)
	expanded = filepath.FromSlash(expanded)
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded)
	}
	return filepath.Join(r.workspaceRoot, expanded)
}

// Abs resolves any path to absolute and validates it is within the workspace boundary.
// It cleans the path and ensures it does not escape the workspace root.
func (r *Resolver) Abs(path string) (string, error) {
	if r.workspaceRoot == "" {
		return "", ErrWorkspaceRootNotSet
	}

	abs := r.Resolve(path)

	// Boundary check: must be the root itself or a child of the root
	root := filepath.Clean(r.workspaceRoot)
	if !strings.HasPrefix(abs, root+string(filepath.Separator)) && abs != root {
		return "", ErrOutsideWorkspace
	}

	return abs, nil
}

// Rel resolves any path to relative to the workspace root and validates it is within the boundary.
func (r *Resolver) Rel(path string) (string, error) {
	abs, err := r.Abs(path)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(filepath.Clean(r.workspaceRoot), abs)
	if err != nil {
		return "", ErrOutsideWorkspace
	}

	if rel == "." {
		return "", nil
	}

	return filepath.ToSlash(rel), nil
}
