// Package overlay applies, persists, and reverses environment-variable
// overlays produced by Conan's build and run environments.
package overlay

import (
	"fmt"
	"strings"
)

// Kind selects which Conan environment an overlay is derived from.
type Kind string

const (
	KindBuild Kind = "build"
	KindRun   Kind = "run"
)

// ParseKind maps a user-facing name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "build", "buildenv":
		return KindBuild, nil
	case "run", "runenv":
		return KindRun, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Pair is one variable of an overlay. A nil Value unsets the variable.
type Pair struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

// Set returns a pair assigning value to name.
func Set(name, value string) Pair {
	return Pair{Name: name, Value: &value}
}

// Unset returns a pair removing name.
func Unset(name string) Pair {
	return Pair{Name: name}
}

// Overlay is an ordered list of variable changes.
type Overlay []Pair

// Names returns the variable names in overlay order, without duplicates.
func (o Overlay) Names() []string {
	seen := make(map[string]bool, len(o))
	names := make([]string, 0, len(o))
	for _, p := range o {
		if !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	return names
}

// Lookup returns the last value the overlay assigns to name.
func (o Overlay) Lookup(name string) (value *string, found bool) {
	for _, p := range o {
		if p.Name == name {
			value, found = p.Value, true
		}
	}
	return value, found
}

// Snapshot maps variable names to their values before an overlay was applied.
// A nil value means the variable was unset.
type Snapshot map[string]*string

// Marker records the active overlay.
type Marker struct {
	Kind    Kind    `json:"kind"`
	Overlay Overlay `json:"overlay"`
}

func (m Marker) clone() Marker {
	return Marker{Kind: m.Kind, Overlay: append(Overlay(nil), m.Overlay...)}
}

func strPtr(s string) *string {
	return &s
}
