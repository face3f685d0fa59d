package overlay

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// EnvironmentPort is the live environment an overlay is applied to.
type EnvironmentPort interface {
	Lookup(name string) (string, bool)
	Set(name, value string) error
	Unset(name string) error
	// Environ returns the environment as NAME=value entries.
	Environ() []string
}

// OSEnvironment is the environment of the current process.
type OSEnvironment struct{}

func (OSEnvironment) Lookup(name string) (string, bool) { return os.LookupEnv(name) }
func (OSEnvironment) Set(name, value string) error      { return os.Setenv(name, value) }
func (OSEnvironment) Unset(name string) error           { return os.Unsetenv(name) }
func (OSEnvironment) Environ() []string                 { return os.Environ() }

// MapEnvironment is an in-memory environment, used to compose the
// environment of child processes and as a test double.
type MapEnvironment struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewMapEnvironment creates a MapEnvironment from NAME=value entries.
// Later entries win, matching exec semantics.
func NewMapEnvironment(environ []string) *MapEnvironment {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = value
	}
	return &MapEnvironment{vars: vars}
}

func (m *MapEnvironment) Lookup(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[name]
	return v, ok
}

func (m *MapEnvironment) Set(name, value string) error {
	if name == "" || strings.ContainsAny(name, "=\x00") {
		return &InvalidNameError{Name: name}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[name] = value
	return nil
}

func (m *MapEnvironment) Unset(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vars, name)
	return nil
}

// Environ returns the entries sorted by name.
func (m *MapEnvironment) Environ() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.vars))
	for k, v := range m.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// apply writes each pair to env in order.
func apply(env EnvironmentPort, o Overlay) error {
	for _, p := range o {
		if err := assign(env, p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// revert writes every snapshot value back to env, in name order.
func revert(env EnvironmentPort, s Snapshot) error {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := assign(env, name, s[name]); err != nil {
			return err
		}
	}
	return nil
}

func assign(env EnvironmentPort, name string, value *string) error {
	var err error
	if value == nil {
		err = env.Unset(name)
	} else {
		err = env.Set(name, *value)
	}
	if err != nil {
		return &ApplyError{Name: name, Cause: err}
	}
	return nil
}

func lookup(env EnvironmentPort, name string) *string {
	if v, ok := env.Lookup(name); ok {
		return strPtr(v)
	}
	return nil
}
