package overlay

import (
	"context"
	"errors"
	"sync"

	"github.com/Cyclone1070/conanws/internal/logging"
	"github.com/rs/zerolog"
)

// ExtractRequest describes how to obtain an overlay from Conan.
type ExtractRequest struct {
	Interpreter string
	Args        []string
	WorkingDir  string
	// Env is the environment the extraction runs in. The manager fills it
	// with the live environment minus any active overlay.
	Env []string
}

// Extractor obtains the overlay Conan would apply for a kind.
type Extractor interface {
	Extract(ctx context.Context, kind Kind, req ExtractRequest) (Overlay, error)
}

// Host is notified after an overlay was activated, so it can make new
// terminals pick up the changed environment.
type Host interface {
	Refresh(ctx context.Context, marker Marker) error
}

// Manager owns the active overlay of one workspace.
//
// The live environment always equals either the active overlay layered over
// the values recorded in the snapshot, or, when inactive, the values held
// before the first activation since the last restore. A name enters the
// snapshot only when it is not already tracked, so restoring reverts the net
// effect of every activation in the chain.
//
// The persisted state is the only source of truth: every operation reloads
// it, and transitions hold the store's lock when it implements Locker, so
// managers in different processes never act on a stale copy.
type Manager struct {
	mu        sync.Mutex
	env       EnvironmentPort
	state     state
	extractor Extractor
	mirror    *Mirror
	host      Host
	log       zerolog.Logger
}

// NewManager creates a manager and checks the state persisted in store.
// A recovered overlay is considered active but is not re-applied to env;
// see Reapply. mirror and host may be nil.
func NewManager(env EnvironmentPort, store StateStore, extractor Extractor, mirror *Mirror, host Host) (*Manager, error) {
	if env == nil {
		panic("env is required")
	}
	if store == nil {
		panic("store is required")
	}
	if extractor == nil {
		panic("extractor is required")
	}

	m := &Manager{
		env:       env,
		state:     state{store: store},
		extractor: extractor,
		mirror:    mirror,
		host:      host,
		log:       logging.With("overlay"),
	}

	marker, _, err := m.state.load()
	if err != nil {
		return nil, err
	}
	if marker != nil {
		m.log.Debug().Str("kind", string(marker.Kind)).Int("vars", len(marker.Overlay)).Msg("recovered active environment")
	}
	return m, nil
}

// Activate replaces any active overlay with the one Conan reports for kind.
// If extraction fails nothing is changed and an *ExtractionFailedError is returned.
func (m *Manager) Activate(ctx context.Context, kind Kind, req ExtractRequest) (Marker, error) {
	if kind != KindBuild && kind != KindRun {
		return Marker{}, ErrUnknownKind
	}

	release, err := m.acquire(ctx)
	if err != nil {
		return Marker{}, err
	}
	defer release()

	active, prior, err := m.state.load()
	if err != nil {
		return Marker{}, err
	}
	if active == nil {
		prior = Snapshot{}
	}

	req.Env = m.baseline(prior)
	overlay, err := m.extractor.Extract(ctx, kind, req)
	if err != nil {
		var extractErr *ExtractionFailedError
		if errors.As(err, &extractErr) {
			return Marker{}, err
		}
		return Marker{}, &ExtractionFailedError{Kind: kind, Cause: err}
	}

	// Tracked names keep their original value; new names are read live.
	next := make(Snapshot, len(overlay))
	for _, name := range overlay.Names() {
		if v, tracked := prior[name]; tracked {
			next[name] = v
		} else {
			next[name] = lookup(m.env, name)
		}
	}

	marker := Marker{Kind: kind, Overlay: overlay}
	if err := m.state.save(marker, next); err != nil {
		return Marker{}, err
	}

	// Names of the previous overlay that the new one leaves alone go back
	// to their original value; the rest are overwritten right after.
	if err := revert(m.env, prior); err != nil {
		return Marker{}, err
	}
	if err := apply(m.env, overlay); err != nil {
		return Marker{}, err
	}

	m.log.Info().Str("kind", string(kind)).Int("vars", len(overlay)).Msg("environment activated")

	if m.mirror != nil {
		if err := m.mirror.Write(overlay); err != nil {
			return marker.clone(), err
		}
	}
	if m.host != nil {
		if err := m.host.Refresh(ctx, marker.clone()); err != nil {
			m.log.Warn().Err(err).Msg("host refresh failed")
		}
	}
	return marker.clone(), nil
}

// Restore reverts the live environment to its state before the first
// activation and forgets the active overlay. It does nothing when no
// overlay is active.
func (m *Manager) Restore(ctx context.Context) error {
	release, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	active, snapshot, err := m.state.load()
	if err != nil {
		return err
	}
	if active == nil {
		return nil
	}

	if err := revert(m.env, snapshot); err != nil {
		return err
	}
	if err := m.state.clear(); err != nil {
		return err
	}

	m.log.Info().Str("kind", string(active.Kind)).Msg("environment restored")

	if m.mirror != nil {
		if err := m.mirror.Write(nil); err != nil {
			return err
		}
	}
	return nil
}

// Current returns the persisted marker; ok is false when none is active.
func (m *Manager) Current() (marker Marker, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	persisted, _, err := m.state.load()
	if err != nil {
		return Marker{}, false, err
	}
	if persisted == nil {
		return Marker{}, false, nil
	}
	return persisted.clone(), true, nil
}

// Reapply layers the active overlay onto env, typically a fresh environment
// for a child process after a restart. It returns ErrNotActive when no
// overlay is active.
func (m *Manager) Reapply(env EnvironmentPort) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, _, err := m.state.load()
	if err != nil {
		return err
	}
	if active == nil {
		return ErrNotActive
	}
	return apply(env, active.Overlay)
}

// acquire serializes state transitions of this manager and, when the store
// is shared between processes, of every manager using it.
func (m *Manager) acquire(ctx context.Context) (release func(), err error) {
	m.mu.Lock()
	locker, ok := m.state.store.(Locker)
	if !ok {
		return m.mu.Unlock, nil
	}
	unlock, err := locker.Lock(ctx)
	if err != nil {
		m.mu.Unlock()
		return nil, &StateError{Op: "lock", Key: KeyActive, Cause: err}
	}
	return func() {
		if err := unlock(); err != nil {
			m.log.Warn().Err(err).Msg("failed to release state lock")
		}
		m.mu.Unlock()
	}, nil
}

// baseline returns the live environment with the prior snapshot values put back.
func (m *Manager) baseline(prior Snapshot) []string {
	base := NewMapEnvironment(m.env.Environ())
	for name, v := range prior {
		if v == nil {
			_ = base.Unset(name)
		} else {
			_ = base.Set(name, *v)
		}
	}
	return base.Environ()
}
