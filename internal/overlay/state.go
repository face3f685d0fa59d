package overlay

import (
	"encoding/json"
)

// Keys under which the manager persists its state.
const (
	KeySnapshot = "conanws.env.snapshot"
	KeyActive   = "conanws.env.active"
)

// state is the typed view of the manager's persisted keys.
type state struct {
	store StateStore
}

func (s state) load() (*Marker, Snapshot, error) {
	var marker *Marker
	data, ok, err := s.store.Get(KeyActive)
	if err != nil {
		return nil, nil, &StateError{Op: "read", Key: KeyActive, Cause: err}
	}
	if ok {
		var m Marker
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, nil, &StateError{Op: "decode", Key: KeyActive, Cause: err}
		}
		marker = &m
	}

	snapshot := Snapshot{}
	data, ok, err = s.store.Get(KeySnapshot)
	if err != nil {
		return nil, nil, &StateError{Op: "read", Key: KeySnapshot, Cause: err}
	}
	if ok {
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, nil, &StateError{Op: "decode", Key: KeySnapshot, Cause: err}
		}
	}
	return marker, snapshot, nil
}

func (s state) save(marker Marker, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return &StateError{Op: "encode", Key: KeySnapshot, Cause: err}
	}
	if err := s.store.Put(KeySnapshot, data); err != nil {
		return &StateError{Op: "write", Key: KeySnapshot, Cause: err}
	}

	data, err = json.Marshal(marker)
	if err != nil {
		return &StateError{Op: "encode", Key: KeyActive, Cause: err}
	}
	if err := s.store.Put(KeyActive, data); err != nil {
		return &StateError{Op: "write", Key: KeyActive, Cause: err}
	}
	return nil
}

// clear removes the marker first, so an interrupted clear never leaves a
// marker without its snapshot.
func (s state) clear() error {
	if err := s.store.Delete(KeyActive); err != nil {
		return &StateError{Op: "delete", Key: KeyActive, Cause: err}
	}
	if err := s.store.Delete(KeySnapshot); err != nil {
		return &StateError{Op: "delete", Key: KeySnapshot, Cause: err}
	}
	return nil
}
