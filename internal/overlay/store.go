package overlay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

// StateStore is a key/value store that survives process restarts.
type StateStore interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Locker is implemented by stores that other processes may share. The
// manager holds the lock for the whole of every state transition.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// InMemoryStateStore implements StateStore with a map.
type InMemoryStateStore struct {
	values map[string][]byte
	mu     sync.RWMutex
	writes int
}

// NewInMemoryStateStore creates a new instance of InMemoryStateStore.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{
		values: make(map[string][]byte),
	}
}

func (s *InMemoryStateStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	// Return a copy to ensure isolation
	return append([]byte(nil), v...), true, nil
}

func (s *InMemoryStateStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

func (s *InMemoryStateStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	s.writes++
	return nil
}

// Writes returns the number of Put and Delete calls made so far.
func (s *InMemoryStateStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// FileStateStore persists all keys of one workspace in a single JSON file.
// Every change rewrites the file atomically.
type FileStateStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileStateStore creates a store for workspaceRoot below stateDir.
// Each workspace gets its own directory named after a hash of its root.
func NewFileStateStore(fs afero.Fs, stateDir, workspaceRoot string) *FileStateStore {
	if fs == nil {
		panic("fs is required")
	}
	sum := sha256.Sum256([]byte(workspaceRoot))
	dir := filepath.Join(stateDir, hex.EncodeToString(sum[:])[:16])
	return &FileStateStore{fs: fs, path: filepath.Join(dir, "state.json")}
}

const lockRetryDelay = 50 * time.Millisecond

// processLocks guards stores on filesystems without file locking, keyed by
// state file path.
var processLocks sync.Map

// Lock takes the workspace lock. On the OS filesystem it is an flock on
// state.lock next to the state file, so it excludes other processes too;
// on any other filesystem it only excludes stores within this process.
func (s *FileStateStore) Lock(ctx context.Context) (func() error, error) {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		v, _ := processLocks.LoadOrStore(s.path, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		mu.Lock()
		return func() error {
			mu.Unlock()
			return nil
		}, nil
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fileLock := flock.New(filepath.Join(dir, "state.lock"))
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ctx.Err()
	}
	return fileLock.Unlock, nil
}

// Path returns the state file location.
func (s *FileStateStore) Path() string {
	return s.path
}

func (s *FileStateStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStateStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[key] = json.RawMessage(append([]byte(nil), value...))
	return s.write(values)
}

func (s *FileStateStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.write(values)
}

func (s *FileStateStore) read() (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// write replaces the state file using temp file + rename, so a crash
// mid-write leaves the previous state intact.
func (s *FileStateStore) write(values map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpFile, err := afero.TempFile(s.fs, dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	needsCleanup := true
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if needsCleanup {
			_ = s.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	// Close file before rename (required on some systems)
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return err
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		return err
	}
	needsCleanup = false
	return nil
}
