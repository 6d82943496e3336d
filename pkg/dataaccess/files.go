package dataaccess

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotExists is returned when a record has never been written.
var ErrNotExists = errors.New("record does not exist")

// Store maps string keys to JSON records on disk, one file per record. Keys
// may contain `/` to nest records into sub-directories. Every
// load-mutate-save cycle against a key is serialized by a per-key mutex, so
// two concurrent mutations of the same record cannot clobber each other.
type Store struct {
	// dir is the root directory of the store.
	dir string

	// mu guards locks.
	mu sync.Mutex

	// locks are the per-key mutexes.
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at the given directory, creating it if
// needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("no store directory provided")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating store directory: %w", err)
	}

	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// lockFor returns the mutex for the given key, creating it on first use.
func (s *Store) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = new(sync.Mutex)
		s.locks[key] = l
	}
	return l
}

// path resolves a key to its file path, refusing keys that would escape the
// store directory.
func (s *Store) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("no key provided")
	}

	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, clean+".json"), nil
}

// Load fills v with the record stored under key. A key that has never been
// written returns ErrNotExists and leaves v untouched; a file that exists
// but cannot be decoded is an error, not an empty record.
func (s *Store) Load(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExists
		}
		return fmt.Errorf("error reading record %s: %w", key, err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("error decoding record %s: %w", key, err)
	}
	return nil
}

// Save writes v as the record under key. The write goes to a temp file in
// the same directory and is renamed into place, so a crash mid-write never
// corrupts the previous record.
func (s *Store) Save(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("error creating record directory: %w", err)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding record %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("error writing record %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("error closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("error renaming record %s into place: %w", key, err)
	}
	return nil
}

// Delete removes the record under key. Deleting a record that has never been
// written is not an error.
func (s *Store) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error deleting record %s: %w", key, err)
	}
	return nil
}

// Mutate runs a load-mutate-save cycle against the record under key while
// holding the key's mutex. fn mutates v in place and reports whether the
// record changed; unchanged records are not rewritten. A key that has never
// been written returns ErrNotExists.
func (s *Store) Mutate(key string, v any, fn func() (bool, error)) error {
	l := s.lockFor(key)
	l.Lock()
	defer l.Unlock()

	if err := s.Load(key, v); err != nil {
		return err
	}

	changed, err := fn()
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.Save(key, v)
}

// Upsert runs a load-or-default-mutate-save cycle against the record under
// key while holding the key's mutex. Unlike Mutate, a missing record is not
// an error; fn sees v as provided.
func (s *Store) Upsert(key string, v any, fn func() error) error {
	l := s.lockFor(key)
	l.Lock()
	defer l.Unlock()

	if err := s.Load(key, v); err != nil && !errors.Is(err, ErrNotExists) {
		return err
	}

	if err := fn(); err != nil {
		return err
	}

	return s.Save(key, v)
}

// List returns the keys of every record stored under the given prefix.
func (s *Store) List(prefix string) ([]string, error) {
	root := s.dir
	if prefix != "" {
		clean := filepath.Clean(prefix)
		if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
			return nil, fmt.Errorf("invalid prefix %q", prefix)
		}
		root = filepath.Join(s.dir, clean)
	}

	keys := make([]string, 0)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}

		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(strings.TrimSuffix(rel, ".json")))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing records under %q: %w", prefix, err)
	}
	return keys, nil
}
