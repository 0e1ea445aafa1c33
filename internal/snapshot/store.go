// Package snapshot persists vector indexes under a logical name as a documents artifact
// (<name>.json) plus a backend artifact (<name>.npy or <name>.faiss).
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/policysimplify/internal/embedding"
	"github.com/hyperjump/policysimplify/internal/models"
	"github.com/hyperjump/policysimplify/internal/vector"
)

const docsExt = ".json"

var (
	// ErrCorruptSnapshot is returned by Open when artifacts are partial, unreadable or misaligned.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrInvalidName is returned for names that are empty or would escape the base directory.
	ErrInvalidName = errors.New("invalid snapshot name")
)

// Store saves and loads indexes under baseDir. Operations on the same name are serialized.
type Store struct {
	baseDir   string
	indexType string
	embedder  embedding.Embedder
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store whose indexes use the given backend type and embedder.
func NewStore(baseDir, indexType string, embedder embedding.Embedder, opts ...Option) (*Store, error) {
	probe, err := vector.NewBackend(indexType)
	if err != nil {
		return nil, fmt.Errorf("vector backend: %w", err)
	}
	_ = probe.Close()

	s := &Store{
		baseDir:   baseDir,
		indexType: indexType,
		embedder:  embedder,
		logger:    zap.NewNop(),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseDir returns the directory holding snapshot artifacts.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// NewIndex returns a fresh empty index with this store's backend type.
func (s *Store) NewIndex() (*vector.Index, error) {
	backend, err := vector.NewBackend(s.indexType)
	if err != nil {
		return nil, err
	}
	return vector.NewIndex(s.embedder, backend, vector.WithLogger(s.logger)), nil
}

// Save writes idx under name. An empty index writes nothing.
func (s *Store) Save(idx *vector.Index, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	unlock := s.lock(name)
	defer unlock()

	return idx.View(func(docs []*models.Document, backend vector.Backend) error {
		if len(docs) == 0 {
			return nil
		}
		if err := os.MkdirAll(s.baseDir, 0755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}

		docsPath := s.path(name, docsExt)
		artifactPath := s.path(name, backend.Ext())
		suffix := ".tmp-" + uuid.NewString()
		docsTmp := docsPath + suffix
		artifactTmp := artifactPath + suffix
		defer os.Remove(docsTmp)
		defer os.Remove(artifactTmp)

		data, err := json.Marshal(docs)
		if err != nil {
			return fmt.Errorf("marshal documents: %w", err)
		}
		if err := os.WriteFile(docsTmp, data, 0644); err != nil {
			return fmt.Errorf("write documents: %w", err)
		}
		if err := backend.Save(artifactTmp); err != nil {
			return fmt.Errorf("write %s artifact: %w", backend.Type(), err)
		}
		if err := os.Rename(docsTmp, docsPath); err != nil {
			return fmt.Errorf("commit documents: %w", err)
		}
		if err := os.Rename(artifactTmp, artifactPath); err != nil {
			return fmt.Errorf("commit %s artifact: %w", backend.Type(), err)
		}

		s.logger.Debug("snapshot saved",
			zap.String("name", name),
			zap.String("backend", backend.Type()),
			zap.Int("documents", len(docs)))
		return nil
	})
}

// Open loads the index saved under name. A name with no artifacts yields an empty index.
// Partial, unreadable or misaligned artifacts yield ErrCorruptSnapshot.
func (s *Store) Open(name string) (*vector.Index, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	unlock := s.lock(name)
	defer unlock()

	backend, err := vector.NewBackend(s.indexType)
	if err != nil {
		return nil, err
	}
	docsPath := s.path(name, docsExt)
	artifactPath := s.path(name, backend.Ext())

	docsExists, err := exists(docsPath)
	if err != nil {
		return nil, err
	}
	artifactExists, err := exists(artifactPath)
	if err != nil {
		return nil, err
	}
	switch {
	case !docsExists && !artifactExists:
		return vector.NewIndex(s.embedder, backend, vector.WithLogger(s.logger)), nil
	case !docsExists:
		_ = backend.Close()
		return nil, fmt.Errorf("%w: %s: missing %s", ErrCorruptSnapshot, name, filepath.Base(docsPath))
	case !artifactExists:
		_ = backend.Close()
		return nil, fmt.Errorf("%w: %s: missing %s", ErrCorruptSnapshot, name, filepath.Base(artifactPath))
	}

	data, err := os.ReadFile(docsPath)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("%w: %s: read documents: %w", ErrCorruptSnapshot, name, err)
	}
	var docs []*models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("%w: %s: decode documents: %w", ErrCorruptSnapshot, name, err)
	}
	if err := backend.Load(artifactPath); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("%w: %s: load %s artifact: %w", ErrCorruptSnapshot, name, backend.Type(), err)
	}

	idx, err := vector.Restore(s.embedder, backend, docs, vector.WithLogger(s.logger))
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, name, err)
	}
	s.logger.Debug("snapshot opened",
		zap.String("name", name),
		zap.String("backend", backend.Type()),
		zap.Int("documents", len(docs)))
	return idx, nil
}

// Load is Open that never fails: any error is logged and an empty index is returned.
func (s *Store) Load(name string) *vector.Index {
	idx, err := s.Open(name)
	if err == nil {
		return idx
	}
	s.logger.Warn("snapshot unusable, starting empty", zap.String("name", name), zap.Error(err))
	backend, berr := vector.NewBackend(s.indexType)
	if berr != nil {
		backend = vector.NewMemoryIndex()
	}
	return vector.NewIndex(s.embedder, backend, vector.WithLogger(s.logger))
}

// Remove deletes every artifact saved under name.
func (s *Store) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	unlock := s.lock(name)
	defer unlock()

	for _, ext := range []string{docsExt, vector.ExtNPY, vector.ExtFAISS} {
		if err := os.Remove(s.path(name, ext)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove snapshot: %w", err)
		}
	}
	return nil
}

func (s *Store) path(name, ext string) string {
	return filepath.Join(s.baseDir, name+ext)
}

func (s *Store) lock(name string) func() {
	s.mu.Lock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}
