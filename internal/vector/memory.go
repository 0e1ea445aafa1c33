package vector

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
)

// MemoryIndex is the linear-scan backend: a dense row-major float32 matrix scored by
// brute-force inner product. It persists as a NumPy .npy array.
type MemoryIndex struct {
	dimensions int
	rows       int
	matrix     []float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty linear-scan backend. Dimensionality is fixed by Init or Load.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Ext returns the artifact extension.
func (m *MemoryIndex) Ext() string {
	return ExtNPY
}

// Init fixes the dimensionality and drops any stored rows.
func (m *MemoryIndex) Init(dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dimensions
	m.rows = 0
	m.matrix = nil
	return nil
}

// Add appends vectors as new rows. The whole batch is validated before any row is stored.
func (m *MemoryIndex) Add(ctx context.Context, vectors [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimensions == 0 {
		return ErrNotInitialized
	}
	for _, vec := range vectors {
		if len(vec) != m.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), m.dimensions)
		}
	}
	for _, vec := range vectors {
		m.matrix = append(m.matrix, vec...)
	}
	m.rows += len(vectors)
	return nil
}

// Search returns the top-k rows by inner product (assumes normalized vectors = cosine similarity).
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	if k <= 0 || m.rows == 0 {
		return nil, nil
	}
	scores := make([]*VectorResult, m.rows)
	for i := 0; i < m.rows; i++ {
		row := m.matrix[i*m.dimensions : (i+1)*m.dimensions]
		scores[i] = &VectorResult{Position: i, Score: InnerProduct(query, row)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Save writes the matrix to path as a (rows, dimensions) float32 .npy array.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dimensions == 0 {
		return ErrNotInitialized
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := writeNPY(f, m.rows, m.dimensions, m.matrix); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load replaces the in-memory matrix with the .npy array at path.
func (m *MemoryIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}
	rows, cols, data, err := readNPY(f, info.Size())
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = cols
	m.rows = rows
	m.matrix = data
	return nil
}

// Size returns the number of rows.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows
}

// Dimensions returns the row width, 0 before Init or Load.
func (m *MemoryIndex) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
