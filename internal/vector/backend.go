package vector

import "context"

// Backend is the storage half of an Index: it holds one row per document and scores a
// normalized query against every row by inner product.
type Backend interface {
	// Init fixes the dimensionality and clears any stored rows.
	Init(dimensions int) error
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns up to k rows ordered by descending score, ties by lower position.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	// Save writes the backend artifact to exactly path.
	Save(path string) error
	// Load replaces the backend contents with the artifact at path.
	Load(path string) error
	Size() int
	Dimensions() int
	// Ext is the file extension of the backend artifact, including the dot.
	Ext() string
	Type() string
	Close() error
}

// Backend artifact extensions.
const (
	ExtNPY   = ".npy"
	ExtFAISS = ".faiss"
)

// VectorResult is a single backend hit addressed by insertion position.
type VectorResult struct {
	Position int
	Score    float64
}
