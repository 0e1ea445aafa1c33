// Package vector provides the in-process similarity index over embedded documents and its
// exact (FAISS) and linear-scan backends.
package vector

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/policysimplify/internal/embedding"
	"github.com/hyperjump/policysimplify/internal/models"
)

// Hit is one search result: a stored document and its cosine similarity to the query.
type Hit struct {
	Score    float64          `json:"score"`
	Document *models.Document `json:"document"`
}

// Index accumulates documents with their normalized embeddings and answers nearest-neighbour
// queries. Documents and backend rows are aligned by position.
type Index struct {
	embedder   embedding.Embedder
	backend    Backend
	documents  []*models.Document
	dimensions int
	logger     *zap.Logger
	mu         sync.RWMutex
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger for the index.
func WithLogger(logger *zap.Logger) Option {
	return func(idx *Index) {
		idx.logger = logger
	}
}

// NewIndex creates an empty index. The backend is initialized on the first Add.
func NewIndex(embedder embedding.Embedder, backend Backend, opts ...Option) *Index {
	idx := &Index{
		embedder: embedder,
		backend:  backend,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Restore creates an index over an already loaded backend and its documents.
func Restore(embedder embedding.Embedder, backend Backend, documents []*models.Document, opts ...Option) (*Index, error) {
	if backend.Size() != len(documents) {
		return nil, fmt.Errorf("backend has %d rows for %d documents", backend.Size(), len(documents))
	}
	idx := NewIndex(embedder, backend, opts...)
	if len(documents) > 0 {
		idx.documents = documents
		idx.dimensions = backend.Dimensions()
	}
	return idx, nil
}

// Add embeds docs in one batch and appends them. Empty input is a no-op. On any error the
// index is left unchanged.
func (idx *Index) Add(ctx context.Context, docs []*models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if err := embedding.ValidateBatch(vectors, len(docs)); err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	width := len(vectors[0])
	if idx.dimensions != 0 && width != idx.dimensions {
		return fmt.Errorf("%w: batch has %d, index has %d", ErrDimensionMismatch, width, idx.dimensions)
	}
	if idx.dimensions == 0 {
		if err := idx.backend.Init(width); err != nil {
			return fmt.Errorf("init backend: %w", err)
		}
	}
	if err := idx.backend.Add(ctx, NormalizeRows(vectors)); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}

	idx.dimensions = width
	for _, d := range docs {
		idx.documents = append(idx.documents, d.Clone())
	}
	idx.logger.Debug("documents added",
		zap.Int("added", len(docs)),
		zap.Int("total", len(idx.documents)),
		zap.Int("dimensions", width))
	return nil
}

// Search returns up to k documents most similar to query, best first. k is clamped to
// [1, Len()]. An empty index returns no hits without calling the embedder.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.documents)
	if n == 0 {
		return []Hit{}, nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	vec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vec), idx.dimensions)
	}

	results, err := idx.backend.Search(ctx, Normalize(vec), k)
	if err != nil {
		return nil, fmt.Errorf("search backend: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.Position < 0 || r.Position >= n {
			continue
		}
		hits = append(hits, Hit{Score: r.Score, Document: idx.documents[r.Position]})
	}
	return hits, nil
}

// View runs fn with the documents and backend under the read lock, so fn sees an aligned
// state. fn must not retain or modify either.
func (idx *Index) View(fn func(documents []*models.Document, backend Backend) error) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return fn(idx.documents, idx.backend)
}

// Len returns the number of stored documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.documents)
}

// Dimensions returns the fixed vector width, 0 while the index is empty.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimensions
}

// Documents returns a copy of the stored documents in insertion order.
func (idx *Index) Documents() []*models.Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*models.Document, len(idx.documents))
	copy(out, idx.documents)
	return out
}

// Backend returns the backend type name.
func (idx *Index) Backend() string {
	return idx.backend.Type()
}

// Embedder returns the gateway used by the index.
func (idx *Index) Embedder() embedding.Embedder {
	return idx.embedder
}

// Close releases backend resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.backend.Close()
}
