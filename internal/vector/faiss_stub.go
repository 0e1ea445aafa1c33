//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import "context"

// FAISSIndex is a stub used when FAISS support is not compiled in.
type FAISSIndex struct{}

// NewFAISSIndex returns ErrFAISSUnavailable.
func NewFAISSIndex() (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Init(dimensions int) error { return ErrFAISSUnavailable }

func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	return ErrFAISSUnavailable
}

func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Save(path string) error { return ErrFAISSUnavailable }

func (f *FAISSIndex) Load(path string) error { return ErrFAISSUnavailable }

func (f *FAISSIndex) Size() int { return 0 }

func (f *FAISSIndex) Dimensions() int { return 0 }

func (f *FAISSIndex) Ext() string { return ExtFAISS }

func (f *FAISSIndex) Type() string { return string(IndexTypeFAISS) }

func (f *FAISSIndex) Close() error { return nil }
