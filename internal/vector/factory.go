package vector

import "fmt"

// IndexType represents the backend used by an Index.
type IndexType string

const (
	// IndexTypeMemory is the pure-Go linear scan backend, persisted as .npy.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS is the exact FAISS IndexFlatIP backend, persisted as .faiss.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
	// IndexTypeAuto picks FAISS when compiled in, otherwise memory.
	IndexTypeAuto IndexType = "auto"
)

// NewBackend creates a backend of the specified type.
// Supported types: "memory" (default), "faiss", "auto".
func NewBackend(indexType string) (Backend, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(), nil
	case IndexTypeFAISS:
		return newFAISSBackend()
	case IndexTypeAuto:
		if IsFAISSAvailable() {
			return newFAISSBackend()
		}
		return NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss, auto)", indexType)
	}
}

func newFAISSBackend() (Backend, error) {
	idx, err := NewFAISSIndex()
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex()
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
