package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector's width differs from the index dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNotInitialized is returned when a backend is used before Init or Load.
	ErrNotInitialized = errors.New("vector backend not initialized")
	// ErrFAISSUnavailable is returned by the exact backend when built without FAISS support.
	ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install FAISS library")
)
