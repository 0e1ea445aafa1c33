// Package embedding provides the embedding gateway: remote, local and test embedders plus
// caching and retry decorators.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector width, or 0 while unknown.
	Dimensions() int
	Close() error
}

var (
	// ErrGateway wraps every failure of the embedding provider or transport.
	ErrGateway = errors.New("embedding gateway error")
	// ErrMalformedResponse is returned when the provider's output violates the batch contract.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrGateway)
)

// blankSubstitute replaces empty or whitespace-only inputs, which providers reject.
const blankSubstitute = " "

// PrepareInputs returns a copy of texts with blank entries replaced by a single space.
func PrepareInputs(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = blankSubstitute
			continue
		}
		out[i] = t
	}
	return out
}

// ValidateBatch checks that vectors has n entries of one non-zero width.
func ValidateBatch(vectors [][]float32, n int) error {
	if len(vectors) != n {
		return fmt.Errorf("%w: got %d vectors for %d inputs", ErrMalformedResponse, len(vectors), n)
	}
	if n == 0 {
		return nil
	}
	width := len(vectors[0])
	if width == 0 {
		return fmt.Errorf("%w: empty vector at index 0", ErrMalformedResponse)
	}
	for i, v := range vectors {
		if len(v) != width {
			return fmt.Errorf("%w: vector %d has width %d, expected %d", ErrMalformedResponse, i, len(v), width)
		}
	}
	return nil
}
