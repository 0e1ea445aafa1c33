// Package keyword provides full-text search over policy cards.
package keyword

import (
	"context"

	"github.com/hyperjump/policysimplify/internal/models"
)

// SearchOptions optional parameters for card search. Nil means use defaults.
type SearchOptions struct {
	// Tenant restricts hits to one tenant when non-empty.
	Tenant string
	// PolicyBoost multiplies the score contribution from matches in the policy name.
	// Values > 1 make name matches rank higher. Use 1.0 for no boost.
	PolicyBoost float64
	// FuzzyEnabled enables typo-tolerant matching.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default 2.
	Fuzziness int
}

// CardIndex defines keyword search operations over cards.
type CardIndex interface {
	Index(ctx context.Context, card *models.Card) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*CardHit, error)
	Delete(ctx context.Context, ids ...string) error
	DocCount() (uint64, error)
	Close() error
}

// CardHit is a single keyword search hit.
type CardHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
