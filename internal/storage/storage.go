// Package storage defines persistence for policy cards and the audit event log.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/policysimplify/internal/models"
)

// ErrNotFound is returned when a card does not exist.
var ErrNotFound = errors.New("not found")

// DefaultTenant is used when a card or event carries no tenant.
const DefaultTenant = "default"

// Storage defines card and event persistence operations. An empty tenant in list and
// count operations means all tenants.
type Storage interface {
	// Card operations
	SaveCard(ctx context.Context, card *models.Card) error
	GetCard(ctx context.Context, id string) (*models.Card, error)
	ListCards(ctx context.Context, tenant string, limit int) ([]*models.Card, error)
	CountCards(ctx context.Context, tenant string) (int64, error)
	HasSource(ctx context.Context, tenant, sourceID string) (bool, error)

	// Retention
	PurgeOlderThan(ctx context.Context, tenant string, days int) ([]string, error)
	DeleteTenant(ctx context.Context, tenant string) ([]string, error)

	// Event log
	LogEvent(ctx context.Context, tenant, kind, detail string) error
	RecentEvents(ctx context.Context, tenant string, limit int) ([]*models.Event, error)

	Close() error
}
