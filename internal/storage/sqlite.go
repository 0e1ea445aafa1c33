package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/policysimplify/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// Timestamps are stored as Unix nanoseconds so that newest-first ordering is stable
// for cards created within the same second.
func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL,
		policy TEXT NOT NULL,
		summary TEXT,
		checklist TEXT,
		risk TEXT,
		risk_explainer TEXT,
		structured_tasks TEXT,
		source_type TEXT,
		source_id TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cards_tenant_created ON cards(tenant, created_at);
	CREATE INDEX IF NOT EXISTS idx_cards_source ON cards(tenant, source_id);

	CREATE TABLE IF NOT EXISTS events (
		ts INTEGER NOT NULL,
		tenant TEXT NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_tenant_ts ON events(tenant, ts);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveCard inserts a card. Missing ID, tenant and creation time are filled in.
func (s *SQLiteStorage) SaveCard(ctx context.Context, card *models.Card) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.Tenant == "" {
		card.Tenant = DefaultTenant
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = s.now().UTC()
	}
	tasks := card.StructuredTasks
	if tasks == nil {
		tasks = []models.Task{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cards (id, tenant, policy, summary, checklist, risk, risk_explainer,
		 structured_tasks, source_type, source_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.Tenant, card.Policy, card.Summary, card.Checklist, card.Risk,
		card.RiskExplainer, string(tasksJSON), card.SourceType, card.SourceID,
		card.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

const cardColumns = `id, tenant, policy, summary, checklist, risk, risk_explainer,
	structured_tasks, source_type, source_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var (
		card                                       models.Card
		summary, checklist, risk, rexpl, tasksJSON sql.NullString
		sourceType, sourceID                       sql.NullString
		created                                    int64
	)
	if err := row.Scan(&card.ID, &card.Tenant, &card.Policy, &summary, &checklist, &risk,
		&rexpl, &tasksJSON, &sourceType, &sourceID, &created); err != nil {
		return nil, err
	}
	card.Summary = summary.String
	card.Checklist = checklist.String
	card.Risk = risk.String
	card.RiskExplainer = rexpl.String
	card.SourceType = sourceType.String
	card.SourceID = sourceID.String
	card.CreatedAt = time.Unix(0, created).UTC()
	card.StructuredTasks = []models.Task{}
	if tasksJSON.String != "" {
		// Unreadable task lists degrade to empty.
		_ = json.Unmarshal([]byte(tasksJSON.String), &card.StructuredTasks)
	}
	return &card, nil
}

// GetCard returns a card by ID.
func (s *SQLiteStorage) GetCard(ctx context.Context, id string) (*models.Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// ListCards returns up to limit cards for tenant, newest first. A non-positive limit
// returns all rows.
func (s *SQLiteStorage) ListCards(ctx context.Context, tenant string, limit int) ([]*models.Card, error) {
	where, args := tenantClause(tenant)
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards`+where+` ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]*models.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// CountCards returns the number of cards for tenant.
func (s *SQLiteStorage) CountCards(ctx context.Context, tenant string) (int64, error) {
	where, args := tenantClause(tenant)
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards"+where, args...).Scan(&n)
	return n, err
}

// HasSource reports whether a card with sourceID already exists for tenant.
func (s *SQLiteStorage) HasSource(ctx context.Context, tenant, sourceID string) (bool, error) {
	if sourceID == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM cards WHERE tenant = ? AND source_id = ? LIMIT 1", tenantOrDefault(tenant), sourceID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeOlderThan deletes cards and events of tenant older than days and returns the
// IDs of the removed cards.
func (s *SQLiteStorage) PurgeOlderThan(ctx context.Context, tenant string, days int) ([]string, error) {
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour).UnixNano()
	tenant = tenantOrDefault(tenant)
	return s.deleteCards(ctx,
		"tenant = ? AND created_at < ?", []any{tenant, cutoff},
		"DELETE FROM events WHERE tenant = ? AND ts < ?", []any{tenant, cutoff},
	)
}

// DeleteTenant removes all cards and events of tenant and returns the removed card IDs.
func (s *SQLiteStorage) DeleteTenant(ctx context.Context, tenant string) ([]string, error) {
	tenant = tenantOrDefault(tenant)
	return s.deleteCards(ctx,
		"tenant = ?", []any{tenant},
		"DELETE FROM events WHERE tenant = ?", []any{tenant},
	)
}

func (s *SQLiteStorage) deleteCards(ctx context.Context, where string, args []any, eventSQL string, eventArgs []any) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM cards WHERE "+where, args...)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cards WHERE "+where, args...); err != nil {
		return nil, fmt.Errorf("failed to delete cards: %w", err)
	}
	if _, err := tx.ExecContext(ctx, eventSQL, eventArgs...); err != nil {
		return nil, fmt.Errorf("failed to delete events: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// LogEvent appends an audit event.
func (s *SQLiteStorage) LogEvent(ctx context.Context, tenant, kind, detail string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (ts, tenant, kind, detail) VALUES (?, ?, ?, ?)",
		s.now().UnixNano(), tenantOrDefault(tenant), kind, detail,
	)
	return err
}

// RecentEvents returns up to limit events for tenant, newest first.
func (s *SQLiteStorage) RecentEvents(ctx context.Context, tenant string, limit int) ([]*models.Event, error) {
	where, args := tenantClause(tenant)
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx,
		"SELECT ts, tenant, kind, detail FROM events"+where+" ORDER BY ts DESC, rowid DESC LIMIT ?",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		var (
			ev     models.Event
			ts     int64
			detail sql.NullString
		)
		if err := rows.Scan(&ts, &ev.Tenant, &ev.Kind, &detail); err != nil {
			return nil, err
		}
		ev.Timestamp = time.Unix(0, ts).UTC()
		ev.Detail = detail.String
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func tenantClause(tenant string) (string, []any) {
	if strings.TrimSpace(tenant) == "" {
		return "", nil
	}
	return " WHERE tenant = ?", []any{tenant}
}

func tenantOrDefault(tenant string) string {
	if strings.TrimSpace(tenant) == "" {
		return DefaultTenant
	}
	return tenant
}
