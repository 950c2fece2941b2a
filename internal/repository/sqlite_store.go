package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"revisia-backend/internal/models"
)

// SQLiteStore keeps history and subscriptions in a single local SQLite file.
// Timestamps are stored as unix nanoseconds so range queries compare integers.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; serialising through one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ai_history (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		mode        TEXT NOT NULL,
		input       TEXT NOT NULL,
		result      TEXT NOT NULL,
		result_type TEXT NOT NULL CHECK (result_type IN ('text', 'json')),
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ai_history_user_created ON ai_history(user_id, created_at);

	CREATE TABLE IF NOT EXISTS subscriptions (
		user_id            TEXT PRIMARY KEY,
		status             TEXT NOT NULL,
		current_period_end INTEGER,
		updated_at         INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Insert(ctx context.Context, e *models.HistoryEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ai_history (id, user_id, mode, input, result, result_type, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID.String(), e.UserID.String(), string(e.Mode), e.Input, e.Result, string(e.Kind), e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ai_history WHERE user_id = ? AND created_at >= ?",
		userID.String(), since.UnixNano(),
	).Scan(&n)
	return n, err
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ai_history WHERE user_id = ?", userID.String()).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, mode, input, result, result_type, created_at
		FROM ai_history WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID.String(), limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		e, err := scanSQLiteHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (s *SQLiteStore) GetByID(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, mode, input, result, result_type, created_at
		FROM ai_history WHERE id = ?`, id.String())

	e, err := scanSQLiteHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// GetByUserID returns the user's subscription, or nil if there is none.
func (s *SQLiteStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var (
		status    string
		periodEnd sql.NullInt64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT status, current_period_end, updated_at FROM subscriptions WHERE user_id = ?",
		userID.String(),
	).Scan(&status, &periodEnd, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{UserID: userID, Status: status, UpdatedAt: time.Unix(0, updatedAt).UTC()}
	if periodEnd.Valid {
		t := time.Unix(0, periodEnd.Int64).UTC()
		sub.CurrentPeriodEnd = &t
	}
	return sub, nil
}

// UpsertSubscription writes a subscription row. Used by local deployments
// that have no billing service and by tests.
func (s *SQLiteStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now().UTC()
	}
	var periodEnd sql.NullInt64
	if sub.CurrentPeriodEnd != nil {
		periodEnd = sql.NullInt64{Int64: sub.CurrentPeriodEnd.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, status, current_period_end, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET status = excluded.status,
			current_period_end = excluded.current_period_end, updated_at = excluded.updated_at`,
		sub.UserID.String(), sub.Status, periodEnd, sub.UpdatedAt.UnixNano(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteHistory(row rowScanner) (*models.HistoryEntry, error) {
	var (
		id, userID, mode, kind string
		createdAt              int64
	)
	e := &models.HistoryEntry{}
	if err := row.Scan(&id, &userID, &mode, &e.Input, &e.Result, &kind, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse history id: %w", err)
	}
	if e.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("parse history user id: %w", err)
	}
	e.Mode = models.Mode(mode)
	e.Kind = models.ResultKind(kind)
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	return e, nil
}
