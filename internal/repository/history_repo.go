package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"revisia-backend/internal/models"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// HistoryRepo stores generation history in PostgreSQL.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

func (r *HistoryRepo) Insert(ctx context.Context, e *models.HistoryEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO ai_history (id, user_id, mode, input, result, result_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.UserID, string(e.Mode), e.Input, e.Result, string(e.Kind), e.CreatedAt,
	)
	return err
}

func (r *HistoryRepo) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ai_history WHERE user_id = $1 AND created_at >= $2",
		userID, since,
	).Scan(&n)
	return n, err
}

func (r *HistoryRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ai_history WHERE user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, mode, input, result, result_type, created_at
		FROM ai_history WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *HistoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, mode, input, result, result_type, created_at
		FROM ai_history WHERE id = $1`, id)

	e, err := scanHistory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func scanHistory(row pgx.Row) (*models.HistoryEntry, error) {
	e := &models.HistoryEntry{}
	var mode, kind string
	if err := row.Scan(&e.ID, &e.UserID, &mode, &e.Input, &e.Result, &kind, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Mode = models.Mode(mode)
	e.Kind = models.ResultKind(kind)
	return e, nil
}
