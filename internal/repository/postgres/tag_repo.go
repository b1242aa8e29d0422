package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasapp/kas-backend/internal/domain"
)

// TagRepository implements domain.TagRepository using PostgreSQL
type TagRepository struct {
	pool *pgxpool.Pool
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(pool *pgxpool.Pool) *TagRepository {
	return &TagRepository{pool: pool}
}

// GetAll retrieves all tags for a user
func (r *TagRepository) GetAll(ctx context.Context, userID string) ([]*domain.Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, created_at FROM tags
		WHERE user_id = $1 ORDER BY name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// GetOrCreateTx resolves tag names to tags, creating missing ones. Names are
// lowercased and trimmed; empties are dropped and duplicates collapse.
func (r *TagRepository) GetOrCreateTx(ctx context.Context, tx interface{}, userID string, names []string) ([]*domain.Tag, error) {
	q := runner(r.pool, tx)

	seen := make(map[string]bool, len(names))
	var result []*domain.Tag
	for _, name := range names {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true

		var t domain.Tag
		err := q.QueryRow(ctx, `
			SELECT id, user_id, name, created_at FROM tags
			WHERE user_id = $1 AND name = $2`,
			userID, normalized).Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			err = q.QueryRow(ctx, `
				INSERT INTO tags (user_id, name) VALUES ($1, $2)
				ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id, user_id, name, created_at`,
				userID, normalized).Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt)
		}
		if err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	return result, nil
}
