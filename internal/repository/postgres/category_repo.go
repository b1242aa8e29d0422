package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasapp/kas-backend/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = `id, user_id, name, type, color, icon, parent_id, is_system, created_at, updated_at`

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Color, &c.Icon, &c.ParentID, &c.IsSystem, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	return r.CreateTx(ctx, nil, category)
}

// CreateTx creates a new category within the caller's transaction.
func (r *CategoryRepository) CreateTx(ctx context.Context, tx interface{}, category *domain.Category) (*domain.Category, error) {
	row := runner(r.pool, tx).QueryRow(ctx, `
		INSERT INTO categories (user_id, name, type, color, icon, parent_id, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+categoryColumns,
		category.UserID, category.Name, string(category.Type), category.Color, category.Icon, category.ParentID, category.IsSystem)
	created, err := scanCategory(row)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a category by its ID for a user
func (r *CategoryRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND id = $2`,
		userID, id)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// GetByName retrieves a category by its exact name for a user
func (r *CategoryRepository) GetByName(ctx context.Context, userID string, name string) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND name = $2`,
		userID, name)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// GetAll retrieves all categories for a user, optionally filtered by type
func (r *CategoryRepository) GetAll(ctx context.Context, userID string, categoryType *domain.CategoryType) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1`
	args := []any{userID}
	if categoryType != nil {
		query += ` AND type = $2`
		args = append(args, string(*categoryType))
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

// Update applies a partial patch; nil fields keep their current values.
// SetParentNil clears the parent explicitly.
func (r *CategoryRepository) Update(ctx context.Context, userID string, id uuid.UUID, patch *domain.CategoryUpdate) (*domain.Category, error) {
	var typeStr *string
	if patch.Type != nil {
		s := string(*patch.Type)
		typeStr = &s
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE categories SET
			name = COALESCE($3, name),
			type = COALESCE($4, type),
			color = COALESCE($5, color),
			icon = COALESCE($6, icon),
			parent_id = CASE WHEN $8 THEN NULL ELSE COALESCE($7, parent_id) END,
			updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING `+categoryColumns,
		userID, id, patch.Name, typeStr, patch.Color, patch.Icon, patch.ParentID, patch.SetParentNil)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// DeleteTx removes the category within the caller's transaction. The
// parent_id FK is ON DELETE SET NULL, so children are detached by the
// database.
func (r *CategoryRepository) DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error {
	tag, err := runner(r.pool, tx).Exec(ctx, `
		DELETE FROM categories WHERE user_id = $1 AND id = $2`,
		userID, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}
