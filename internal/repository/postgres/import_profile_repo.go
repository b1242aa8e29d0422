package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasapp/kas-backend/internal/domain"
)

// ImportProfileRepository implements domain.ImportProfileRepository using
// PostgreSQL
type ImportProfileRepository struct {
	pool *pgxpool.Pool
}

// NewImportProfileRepository creates a new ImportProfileRepository
func NewImportProfileRepository(pool *pgxpool.Pool) *ImportProfileRepository {
	return &ImportProfileRepository{pool: pool}
}

const profileColumns = `id, user_id, name, column_mapping, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.ImportProfile, error) {
	var p domain.ImportProfile
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.ColumnMapping, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if p.ColumnMapping == nil {
		p.ColumnMapping = map[string]string{}
	}
	return &p, nil
}

// GetOrCreateDefault returns the user's default template profile, creating
// it on first use.
func (r *ImportProfileRepository) GetOrCreateDefault(ctx context.Context, userID string) (*domain.ImportProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM import_profiles
		WHERE user_id = $1 AND name = $2`,
		userID, domain.DefaultProfileName)
	profile, err := scanProfile(row)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	row = r.pool.QueryRow(ctx, `
		INSERT INTO import_profiles (user_id, name)
		VALUES ($1, $2)
		ON CONFLICT (user_id, name) DO UPDATE SET updated_at = now()
		RETURNING `+profileColumns,
		userID, domain.DefaultProfileName)
	return scanProfile(row)
}

// GetByID retrieves a profile by its ID for a user
func (r *ImportProfileRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.ImportProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM import_profiles
		WHERE user_id = $1 AND id = $2`,
		userID, id)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// GetAll retrieves all profiles for a user
func (r *ImportProfileRepository) GetAll(ctx context.Context, userID string) ([]*domain.ImportProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM import_profiles
		WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.ImportProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, profile)
	}
	return result, rows.Err()
}

// Delete removes a profile; its value mappings cascade.
func (r *ImportProfileRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM import_profiles WHERE user_id = $1 AND id = $2`,
		userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// GetMappings returns csv_value -> internal ID for one mapping type.
func (r *ImportProfileRepository) GetMappings(ctx context.Context, profileID uuid.UUID, mappingType string) (map[string]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT csv_value, internal_id FROM import_value_mappings
		WHERE profile_id = $1 AND mapping_type = $2`,
		profileID, mappingType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]uuid.UUID)
	for rows.Next() {
		var csvValue string
		var internalID uuid.UUID
		if err := rows.Scan(&csvValue, &internalID); err != nil {
			return nil, err
		}
		result[csvValue] = internalID
	}
	return result, rows.Err()
}

// UpsertMappings inserts or retargets mappings keyed by (profile, type,
// csv_value).
func (r *ImportProfileRepository) UpsertMappings(ctx context.Context, profileID uuid.UUID, mappingType string, items []domain.MappingItem) error {
	for _, item := range items {
		if _, err := r.pool.Exec(ctx, `
			INSERT INTO import_value_mappings (profile_id, mapping_type, csv_value, internal_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (profile_id, mapping_type, csv_value)
			DO UPDATE SET internal_id = EXCLUDED.internal_id`,
			profileID, mappingType, item.CSVValue, item.InternalID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByInternalID drops stale mappings pointing at a removed entity.
func (r *ImportProfileRepository) DeleteByInternalID(ctx context.Context, tx interface{}, internalID uuid.UUID, mappingType string) (int, error) {
	tag, err := runner(r.pool, tx).Exec(ctx, `
		DELETE FROM import_value_mappings
		WHERE internal_id = $1 AND mapping_type = $2`,
		internalID, mappingType)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
