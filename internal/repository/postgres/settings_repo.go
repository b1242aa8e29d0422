package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasapp/kas-backend/internal/domain"
)

// SettingsRepository implements domain.SettingsRepository using PostgreSQL
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the user's settings, or ErrNotFound when no row exists yet.
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*domain.UserSettings, error) {
	var s domain.UserSettings
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, has_completed_onboarding, created_at, updated_at
		FROM user_settings WHERE user_id = $1`,
		userID).Scan(&s.UserID, &s.HasCompletedOnboarding, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SetOnboardingComplete upserts the settings row with the flag set.
func (r *SettingsRepository) SetOnboardingComplete(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, has_completed_onboarding)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id)
		DO UPDATE SET has_completed_onboarding = TRUE, updated_at = now()`,
		userID)
	return err
}
