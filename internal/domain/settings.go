package domain

import (
	"context"
	"time"
)

// UserSettings holds per-user flags keyed by the auth subject.
type UserSettings struct {
	UserID                 string    `json:"-"`
	HasCompletedOnboarding bool      `json:"hasCompletedOnboarding"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

type SettingsRepository interface {
	// Get returns the user's settings, or ErrNotFound when no row exists yet.
	Get(ctx context.Context, userID string) (*UserSettings, error)
	// SetOnboardingComplete upserts the settings row with the flag set.
	SetOnboardingComplete(ctx context.Context, userID string) error
}
