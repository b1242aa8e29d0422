package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tag is a reusable label. Names are normalized to lowercase and trimmed,
// unique per user. Tags are created on demand and never deleted explicitly.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type TagRepository interface {
	GetAll(ctx context.Context, userID string) ([]*Tag, error)
	// GetOrCreateTx resolves tag names to tags, creating missing ones.
	// Names are normalized; empty names are dropped.
	GetOrCreateTx(ctx context.Context, tx interface{}, userID string, names []string) ([]*Tag, error)
}
