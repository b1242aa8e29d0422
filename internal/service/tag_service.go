package service

import (
	"context"

	"github.com/kasapp/kas-backend/internal/domain"
)

// TagService lists the user's tags. Tags are created implicitly when
// transactions reference them.
type TagService struct {
	tagRepo domain.TagRepository
}

func NewTagService(tagRepo domain.TagRepository) *TagService {
	return &TagService{tagRepo: tagRepo}
}

func (s *TagService) GetAll(ctx context.Context, userID string) ([]*domain.Tag, error) {
	return s.tagRepo.GetAll(ctx, userID)
}
