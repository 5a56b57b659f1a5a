package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"helpdesk-rag/internal/model"
)

type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Create(ctx context.Context, interaction *model.Interaction) error {
	if err := r.db.WithContext(ctx).Create(interaction).Error; err != nil {
		return fmt.Errorf("create interaction failed: %w", err)
	}
	return nil
}

// ListByRequester returns the requester's most recent interactions, newest
// first.
func (r *InteractionRepository) ListByRequester(ctx context.Context, requester string, limit int) ([]model.Interaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var interactions []model.Interaction
	err := r.db.WithContext(ctx).
		Where("requester = ?", requester).
		Order("created_at DESC").
		Limit(limit).
		Find(&interactions).Error
	if err != nil {
		return nil, fmt.Errorf("list interactions failed: %w", err)
	}
	return interactions, nil
}
