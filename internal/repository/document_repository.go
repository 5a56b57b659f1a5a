package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"helpdesk-rag/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document %d failed: %w", id, err)
	}
	return nil
}

func (r *DocumentRepository) ListAll(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return count, nil
}

func (r *DocumentRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete documents failed: %w", err)
	}
	return nil
}
