package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"helpdesk-rag/internal/model"
)

type TabularRowRepository struct {
	db *gorm.DB
}

func NewTabularRowRepository(db *gorm.DB) *TabularRowRepository {
	return &TabularRowRepository{db: db}
}

// ReplaceSource swaps every row tagged with the source label for the given
// batch in one transaction. Re-ingestion is a full replace, never a per-row
// upsert.
func (r *TabularRowRepository) ReplaceSource(ctx context.Context, source string, rows []model.TabularRow) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source = ?", source).Delete(&model.TabularRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("replace tabular rows for source %q failed: %w", source, err)
	}
	return nil
}

func (r *TabularRowRepository) ListAll(ctx context.Context) ([]model.TabularRow, error) {
	var rows []model.TabularRow
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tabular rows failed: %w", err)
	}
	return rows, nil
}

func (r *TabularRowRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&model.TabularRow{}).Error; err != nil {
		return fmt.Errorf("delete tabular rows failed: %w", err)
	}
	return nil
}
