package repository

import (
	"context"

	"gorm.io/gorm"

	"stockroom/internal/model"
)

type InventoryHistoryRepository interface {
	// CreateTx appends one history row inside the caller's transaction so the
	// stock update and its audit record commit or roll back together.
	CreateTx(tx *gorm.DB, h *model.InventoryHistory) error
	ListByProduct(ctx context.Context, productID uint, page, limit int) ([]model.InventoryHistory, int64, error)
}

type inventoryHistoryRepo struct{ db *gorm.DB }

func NewInventoryHistoryRepository(db *gorm.DB) InventoryHistoryRepository {
	return &inventoryHistoryRepo{db: db}
}

func (r *inventoryHistoryRepo) CreateTx(tx *gorm.DB, h *model.InventoryHistory) error {
	return tx.Create(h).Error
}

// ListByProduct returns paginated stock-change records for one product,
// newest first (append-only table, so this is reverse insert order).
func (r *inventoryHistoryRepo) ListByProduct(
	ctx context.Context,
	productID uint,
	page, limit int,
) ([]model.InventoryHistory, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.InventoryHistory{}).
		Where("product_id = ?", productID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.InventoryHistory
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("change_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}
