package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockroom/internal/dto"
	"stockroom/internal/model"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)
	Delete(ctx context.Context, id uint) error
	DistinctCategories(ctx context.Context) ([]string, error)

	// FindAllOrdered returns every product by ascending id (CSV export).
	FindAllOrdered(ctx context.Context) ([]model.Product, error)

	// Used inside transactions — callers must pass the tx instance.
	FindByIDForUpdateTx(tx *gorm.DB, id uint) (*model.Product, error)
	UpdateFieldsTx(tx *gorm.DB, id uint, fields map[string]any) error

	// InsertIgnoreTx inserts with ON CONFLICT DO NOTHING and reports whether
	// a row was actually written (false when the unique key already exists).
	InsertIgnoreTx(tx *gorm.DB, p *model.Product) (bool, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

// sortColumns is the closed allow-list for ORDER BY. The column name is the
// one piece of the query that cannot be bound as a parameter, so anything
// outside this set silently falls back to "id".
var sortColumns = map[string]bool{
	"id":         true,
	"name":       true,
	"brand":      true,
	"category":   true,
	"stock":      true,
	"created_at": true,
	"updated_at": true,
}

func sortColumn(requested string) string {
	if sortColumns[requested] {
		return requested
	}
	return "id"
}

// sortDirection maps exactly "asc" to ASC; everything else (including the
// empty string) sorts descending.
func sortDirection(requested string) string {
	if requested == "asc" {
		return "ASC"
	}
	return "DESC"
}

// applyFilters composes the WHERE clause from only the filters actually
// supplied. All values are bound parameters.
func applyFilters(q *gorm.DB, filter dto.ProductFilter) *gorm.DB {
	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.Category != "" {
		q = q.Where("category ILIKE ?", "%"+filter.Category+"%")
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	switch filter.InStock {
	case "true":
		q = q.Where("stock > 0")
	case "false":
		q = q.Where("stock = 0")
	}
	return q
}

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	q := applyFilters(r.db.WithContext(ctx).Model(&model.Product{}), filter)

	// Count with the same WHERE, no pagination — total is independent of page/limit.
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	var products []model.Product
	err := q.Order(sortColumn(filter.SortBy) + " " + sortDirection(filter.SortDir)).
		Limit(limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepo) Delete(ctx context.Context, id uint) error {
	// History rows deliberately survive — no cascade.
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

func (r *productRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("category IS NOT NULL AND category != ''").
		Distinct().Order("category").Pluck("category", &categories).Error
	return categories, err
}

func (r *productRepo) FindAllOrdered(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByIDForUpdateTx(tx *gorm.DB, id uint) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	return &p, err
}

func (r *productRepo) UpdateFieldsTx(tx *gorm.DB, id uint, fields map[string]any) error {
	return tx.Model(&model.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *productRepo) InsertIgnoreTx(tx *gorm.DB, p *model.Product) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	return res.RowsAffected > 0, res.Error
}

func (r *productRepo) DB() *gorm.DB { return r.db }
