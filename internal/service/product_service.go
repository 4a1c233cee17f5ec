package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stockroom/internal/dto"
	"stockroom/internal/model"
	"stockroom/internal/repository"
)

// Sentinel errors the handlers translate into HTTP statuses.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrDuplicateName      = errors.New("a product with this name already exists")
	ErrNoFields           = errors.New("no fields to update")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	categoriesCacheKey = "categories"
	categoriesCacheTTL = 10 * time.Minute
	defaultReason      = "update"
)

// ProductService owns product CRUD, the filtered/paginated listing, and the
// stock audit trail.
type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uint) error
	ListCategories(ctx context.Context) ([]string, error)
	History(ctx context.Context, productID uint, page, limit int) (*dto.InventoryHistoryListResponse, error)
}

type productService struct {
	repo        repository.ProductRepository
	historyRepo repository.InventoryHistoryRepository
	rdb         *redis.Client
}

func NewProductService(
	repo repository.ProductRepository,
	historyRepo repository.InventoryHistoryRepository,
	rdb *redis.Client,
) ProductService {
	return &productService{repo: repo, historyRepo: historyRepo, rdb: rdb}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	p := &model.Product{
		Name:     req.Name,
		Unit:     req.Unit,
		Category: req.Category,
		Brand:    req.Brand,
		Stock:    req.Stock,
		Status:   req.Status,
		Image:    req.Image,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	s.invalidateCategories(ctx)
	return productToResponse(p), nil
}

func (s *productService) GetByID(ctx context.Context, id uint) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	// Normalize pagination here so the response meta always matches what the
	// repository actually queried.
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, *productToResponse(&products[i]))
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))

	return &dto.ProductListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// Update applies a sparse field set to one product. The fetch, the write,
// and the optional history append all run inside a single transaction with a
// row lock, so concurrent updates cannot record the same "before" snapshot.
func (s *productService) Update(ctx context.Context, id uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if !req.HasFields() {
		return nil, ErrNoFields
	}

	var updated *model.Product
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		now := time.Now()
		fields := map[string]any{"updated_at": now}
		if req.Name != nil {
			fields["name"] = *req.Name
			current.Name = *req.Name
		}
		if req.Unit != nil {
			fields["unit"] = *req.Unit
			current.Unit = req.Unit
		}
		if req.Category != nil {
			fields["category"] = *req.Category
			current.Category = req.Category
		}
		if req.Brand != nil {
			fields["brand"] = *req.Brand
			current.Brand = req.Brand
		}
		if req.Status != nil {
			fields["status"] = *req.Status
			current.Status = req.Status
		}
		if req.Image != nil {
			fields["image"] = *req.Image
			current.Image = req.Image
		}

		before := current.Stock
		if req.Stock != nil {
			fields["stock"] = *req.Stock
			current.Stock = *req.Stock
		}

		if err := s.repo.UpdateFieldsTx(tx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateName
			}
			return err
		}

		// History is a function of the numeric inequality, never of key
		// presence: stock supplied with its current value appends nothing.
		if req.Stock != nil && *req.Stock != before {
			reason := req.Reason
			if reason == "" {
				reason = defaultReason
			}
			h := &model.InventoryHistory{
				ProductID:    id,
				ChangeAmount: *req.Stock - before,
				Reason:       reason,
				BeforeQty:    before,
				AfterQty:     *req.Stock,
				ChangeDate:   now,
			}
			if err := s.historyRepo.CreateTx(tx, h); err != nil {
				return err
			}
		}

		current.UpdatedAt = now
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCategories(ctx)
	return productToResponse(updated), nil
}

func (s *productService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	// History rows survive the product — append-only audit data is never
	// cascaded away.
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCategories(ctx)
	return nil
}

func (s *productService) ListCategories(ctx context.Context) ([]string, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, categoriesCacheKey).Bytes(); err == nil {
			var categories []string
			if jsonErr := json.Unmarshal(cached, &categories); jsonErr == nil {
				return categories, nil
			}
		}
	}

	categories, err := s.repo.DistinctCategories(ctx)
	if err != nil {
		return nil, err
	}

	// Populate cache — best effort, ignore errors.
	if s.rdb != nil {
		if b, jsonErr := json.Marshal(categories); jsonErr == nil {
			_ = s.rdb.Set(ctx, categoriesCacheKey, b, categoriesCacheTTL).Err()
		}
	}
	return categories, nil
}

func (s *productService) History(ctx context.Context, productID uint, page, limit int) (*dto.InventoryHistoryListResponse, error) {
	rows, total, err := s.historyRepo.ListByProduct(ctx, productID, page, limit)
	if err != nil {
		return nil, err
	}

	data := make([]dto.InventoryHistoryItem, 0, len(rows))
	for _, h := range rows {
		data = append(data, dto.InventoryHistoryItem{
			ID:           h.ID,
			ProductID:    h.ProductID,
			ChangeAmount: h.ChangeAmount,
			Reason:       h.Reason,
			BeforeQty:    h.BeforeQty,
			AfterQty:     h.AfterQty,
			ChangeDate:   formatTime(h.ChangeDate),
		})
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return &dto.InventoryHistoryListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *productService) invalidateCategories(ctx context.Context) {
	if s.rdb != nil {
		_ = s.rdb.Del(ctx, categoriesCacheKey).Err()
	}
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		Unit:      p.Unit,
		Category:  p.Category,
		Brand:     p.Brand,
		Stock:     p.Stock,
		Status:    p.Status,
		Image:     p.Image,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
