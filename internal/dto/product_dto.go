package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name     string  `json:"name"     validate:"required,min=1,max=255"`
	Unit     *string `json:"unit"`
	Category *string `json:"category"`
	Brand    *string `json:"brand"`
	Stock    int     `json:"stock"`
	Status   *string `json:"status"`
	Image    *string `json:"image"`
}

// UpdateProductRequest carries a sparse field set: nil means the caller did
// not supply the attribute and the stored value must be left untouched.
// Reason is only consumed when Stock is present and actually changes.
type UpdateProductRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1,max=255"`
	Unit     *string `json:"unit"`
	Category *string `json:"category"`
	Brand    *string `json:"brand"`
	Stock    *int    `json:"stock"`
	Status   *string `json:"status"`
	Image    *string `json:"image"`
	Reason   string  `json:"reason"`
}

// HasFields reports whether at least one mutable attribute is present.
func (r UpdateProductRequest) HasFields() bool {
	return r.Name != nil || r.Unit != nil || r.Category != nil ||
		r.Brand != nil || r.Stock != nil || r.Status != nil || r.Image != nil
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

// ProductFilter collects the list query parameters. Page and Limit arrive
// already coerced to ints (0 on garbage input); the repository normalizes
// them to their defaults. SortBy/SortDir are validated against closed
// allow-lists before touching query text.
type ProductFilter struct {
	Name     string `form:"name"`
	Category string `form:"category"`
	Status   string `form:"status"`
	InStock  string `form:"inStock"` // "true" → stock > 0, "false" → stock = 0, else no filter
	SortBy   string `form:"sortBy"`
	SortDir  string `form:"sortDir"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Unit      *string `json:"unit"`
	Category  *string `json:"category"`
	Brand     *string `json:"brand"`
	Stock     int     `json:"stock"`
	Status    *string `json:"status"`
	Image     *string `json:"image"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
