package model

import "time"

// Product is a catalog/inventory item. Name is the natural key the bulk
// importer conflicts against; the descriptive fields are all optional.
type Product struct {
	ID       uint    `gorm:"primaryKey"`
	Name     string  `gorm:"uniqueIndex;not null"`
	Unit     *string
	Category *string `gorm:"index"`
	Brand    *string
	Stock    int     `gorm:"not null;default:0"`
	Status   *string
	Image    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
