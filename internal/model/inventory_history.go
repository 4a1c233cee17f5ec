package model

import "time"

// InventoryHistory records each stock change on a product. Rows are created
// inside the same transaction that applies the stock update and are never
// mutated or deleted afterwards. ProductID is a weak reference: deleting a
// product leaves its history intact.
type InventoryHistory struct {
	ID           uint `gorm:"primaryKey"`
	ProductID    uint `gorm:"not null;index"`
	ChangeAmount int  `gorm:"not null"` // after_qty - before_qty
	Reason       string
	BeforeQty    int       `gorm:"not null"`
	AfterQty     int       `gorm:"not null"`
	ChangeDate   time.Time `gorm:"autoCreateTime"`
}

// TableName overrides GORM's default pluralization (inventory_histories).
func (InventoryHistory) TableName() string { return "inventory_history" }
