package dto

type InventoryHistoryItem struct {
	ID           uint   `json:"id"`
	ProductID    uint   `json:"product_id"`
	ChangeAmount int    `json:"change_amount"`
	Reason       string `json:"reason"`
	BeforeQty    int    `json:"before_qty"`
	AfterQty     int    `json:"after_qty"`
	ChangeDate   string `json:"change_date"`
}

type InventoryHistoryListResponse struct {
	Data  []InventoryHistoryItem `json:"data"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}
