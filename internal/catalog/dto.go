package catalog

// ProductForm carries product create/update input.
type ProductForm struct {
	SKU             string  `json:"sku" validate:"required,max=50"`
	Name            string  `json:"name" validate:"required,max=255"`
	Description     string  `json:"description" validate:"max=500"`
	AcquisitionCost float64 `json:"acquisition_cost" validate:"gte=0"`
	SalePrice       float64 `json:"sale_price" validate:"gt=0"`
	StockQuantity   int     `json:"stock_quantity" validate:"gte=0"`
}

// StockAdjustmentForm carries a manual stock delta.
type StockAdjustmentForm struct {
	Delta int `json:"delta" validate:"required"`
}
