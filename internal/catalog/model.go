package catalog

import (
	"time"
)

// Product represents a catalog product.
type Product struct {
	ID              int64     `json:"id"`
	SKU             string    `json:"sku"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	AcquisitionCost float64   `json:"acquisition_cost"`
	SalePrice       float64   `json:"sale_price"`
	StockQuantity   int       `json:"stock_quantity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Margin returns the absolute profit margin per unit.
func (p Product) Margin() float64 {
	return p.SalePrice - p.AcquisitionCost
}

// MarginPercent returns the margin relative to acquisition cost.
func (p Product) MarginPercent() float64 {
	if p.AcquisitionCost == 0 {
		return 0
	}
	return (p.SalePrice - p.AcquisitionCost) / p.AcquisitionCost * 100
}
