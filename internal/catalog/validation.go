package catalog

import (
	"fmt"
	"strings"

	"github.com/ventero-erp/ventero/internal/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: product SKU is required", shared.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if p.AcquisitionCost < 0 {
		return fmt.Errorf("%w: acquisition cost cannot be negative", shared.ErrValidation)
	}
	if p.SalePrice <= p.AcquisitionCost {
		return fmt.Errorf("%w: sale price must exceed acquisition cost", shared.ErrValidation)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity cannot be negative", shared.ErrValidation)
	}
	return nil
}
