package catalog

import (
	"context"
	"fmt"

	"github.com/ventero-erp/ventero/internal/shared"
)

// Service handles catalog business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	if sku == "" {
		return Product{}, fmt.Errorf("%w: SKU is required", shared.ErrValidation)
	}
	return s.repo.GetBySKU(ctx, sku)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	if err := s.validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

// Delete removes a product. Products referenced by invoice lines are kept.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	refs, err := s.repo.InvoiceLineRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: product is referenced by %d invoice lines", shared.ErrInvalidState, refs)
	}
	return s.repo.Delete(ctx, id)
}

// AdjustStock applies a manual stock delta, rejecting negative results.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	if delta == 0 {
		return Product{}, fmt.Errorf("%w: stock delta cannot be zero", shared.ErrValidation)
	}
	return s.repo.AdjustStock(ctx, id, delta)
}

// TopMargin lists the most profitable products by unit margin.
func (s *Service) TopMargin(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.TopMargin(ctx, limit)
}
