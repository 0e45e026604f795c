package catalog

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ventero-erp/ventero/internal/shared"
)

type memoryCatalogRepo struct {
	products map[int64]Product
	refs     map[int64]int
	nextID   int64
}

func newMemoryCatalogRepo() *memoryCatalogRepo {
	return &memoryCatalogRepo{products: make(map[int64]Product), refs: make(map[int64]int)}
}

func (r *memoryCatalogRepo) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *memoryCatalogRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, nil
}

func (r *memoryCatalogRepo) GetBySKU(ctx context.Context, sku string) (Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: product %s", shared.ErrNotFound, sku)
}

func (r *memoryCatalogRepo) Create(ctx context.Context, product Product) (Product, error) {
	for _, p := range r.products {
		if p.SKU == product.SKU {
			return Product{}, fmt.Errorf("%w: sku %s", shared.ErrDuplicate, product.SKU)
		}
	}
	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = product
	return product, nil
}

func (r *memoryCatalogRepo) Update(ctx context.Context, id int64, product Product) error {
	existing, ok := r.products[id]
	if !ok {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	product.ID = id
	product.StockQuantity = existing.StockQuantity
	r.products[id] = product
	return nil
}

func (r *memoryCatalogRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	delete(r.products, id)
	return nil
}

func (r *memoryCatalogRepo) AdjustStock(ctx context.Context, id int64, delta int) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	if p.StockQuantity+delta < 0 {
		return Product{}, fmt.Errorf("%w: stock adjustment would be negative", shared.ErrValidation)
	}
	p.StockQuantity += delta
	r.products[id] = p
	return p, nil
}

func (r *memoryCatalogRepo) InvoiceLineRefs(ctx context.Context, id int64) (int, error) {
	return r.refs[id], nil
}

func (r *memoryCatalogRepo) TopMargin(ctx context.Context, limit int) ([]Product, error) {
	out, _, _ := r.List(ctx, shared.ListFilters{})
	sort.Slice(out, func(i, j int) bool { return out[i].Margin() > out[j].Margin() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryCatalogRepo())

	p, err := svc.Create(ctx, Product{SKU: "PROD001", Name: "Widget", AcquisitionCost: 100, SalePrice: 150, StockQuantity: 20})
	require.NoError(t, err)
	require.NotZero(t, p.ID)
	require.Equal(t, 50.0, p.Margin())
}

func TestCreateProductPriceMustExceedCost(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryCatalogRepo())

	_, err := svc.Create(ctx, Product{SKU: "PROD001", Name: "Widget", AcquisitionCost: 100, SalePrice: 100})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryCatalogRepo())

	_, err := svc.Create(ctx, Product{SKU: "PROD001", Name: "Widget", AcquisitionCost: 100, SalePrice: 150})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Product{SKU: "PROD001", Name: "Other", AcquisitionCost: 10, SalePrice: 20})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeleteProductBlockedByInvoiceRefs(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryCatalogRepo()
	svc := NewService(repo)

	p, err := svc.Create(ctx, Product{SKU: "PROD001", Name: "Widget", AcquisitionCost: 100, SalePrice: 150})
	require.NoError(t, err)

	repo.refs[p.ID] = 2
	err = svc.Delete(ctx, p.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	repo.refs[p.ID] = 0
	require.NoError(t, svc.Delete(ctx, p.ID))
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryCatalogRepo())

	p, err := svc.Create(ctx, Product{SKU: "PROD001", Name: "Widget", AcquisitionCost: 100, SalePrice: 150, StockQuantity: 5})
	require.NoError(t, err)

	_, err = svc.AdjustStock(ctx, p.ID, -6)
	require.ErrorIs(t, err, shared.ErrValidation)

	updated, err := svc.AdjustStock(ctx, p.ID, -5)
	require.NoError(t, err)
	require.Equal(t, 0, updated.StockQuantity)
}

func TestAdjustStockZeroDelta(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryCatalogRepo())

	_, err := svc.AdjustStock(ctx, 1, 0)
	require.ErrorIs(t, err, shared.ErrValidation)
}
