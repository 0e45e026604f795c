package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/ventero-erp/ventero/internal/shared"
)

// Service handles client registry business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Client, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	if id <= 0 {
		return Client{}, fmt.Errorf("%w: invalid client ID", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Exists reports whether the client is registered.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}

func (s *Service) Create(ctx context.Context, client Client) (Client, error) {
	if err := s.validate(client); err != nil {
		return Client{}, err
	}
	return s.repo.Create(ctx, client)
}

func (s *Service) Update(ctx context.Context, id int64, client Client) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid client ID", shared.ErrValidation)
	}
	if err := s.validate(client); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, client)
}

// Delete removes a client. Clients referenced by invoices are kept.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid client ID", shared.ErrValidation)
	}
	refs, err := s.repo.InvoiceRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: client is referenced by %d invoices", shared.ErrInvalidState, refs)
	}
	return s.repo.Delete(ctx, id)
}

// PurchaseHistory lists the client's most recent invoices.
func (s *Service) PurchaseHistory(ctx context.Context, id int64, limit int) ([]PurchaseRecord, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid client ID", shared.ErrValidation)
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.PurchaseHistory(ctx, id, limit)
}

// Stats aggregates the client's confirmed invoices.
func (s *Service) Stats(ctx context.Context, id int64) (ClientStats, error) {
	if id <= 0 {
		return ClientStats{}, fmt.Errorf("%w: invalid client ID", shared.ErrValidation)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return ClientStats{}, err
	}
	return s.repo.Stats(ctx, id)
}

func (s *Service) validate(c Client) error {
	if strings.TrimSpace(c.FullName) == "" {
		return fmt.Errorf("%w: full name is required", shared.ErrValidation)
	}
	return nil
}
