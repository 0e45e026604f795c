package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ventero-erp/ventero/internal/receivables"
	"github.com/ventero-erp/ventero/internal/shared"
)

// VoidedTag is prepended to the reason appended to notes when an invoice is
// voided.
const VoidedTag = "[VOIDED]"

// Service implements the invoice engine: draft assembly, totals, the
// confirm/void state machine and the stock movements tied to it.
type Service struct {
	repo     Repository
	taxRate  float64
	termDays int
	logger   *slog.Logger
}

// NewService constructs Service.
func NewService(repo Repository, taxRate float64, paymentTermDays int, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		taxRate:  taxRate,
		termDays: paymentTermDays,
		logger:   logger,
	}
}

// Create opens a new draft invoice with a freshly assigned sequential number
// and zero totals.
func (s *Service) Create(ctx context.Context, form CreateInvoiceForm) (*Invoice, error) {
	issueDate := time.Now().UTC().Truncate(24 * time.Hour)
	if form.IssueDate != "" {
		parsed, err := time.Parse("2006-01-02", form.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: issue_date must be YYYY-MM-DD", shared.ErrValidation)
		}
		issueDate = parsed
	}

	var created *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.ClientExists(ctx, form.ClientID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: client %d", shared.ErrNotFound, form.ClientID)
		}

		number, err := tx.NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}

		inv := Invoice{
			Number:    number,
			ClientID:  form.ClientID,
			IssueDate: issueDate,
			Status:    StatusDraft,
			Notes:     form.Notes,
		}
		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		created = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice created", "invoice_id", created.ID, "number", created.Number, "client_id", created.ClientID)
	return created, nil
}

// AddLine attaches a product to a draft. Adding a product already on the
// invoice accumulates onto the existing line and keeps that line's unit
// price; an explicit price on the request only applies to brand-new lines.
func (s *Service) AddLine(ctx context.Context, invoiceID int64, form AddLineForm) (*InvoiceWithLines, error) {
	if form.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if form.UnitPrice != nil && *form.UnitPrice <= 0 {
		return nil, fmt.Errorf("%w: unit price must be positive", shared.ErrValidation)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return fmt.Errorf("%w: lines can only be added to draft invoices", shared.ErrInvalidState)
		}

		product, err := tx.GetProductForUpdate(ctx, form.ProductID)
		if err != nil {
			return fmt.Errorf("product %d: %w", form.ProductID, err)
		}

		existing, err := tx.GetLineByProduct(ctx, invoiceID, form.ProductID)
		switch {
		case err == nil:
			qty := existing.Quantity + form.Quantity
			if product.StockQuantity < qty {
				return &shared.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   qty,
					Available:   product.StockQuantity,
				}
			}
			if err := tx.UpdateLine(ctx, existing.ID, qty, existing.UnitPrice,
				lineSubtotal(qty, existing.UnitPrice)); err != nil {
				return err
			}
		case errors.Is(err, shared.ErrNotFound):
			if product.StockQuantity < form.Quantity {
				return &shared.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   form.Quantity,
					Available:   product.StockQuantity,
				}
			}
			price := product.SalePrice
			if form.UnitPrice != nil {
				price = *form.UnitPrice
			}
			line := InvoiceLine{
				InvoiceID:    invoiceID,
				ProductID:    form.ProductID,
				Quantity:     form.Quantity,
				UnitPrice:    price,
				LineSubtotal: lineSubtotal(form.Quantity, price),
			}
			if _, err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
		default:
			return err
		}

		return s.recomputeTotals(ctx, tx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetWithLines(ctx, invoiceID)
}

// UpdateLine changes quantity and/or unit price of a draft line.
func (s *Service) UpdateLine(ctx context.Context, invoiceID, lineID int64, form UpdateLineForm) (*InvoiceWithLines, error) {
	if form.Quantity == nil && form.UnitPrice == nil {
		return nil, fmt.Errorf("%w: nothing to update", shared.ErrValidation)
	}
	if form.Quantity != nil && *form.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if form.UnitPrice != nil && *form.UnitPrice <= 0 {
		return nil, fmt.Errorf("%w: unit price must be positive", shared.ErrValidation)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return fmt.Errorf("%w: lines can only be modified on draft invoices", shared.ErrInvalidState)
		}

		line, err := tx.GetLine(ctx, invoiceID, lineID)
		if err != nil {
			return err
		}

		qty := line.Quantity
		if form.Quantity != nil {
			qty = *form.Quantity
		}
		price := line.UnitPrice
		if form.UnitPrice != nil {
			price = *form.UnitPrice
		}

		if err := tx.UpdateLine(ctx, lineID, qty, price, lineSubtotal(qty, price)); err != nil {
			return err
		}
		return s.recomputeTotals(ctx, tx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetWithLines(ctx, invoiceID)
}

// RemoveLine drops a draft line and recomputes totals.
func (s *Service) RemoveLine(ctx context.Context, invoiceID, lineID int64) (*InvoiceWithLines, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return fmt.Errorf("%w: lines can only be removed from draft invoices", shared.ErrInvalidState)
		}

		if _, err := tx.GetLine(ctx, invoiceID, lineID); err != nil {
			return err
		}
		if err := tx.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		return s.recomputeTotals(ctx, tx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetWithLines(ctx, invoiceID)
}

// Confirm transitions a draft to confirmed. Every line's stock is validated
// before any decrement happens; the decrements, the status flip and the
// opening of the receivable account all commit together or not at all.
func (s *Service) Confirm(ctx context.Context, invoiceID int64) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return fmt.Errorf("%w: only draft invoices can be confirmed", shared.ErrInvalidState)
		}

		lines, err := tx.ListLines(ctx, invoiceID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: invoice has no lines", shared.ErrValidation)
		}

		// Lock and validate everything first so a shortage on the last
		// line cannot leave earlier decrements behind.
		for _, ln := range lines {
			product, err := tx.GetProductForUpdate(ctx, ln.ProductID)
			if err != nil {
				return fmt.Errorf("product %d: %w", ln.ProductID, err)
			}
			if product.StockQuantity < ln.Quantity {
				return &shared.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   ln.Quantity,
					Available:   product.StockQuantity,
				}
			}
		}
		for _, ln := range lines {
			if err := tx.AdjustProductStock(ctx, ln.ProductID, -ln.Quantity); err != nil {
				return err
			}
		}

		if err := tx.SetInvoiceStatus(ctx, invoiceID, StatusConfirmed); err != nil {
			return err
		}

		acc := receivables.NewAccount(invoiceID, inv.ClientID, inv.Total, inv.IssueDate, s.termDays)
		return tx.InsertReceivable(ctx, acc)
	})
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice confirmed", "invoice_id", inv.ID, "number", inv.Number, "total", inv.Total)
	return inv, nil
}

// Void cancels an invoice. A confirmed invoice gets its stock restored and
// its receivable account closed; an invoice with active payments cannot be
// voided until those payments are voided first. The reason is recorded on
// the invoice notes.
func (s *Service) Void(ctx context.Context, invoiceID int64, reason string) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == StatusVoided {
			return fmt.Errorf("%w: invoice is already voided", shared.ErrInvalidState)
		}

		if inv.Status == StatusConfirmed {
			active, err := tx.ActivePaymentCount(ctx, invoiceID)
			if err != nil {
				return err
			}
			if active > 0 {
				return fmt.Errorf("%w: invoice has %d active payment(s), void them first", shared.ErrInvalidState, active)
			}

			lines, err := tx.ListLines(ctx, invoiceID)
			if err != nil {
				return err
			}
			for _, ln := range lines {
				if err := tx.AdjustProductStock(ctx, ln.ProductID, ln.Quantity); err != nil {
					return err
				}
			}
			if err := tx.CloseReceivable(ctx, invoiceID, time.Now().UTC()); err != nil {
				return err
			}
		}

		if err := tx.SetInvoiceStatus(ctx, invoiceID, StatusVoided); err != nil {
			return err
		}
		note := VoidedTag
		if reason != "" {
			note += " " + reason
		}
		return tx.AppendInvoiceNotes(ctx, invoiceID, "\n"+note)
	})
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice voided", "invoice_id", inv.ID, "number", inv.Number, "reason", reason)
	return inv, nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*InvoiceWithLines, error) {
	return s.repo.GetWithLines(ctx, id)
}

// List returns invoices matching the filters plus the total match count.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}

// Stats aggregates confirmed invoices over the given period.
func (s *Service) Stats(ctx context.Context, from, to time.Time) (*SalesStats, error) {
	return s.repo.SalesStats(ctx, from, to)
}

// recomputeTotals reloads all lines and writes fresh totals.
func (s *Service) recomputeTotals(ctx context.Context, tx TxRepository, invoiceID int64) error {
	lines, err := tx.ListLines(ctx, invoiceID)
	if err != nil {
		return err
	}
	subtotal, tax, total := computeTotals(lines, s.taxRate)
	return tx.UpdateInvoiceTotals(ctx, invoiceID, subtotal, tax, total)
}
