package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ventero-erp/ventero/internal/receivables"
	"github.com/ventero-erp/ventero/internal/shared"
)

type memoryInvoiceRepo struct {
	invoices    map[int64]*Invoice
	lines       map[int64]*InvoiceLine
	products    map[int64]*stockProduct
	accounts    map[int64]*receivables.ReceivableAccount
	payments    []receivables.Payment
	nextInvoice int64
	nextLine    int64
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		invoices: make(map[int64]*Invoice),
		lines:    make(map[int64]*InvoiceLine),
		products: make(map[int64]*stockProduct),
		accounts: make(map[int64]*receivables.ReceivableAccount),
	}
}

func (m *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryInvoiceRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memoryInvoiceRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return m.Get(ctx, id)
}

func (m *memoryInvoiceRepo) GetWithLines(ctx context.Context, id int64) (*InvoiceWithLines, error) {
	inv, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, _ := m.ListLines(ctx, id)
	return &InvoiceWithLines{Invoice: *inv, Lines: lines}, nil
}

func (m *memoryInvoiceRepo) List(_ context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if req.Status != "" && inv.Status != req.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *memoryInvoiceRepo) ListLines(_ context.Context, invoiceID int64) ([]InvoiceLine, error) {
	var out []InvoiceLine
	for _, ln := range m.lines {
		if ln.InvoiceID == invoiceID {
			out = append(out, *ln)
		}
	}
	return out, nil
}

func (m *memoryInvoiceRepo) GetLine(_ context.Context, invoiceID, lineID int64) (*InvoiceLine, error) {
	ln, ok := m.lines[lineID]
	if !ok || ln.InvoiceID != invoiceID {
		return nil, shared.ErrNotFound
	}
	cp := *ln
	return &cp, nil
}

func (m *memoryInvoiceRepo) GetLineByProduct(_ context.Context, invoiceID, productID int64) (*InvoiceLine, error) {
	for _, ln := range m.lines {
		if ln.InvoiceID == invoiceID && ln.ProductID == productID {
			cp := *ln
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryInvoiceRepo) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	m.nextInvoice++
	inv.ID = m.nextInvoice
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memoryInvoiceRepo) NextInvoiceNumber(_ context.Context) (string, error) {
	max := int64(0)
	for _, inv := range m.invoices {
		n, err := strconv.ParseInt(strings.TrimPrefix(inv.Number, NumberPrefix), 10, 64)
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%06d", NumberPrefix, max+1), nil
}

func (m *memoryInvoiceRepo) ClientExists(_ context.Context, clientID int64) (bool, error) {
	return clientID > 0, nil
}

func (m *memoryInvoiceRepo) InsertLine(_ context.Context, line InvoiceLine) (int64, error) {
	m.nextLine++
	line.ID = m.nextLine
	m.lines[line.ID] = &line
	return line.ID, nil
}

func (m *memoryInvoiceRepo) UpdateLine(_ context.Context, lineID int64, quantity int, unitPrice, subtotal float64) error {
	ln, ok := m.lines[lineID]
	if !ok {
		return shared.ErrNotFound
	}
	ln.Quantity = quantity
	ln.UnitPrice = unitPrice
	ln.LineSubtotal = subtotal
	return nil
}

func (m *memoryInvoiceRepo) DeleteLine(_ context.Context, lineID int64) error {
	if _, ok := m.lines[lineID]; !ok {
		return shared.ErrNotFound
	}
	delete(m.lines, lineID)
	return nil
}

func (m *memoryInvoiceRepo) UpdateInvoiceTotals(_ context.Context, invoiceID int64, subtotal, tax, total float64) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return shared.ErrNotFound
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = tax
	inv.Total = total
	return nil
}

func (m *memoryInvoiceRepo) SetInvoiceStatus(_ context.Context, invoiceID int64, status InvoiceStatus) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return shared.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (m *memoryInvoiceRepo) AppendInvoiceNotes(_ context.Context, invoiceID int64, suffix string) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return shared.ErrNotFound
	}
	inv.Notes += suffix
	return nil
}

func (m *memoryInvoiceRepo) GetProductForUpdate(_ context.Context, productID int64) (*stockProduct, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryInvoiceRepo) AdjustProductStock(_ context.Context, productID int64, delta int) error {
	p, ok := m.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	if p.StockQuantity+delta < 0 {
		return fmt.Errorf("%w: stock adjustment for product %d", shared.ErrInvalidState, productID)
	}
	p.StockQuantity += delta
	return nil
}

func (m *memoryInvoiceRepo) InsertReceivable(_ context.Context, acc receivables.ReceivableAccount) error {
	if _, ok := m.accounts[acc.InvoiceID]; ok {
		return shared.ErrDuplicate
	}
	m.accounts[acc.InvoiceID] = &acc
	return nil
}

func (m *memoryInvoiceRepo) ActivePaymentCount(_ context.Context, invoiceID int64) (int, error) {
	acc, ok := m.accounts[invoiceID]
	if !ok {
		return 0, nil
	}
	count := 0
	for _, p := range m.payments {
		if p.AccountID == acc.ID && p.Status == receivables.PaymentActive {
			count++
		}
	}
	return count, nil
}

func (m *memoryInvoiceRepo) CloseReceivable(_ context.Context, invoiceID int64, closedAt time.Time) error {
	if acc, ok := m.accounts[invoiceID]; ok && acc.ClosedAt == nil {
		acc.ClosedAt = &closedAt
	}
	return nil
}

func (m *memoryInvoiceRepo) SalesStats(_ context.Context, _, _ time.Time) (*SalesStats, error) {
	stats := &SalesStats{}
	for _, inv := range m.invoices {
		if inv.Status != StatusConfirmed {
			continue
		}
		stats.InvoiceCount++
		stats.Subtotal += inv.Subtotal
		stats.TaxAmount += inv.TaxAmount
		stats.Total += inv.Total
	}
	return stats, nil
}

func newTestService(repo *memoryInvoiceRepo) *Service {
	return NewService(repo, 0.19, 30, slog.Default())
}

func seedProduct(repo *memoryInvoiceRepo, id int64, name string, price float64, stock int) {
	repo.products[id] = &stockProduct{ID: id, Name: name, SalePrice: price, StockQuantity: stock}
}

func TestCreateAssignsSequentialNumbers(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	first, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	require.Equal(t, "F000001", first.Number)
	require.Equal(t, StatusDraft, first.Status)

	second, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	require.Equal(t, "F000002", second.Number)
}

func TestAddLineComputesTotals(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 27.50, 100)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)

	got, err := svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, 55.00, got.Subtotal)
	require.Equal(t, 10.45, got.TaxAmount)
	require.Equal(t, 65.45, got.Total)
	require.Len(t, got.Lines, 1)
	require.Equal(t, 27.50, got.Lines[0].UnitPrice)
}

func TestAddLineAccumulatesDuplicateProduct(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 30.00, 100)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)

	custom := 25.00
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 2, UnitPrice: &custom})
	require.NoError(t, err)

	// Second add of the same product merges into the existing line and
	// keeps its price, even though a different price was supplied.
	other := 99.00
	got, err := svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 3, UnitPrice: &other})
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.Equal(t, 5, got.Lines[0].Quantity)
	require.Equal(t, 25.00, got.Lines[0].UnitPrice)
	require.Equal(t, 125.00, got.Lines[0].LineSubtotal)
}

func TestAddLineRejectsQuantityBeyondStock(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 4)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)

	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 5})
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 4, stockErr.Available)

	// Accumulating onto an existing line is checked against the combined
	// quantity, not just the increment.
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 2})
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 5, stockErr.Requested)
}

func TestLineMutationRejectsNonPositiveValues(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 100)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)

	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	zero := 0.0
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 1, UnitPrice: &zero})
	require.ErrorIs(t, err, shared.ErrValidation)

	withLines, err := svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 1})
	require.NoError(t, err)

	negQty := -2
	_, err = svc.UpdateLine(context.Background(), inv.ID, withLines.Lines[0].ID, UpdateLineForm{Quantity: &negQty})
	require.ErrorIs(t, err, shared.ErrValidation)

	negPrice := -5.0
	_, err = svc.UpdateLine(context.Background(), inv.ID, withLines.Lines[0].ID, UpdateLineForm{UnitPrice: &negPrice})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLineMutationRequiresDraft(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 100)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	withLines, err := svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), inv.ID)
	require.NoError(t, err)

	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	qty := 5
	_, err = svc.UpdateLine(context.Background(), inv.ID, withLines.Lines[0].ID, UpdateLineForm{Quantity: &qty})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.RemoveLine(context.Background(), inv.ID, withLines.Lines[0].ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestConfirmDecrementsStockAndOpensReceivable(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 27.50, 8)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 7})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 2})
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)
	require.Equal(t, 6, repo.products[10].StockQuantity)

	acc := repo.accounts[inv.ID]
	require.NotNil(t, acc)
	require.Equal(t, int64(7), acc.ClientID)
	require.Equal(t, 65.45, acc.TotalAmount)
	require.Equal(t, 65.45, acc.OutstandingBalance)
	require.Equal(t, receivables.StatusPending, acc.Status)
	require.Equal(t, confirmed.IssueDate.AddDate(0, 0, 30), acc.DueDate)
}

func TestConfirmInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 50)
	seedProduct(repo, 11, "HDMI Adapter", 20.00, 3)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 5})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 11, Quantity: 3})
	require.NoError(t, err)

	// Stock moved elsewhere between draft assembly and confirmation.
	repo.products[11].StockQuantity = 1

	_, err = svc.Confirm(context.Background(), inv.ID)
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(11), stockErr.ProductID)
	require.Equal(t, 3, stockErr.Requested)
	require.Equal(t, 1, stockErr.Available)

	// No partial decrement, no status change, no receivable.
	require.Equal(t, 50, repo.products[10].StockQuantity)
	require.Equal(t, 1, repo.products[11].StockQuantity)
	require.Equal(t, StatusDraft, repo.invoices[inv.ID].Status)
	require.Empty(t, repo.accounts)
}

func TestConfirmTwiceFails(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 10)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), inv.ID)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), inv.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestConfirmEmptyDraftFails(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), inv.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestVoidConfirmedRestoresStockAndClosesReceivable(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 10)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 4})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, 6, repo.products[10].StockQuantity)

	voided, err := svc.Void(context.Background(), inv.ID, "wrong client")
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)
	require.Equal(t, 10, repo.products[10].StockQuantity)
	require.Contains(t, voided.Notes, "[VOIDED] wrong client")
	require.NotNil(t, repo.accounts[inv.ID].ClosedAt)
}

func TestVoidDraftDoesNotTouchStock(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 10)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 4})
	require.NoError(t, err)

	voided, err := svc.Void(context.Background(), inv.ID, "abandoned")
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)
	require.Equal(t, 10, repo.products[10].StockQuantity)
	require.Empty(t, repo.accounts)
}

func TestVoidWithoutReasonAppendsBareTag(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 10)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1, Notes: "rush order"})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 1})
	require.NoError(t, err)

	voided, err := svc.Void(context.Background(), inv.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)
	require.Equal(t, "rush order\n"+VoidedTag, voided.Notes)
}

func TestVoidBlockedByActivePayments(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 10)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), inv.ID)
	require.NoError(t, err)

	acc := repo.accounts[inv.ID]
	acc.ID = 1
	repo.payments = append(repo.payments, receivables.Payment{
		AccountID: 1, Amount: 5, Status: receivables.PaymentActive,
	})

	_, err = svc.Void(context.Background(), inv.ID, "late void")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, StatusConfirmed, repo.invoices[inv.ID].Status)
}

func TestUpdateLineRecomputesTotals(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 100)
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	withLines, err := svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 2})
	require.NoError(t, err)

	qty := 3
	price := 20.00
	got, err := svc.UpdateLine(context.Background(), inv.ID, withLines.Lines[0].ID, UpdateLineForm{Quantity: &qty, UnitPrice: &price})
	require.NoError(t, err)
	require.Equal(t, 60.00, got.Subtotal)
	require.Equal(t, 11.40, got.TaxAmount)
	require.Equal(t, 71.40, got.Total)

	removed, err := svc.RemoveLine(context.Background(), inv.ID, withLines.Lines[0].ID)
	require.NoError(t, err)
	require.Empty(t, removed.Lines)
	require.Equal(t, 0.00, removed.Total)
}

func TestCreateRejectsBadIssueDate(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1, IssueDate: "31-12-2025"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAddLineUnknownProduct(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)

	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 99, Quantity: 1})
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
