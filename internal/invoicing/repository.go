package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ventero-erp/ventero/internal/platform/db"
	"github.com/ventero-erp/ventero/internal/receivables"
	"github.com/ventero-erp/ventero/internal/shared"
)

// Repository persists invoices in PostgreSQL. Mutations that span tables run
// through WithTx so stock, totals and receivables always move together.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetWithLines(ctx context.Context, id int64) (*InvoiceWithLines, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	ListLines(ctx context.Context, invoiceID int64) ([]InvoiceLine, error)
	SalesStats(ctx context.Context, from, to time.Time) (*SalesStats, error)
}

// TxRepository exposes the operations available inside an invoice transaction.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
	ClientExists(ctx context.Context, clientID int64) (bool, error)

	ListLines(ctx context.Context, invoiceID int64) ([]InvoiceLine, error)
	GetLine(ctx context.Context, invoiceID, lineID int64) (*InvoiceLine, error)
	GetLineByProduct(ctx context.Context, invoiceID, productID int64) (*InvoiceLine, error)
	InsertLine(ctx context.Context, line InvoiceLine) (int64, error)
	UpdateLine(ctx context.Context, lineID int64, quantity int, unitPrice, subtotal float64) error
	DeleteLine(ctx context.Context, lineID int64) error

	UpdateInvoiceTotals(ctx context.Context, invoiceID int64, subtotal, tax, total float64) error
	SetInvoiceStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error
	AppendInvoiceNotes(ctx context.Context, invoiceID int64, suffix string) error

	GetProductForUpdate(ctx context.Context, productID int64) (*stockProduct, error)
	AdjustProductStock(ctx context.Context, productID int64, delta int) error

	InsertReceivable(ctx context.Context, acc receivables.ReceivableAccount) error
	ActivePaymentCount(ctx context.Context, invoiceID int64) (int, error)
	CloseReceivable(ctx context.Context, invoiceID int64, closedAt time.Time) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const invoiceColumns = `id, number, client_id, issue_date, subtotal, tax_amount, total, status, COALESCE(notes, ''), created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.IssueDate,
		&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.Status, &inv.Notes,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

func (r *repository) GetWithLines(ctx context.Context, id int64) (*InvoiceWithLines, error) {
	inv, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := r.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceWithLines{Invoice: *inv, Lines: lines}, nil
}

func (r *repository) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
	return scanInvoice(row)
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if req.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(req.Status))
		idx++
	}
	if req.ClientID > 0 {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", idx))
		args = append(args, req.ClientID)
		idx++
	}
	if req.Number != "" {
		conditions = append(conditions, fmt.Sprintf("number ILIKE $%d", idx))
		args = append(args, "%"+req.Number+"%")
		idx++
	}
	if !req.FromDate.IsZero() {
		conditions = append(conditions, fmt.Sprintf("issue_date >= $%d", idx))
		args = append(args, req.FromDate)
		idx++
	}
	if !req.ToDate.IsZero() {
		conditions = append(conditions, fmt.Sprintf("issue_date <= $%d", idx))
		args = append(args, req.ToDate)
		idx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 25
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, idx, idx+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.IssueDate,
			&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.Status, &inv.Notes,
			&inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// NextInvoiceNumber derives the next sequential number from the highest
// numeric suffix already assigned. Runs inside the create transaction so
// concurrent creates cannot mint duplicates.
func (r *repository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var max pgtype.Int8
	err := r.db.QueryRow(ctx, `
		SELECT MAX(CAST(SUBSTRING(number FROM 2) AS BIGINT))
		FROM invoices
		WHERE number ~ '^F[0-9]+$'`).Scan(&max)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	next := int64(1)
	if max.Valid {
		next = max.Int64 + 1
	}
	return fmt.Sprintf("%s%06d", NumberPrefix, next), nil
}

func (r *repository) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check client: %w", err)
	}
	return exists, nil
}

func (r *repository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (number, client_id, issue_date, subtotal, tax_amount, total, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), now(), now())
		RETURNING id`,
		inv.Number, inv.ClientID, inv.IssueDate, inv.Subtotal, inv.TaxAmount, inv.Total,
		string(inv.Status), inv.Notes).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: invoice number %s", shared.ErrDuplicate, inv.Number)
		}
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	return id, nil
}

const lineColumns = `l.id, l.invoice_id, l.product_id, COALESCE(p.name, ''), l.quantity, l.unit_price, l.line_subtotal, l.created_at, l.updated_at`

func scanLine(row pgx.Row) (*InvoiceLine, error) {
	var ln InvoiceLine
	err := row.Scan(&ln.ID, &ln.InvoiceID, &ln.ProductID, &ln.ProductName,
		&ln.Quantity, &ln.UnitPrice, &ln.LineSubtotal, &ln.CreatedAt, &ln.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("scan invoice line: %w", err)
	}
	return &ln, nil
}

func (r *repository) ListLines(ctx context.Context, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+lineColumns+`
		FROM invoice_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.invoice_id = $1
		ORDER BY l.id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var ln InvoiceLine
		if err := rows.Scan(&ln.ID, &ln.InvoiceID, &ln.ProductID, &ln.ProductName,
			&ln.Quantity, &ln.UnitPrice, &ln.LineSubtotal, &ln.CreatedAt, &ln.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan line row: %w", err)
		}
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}

func (r *repository) GetLine(ctx context.Context, invoiceID, lineID int64) (*InvoiceLine, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+lineColumns+`
		FROM invoice_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.invoice_id = $1 AND l.id = $2`, invoiceID, lineID)
	return scanLine(row)
}

func (r *repository) GetLineByProduct(ctx context.Context, invoiceID, productID int64) (*InvoiceLine, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+lineColumns+`
		FROM invoice_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.invoice_id = $1 AND l.product_id = $2`, invoiceID, productID)
	return scanLine(row)
}

func (r *repository) InsertLine(ctx context.Context, line InvoiceLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoice_lines (invoice_id, product_id, quantity, unit_price, line_subtotal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id`,
		line.InvoiceID, line.ProductID, line.Quantity, line.UnitPrice, line.LineSubtotal).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert invoice line: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateLine(ctx context.Context, lineID int64, quantity int, unitPrice, subtotal float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoice_lines
		SET quantity = $2, unit_price = $3, line_subtotal = $4, updated_at = now()
		WHERE id = $1`, lineID, quantity, unitPrice, subtotal)
	if err != nil {
		return fmt.Errorf("update invoice line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, lineID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoice_lines WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("delete invoice line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateInvoiceTotals(ctx context.Context, invoiceID int64, subtotal, tax, total float64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE invoices SET subtotal = $2, tax_amount = $3, total = $4, updated_at = now()
		WHERE id = $1`, invoiceID, subtotal, tax, total)
	if err != nil {
		return fmt.Errorf("update invoice totals: %w", err)
	}
	return nil
}

func (r *repository) SetInvoiceStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`,
		invoiceID, string(status))
	if err != nil {
		return fmt.Errorf("set invoice status: %w", err)
	}
	return nil
}

func (r *repository) AppendInvoiceNotes(ctx context.Context, invoiceID int64, suffix string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET notes = COALESCE(notes, '') || $2, updated_at = now()
		WHERE id = $1`, invoiceID, suffix)
	if err != nil {
		return fmt.Errorf("append invoice notes: %w", err)
	}
	return nil
}

func (r *repository) GetProductForUpdate(ctx context.Context, productID int64) (*stockProduct, error) {
	var p stockProduct
	err := r.db.QueryRow(ctx, `
		SELECT id, name, sale_price, stock_quantity FROM products WHERE id = $1 FOR UPDATE`,
		productID).Scan(&p.ID, &p.Name, &p.SalePrice, &p.StockQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return &p, nil
}

func (r *repository) AdjustProductStock(ctx context.Context, productID int64, delta int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1 AND stock_quantity + $2 >= 0`, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust product stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: stock adjustment for product %d", shared.ErrInvalidState, productID)
	}
	return nil
}

func (r *repository) InsertReceivable(ctx context.Context, acc receivables.ReceivableAccount) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO receivable_accounts (invoice_id, client_id, total_amount, outstanding_balance, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
		acc.InvoiceID, acc.ClientID, acc.TotalAmount, acc.OutstandingBalance, string(acc.Status), acc.DueDate)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: receivable for invoice %d", shared.ErrDuplicate, acc.InvoiceID)
		}
		return fmt.Errorf("insert receivable: %w", err)
	}
	return nil
}

func (r *repository) ActivePaymentCount(ctx context.Context, invoiceID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM payments p
		JOIN receivable_accounts a ON a.id = p.account_id
		WHERE a.invoice_id = $1 AND p.status = 'active'`, invoiceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active payments: %w", err)
	}
	return count, nil
}

func (r *repository) CloseReceivable(ctx context.Context, invoiceID int64, closedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE receivable_accounts SET closed_at = $2, updated_at = now()
		WHERE invoice_id = $1 AND closed_at IS NULL`, invoiceID, closedAt)
	if err != nil {
		return fmt.Errorf("close receivable: %w", err)
	}
	return nil
}

func (r *repository) SalesStats(ctx context.Context, from, to time.Time) (*SalesStats, error) {
	var stats SalesStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(subtotal), 0), COALESCE(SUM(tax_amount), 0), COALESCE(SUM(total), 0)
		FROM invoices
		WHERE status = 'confirmed'
		  AND ($1::timestamptz IS NULL OR issue_date >= $1)
		  AND ($2::timestamptz IS NULL OR issue_date <= $2)`,
		nullableTime(from), nullableTime(to)).
		Scan(&stats.InvoiceCount, &stats.Subtotal, &stats.TaxAmount, &stats.Total)
	if err != nil {
		return nil, fmt.Errorf("sales stats: %w", err)
	}
	return &stats, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
