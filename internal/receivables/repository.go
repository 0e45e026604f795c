package receivables

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ventero-erp/ventero/internal/platform/db"
	"github.com/ventero-erp/ventero/internal/shared"
)

// ListAccountsRequest filters receivable account listings.
type ListAccountsRequest struct {
	ClientID  int64
	Status    AccountStatus
	OpenOnly  bool
	DueBefore time.Time
	Limit     int
	Offset    int
}

// Repository persists receivable accounts and payments in PostgreSQL.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAccount(ctx context.Context, id int64) (*ReceivableAccount, error)
	GetAccountByInvoice(ctx context.Context, invoiceID int64) (*ReceivableAccount, error)
	ListAccounts(ctx context.Context, req ListAccountsRequest) ([]AccountDetail, int, error)
	ListPayments(ctx context.Context, accountID int64) ([]Payment, error)
	BalancesByClient(ctx context.Context) ([]ClientBalance, error)
	OpenAccounts(ctx context.Context) ([]AccountDetail, error)
	OverdueAccounts(ctx context.Context, asOf time.Time) ([]AccountDetail, error)
	DueWithin(ctx context.Context, asOf time.Time, days int) ([]AccountDetail, error)
}

// TxRepository exposes the operations available inside a payment transaction.
type TxRepository interface {
	GetAccountForUpdate(ctx context.Context, id int64) (*ReceivableAccount, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpdateAccountBalance(ctx context.Context, accountID int64, balance float64, status AccountStatus, lastPaymentAt *time.Time) error
	GetPaymentForUpdate(ctx context.Context, accountID, paymentID int64) (*Payment, error)
	MarkPaymentVoided(ctx context.Context, paymentID int64, notes string) error
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

const accountColumns = `id, invoice_id, client_id, total_amount, outstanding_balance, status, due_date, last_payment_at, closed_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*ReceivableAccount, error) {
	var acc ReceivableAccount
	err := row.Scan(&acc.ID, &acc.InvoiceID, &acc.ClientID, &acc.TotalAmount,
		&acc.OutstandingBalance, &acc.Status, &acc.DueDate, &acc.LastPaymentAt,
		&acc.ClosedAt, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("scan receivable account: %w", err)
	}
	return &acc, nil
}

func (r *repository) GetAccount(ctx context.Context, id int64) (*ReceivableAccount, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM receivable_accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *repository) GetAccountForUpdate(ctx context.Context, id int64) (*ReceivableAccount, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM receivable_accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

func (r *repository) GetAccountByInvoice(ctx context.Context, invoiceID int64) (*ReceivableAccount, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM receivable_accounts WHERE invoice_id = $1`, invoiceID)
	return scanAccount(row)
}

const detailQuery = `
	SELECT a.id, a.invoice_id, a.client_id, a.total_amount, a.outstanding_balance,
	       a.status, a.due_date, a.last_payment_at, a.closed_at, a.created_at, a.updated_at,
	       i.number, c.full_name
	FROM receivable_accounts a
	JOIN invoices i ON i.id = a.invoice_id
	JOIN clients c ON c.id = a.client_id`

func (r *repository) queryDetails(ctx context.Context, where string, args ...interface{}) ([]AccountDetail, error) {
	rows, err := r.db.Query(ctx, detailQuery+` WHERE `+where+` ORDER BY a.due_date, a.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query receivable accounts: %w", err)
	}
	defer rows.Close()

	var out []AccountDetail
	for rows.Next() {
		var d AccountDetail
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.ClientID, &d.TotalAmount,
			&d.OutstandingBalance, &d.Status, &d.DueDate, &d.LastPaymentAt,
			&d.ClosedAt, &d.CreatedAt, &d.UpdatedAt,
			&d.InvoiceNumber, &d.ClientName); err != nil {
			return nil, fmt.Errorf("scan account detail: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) ListAccounts(ctx context.Context, req ListAccountsRequest) ([]AccountDetail, int, error) {
	conditions := []string{"a.closed_at IS NULL"}
	args := []interface{}{}
	idx := 1

	if req.ClientID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.client_id = $%d", idx))
		args = append(args, req.ClientID)
		idx++
	}
	if req.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", idx))
		args = append(args, string(req.Status))
		idx++
	}
	if req.OpenOnly {
		conditions = append(conditions, "a.outstanding_balance > 0")
	}
	if !req.DueBefore.IsZero() {
		conditions = append(conditions, fmt.Sprintf("a.due_date < $%d", idx))
		args = append(args, req.DueBefore)
		idx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM receivable_accounts a WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count receivable accounts: %w", err)
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 25
	}
	query := fmt.Sprintf(`%s WHERE %s ORDER BY a.due_date, a.id LIMIT $%d OFFSET $%d`,
		detailQuery, where, idx, idx+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list receivable accounts: %w", err)
	}
	defer rows.Close()

	var details []AccountDetail
	for rows.Next() {
		var d AccountDetail
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.ClientID, &d.TotalAmount,
			&d.OutstandingBalance, &d.Status, &d.DueDate, &d.LastPaymentAt,
			&d.ClosedAt, &d.CreatedAt, &d.UpdatedAt,
			&d.InvoiceNumber, &d.ClientName); err != nil {
			return nil, 0, fmt.Errorf("scan account detail: %w", err)
		}
		details = append(details, d)
	}
	return details, total, rows.Err()
}

func (r *repository) ListPayments(ctx context.Context, accountID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, amount, method, COALESCE(reference, ''), paid_at, COALESCE(notes, ''), status, created_at, updated_at
		FROM payments
		WHERE account_id = $1
		ORDER BY paid_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Amount, &p.Method, &p.Reference,
			&p.PaidAt, &p.Notes, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) GetPaymentForUpdate(ctx context.Context, accountID, paymentID int64) (*Payment, error) {
	var p Payment
	err := r.db.QueryRow(ctx, `
		SELECT id, account_id, amount, method, COALESCE(reference, ''), paid_at, COALESCE(notes, ''), status, created_at, updated_at
		FROM payments
		WHERE id = $1 AND account_id = $2
		FOR UPDATE`, paymentID, accountID).
		Scan(&p.ID, &p.AccountID, &p.Amount, &p.Method, &p.Reference,
			&p.PaidAt, &p.Notes, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("lock payment: %w", err)
	}
	return &p, nil
}

func (r *repository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (account_id, amount, method, reference, paid_at, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, now(), now())
		RETURNING id`,
		p.AccountID, p.Amount, string(p.Method), p.Reference, p.PaidAt, p.Notes, string(p.Status)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateAccountBalance(ctx context.Context, accountID int64, balance float64, status AccountStatus, lastPaymentAt *time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE receivable_accounts
		SET outstanding_balance = $2, status = $3, last_payment_at = COALESCE($4, last_payment_at), updated_at = now()
		WHERE id = $1`, accountID, balance, string(status), lastPaymentAt)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return nil
}

func (r *repository) MarkPaymentVoided(ctx context.Context, paymentID int64, notes string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = 'voided', notes = NULLIF($2, ''), updated_at = now()
		WHERE id = $1 AND status = 'active'`, paymentID, notes)
	if err != nil {
		return fmt.Errorf("mark payment voided: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment is not active", shared.ErrInvalidState)
	}
	return nil
}

func (r *repository) BalancesByClient(ctx context.Context) ([]ClientBalance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.client_id, c.full_name, COUNT(*), COALESCE(SUM(a.outstanding_balance), 0)
		FROM receivable_accounts a
		JOIN clients c ON c.id = a.client_id
		WHERE a.closed_at IS NULL AND a.outstanding_balance > 0
		GROUP BY a.client_id, c.full_name
		ORDER BY SUM(a.outstanding_balance) DESC`)
	if err != nil {
		return nil, fmt.Errorf("balances by client: %w", err)
	}
	defer rows.Close()

	var out []ClientBalance
	for rows.Next() {
		var b ClientBalance
		if err := rows.Scan(&b.ClientID, &b.ClientName, &b.Accounts, &b.Outstanding); err != nil {
			return nil, fmt.Errorf("scan client balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) OpenAccounts(ctx context.Context) ([]AccountDetail, error) {
	return r.queryDetails(ctx, `a.closed_at IS NULL AND a.outstanding_balance > 0`)
}

func (r *repository) OverdueAccounts(ctx context.Context, asOf time.Time) ([]AccountDetail, error) {
	return r.queryDetails(ctx,
		`a.closed_at IS NULL AND a.outstanding_balance > 0 AND a.due_date < $1`, asOf)
}

func (r *repository) DueWithin(ctx context.Context, asOf time.Time, days int) ([]AccountDetail, error) {
	return r.queryDetails(ctx,
		`a.closed_at IS NULL AND a.outstanding_balance > 0 AND a.due_date >= $1 AND a.due_date <= $2`,
		asOf, asOf.AddDate(0, 0, days))
}
