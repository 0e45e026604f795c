package clients

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ventero-erp/ventero/internal/shared"
)

// Repository defines data access for clients.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Client, int, error)
	Get(ctx context.Context, id int64) (Client, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, client Client) (Client, error)
	Update(ctx context.Context, id int64, client Client) error
	Delete(ctx context.Context, id int64) error
	InvoiceRefs(ctx context.Context, id int64) (int, error)
	PurchaseHistory(ctx context.Context, id int64, limit int) ([]PurchaseRecord, error)
	Stats(ctx context.Context, id int64) (ClientStats, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const clientColumns = `id, full_name, identification_number, phone, email, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	var ident, phone, email pgtype.Text
	err := row.Scan(&c.ID, &c.FullName, &ident, &phone, &email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Client{}, err
	}
	c.IdentificationNumber = ident.String
	c.Phone = phone.String
	c.Email = email.String
	return c, nil
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Client, int, error) {
	filters.Normalize()

	query := `SELECT ` + clientColumns + ` FROM clients WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM clients WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		cond := ` AND (full_name ILIKE $` + strconv.Itoa(argCount) + ` OR identification_number ILIKE $` + strconv.Itoa(argCount) + `)`
		query += cond
		countQuery += cond
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY full_name ASC`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return c, err
}

func (r *repository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE id = $1`, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, client Client) (Client, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (full_name, identification_number, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		client.FullName, textOrNull(client.IdentificationNumber), textOrNull(client.Phone), textOrNull(client.Email),
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Client{}, fmt.Errorf("%w: identification %s", shared.ErrDuplicate, client.IdentificationNumber)
		}
		return Client{}, err
	}
	return client, nil
}

func (r *repository) Update(ctx context.Context, id int64, client Client) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE clients
		SET full_name = $2, identification_number = $3, phone = $4, email = $5, updated_at = NOW()
		WHERE id = $1`,
		id, client.FullName, textOrNull(client.IdentificationNumber), textOrNull(client.Phone), textOrNull(client.Email),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: identification %s", shared.ErrDuplicate, client.IdentificationNumber)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) InvoiceRefs(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE client_id = $1`, id).Scan(&count)
	return count, err
}

func (r *repository) PurchaseHistory(ctx context.Context, id int64, limit int) ([]PurchaseRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, number, issue_date, total, status
		FROM invoices
		WHERE client_id = $1
		ORDER BY issue_date DESC, id DESC
		LIMIT $2`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchaseRecord
	for rows.Next() {
		var rec PurchaseRecord
		if err := rows.Scan(&rec.InvoiceID, &rec.InvoiceNumber, &rec.IssueDate, &rec.Total, &rec.Status); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repository) Stats(ctx context.Context, id int64) (ClientStats, error) {
	stats := ClientStats{ClientID: id}
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(AVG(total), 0)
		FROM invoices
		WHERE client_id = $1 AND status = 'confirmed'`, id,
	).Scan(&stats.InvoiceCount, &stats.TotalInvoiced, &stats.AverageTicket)
	return stats, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
