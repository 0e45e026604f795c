// Command seed creates the Ventero schema and loads a small sample dataset.
// Safe to run repeatedly: tables use IF NOT EXISTS and sample rows upsert on
// their natural keys.
package main

import (
	"context"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ventero-erp/ventero/internal/app"
	"github.com/ventero-erp/ventero/internal/platform/db"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		sku VARCHAR(50) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		acquisition_cost NUMERIC(12,2) NOT NULL,
		sale_price NUMERIC(12,2) NOT NULL,
		stock_quantity INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT products_price_above_cost CHECK (sale_price > acquisition_cost),
		CONSTRAINT products_stock_non_negative CHECK (stock_quantity >= 0)
	)`,

	`CREATE TABLE IF NOT EXISTS clients (
		id BIGSERIAL PRIMARY KEY,
		full_name VARCHAR(255) NOT NULL,
		identification_number VARCHAR(50) UNIQUE,
		phone VARCHAR(50),
		email VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGSERIAL PRIMARY KEY,
		number VARCHAR(50) UNIQUE NOT NULL,
		client_id BIGINT NOT NULL REFERENCES clients(id),
		issue_date DATE NOT NULL,
		subtotal NUMERIC(12,2) NOT NULL DEFAULT 0,
		tax_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total NUMERIC(12,2) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT invoices_status_valid CHECK (status IN ('draft', 'confirmed', 'voided'))
	)`,

	`CREATE TABLE IF NOT EXISTS invoice_lines (
		id BIGSERIAL PRIMARY KEY,
		invoice_id BIGINT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INT NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL CHECK (unit_price > 0),
		line_subtotal NUMERIC(12,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT invoice_lines_product_once UNIQUE (invoice_id, product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS receivable_accounts (
		id BIGSERIAL PRIMARY KEY,
		invoice_id BIGINT NOT NULL UNIQUE REFERENCES invoices(id),
		client_id BIGINT NOT NULL REFERENCES clients(id),
		total_amount NUMERIC(12,2) NOT NULL,
		outstanding_balance NUMERIC(12,2) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		due_date DATE NOT NULL,
		last_payment_at TIMESTAMPTZ,
		closed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT receivable_status_valid CHECK (status IN ('pending', 'partially_paid', 'paid')),
		CONSTRAINT receivable_balance_range CHECK (outstanding_balance >= 0 AND outstanding_balance <= total_amount)
	)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES receivable_accounts(id),
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		method VARCHAR(20) NOT NULL,
		reference VARCHAR(100),
		paid_at TIMESTAMPTZ NOT NULL,
		notes TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT payments_method_valid CHECK (method IN ('cash', 'bank_transfer', 'check', 'credit_card', 'debit_card')),
		CONSTRAINT payments_status_valid CHECK (status IN ('active', 'voided'))
	)`,

	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key VARCHAR(255) PRIMARY KEY,
		module VARCHAR(50) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_invoices_client ON invoices (client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status)`,
	`CREATE INDEX IF NOT EXISTS idx_receivables_due ON receivable_accounts (due_date) WHERE closed_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_payments_account ON payments (account_id)`,
}

const seedProducts = `
	INSERT INTO products (sku, name, description, acquisition_cost, sale_price, stock_quantity) VALUES
	('PROD001', 'Cable USB-C 2m', 'Cable de carga rapida trenzado', 100.00, 150.00, 40),
	('PROD002', 'Audifonos inalambricos', 'Bluetooth 5.3 con estuche de carga', 200.00, 280.00, 25),
	('PROD003', 'Soporte para portatil', 'Aluminio, altura ajustable', 50.00, 75.00, 60)
	ON CONFLICT (sku) DO NOTHING`

const seedClients = `
	INSERT INTO clients (full_name, identification_number, phone, email) VALUES
	('Comercial Andina SAS', '900123456-7', '601-555-0001', 'compras@andina.example.com'),
	('Maria Fernanda Rojas', '52841963', '310-555-0002', 'mf.rojas@example.com'),
	('Distribuciones El Norte', '830654321-1', '604-555-0003', 'pagos@elnorte.example.com')
	ON CONFLICT (identification_number) DO NOTHING`

func main() {
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			logger.Error("apply schema", slog.Int("statement", i+1), slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("schema ready", slog.Int("statements", len(schema)))

	for _, stmt := range []string{seedProducts, seedClients} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			logger.Error("load sample data", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// A worked example: one confirmed invoice with a partial payment, so the
	// receivables endpoints return data right after seeding.
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count); err != nil {
		logger.Error("check invoices", slog.Any("error", err))
		os.Exit(1)
	}
	if count == 0 {
		if err := seedExampleInvoice(ctx, pool, cfg); err != nil {
			logger.Error("seed example invoice", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("example invoice created")
	}

	logger.Info("seed complete")
}

func seedExampleInvoice(ctx context.Context, pool *pgxpool.Pool, cfg *app.Config) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var clientID, productID int64
	var salePrice float64
	if err := tx.QueryRow(ctx,
		`SELECT id FROM clients WHERE identification_number = '900123456-7'`).Scan(&clientID); err != nil {
		return err
	}
	if err := tx.QueryRow(ctx,
		`SELECT id, sale_price FROM products WHERE sku = 'PROD002'`).Scan(&productID, &salePrice); err != nil {
		return err
	}

	const qty = 2
	subtotal := math.Round(float64(qty)*salePrice*100) / 100
	tax := math.Round(subtotal*cfg.TaxRate*100) / 100
	total := math.Round((subtotal+tax)*100) / 100
	issueDate := time.Now().UTC().AddDate(0, 0, -10)
	dueDate := issueDate.AddDate(0, 0, cfg.PaymentTermDays)

	var invoiceID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO invoices (number, client_id, issue_date, subtotal, tax_amount, total, status)
		VALUES ('F000001', $1, $2, $3, $4, $5, 'confirmed')
		RETURNING id`,
		clientID, issueDate, subtotal, tax, total).Scan(&invoiceID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO invoice_lines (invoice_id, product_id, quantity, unit_price, line_subtotal)
		VALUES ($1, $2, $3, $4, $5)`,
		invoiceID, productID, qty, salePrice, subtotal); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity - $2 WHERE id = $1`,
		productID, qty); err != nil {
		return err
	}

	payment := math.Round(total/2*100) / 100
	balance := math.Round((total-payment)*100) / 100

	var accountID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO receivable_accounts (invoice_id, client_id, total_amount, outstanding_balance, status, due_date, last_payment_at)
		VALUES ($1, $2, $3, $4, 'partially_paid', $5, now())
		RETURNING id`,
		invoiceID, clientID, total, balance, dueDate).Scan(&accountID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (account_id, amount, method, reference, paid_at, status)
		VALUES ($1, $2, 'bank_transfer', $3, now(), 'active')`,
		accountID, payment, uuid.NewString()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
