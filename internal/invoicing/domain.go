package invoicing

import (
	"time"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusConfirmed InvoiceStatus = "confirmed"
	StatusVoided    InvoiceStatus = "voided"
)

// NumberPrefix precedes the zero-padded invoice sequence.
const NumberPrefix = "F"

// Invoice model. Monetary fields are derived from the lines and never set
// directly by callers.
type Invoice struct {
	ID        int64         `json:"id"`
	Number    string        `json:"number"`
	ClientID  int64         `json:"client_id"`
	IssueDate time.Time     `json:"issue_date"`
	Subtotal  float64       `json:"subtotal"`
	TaxAmount float64       `json:"tax_amount"`
	Total     float64       `json:"total"`
	Status    InvoiceStatus `json:"status"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// InvoiceLine model. UnitPrice is a snapshot taken at add time and does not
// follow later catalog price changes.
type InvoiceLine struct {
	ID           int64     `json:"id"`
	InvoiceID    int64     `json:"invoice_id"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Quantity     int       `json:"quantity"`
	UnitPrice    float64   `json:"unit_price"`
	LineSubtotal float64   `json:"line_subtotal"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InvoiceWithLines bundles an invoice with its line items.
type InvoiceWithLines struct {
	Invoice
	Lines []InvoiceLine `json:"lines"`
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	Status   InvoiceStatus
	ClientID int64
	Number   string
	FromDate time.Time
	ToDate   time.Time
	Limit    int
	Offset   int
}

// SalesStats aggregates confirmed invoices over a period.
type SalesStats struct {
	InvoiceCount int     `json:"invoice_count"`
	Subtotal     float64 `json:"subtotal"`
	TaxAmount    float64 `json:"tax_amount"`
	Total        float64 `json:"total"`
}

// stockProduct is the slice of a catalog product the engine needs when
// validating and applying stock movements.
type stockProduct struct {
	ID            int64
	Name          string
	SalePrice     float64
	StockQuantity int
}
