package clients

import (
	"time"
)

// Client represents a registered client.
type Client struct {
	ID                   int64     `json:"id"`
	FullName             string    `json:"full_name"`
	IdentificationNumber string    `json:"identification_number,omitempty"`
	Phone                string    `json:"phone,omitempty"`
	Email                string    `json:"email,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// PurchaseRecord summarises one invoice in a client's history.
type PurchaseRecord struct {
	InvoiceID     int64     `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	IssueDate     time.Time `json:"issue_date"`
	Total         float64   `json:"total"`
	Status        string    `json:"status"`
}

// ClientStats aggregates a client's confirmed purchases.
type ClientStats struct {
	ClientID      int64   `json:"client_id"`
	InvoiceCount  int     `json:"invoice_count"`
	TotalInvoiced float64 `json:"total_invoiced"`
	AverageTicket float64 `json:"average_ticket"`
}
