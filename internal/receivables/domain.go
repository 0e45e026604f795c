package receivables

import (
	"time"
)

// AccountStatus enumerates receivable account statuses.
type AccountStatus string

const (
	StatusPending       AccountStatus = "pending"
	StatusPartiallyPaid AccountStatus = "partially_paid"
	StatusPaid          AccountStatus = "paid"
)

// PaymentStatus enumerates payment statuses.
type PaymentStatus string

const (
	PaymentActive PaymentStatus = "active"
	PaymentVoided PaymentStatus = "voided"
)

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheck        PaymentMethod = "check"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
)

// ValidMethod reports whether m is an accepted payment method.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCheck, MethodCreditCard, MethodDebitCard:
		return true
	}
	return false
}

// ReceivableAccount tracks the unpaid portion of a confirmed invoice.
type ReceivableAccount struct {
	ID                 int64         `json:"id"`
	InvoiceID          int64         `json:"invoice_id"`
	ClientID           int64         `json:"client_id"`
	TotalAmount        float64       `json:"total_amount"`
	OutstandingBalance float64       `json:"outstanding_balance"`
	DueDate            time.Time     `json:"due_date"`
	Status             AccountStatus `json:"status"`
	LastPaymentAt      *time.Time    `json:"last_payment_at,omitempty"`
	ClosedAt           *time.Time    `json:"closed_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Payment records money applied against a receivable account.
type Payment struct {
	ID        int64         `json:"id"`
	AccountID int64         `json:"account_id"`
	Amount    float64       `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference,omitempty"`
	PaidAt    time.Time     `json:"paid_at"`
	Notes     string        `json:"notes,omitempty"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StatusFor derives the account status from its balance. Status is always
// re-derived from this pair, never patched incrementally.
func StatusFor(balance, total float64) AccountStatus {
	switch {
	case balance == 0:
		return StatusPaid
	case balance == total:
		return StatusPending
	default:
		return StatusPartiallyPaid
	}
}

// NewAccount seeds a receivable account from a confirmed invoice's totals.
func NewAccount(invoiceID, clientID int64, total float64, issueDate time.Time, termDays int) ReceivableAccount {
	return ReceivableAccount{
		InvoiceID:          invoiceID,
		ClientID:           clientID,
		TotalAmount:        total,
		OutstandingBalance: total,
		DueDate:            issueDate.AddDate(0, 0, termDays),
		Status:             StatusPending,
	}
}

// ClientBalance aggregates open balances for one client.
type ClientBalance struct {
	ClientID    int64   `json:"client_id"`
	ClientName  string  `json:"client_name"`
	Accounts    int     `json:"accounts"`
	Outstanding float64 `json:"outstanding"`
}

// AgingBuckets summarises outstanding balances by days past due.
type AgingBuckets struct {
	Current    float64 `json:"current"`
	Days1To30  float64 `json:"days_1_30"`
	Days31To60 float64 `json:"days_31_60"`
	Days61To90 float64 `json:"days_61_90"`
	Days90Plus float64 `json:"days_90_plus"`
}

// Total sums all buckets.
func (b AgingBuckets) Total() float64 {
	return b.Current + b.Days1To30 + b.Days31To60 + b.Days61To90 + b.Days90Plus
}
