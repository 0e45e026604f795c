package receivables

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ventero-erp/ventero/internal/shared"
)

// PaymentForm is the payload for registering a payment. IdempotencyKey is
// taken from the Idempotency-Key header, not the body.
type PaymentForm struct {
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	Method         string  `json:"method" validate:"required"`
	Reference      string  `json:"reference" validate:"max=100"`
	PaidAt         string  `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
	Notes          string  `json:"notes" validate:"max=2000"`
	IdempotencyKey string  `json:"-"`
}

// VoidPaymentForm carries the optional reason recorded on the voided payment.
type VoidPaymentForm struct {
	Reason string `json:"reason" validate:"max=500"`
}

// voidedNoteTag marks the reversal reason appended to a payment's notes.
const voidedNoteTag = "[VOIDED]"

// AccountWithPayments bundles an account with its payment history.
type AccountWithPayments struct {
	ReceivableAccount
	Payments []Payment `json:"payments"`
}

// IdempotencyGuard deduplicates payment postings keyed by the client's
// Idempotency-Key header. Claimed keys are released again when the guarded
// mutation fails, so the client may retry.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service implements the receivables ledger: payment registration and
// voiding, balance tracking and the aging/overdue reports.
type Service struct {
	repo        Repository
	cache       *Cache
	idempotency IdempotencyGuard
	group       singleflight.Group
	logger      *slog.Logger
}

// NewService constructs Service. cache and idem may be nil.
func NewService(repo Repository, cache *Cache, idem IdempotencyGuard, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, idempotency: idem, logger: logger}
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}

// RegisterPayment applies a payment against an account. Overpayment is
// rejected rather than clamped; the account status is re-derived from the
// resulting balance.
func (s *Service) RegisterPayment(ctx context.Context, accountID int64, form PaymentForm) (*Payment, error) {
	method := PaymentMethod(form.Method)
	if !ValidMethod(method) {
		return nil, fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, form.Method)
	}

	paidAt := time.Now().UTC()
	if form.PaidAt != "" {
		parsed, err := time.Parse("2006-01-02", form.PaidAt)
		if err != nil {
			return nil, fmt.Errorf("%w: paid_at must be YYYY-MM-DD", shared.ErrValidation)
		}
		paidAt = parsed
	}

	// The header key is scoped per account so the same client key reused
	// against another account is not a false conflict.
	insertedKey := false
	var key string
	if s.idempotency != nil && form.IdempotencyKey != "" {
		key = fmt.Sprintf("%d:%s", accountID, form.IdempotencyKey)
		if err := s.idempotency.CheckAndInsert(ctx, key, "receivables"); err != nil {
			return nil, err
		}
		insertedKey = true
	}

	var payment Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if acc.ClosedAt != nil {
			return fmt.Errorf("%w: account is closed", shared.ErrInvalidState)
		}
		if acc.OutstandingBalance == 0 {
			return fmt.Errorf("%w: account is already settled", shared.ErrInvalidState)
		}
		if form.Amount > acc.OutstandingBalance {
			return fmt.Errorf("%w: payment %.2f exceeds outstanding balance %.2f",
				shared.ErrValidation, form.Amount, acc.OutstandingBalance)
		}

		payment = Payment{
			AccountID: accountID,
			Amount:    form.Amount,
			Method:    method,
			Reference: form.Reference,
			PaidAt:    paidAt,
			Notes:     form.Notes,
			Status:    PaymentActive,
		}
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id

		balance := roundCents(acc.OutstandingBalance - form.Amount)
		return tx.UpdateAccountBalance(ctx, accountID, balance,
			StatusFor(balance, acc.TotalAmount), &paidAt)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return nil, err
	}

	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
	s.logger.Info("payment registered", "account_id", accountID, "payment_id", payment.ID,
		"amount", payment.Amount, "method", string(payment.Method))
	return &payment, nil
}

// VoidPayment reverses a payment, restoring its amount onto the account
// balance. Only active payments can be voided.
func (s *Service) VoidPayment(ctx context.Context, accountID, paymentID int64, form VoidPaymentForm) (*ReceivableAccount, error) {
	var updated *ReceivableAccount
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		payment, err := tx.GetPaymentForUpdate(ctx, accountID, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != PaymentActive {
			return fmt.Errorf("%w: payment is already voided", shared.ErrInvalidState)
		}

		notes := payment.Notes
		if form.Reason != "" {
			notes = strings.TrimSpace(notes + "\n" + voidedNoteTag + " " + form.Reason)
		}
		if err := tx.MarkPaymentVoided(ctx, paymentID, notes); err != nil {
			return err
		}

		balance := roundCents(acc.OutstandingBalance + payment.Amount)
		if balance > acc.TotalAmount {
			balance = acc.TotalAmount
		}
		if err := tx.UpdateAccountBalance(ctx, accountID, balance,
			StatusFor(balance, acc.TotalAmount), nil); err != nil {
			return err
		}

		acc.OutstandingBalance = balance
		acc.Status = StatusFor(balance, acc.TotalAmount)
		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
	s.logger.Info("payment voided", "account_id", accountID, "payment_id", paymentID)
	return updated, nil
}

// GetAccount returns an account with its payment history.
func (s *Service) GetAccount(ctx context.Context, id int64) (*AccountWithPayments, error) {
	acc, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AccountWithPayments{ReceivableAccount: *acc, Payments: payments}, nil
}

// GetAccountByInvoice resolves the account opened for an invoice.
func (s *Service) GetAccountByInvoice(ctx context.Context, invoiceID int64) (*AccountWithPayments, error) {
	acc, err := s.repo.GetAccountByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return &AccountWithPayments{ReceivableAccount: *acc, Payments: payments}, nil
}

// ListAccounts returns accounts matching the filters plus the match count.
func (s *Service) ListAccounts(ctx context.Context, req ListAccountsRequest) ([]AccountDetail, int, error) {
	return s.repo.ListAccounts(ctx, req)
}

// Aging builds the aging report as of the given date. Results are cached and
// concurrent identical requests collapse into one database pass.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (*AgingReport, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	key, err := s.cache.BuildKey(ctx, keyAging(asOf))
	if err != nil {
		return nil, err
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		var report AgingReport
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
			accounts, err := s.repo.OpenAccounts(ctx)
			if err != nil {
				return nil, err
			}
			return BuildAgingReport(accounts, asOf), nil
		})
		if err != nil {
			return nil, err
		}
		return &report, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AgingReport), nil
}

// Overdue lists open accounts past their due date, oldest first, with the
// days overdue filled in.
func (s *Service) Overdue(ctx context.Context, asOf time.Time) ([]AccountDetail, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	accounts, err := s.repo.OverdueAccounts(ctx, asOf)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].DaysOverdue = DaysPastDue(accounts[i].DueDate, asOf)
	}
	return accounts, nil
}

// DueSoon lists open accounts falling due within the given number of days.
func (s *Service) DueSoon(ctx context.Context, days int) ([]AccountDetail, error) {
	if days <= 0 {
		days = 7
	}
	return s.repo.DueWithin(ctx, time.Now().UTC(), days)
}

// ClientBalances aggregates open balances per client, cached.
func (s *Service) ClientBalances(ctx context.Context) ([]ClientBalance, error) {
	key, err := s.cache.BuildKey(ctx, keyClientBalances())
	if err != nil {
		return nil, err
	}

	var balances []ClientBalance
	err = s.cache.FetchJSON(ctx, key, &balances, func(ctx context.Context) (interface{}, error) {
		return s.repo.BalancesByClient(ctx)
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}
