package receivables

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ventero-erp/ventero/internal/platform/httpx"
)

// Handler manages receivable endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	currency string
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, currency string) *Handler {
	return &Handler{logger: logger, service: service, currency: currency, validate: validator.New()}
}

// MountRoutes registers receivable routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/aging", h.aging)
	r.Get("/aging.csv", h.agingCSV)
	r.Get("/overdue", h.overdue)
	r.Get("/overdue.csv", h.overdueCSV)
	r.Get("/due-soon", h.dueSoon)
	r.Get("/balances", h.balances)
	r.Get("/invoice/{invoiceID}", h.getByInvoice)
	r.Get("/{id}", h.get)
	r.Post("/{id}/payments", h.registerPayment)
	r.Post("/{id}/payments/{paymentID}/void", h.voidPayment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID, _ := strconv.ParseInt(q.Get("client_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	req := ListAccountsRequest{
		ClientID: clientID,
		Status:   AccountStatus(q.Get("status")),
		OpenOnly: q.Get("open") == "true",
		Limit:    limit,
		Offset:   offset,
	}

	accounts, total, err := h.service.ListAccounts(r.Context(), req)
	if err != nil {
		h.logger.Error("list receivables", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"total":    total,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account ID")
		return
	}

	acc, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) getByInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice ID")
		return
	}

	acc, err := h.service.GetAccountByInvoice(r.Context(), invoiceID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account ID")
		return
	}

	var form PaymentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	form.IdempotencyKey = r.Header.Get("Idempotency-Key")

	payment, err := h.service.RegisterPayment(r.Context(), id, form)
	if err != nil {
		h.logger.Error("register payment", slog.Any("error", err), slog.Int64("account_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) voidPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account ID")
		return
	}
	paymentID, err := strconv.ParseInt(chi.URLParam(r, "paymentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment ID")
		return
	}

	// The body is optional: a bare POST voids without a recorded reason.
	var form VoidPaymentForm
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
		if err := h.validate.Struct(form); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}

	acc, err := h.service.VoidPayment(r.Context(), id, paymentID, form)
	if err != nil {
		h.logger.Error("void payment", slog.Any("error", err),
			slog.Int64("account_id", id), slog.Int64("payment_id", paymentID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Aging(r.Context(), parseAsOf(r))
	if err != nil {
		h.logger.Error("aging report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) agingCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Aging(r.Context(), parseAsOf(r))
	if err != nil {
		h.logger.Error("aging report csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="aging.csv"`)
	if err := WriteAgingCSV(w, *report, h.currency); err != nil {
		h.logger.Error("write aging csv", slog.Any("error", err))
	}
}

func (h *Handler) overdue(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Overdue(r.Context(), parseAsOf(r))
	if err != nil {
		h.logger.Error("overdue report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) overdueCSV(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Overdue(r.Context(), parseAsOf(r))
	if err != nil {
		h.logger.Error("overdue report csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="overdue.csv"`)
	if err := WriteOverdueCSV(w, accounts, h.currency); err != nil {
		h.logger.Error("write overdue csv", slog.Any("error", err))
	}
}

func (h *Handler) dueSoon(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	accounts, err := h.service.DueSoon(r.Context(), days)
	if err != nil {
		h.logger.Error("due soon report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.ClientBalances(r.Context())
	if err != nil {
		h.logger.Error("client balances", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func parseAsOf(r *http.Request) time.Time {
	if v := r.URL.Query().Get("as_of"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	}
	return time.Time{}
}
