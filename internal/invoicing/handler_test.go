package invoicing

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(slog.Default(), svc)
	r := chi.NewRouter()
	r.Route("/invoices", func(r chi.Router) {
		h.MountRoutes(r)
	})
	return r
}

func TestVoidEndpointAcceptsMissingReason(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 10)
	svc := newTestService(repo)
	router := newTestRouter(svc)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), inv.ID, AddLineForm{ProductID: 10, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), inv.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/invoices/"+strconv.FormatInt(inv.ID, 10)+"/void", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, StatusVoided, repo.invoices[inv.ID].Status)
	require.True(t, strings.HasSuffix(repo.invoices[inv.ID].Notes, VoidedTag))
}

func TestVoidEndpointAcceptsEmptyBody(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	seedProduct(repo, 10, "USB Cable", 10.00, 10)
	svc := newTestService(repo)
	router := newTestRouter(svc)

	inv, err := svc.Create(context.Background(), CreateInvoiceForm{ClientID: 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/invoices/"+strconv.FormatInt(inv.ID, 10)+"/void", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, StatusVoided, repo.invoices[inv.ID].Status)
}
