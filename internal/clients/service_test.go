package clients

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ventero-erp/ventero/internal/shared"
)

type memoryClientRepo struct {
	clients map[int64]Client
	refs    map[int64]int
	history map[int64][]PurchaseRecord
	nextID  int64
}

func newMemoryClientRepo() *memoryClientRepo {
	return &memoryClientRepo{
		clients: make(map[int64]Client),
		refs:    make(map[int64]int),
		history: make(map[int64][]PurchaseRecord),
	}
}

func (r *memoryClientRepo) List(ctx context.Context, filters shared.ListFilters) ([]Client, int, error) {
	var out []Client
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryClientRepo) Get(ctx context.Context, id int64) (Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return Client{}, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return c, nil
}

func (r *memoryClientRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.clients[id]
	return ok, nil
}

func (r *memoryClientRepo) Create(ctx context.Context, client Client) (Client, error) {
	if client.IdentificationNumber != "" {
		for _, c := range r.clients {
			if c.IdentificationNumber == client.IdentificationNumber {
				return Client{}, fmt.Errorf("%w: identification %s", shared.ErrDuplicate, client.IdentificationNumber)
			}
		}
	}
	r.nextID++
	client.ID = r.nextID
	r.clients[client.ID] = client
	return client, nil
}

func (r *memoryClientRepo) Update(ctx context.Context, id int64, client Client) error {
	if _, ok := r.clients[id]; !ok {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	client.ID = id
	r.clients[id] = client
	return nil
}

func (r *memoryClientRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.clients[id]; !ok {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	delete(r.clients, id)
	return nil
}

func (r *memoryClientRepo) InvoiceRefs(ctx context.Context, id int64) (int, error) {
	return r.refs[id], nil
}

func (r *memoryClientRepo) PurchaseHistory(ctx context.Context, id int64, limit int) ([]PurchaseRecord, error) {
	recs := r.history[id]
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (r *memoryClientRepo) Stats(ctx context.Context, id int64) (ClientStats, error) {
	stats := ClientStats{ClientID: id}
	for _, rec := range r.history[id] {
		if rec.Status != "confirmed" {
			continue
		}
		stats.InvoiceCount++
		stats.TotalInvoiced += rec.Total
	}
	if stats.InvoiceCount > 0 {
		stats.AverageTicket = stats.TotalInvoiced / float64(stats.InvoiceCount)
	}
	return stats, nil
}

func TestCreateClient(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryClientRepo())

	c, err := svc.Create(ctx, Client{FullName: "Ana Torres", IdentificationNumber: "12345678"})
	require.NoError(t, err)
	require.NotZero(t, c.ID)

	exists, err := svc.Exists(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestCreateClientRequiresName(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryClientRepo())

	_, err := svc.Create(ctx, Client{FullName: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateClientDuplicateIdentification(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryClientRepo())

	_, err := svc.Create(ctx, Client{FullName: "Ana Torres", IdentificationNumber: "12345678"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Client{FullName: "Luis Prada", IdentificationNumber: "12345678"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeleteClientBlockedByInvoices(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryClientRepo()
	svc := NewService(repo)

	c, err := svc.Create(ctx, Client{FullName: "Ana Torres"})
	require.NoError(t, err)

	repo.refs[c.ID] = 3
	err = svc.Delete(ctx, c.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	repo.refs[c.ID] = 0
	require.NoError(t, svc.Delete(ctx, c.ID))
}

func TestClientStats(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryClientRepo()
	svc := NewService(repo)

	c, err := svc.Create(ctx, Client{FullName: "Ana Torres"})
	require.NoError(t, err)
	repo.history[c.ID] = []PurchaseRecord{
		{InvoiceID: 1, Total: 100, Status: "confirmed"},
		{InvoiceID: 2, Total: 300, Status: "confirmed"},
		{InvoiceID: 3, Total: 999, Status: "voided"},
	}

	stats, err := svc.Stats(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.InvoiceCount)
	require.Equal(t, 400.0, stats.TotalInvoiced)
	require.Equal(t, 200.0, stats.AverageTicket)
}
