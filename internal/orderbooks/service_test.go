package orderbooks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/numbering"
	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type memoryRepo struct {
	books  map[int64]OrderBook
	seq    *numbering.Sequencer
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{books: make(map[int64]OrderBook), seq: numbering.NewSequencer()}
}

func (r *memoryRepo) Create(ctx context.Context, ob OrderBook) (OrderBook, error) {
	code, err := r.seq.Next(ctx, nil, numbering.OrderBook, ob.OrderDate.Year())
	if err != nil {
		return OrderBook{}, err
	}
	r.nextID++
	ob.ID = r.nextID
	ob.Code = code
	for i := range ob.Items {
		ob.Items[i].OrderBookID = ob.ID
	}
	r.books[ob.ID] = ob
	return ob, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (OrderBook, error) {
	ob, ok := r.books[id]
	if !ok || ob.DeletedAt != nil {
		return OrderBook{}, fmt.Errorf("%w: order book %d", shared.ErrNotFound, id)
	}
	return ob, nil
}

func (r *memoryRepo) List(ctx context.Context, f ListFilter) ([]OrderBook, int, error) {
	var out []OrderBook
	for id := int64(1); id <= r.nextID; id++ {
		ob, ok := r.books[id]
		if !ok || ob.DeletedAt != nil || (f.OwnerID > 0 && ob.CreatedBy != f.OwnerID) {
			continue
		}
		out = append(out, ob)
	}
	return out, len(out), nil
}

func (r *memoryRepo) SoftDelete(ctx context.Context, id int64) error {
	ob := r.books[id]
	now := time.Now()
	ob.DeletedAt = &now
	r.books[id] = ob
	return nil
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var planner = shared.Actor{ID: 12, Role: shared.RoleUser}

func newTestService() *Service {
	svc := NewService(newMemoryRepo(), nil)
	svc.now = func() time.Time { return time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateAppliesGSTAndDiscount(t *testing.T) {
	svc := newTestService()
	ob, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "Contoso",
		Items: []ItemRequest{
			{ItemName: "Panel", Quantity: dec("2"), UnitPrice: dec("100"), DiscountPercent: dec("5")},
			{ItemName: "Frame", Quantity: dec("1"), UnitPrice: dec("12.5"), TaxPercent: dec("0")},
		},
	}, planner)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2024-0001", ob.Code)
	// 200 - 10 = 190, GST 18% = 34.20, line 224.20; frame 12.50.
	assert.Equal(t, "236.70", ob.TotalAmount.StringFixed(2))
	assert.Equal(t, "10.00", ob.DiscountAmount.StringFixed(2))
	assert.Equal(t, "34.20", ob.TaxAmount.StringFixed(2))
	assert.Equal(t, "18", ob.Items[0].TaxPercent.String())
}

func TestCreateRejectsBadRows(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), CreateRequest{CustomerName: "Contoso"}, planner)
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), CreateRequest{
		CustomerName: "Contoso",
		Items:        []ItemRequest{{ItemName: "Panel", DiscountPercent: dec("120")}},
	}, planner)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestItemsAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	ob, err := svc.Create(ctx, CreateRequest{
		CustomerName: "Contoso",
		Items:        []ItemRequest{{ItemName: "Panel", UnitPrice: dec("10")}},
	}, planner)
	require.NoError(t, err)

	items, err := svc.Items(ctx, ob.ID, planner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Panel", items[0].ItemName)

	_, err = svc.Items(ctx, ob.ID, shared.Actor{ID: 99, Role: shared.RoleUser})
	require.ErrorIs(t, err, shared.ErrAccessDenied)

	require.NoError(t, svc.Delete(ctx, ob.ID, planner))
	_, err = svc.Items(ctx, ob.ID, planner)
	require.ErrorIs(t, err, shared.ErrNotFound)
	list, _, err := svc.List(ctx, ListFilter{}, planner)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHandlerCreate(t *testing.T) {
	r := chi.NewRouter()
	r.Use(httpx.ActorMiddleware)
	NewHandler(nil, newTestService()).MountRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/order-books", strings.NewReader(`{"customerName":"Contoso","items":[{"itemName":"Panel","unitPrice":"100"}]}`))
	req.Header.Set("X-User-ID", "12")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"totalAmount":"118"`)

	req = httptest.NewRequest(http.MethodPost, "/order-books", strings.NewReader(`{"items":[]}`))
	req.Header.Set("X-User-ID", "12")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
