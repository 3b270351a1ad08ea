package quotations

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/events"
	"github.com/odyssey-erp/backoffice/internal/numbering"
	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type memoryQuotationRepo struct {
	rows   map[int64]Quotation
	seq    *numbering.Sequencer
	nextID int64
	// purchase order id to source quotation id
	orders map[int64]*int64
}

type memoryQuotationTx struct {
	repo *memoryQuotationRepo
}

func newMemoryQuotationRepo() *memoryQuotationRepo {
	return &memoryQuotationRepo{rows: make(map[int64]Quotation), seq: numbering.NewSequencer(), orders: make(map[int64]*int64)}
}

func (r *memoryQuotationRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]Quotation, len(r.rows))
	for k, v := range r.rows {
		snapshot[k] = v
	}
	if err := fn(ctx, &memoryQuotationTx{repo: r}); err != nil {
		r.rows = snapshot
		return err
	}
	return nil
}

func (r *memoryQuotationRepo) live(id int64) (Quotation, error) {
	q, ok := r.rows[id]
	if !ok || q.DeletedAt != nil {
		return Quotation{}, fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	q.Items = append([]Item(nil), q.Items...)
	return q, nil
}

func (r *memoryQuotationRepo) Get(ctx context.Context, id int64) (Quotation, error) {
	return r.live(id)
}

func (r *memoryQuotationRepo) List(ctx context.Context, f ListFilter) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range r.rows {
		if q.DeletedAt != nil {
			continue
		}
		if f.Status != "" && q.Status != f.Status {
			continue
		}
		if f.OwnerID > 0 && q.CreatedBy != f.OwnerID && (q.AssignedTo == nil || *q.AssignedTo != f.OwnerID) {
			continue
		}
		if f.Search != "" && !strings.Contains(q.Code, f.Search) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *memoryQuotationRepo) ExpireBefore(ctx context.Context, day time.Time) ([]int64, error) {
	var ids []int64
	for id, q := range r.rows {
		if q.DeletedAt != nil || q.Status.Terminal() || q.POID != nil || q.ValidTill == nil || !q.ValidTill.Before(day) {
			continue
		}
		q.Status = StatusExpired
		r.rows[id] = q
		ids = append(ids, id)
	}
	return ids, nil
}

func (tx *memoryQuotationTx) NextCode(ctx context.Context, year int) (string, error) {
	return tx.repo.seq.Next(ctx, nil, numbering.Quotation, year)
}

func (tx *memoryQuotationTx) Lock(ctx context.Context, id int64) (Quotation, error) {
	return tx.repo.live(id)
}

func (tx *memoryQuotationTx) Insert(ctx context.Context, q Quotation) (int64, error) {
	tx.repo.nextID++
	q.ID = tx.repo.nextID
	q.CreatedAt = time.Now()
	tx.repo.rows[q.ID] = q
	return q.ID, nil
}

func (tx *memoryQuotationTx) UpdateHeader(ctx context.Context, q Quotation) error {
	existing := tx.repo.rows[q.ID]
	q.Items = existing.Items
	tx.repo.rows[q.ID] = q
	return nil
}

func (tx *memoryQuotationTx) ReplaceItems(ctx context.Context, quotationID int64, items []Item) error {
	q := tx.repo.rows[quotationID]
	q.Items = nil
	for _, it := range items {
		it.QuotationID = quotationID
		q.Items = append(q.Items, it)
	}
	tx.repo.rows[quotationID] = q
	return nil
}

func (tx *memoryQuotationTx) PurchaseOrderSource(ctx context.Context, poID int64) (*int64, error) {
	source, ok := tx.repo.orders[poID]
	if !ok {
		return nil, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, poID)
	}
	return source, nil
}

func (tx *memoryQuotationTx) SoftDelete(ctx context.Context, id, actorID int64) error {
	q := tx.repo.rows[id]
	now := time.Now()
	q.DeletedAt = &now
	tx.repo.rows[id] = q
	return nil
}

var (
	admin = shared.Actor{ID: 1, Role: shared.RoleAdmin}
	alice = shared.Actor{ID: 10, Role: shared.RoleUser}
	bob   = shared.Actor{ID: 11, Role: shared.RoleManager}
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func newService(t *testing.T) (*Service, *memoryQuotationRepo) {
	t.Helper()
	repo := newMemoryQuotationRepo()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func createRequest() CreateRequest {
	return CreateRequest{
		VendorName: strPtr("Acme Supplies"),
		Category:   strPtr("Electrical"),
		Items: []ItemRequest{
			{ItemName: "Cable", Quantity: dec("3"), UnitPrice: dec("33.33"), DiscountPercent: dec("5")},
			{ItemName: "Switch", UnitPrice: dec("100")},
		},
	}
}

func TestCreateComputesTotalsAndCode(t *testing.T) {
	svc, _ := newService(t)
	q, err := svc.Create(context.Background(), createRequest(), alice)
	require.NoError(t, err)

	assert.Equal(t, "QUO-2024-001", q.Code)
	assert.Equal(t, StatusNew, q.Status)
	require.Len(t, q.Items, 2)
	assert.Equal(t, "112.09", q.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "118.00", q.Items[1].LineTotal.StringFixed(2))
	assert.True(t, q.Items[1].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, q.Items[1].TaxPercent.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, "230.09", q.TotalAmount.StringFixed(2))
	assert.Equal(t, "199.99", q.Subtotal.StringFixed(2))

	second, err := svc.Create(context.Background(), createRequest(), alice)
	require.NoError(t, err)
	assert.Equal(t, "QUO-2024-002", second.Code)
}

func TestCreateRequiresVendorReference(t *testing.T) {
	svc, _ := newService(t)
	req := createRequest()
	req.VendorName = strPtr("  ")
	_, err := svc.Create(context.Background(), req, alice)
	require.ErrorIs(t, err, shared.ErrValidation)

	req.VendorEmail = strPtr("sales@bright.test")
	q, err := svc.Create(context.Background(), req, alice)
	require.NoError(t, err)
	assert.Equal(t, "sales@bright.test", *q.VendorEmail)

	req.VendorEmail = nil
	req.VendorID = new(int64)
	*req.VendorID = 4
	_, err = svc.Create(context.Background(), req, alice)
	require.NoError(t, err)
}

func TestCreateRejectsInvalidLine(t *testing.T) {
	svc, _ := newService(t)
	req := createRequest()
	req.Items[1].Quantity = dec("-1")
	_, err := svc.Create(context.Background(), req, alice)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "line 2")
}

func TestStatusLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	q, err := svc.Create(ctx, createRequest(), alice)
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, q.ID, StatusRequest{Status: StatusApproved}, alice)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	q, err = svc.ChangeStatus(ctx, q.ID, StatusRequest{Status: StatusShortlisted}, alice)
	require.NoError(t, err)
	q, err = svc.ChangeStatus(ctx, q.ID, StatusRequest{Status: StatusApproved}, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, q.Status)
	require.NotNil(t, q.ApprovedBy)
	assert.Equal(t, alice.ID, *q.ApprovedBy)

	_, err = svc.ChangeStatus(ctx, q.ID, StatusRequest{Status: StatusPOCreated}, alice)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	q, err = svc.ChangeStatus(ctx, q.ID, StatusRequest{Status: StatusRejected, Reason: strPtr("too late")}, alice)
	require.NoError(t, err)
	assert.Equal(t, "too late", *q.RejectionReason)

	_, err = svc.ChangeStatus(ctx, q.ID, StatusRequest{Status: StatusShortlisted}, alice)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestUpdateReplacesItemsAndEnforcesAccess(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	q, err := svc.Create(ctx, createRequest(), alice)
	require.NoError(t, err)

	items := []ItemRequest{{ItemName: "Panel", Quantity: dec("2"), UnitPrice: dec("50"), TaxPercent: dec("0")}}
	req := UpdateRequest{VendorName: strPtr("Acme"), Items: &items}

	_, err = svc.Update(ctx, q.ID, req, bob)
	require.ErrorIs(t, err, shared.ErrAccessDenied)

	updated, err := svc.Update(ctx, q.ID, req, alice)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "100.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, q.Code, updated.Code)

	meta := UpdateRequest{VendorName: strPtr("Acme"), Notes: strPtr("call first")}
	updated, err = svc.Update(ctx, q.ID, meta, admin)
	require.NoError(t, err)
	assert.Len(t, updated.Items, 1)
	assert.Equal(t, "100.00", updated.TotalAmount.StringFixed(2))
}

func TestDeleteHidesQuotation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	q, err := svc.Create(ctx, createRequest(), alice)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, q.ID, alice))

	_, err = svc.Get(ctx, q.ID, alice)
	require.ErrorIs(t, err, shared.ErrNotFound)

	items, page, err := svc.List(ctx, ListFilter{}, admin)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, page.Total)
}

func TestListScopedToOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, createRequest(), alice)
	require.NoError(t, err)
	req := createRequest()
	req.AssignedTo = &bob.ID
	_, err = svc.Create(ctx, req, alice)
	require.NoError(t, err)

	mine, _, err := svc.List(ctx, ListFilter{}, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	assigned, _, err := svc.List(ctx, ListFilter{}, bob)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	all, _, err := svc.List(ctx, ListFilter{}, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExpireSweepIsIdempotent(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	past := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	expiring := createRequest()
	expiring.ValidTill = &past
	q1, err := svc.Create(ctx, expiring, alice)
	require.NoError(t, err)

	fresh := createRequest()
	fresh.ValidTill = &future
	_, err = svc.Create(ctx, fresh, alice)
	require.NoError(t, err)

	rejected, err := svc.Create(ctx, expiring, alice)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, rejected.ID, StatusRequest{Status: StatusRejected}, alice)
	require.NoError(t, err)

	today := time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)
	n, err := svc.ExpireSweep(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StatusExpired, repo.rows[q1.ID].Status)
	assert.Equal(t, StatusRejected, repo.rows[rejected.ID].Status)

	n, err = svc.ExpireSweep(ctx, today)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func approved(t *testing.T, svc *Service) Quotation {
	t.Helper()
	ctx := context.Background()
	q, err := svc.Create(ctx, createRequest(), alice)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, q.ID, StatusRequest{Status: StatusShortlisted}, alice)
	require.NoError(t, err)
	q, err = svc.ChangeStatus(ctx, q.ID, StatusRequest{Status: StatusApproved}, alice)
	require.NoError(t, err)
	return q
}

func TestLinkPurchaseOrder(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	q := approved(t, svc)
	repo.orders[55] = &q.ID
	repo.orders[56] = &q.ID

	require.NoError(t, svc.LinkPurchaseOrder(ctx, q.ID, 55, alice))
	got, err := svc.Get(ctx, q.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusPOCreated, got.Status)
	assert.Equal(t, int64(55), *got.POID)

	require.NoError(t, svc.LinkPurchaseOrder(ctx, q.ID, 55, alice))
	err = svc.LinkPurchaseOrder(ctx, q.ID, 56, alice)
	require.ErrorIs(t, err, shared.ErrValidation)

	fresh, err := svc.Create(ctx, createRequest(), alice)
	require.NoError(t, err)
	repo.orders[57] = &fresh.ID
	err = svc.LinkPurchaseOrder(ctx, fresh.ID, 57, alice)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestLinkPurchaseOrderChecksOrder(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	q := approved(t, svc)
	other := approved(t, svc)
	repo.orders[60] = &other.ID
	repo.orders[61] = nil

	err := svc.LinkPurchaseOrder(ctx, q.ID, 404, alice)
	require.ErrorIs(t, err, shared.ErrNotFound)
	err = svc.LinkPurchaseOrder(ctx, q.ID, 60, alice)
	require.ErrorIs(t, err, shared.ErrValidation)
	err = svc.LinkPurchaseOrder(ctx, q.ID, 61, alice)
	require.ErrorIs(t, err, shared.ErrValidation)

	got, err := svc.Get(ctx, q.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Nil(t, got.POID)
}

func TestConvertedEventLinksQuotation(t *testing.T) {
	svc, repo := newService(t)
	bus := events.NewBus(nil)
	svc.Subscribe(bus)
	q := approved(t, svc)
	repo.orders[9] = &q.ID

	bus.Publish(context.Background(), events.QuotationConverted{QuotationID: q.ID, PurchaseOrderID: 9, ActorID: alice.ID})
	got, err := svc.Get(context.Background(), q.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, StatusPOCreated, got.Status)

	// a failing link is swallowed by the bus
	bus.Publish(context.Background(), events.QuotationConverted{QuotationID: 999, PurchaseOrderID: 10})
}

func TestHandlerCreateAndForbidden(t *testing.T) {
	svc, _ := newService(t)
	r := chi.NewRouter()
	r.Use(httpx.ActorMiddleware)
	NewHandler(nil, svc).MountRoutes(r)

	body := `{"vendorName":"Acme","items":[{"itemName":"Cable","quantity":"2","unitPrice":"10"}]}`
	req := httptest.NewRequest(http.MethodPost, "/quotations", strings.NewReader(body))
	req.Header.Set("X-User-ID", "10")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"totalAmount":"23.6"`)

	req = httptest.NewRequest(http.MethodGet, "/quotations/1", nil)
	req.Header.Set("X-User-ID", "11")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/quotations", strings.NewReader(`{"vendorName":"Acme","items":[]}`))
	req.Header.Set("X-User-ID", "10")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
