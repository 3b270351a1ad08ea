package bills

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/events"
	"github.com/odyssey-erp/backoffice/internal/numbering"
	"github.com/odyssey-erp/backoffice/internal/platform/cache"
	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
	"github.com/odyssey-erp/backoffice/internal/storage"
	"github.com/odyssey-erp/backoffice/internal/vendors"
)

var fixedNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type memoryBillRepo struct {
	bills      map[int64]Bill
	payments   []Payment
	pos        map[int64]bool
	seq        *numbering.Sequencer
	nextID     int64
	statsCalls int
	statsErr   error
	taken      map[string]bool
}

func newMemoryBillRepo() *memoryBillRepo {
	return &memoryBillRepo{
		bills: make(map[int64]Bill),
		pos:   make(map[int64]bool),
		seq:   numbering.NewSequencer(),
		taken: make(map[string]bool),
	}
}

type memoryBillTx struct{ repo *memoryBillRepo }

func (r *memoryBillRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]Bill, len(r.bills))
	for k, v := range r.bills {
		v.Items = append([]Item(nil), v.Items...)
		snapshot[k] = v
	}
	payments := append([]Payment(nil), r.payments...)
	if err := fn(ctx, &memoryBillTx{repo: r}); err != nil {
		r.bills, r.payments = snapshot, payments
		return err
	}
	return nil
}

func (r *memoryBillRepo) live(id int64) (Bill, error) {
	b, ok := r.bills[id]
	if !ok || b.DeletedAt != nil {
		return Bill{}, fmt.Errorf("%w: bill %d", shared.ErrNotFound, id)
	}
	b.Items = append([]Item(nil), b.Items...)
	return b, nil
}

func (r *memoryBillRepo) Get(ctx context.Context, id int64) (Bill, error) { return r.live(id) }

func (r *memoryBillRepo) List(ctx context.Context, f ListFilter) ([]Bill, int, error) {
	var out []Bill
	for _, b := range r.bills {
		if b.DeletedAt != nil {
			continue
		}
		if f.OwnerID > 0 && b.CreatedBy != f.OwnerID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *memoryBillRepo) Payments(ctx context.Context, billID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryBillRepo) Stats(ctx context.Context, f StatsFilter, monthStart time.Time) (StatsRow, error) {
	r.statsCalls++
	if r.statsErr != nil {
		return StatsRow{}, r.statsErr
	}
	row := StatsRow{Outstanding: decimal.Zero}
	for _, b := range r.bills {
		if b.DeletedAt != nil {
			continue
		}
		if f.ProjectID > 0 && (b.ProjectID == nil || *b.ProjectID != f.ProjectID) {
			continue
		}
		if f.OwnerID > 0 && b.CreatedBy != f.OwnerID {
			continue
		}
		row.Total++
		if b.Status != StatusPaid {
			row.Outstanding = row.Outstanding.Add(b.Balance())
		} else {
			row.Paid++
		}
		if !b.CreatedAt.Before(monthStart) {
			row.ThisMonth++
		}
		if b.PurchaseOrderID != nil {
			row.LinkedToPO++
		}
	}
	return row, nil
}

func (tx *memoryBillTx) id() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryBillTx) NextCode(ctx context.Context, year int) (string, error) {
	return tx.repo.seq.Next(ctx, nil, numbering.Bill, year)
}

func (tx *memoryBillTx) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if tx.repo.taken[code] {
		return true, nil
	}
	for _, b := range tx.repo.bills {
		if b.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryBillTx) PurchaseOrderExists(ctx context.Context, id int64) (bool, error) {
	return tx.repo.pos[id], nil
}

func (tx *memoryBillTx) Lock(ctx context.Context, id int64) (Bill, error) { return tx.repo.live(id) }

func (tx *memoryBillTx) Insert(ctx context.Context, b Bill) (int64, error) {
	b.ID = tx.id()
	b.CreatedAt = fixedNow
	b.UpdatedAt = fixedNow
	tx.repo.bills[b.ID] = b
	return b.ID, nil
}

func (tx *memoryBillTx) ReplaceItems(ctx context.Context, billID int64, items []Item) error {
	b := tx.repo.bills[billID]
	b.Items = nil
	for _, it := range items {
		it.ID = tx.id()
		it.BillID = billID
		b.Items = append(b.Items, it)
	}
	tx.repo.bills[billID] = b
	return nil
}

func (tx *memoryBillTx) UpdateHeader(ctx context.Context, b Bill) error {
	stored := tx.repo.bills[b.ID]
	b.Items = stored.Items
	b.CreatedAt = stored.CreatedAt
	tx.repo.bills[b.ID] = b
	return nil
}

func (tx *memoryBillTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	p.ID = tx.id()
	tx.repo.payments = append(tx.repo.payments, p)
	return p.ID, nil
}

func (tx *memoryBillTx) SoftDelete(ctx context.Context, id, actorID int64) error {
	b := tx.repo.bills[id]
	now := fixedNow
	b.DeletedAt = &now
	tx.repo.bills[id] = b
	return nil
}

type fakeRenderer struct{ html string }

func (f *fakeRenderer) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-1.7 fake"), nil
}

type fixture struct {
	svc      *Service
	repo     *memoryBillRepo
	vendors  *vendors.MemoryStore
	recorder *events.Recorder
	files    *storage.Memory
	renderer *fakeRenderer
	vendorID int64
}

func newFixture(t *testing.T, stats *cache.Versioned) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemoryBillRepo(),
		vendors:  vendors.NewMemoryStore(),
		recorder: &events.Recorder{},
		files:    storage.NewMemory(),
		renderer: &fakeRenderer{},
	}
	id, err := f.vendors.Create(context.Background(), vendors.Vendor{Name: "Acme Supplies", Email: "ap@acme.test"})
	require.NoError(t, err)
	f.vendorID = id
	f.svc = NewService(Dependencies{
		Repo:      f.repo,
		Vendors:   f.vendors,
		Publisher: f.recorder,
		Stats:     stats,
		Files:     f.files,
		Renderer:  f.renderer,
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

var (
	owner = shared.Actor{ID: 7, Role: shared.RoleUser}
	other = shared.Actor{ID: 8, Role: shared.RoleUser}
	admin = shared.Actor{ID: 1, Role: shared.RoleAdmin}
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func scenarioRequest(vendorID int64) CreateRequest {
	return CreateRequest{
		VendorID: vendorID,
		Items: []ItemRequest{
			{Description: "Steel rods", Quantity: dec("2"), UnitPrice: dec("100"), TaxPercent: dec("10")},
			{Description: "Bolts", Quantity: dec("1"), UnitPrice: dec("50"), TaxPercent: dec("0")},
		},
	}
}

func TestBillPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	bill, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)
	assert.Equal(t, "BILL-2024-0001", bill.Code)
	assert.Equal(t, "270.00", bill.TotalAmount.StringFixed(2))
	assert.Equal(t, "20.00", bill.TaxAmount.StringFixed(2))
	assert.Equal(t, StatusPending, bill.Status)
	require.Len(t, bill.Items, 2)
	assert.Equal(t, "220.00", bill.Items[0].LineTotal.StringFixed(2))

	bill, err = f.svc.AddPayment(ctx, bill.ID, PaymentRequest{Amount: decimal.RequireFromString("100.00"), PaymentMode: "BANK"}, owner)
	require.NoError(t, err)
	assert.Equal(t, "100.00", bill.PaidAmount.StringFixed(2))
	assert.Equal(t, StatusPartiallyPaid, bill.Status)
	assert.Equal(t, "170.00", bill.Balance().StringFixed(2))

	_, err = f.svc.AddPayment(ctx, bill.ID, PaymentRequest{Amount: decimal.RequireFromString("200.00")}, owner)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "exceeds balance")
	bill, err = f.svc.Get(ctx, bill.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "100.00", bill.PaidAmount.StringFixed(2))

	bill, err = f.svc.MarkFullyPaid(ctx, bill.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "270.00", bill.PaidAmount.StringFixed(2))
	assert.Equal(t, StatusPaid, bill.Status)

	payments, err := f.svc.Payments(ctx, bill.ID, owner)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "170.00", payments[1].Amount.StringFixed(2))
	assert.Equal(t, systemPaymentMode, payments[1].PaymentMode)
	require.NotNil(t, payments[1].ReferenceNumber)
	assert.True(t, strings.HasPrefix(*payments[1].ReferenceNumber, "SYS-"))
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, sum.Equal(bill.PaidAmount))

	notes := "late edit"
	_, err = f.svc.Update(ctx, bill.ID, UpdateRequest{Notes: &notes}, owner)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "cannot edit paid bills")
	require.ErrorIs(t, f.svc.Delete(ctx, bill.ID, owner), shared.ErrValidation)
	_, err = f.svc.MarkFullyPaid(ctx, bill.ID, owner)
	require.ErrorIs(t, err, shared.ErrValidation)

	assert.Equal(t, 2, f.recorder.Count(events.NamePaymentRecorded))
	assert.Equal(t, 1, f.recorder.Count(events.NameBillPaid))
}

func TestCreateRequiresKnownVendor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.Create(ctx, scenarioRequest(999), owner)
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.Create(ctx, scenarioRequest(0), owner)
	require.ErrorIs(t, err, shared.ErrValidation)

	req := scenarioRequest(f.vendorID)
	po := int64(44)
	req.PurchaseOrderID = &po
	_, err = f.svc.Create(ctx, req, owner)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, f.repo.bills)

	f.repo.pos[po] = true
	bill, err := f.svc.Create(ctx, req, owner)
	require.NoError(t, err)
	require.NotNil(t, bill.PurchaseOrderID)
}

func TestCreateRejectsCodeCollision(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.taken["BILL-2024-0001"] = true

	_, err := f.svc.Create(context.Background(), scenarioRequest(f.vendorID), owner)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUpdateItemsAndScalars(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	bill, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)

	notes := "net 30"
	bill, err = f.svc.Update(ctx, bill.ID, UpdateRequest{Notes: &notes}, owner)
	require.NoError(t, err)
	assert.Equal(t, "270.00", bill.TotalAmount.StringFixed(2))
	assert.Len(t, bill.Items, 2)
	require.NotNil(t, bill.Notes)
	assert.Equal(t, notes, *bill.Notes)

	_, err = f.svc.AddPayment(ctx, bill.ID, PaymentRequest{Amount: decimal.RequireFromString("60")}, owner)
	require.NoError(t, err)

	items := []ItemRequest{{Description: "Cable", Quantity: dec("1"), UnitPrice: dec("50")}}
	_, err = f.svc.Update(ctx, bill.ID, UpdateRequest{Items: &items}, owner)
	require.ErrorIs(t, err, shared.ErrValidation)

	items = []ItemRequest{{Description: "Cable", Quantity: dec("3"), UnitPrice: dec("40"), TaxPercent: dec("5")}}
	bill, err = f.svc.Update(ctx, bill.ID, UpdateRequest{Items: &items}, owner)
	require.NoError(t, err)
	assert.Equal(t, "126.00", bill.TotalAmount.StringFixed(2))
	assert.Equal(t, StatusPartiallyPaid, bill.Status)
	assert.Len(t, bill.Items, 1)

	_, err = f.svc.Update(ctx, bill.ID, UpdateRequest{Notes: &notes}, other)
	require.ErrorIs(t, err, shared.ErrAccessDenied)
}

func TestPaymentAmountMustBePositive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	bill, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)

	for _, amount := range []string{"0", "-5"} {
		_, err := f.svc.AddPayment(ctx, bill.ID, PaymentRequest{Amount: decimal.RequireFromString(amount)}, owner)
		require.ErrorIs(t, err, shared.ErrValidation, amount)
	}
	assert.Empty(t, f.repo.payments)
}

func TestSubCentPaymentsRoundBeforeChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	bill, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)

	_, err = f.svc.AddPayment(ctx, bill.ID, PaymentRequest{Amount: decimal.RequireFromString("0.004")}, owner)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, f.repo.payments)
	assert.Zero(t, f.recorder.Count(events.NamePaymentRecorded))

	bill, err = f.svc.AddPayment(ctx, bill.ID, PaymentRequest{Amount: decimal.RequireFromString("270.004")}, owner)
	require.NoError(t, err)
	assert.Equal(t, "270.00", bill.PaidAmount.StringFixed(2))
	assert.Equal(t, StatusPaid, bill.Status)
	require.Len(t, f.repo.payments, 1)
}

func TestDeleteHidesBill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	bill, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, bill.ID, other), shared.ErrAccessDenied)
	require.NoError(t, f.svc.Delete(ctx, bill.ID, admin))

	_, err = f.svc.Get(ctx, bill.ID, admin)
	require.ErrorIs(t, err, shared.ErrNotFound)
	list, page, err := f.svc.List(ctx, ListFilter{}, admin)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, f.svc.Stats(ctx, StatsFilter{}, admin).TotalBills)
}

func TestListScopedToOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, scenarioRequest(f.vendorID), other)
	require.NoError(t, err)

	mine, _, err := f.svc.List(ctx, ListFilter{}, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, owner.ID, mine[0].CreatedBy)

	all, _, err := f.svc.List(ctx, ListFilter{}, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func newStatsCache(t *testing.T) (*cache.Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewVersioned(client, "bills:stats", 30*time.Second), mr
}

func TestStatsCachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	stats, _ := newStatsCache(t)
	f := newFixture(t, stats)

	first, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)
	req := scenarioRequest(f.vendorID)
	po := int64(3)
	f.repo.pos[po] = true
	req.PurchaseOrderID = &po
	_, err = f.svc.Create(ctx, req, owner)
	require.NoError(t, err)

	got := f.svc.Stats(ctx, StatsFilter{}, admin)
	assert.Equal(t, 2, got.TotalBills)
	assert.Equal(t, "540.00", got.OutstandingAmount.StringFixed(2))
	assert.Equal(t, 2, got.BillsThisMonth)
	assert.Equal(t, 0, got.PaidBills)
	assert.Equal(t, "50.00", got.LinkedToPOPercent.StringFixed(2))

	f.svc.Stats(ctx, StatsFilter{}, admin)
	assert.Equal(t, 1, f.repo.statsCalls)

	_, err = f.svc.MarkFullyPaid(ctx, first.ID, owner)
	require.NoError(t, err)
	got = f.svc.Stats(ctx, StatsFilter{}, admin)
	assert.Equal(t, 2, f.repo.statsCalls)
	assert.Equal(t, 1, got.PaidBills)
	assert.Equal(t, "270.00", got.OutstandingAmount.StringFixed(2))
}

func TestStatsDegradeToZero(t *testing.T) {
	ctx := context.Background()
	stats, mr := newStatsCache(t)
	f := newFixture(t, stats)
	_, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)

	f.repo.statsErr = errors.New("column does not exist")
	got := f.svc.Stats(ctx, StatsFilter{ProjectID: 9}, admin)
	assert.Equal(t, 0, got.TotalBills)
	assert.True(t, got.OutstandingAmount.IsZero())

	f.repo.statsErr = nil
	mr.Close()
	got = f.svc.Stats(ctx, StatsFilter{}, admin)
	assert.Equal(t, ZeroStats(), got)
}

var (
	pdfBytes = append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 64)...)
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)
)

func TestAttachFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	bill, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)

	bill, err = f.svc.AttachFile(ctx, bill.ID, Upload{FileName: "invoice.pdf", ContentType: "application/pdf", Data: pdfBytes}, owner)
	require.NoError(t, err)
	require.NotNil(t, bill.Attachment)
	assert.Equal(t, "invoice.pdf", bill.Attachment.FileName)
	assert.Equal(t, int64(len(pdfBytes)), bill.Attachment.Size)
	first := bill.Attachment.Path
	assert.Contains(t, f.files.Objects, first)

	bill, err = f.svc.AttachFile(ctx, bill.ID, Upload{FileName: "../../scan.png", ContentType: "image/png", Data: pngBytes}, owner)
	require.NoError(t, err)
	assert.Equal(t, "scan.png", bill.Attachment.FileName)
	assert.NotContains(t, f.files.Objects, first)
	assert.Len(t, f.files.Objects, 1)
}

func TestAttachFileRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	bill, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)

	cases := map[string]Upload{
		"too large":   {FileName: "big.pdf", ContentType: "application/pdf", Data: append(pdfBytes, make([]byte, MaxAttachmentSize)...)},
		"not allowed": {FileName: "a.txt", ContentType: "text/plain", Data: []byte("hello")},
		"mismatch":    {FileName: "fake.pdf", ContentType: "application/pdf", Data: pngBytes},
		"empty":       {FileName: "e.pdf", ContentType: "application/pdf"},
	}
	for name, up := range cases {
		_, err := f.svc.AttachFile(ctx, bill.ID, up, owner)
		require.ErrorIs(t, err, shared.ErrValidation, name)
	}
	_, err = f.svc.AttachFile(ctx, bill.ID, Upload{FileName: "ok.pdf", ContentType: "application/pdf", Data: pdfBytes}, other)
	require.ErrorIs(t, err, shared.ErrAccessDenied)
	assert.Empty(t, f.files.Objects)
}

func TestRenderPDFUsesStoredTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	bill, err := f.svc.Create(ctx, scenarioRequest(f.vendorID), owner)
	require.NoError(t, err)

	stored := f.repo.bills[bill.ID]
	stored.TotalAmount = decimal.RequireFromString("1234.5")
	f.repo.bills[bill.ID] = stored

	pdf, name, err := f.svc.RenderPDF(ctx, bill.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "BILL-2024-0001.pdf", name)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Contains(t, f.renderer.html, "1,234.50")
	assert.Contains(t, f.renderer.html, "Acme Supplies")
	assert.Contains(t, f.renderer.html, "Steel rods")
}

func TestHandlerPaymentFlow(t *testing.T) {
	f := newFixture(t, nil)
	r := chi.NewRouter()
	r.Use(httpx.ActorMiddleware)
	NewHandler(nil, f.svc).MountRoutes(r)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("X-User-ID", "7")
		req.Header.Set("X-User-Role", "user")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/bills", fmt.Sprintf(`{"vendorId":%d,"items":[{"description":"Rods","quantity":"2","unitPrice":"100","taxPercent":"10"}]}`, f.vendorID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"totalAmount":"220"`)

	rec = do(http.MethodPost, "/bills/1/payments", `{"amount":"500"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/bills/1/mark-paid", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"PAID"`)

	rec = do(http.MethodDelete, "/bills/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodGet, "/bills/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paidBills":1`)

	rec = do(http.MethodGet, "/bills/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
