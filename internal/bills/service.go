package bills

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/events"
	"github.com/odyssey-erp/backoffice/internal/lineitem"
	"github.com/odyssey-erp/backoffice/internal/platform/cache"
	"github.com/odyssey-erp/backoffice/internal/shared"
	"github.com/odyssey-erp/backoffice/internal/storage"
	"github.com/odyssey-erp/backoffice/internal/vendors"
)

// MaxAttachmentSize is the upload limit for bill attachments.
const MaxAttachmentSize = 5 << 20

var allowedAttachmentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

const systemPaymentMode = "SYSTEM"

// VendorDirectory resolves vendors referenced by bills.
type VendorDirectory interface {
	FindByID(ctx context.Context, id int64) (vendors.Vendor, error)
}

// Renderer turns HTML into a PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Dependencies groups the collaborators of Service. Stats, Files and
// Renderer are optional; the related operations degrade or fail cleanly
// when they are nil.
type Dependencies struct {
	Repo      Repository
	Vendors   VendorDirectory
	Publisher events.Publisher
	Stats     *cache.Versioned
	Files     storage.Store
	Renderer  Renderer
	Logger    *slog.Logger
}

type Service struct {
	repo      Repository
	vendors   VendorDirectory
	publisher events.Publisher
	stats     *cache.Versioned
	files     storage.Store
	renderer  Renderer
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      deps.Repo,
		vendors:   deps.Vendors,
		publisher: deps.Publisher,
		stats:     deps.Stats,
		files:     deps.Files,
		renderer:  deps.Renderer,
		logger:    logger,
		now:       time.Now,
	}
}

// BuildItems applies bill defaults: no default tax and no discount.
func BuildItems(reqs []ItemRequest) ([]Item, lineitem.Summary, error) {
	if len(reqs) == 0 {
		return nil, lineitem.Summary{}, fmt.Errorf("%w: at least one item required", shared.ErrValidation)
	}
	inputs := make([]lineitem.Input, len(reqs))
	for i, r := range reqs {
		if strings.TrimSpace(r.Description) == "" {
			return nil, lineitem.Summary{}, fmt.Errorf("%w: line %d: description required", shared.ErrValidation, i+1)
		}
		inputs[i] = lineitem.Input{Quantity: r.Quantity, UnitPrice: r.UnitPrice, TaxPercent: r.TaxPercent}
	}
	resolved, results, summary := lineitem.Compute(inputs, lineitem.NoTax, lineitem.NoDiscount)
	if err := lineitem.ValidateAll(resolved); err != nil {
		return nil, lineitem.Summary{}, err
	}
	items := make([]Item, len(reqs))
	for i, r := range reqs {
		items[i] = Item{
			LineNo:      i + 1,
			Description: strings.TrimSpace(r.Description),
			Quantity:    resolved[i].Quantity,
			UnitPrice:   resolved[i].UnitPrice,
			TaxPercent:  resolved[i].TaxPercent,
			Subtotal:    results[i].Subtotal,
			TaxAmount:   results[i].TaxAmount,
			LineTotal:   results[i].LineTotal,
		}
	}
	return items, summary, nil
}

func applySummary(b *Bill, s lineitem.Summary) {
	b.Subtotal = s.Subtotal
	b.TaxAmount = s.TaxAmount
	b.TotalAmount = s.Total
	b.Status = DeriveStatus(b.PaidAmount, b.TotalAmount)
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	if s.publisher != nil && len(evts) > 0 {
		s.publisher.Publish(ctx, evts...)
	}
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Bump(ctx); err != nil {
		s.logger.Warn("bill stats invalidation failed", slog.Any("error", err))
	}
}

func (s *Service) knownVendor(ctx context.Context, id int64) (vendors.Vendor, error) {
	v, err := s.vendors.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return vendors.Vendor{}, fmt.Errorf("%w: unknown vendor %d", shared.ErrValidation, id)
	}
	return v, err
}

// Create stores a bill. The header is inserted first so items can reference
// its id, then totals are recomputed from the stored items.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor shared.Actor) (Bill, error) {
	if err := actor.Validate(); err != nil {
		return Bill{}, err
	}
	if req.VendorID <= 0 {
		return Bill{}, fmt.Errorf("%w: vendor is required", shared.ErrValidation)
	}
	items, summary, err := BuildItems(req.Items)
	if err != nil {
		return Bill{}, err
	}
	if _, err := s.knownVendor(ctx, req.VendorID); err != nil {
		return Bill{}, err
	}

	now := s.now()
	b := Bill{
		VendorID:        req.VendorID,
		PurchaseOrderID: req.PurchaseOrderID,
		BillDate:        now,
		DueDate:         req.DueDate,
		GroupName:       req.GroupName,
		SubGroupName:    req.SubGroupName,
		ProjectID:       req.ProjectID,
		Status:          StatusPending,
		Subtotal:        decimal.Zero,
		TaxAmount:       decimal.Zero,
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		Notes:           req.Notes,
		AssignedTo:      req.AssignedTo,
		CreatedBy:       actor.ID,
	}
	if req.BillDate != nil {
		b.BillDate = *req.BillDate
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if b.PurchaseOrderID != nil {
			ok, err := tx.PurchaseOrderExists(ctx, *b.PurchaseOrderID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: unknown purchase order %d", shared.ErrValidation, *b.PurchaseOrderID)
			}
		}
		code, err := tx.NextCode(ctx, b.BillDate.Year())
		if err != nil {
			return err
		}
		taken, err := tx.ExistsByCode(ctx, code)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: bill code %s already exists", shared.ErrValidation, code)
		}
		b.Code = code
		id, err := tx.Insert(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id
		if err := tx.ReplaceItems(ctx, id, items); err != nil {
			return err
		}
		b.Items = items
		applySummary(&b, summary)
		return tx.UpdateHeader(ctx, b)
	})
	if err != nil {
		return Bill{}, err
	}
	s.logger.Info("bill created", slog.Int64("bill_id", b.ID), slog.String("code", b.Code), slog.String("total", b.TotalAmount.StringFixed(2)))
	s.invalidateStats(ctx)
	return s.repo.Get(ctx, b.ID)
}

func (s *Service) Get(ctx context.Context, id int64, actor shared.Actor) (Bill, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if err := shared.EnsureAccess(b, actor); err != nil {
		return Bill{}, err
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, actor shared.Actor) ([]Bill, shared.Pagination, error) {
	if err := actor.Validate(); err != nil {
		return nil, shared.Pagination{}, err
	}
	f.OwnerID = shared.ScopeOwner(actor)
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// lockEditable locks a bill the actor may change. Paid bills are frozen.
func lockEditable(ctx context.Context, tx TxRepository, id int64, actor shared.Actor, verb string) (Bill, error) {
	b, err := tx.Lock(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if err := shared.EnsureAccess(b, actor); err != nil {
		return Bill{}, err
	}
	if b.Status == StatusPaid {
		return Bill{}, fmt.Errorf("%w: cannot %s paid bills", shared.ErrValidation, verb)
	}
	return b, nil
}

// Update patches scalar fields and, when items are supplied, replaces them
// and recomputes totals.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest, actor shared.Actor) (Bill, error) {
	if err := actor.Validate(); err != nil {
		return Bill{}, err
	}
	var (
		items   []Item
		summary lineitem.Summary
	)
	if req.Items != nil {
		var err error
		if items, summary, err = BuildItems(*req.Items); err != nil {
			return Bill{}, err
		}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := lockEditable(ctx, tx, id, actor, "edit")
		if err != nil {
			return err
		}
		if req.BillDate != nil {
			b.BillDate = *req.BillDate
		}
		if req.DueDate != nil {
			b.DueDate = req.DueDate
		}
		if req.Notes != nil {
			b.Notes = req.Notes
		}
		if req.AssignedTo != nil {
			b.AssignedTo = req.AssignedTo
		}
		if req.Items != nil {
			if summary.Total.LessThan(b.PaidAmount) {
				return fmt.Errorf("%w: new total %s is below the paid amount %s",
					shared.ErrValidation, summary.Total.StringFixed(2), b.PaidAmount.StringFixed(2))
			}
			if err := tx.ReplaceItems(ctx, id, items); err != nil {
				return err
			}
			applySummary(&b, summary)
		}
		b.UpdatedBy = &actor.ID
		return tx.UpdateHeader(ctx, b)
	})
	if err != nil {
		return Bill{}, err
	}
	s.invalidateStats(ctx)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockEditable(ctx, tx, id, actor, "delete"); err != nil {
			return err
		}
		return tx.SoftDelete(ctx, id, actor.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("bill deleted", slog.Int64("bill_id", id), slog.Int64("actor_id", actor.ID))
	s.invalidateStats(ctx)
	return nil
}

// AddPayment appends a payment. The bill row stays locked between the
// balance check and the write.
func (s *Service) AddPayment(ctx context.Context, id int64, req PaymentRequest, actor shared.Actor) (Bill, error) {
	if err := actor.Validate(); err != nil {
		return Bill{}, err
	}
	amount := lineitem.Round2(req.Amount)
	if !amount.IsPositive() {
		return Bill{}, fmt.Errorf("%w: payment amount must be at least 0.01", shared.ErrValidation)
	}
	return s.pay(ctx, id, actor, func(b Bill) (Payment, error) {
		if amount.GreaterThan(b.Balance()) {
			return Payment{}, fmt.Errorf("%w: payment exceeds balance (%s outstanding)", shared.ErrValidation, b.Balance().StringFixed(2))
		}
		p := Payment{
			Amount:          amount,
			PaymentDate:     s.now(),
			PaymentMode:     req.PaymentMode,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
		}
		if req.PaymentDate != nil {
			p.PaymentDate = *req.PaymentDate
		}
		return p, nil
	})
}

// MarkFullyPaid settles the remaining balance with a system generated payment.
func (s *Service) MarkFullyPaid(ctx context.Context, id int64, actor shared.Actor) (Bill, error) {
	if err := actor.Validate(); err != nil {
		return Bill{}, err
	}
	return s.pay(ctx, id, actor, func(b Bill) (Payment, error) {
		balance := b.Balance()
		if !balance.IsPositive() {
			return Payment{}, fmt.Errorf("%w: bill %s has no outstanding balance", shared.ErrValidation, b.Code)
		}
		ref := "SYS-" + uuid.NewString()
		return Payment{
			Amount:          balance,
			PaymentDate:     s.now(),
			PaymentMode:     systemPaymentMode,
			ReferenceNumber: &ref,
		}, nil
	})
}

func (s *Service) pay(ctx context.Context, id int64, actor shared.Actor, build func(Bill) (Payment, error)) (Bill, error) {
	var (
		bill    Bill
		payment Payment
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := lockEditable(ctx, tx, id, actor, "pay")
		if err != nil {
			return err
		}
		p, err := build(b)
		if err != nil {
			return err
		}
		p.BillID = id
		p.PaidBy = actor.ID
		if p.ID, err = tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		b.PaidAmount = b.PaidAmount.Add(p.Amount)
		b.Status = DeriveStatus(b.PaidAmount, b.TotalAmount)
		b.UpdatedBy = &actor.ID
		if err := tx.UpdateHeader(ctx, b); err != nil {
			return err
		}
		bill, payment = b, p
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	s.logger.Info("bill payment recorded",
		slog.Int64("bill_id", id), slog.String("amount", payment.Amount.StringFixed(2)), slog.String("status", string(bill.Status)))

	evts := []events.Event{events.PaymentRecorded{
		Ledger:     events.LedgerBill,
		DocumentID: id,
		PaymentID:  payment.ID,
		Amount:     payment.Amount,
		At:         payment.PaymentDate,
	}}
	if bill.Status == StatusPaid {
		evts = append(evts, events.BillPaid{BillID: id, Code: bill.Code, VendorID: bill.VendorID, Total: bill.TotalAmount, At: s.now()})
	}
	s.publish(ctx, evts...)
	s.invalidateStats(ctx)
	return s.repo.Get(ctx, id)
}

func (s *Service) Payments(ctx context.Context, id int64, actor shared.Actor) ([]Payment, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.repo.Payments(ctx, id)
}

// Stats summarises live bills. Failures are logged and reported as zero
// values so dashboards stay available.
func (s *Service) Stats(ctx context.Context, f StatsFilter, actor shared.Actor) Stats {
	if err := actor.Validate(); err != nil {
		return ZeroStats()
	}
	f.OwnerID = shared.ScopeOwner(actor)
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	load := func(ctx context.Context) (any, error) {
		row, err := s.repo.Stats(ctx, f, monthStart)
		if err != nil {
			return nil, err
		}
		return FromRow(row), nil
	}

	var out Stats
	if s.stats == nil {
		v, err := load(ctx)
		if err != nil {
			s.logger.Warn("bill stats failed", slog.Any("error", err))
			return ZeroStats()
		}
		return v.(Stats)
	}
	key, err := s.stats.BuildKey(ctx,
		"p", strconv.FormatInt(f.ProjectID, 10),
		"g", f.GroupName,
		"s", f.SubGroupName,
		"o", strconv.FormatInt(f.OwnerID, 10),
		"m", monthStart.Format("2006-01"))
	if err == nil {
		err = s.stats.FetchJSON(ctx, key, &out, load)
	}
	if err != nil {
		s.logger.Warn("bill stats failed", slog.Any("error", err))
		return ZeroStats()
	}
	return out
}

// AttachFile validates an upload and stores it, replacing any previous
// attachment.
func (s *Service) AttachFile(ctx context.Context, id int64, up Upload, actor shared.Actor) (Bill, error) {
	if err := actor.Validate(); err != nil {
		return Bill{}, err
	}
	if s.files == nil {
		return Bill{}, errors.New("bills: file storage not configured")
	}
	if len(up.Data) == 0 {
		return Bill{}, fmt.Errorf("%w: file is empty", shared.ErrValidation)
	}
	if len(up.Data) > MaxAttachmentSize {
		return Bill{}, fmt.Errorf("%w: file exceeds %d bytes", shared.ErrValidation, MaxAttachmentSize)
	}
	declared := strings.ToLower(strings.TrimSpace(strings.Split(up.ContentType, ";")[0]))
	if !allowedAttachmentTypes[declared] {
		return Bill{}, fmt.Errorf("%w: content type %q not allowed", shared.ErrValidation, up.ContentType)
	}
	if detected := mimetype.Detect(up.Data); !detected.Is(declared) {
		return Bill{}, fmt.Errorf("%w: content is %s, declared %s", shared.ErrValidation, detected.String(), declared)
	}
	if _, err := s.Get(ctx, id, actor); err != nil {
		return Bill{}, err
	}

	name := path.Base(strings.ReplaceAll(up.FileName, "\\", "/"))
	if name == "." || name == "/" {
		name = "attachment"
	}
	key := fmt.Sprintf("bills/%d/%s-%s", id, uuid.NewString(), name)
	stored, err := s.files.Put(ctx, key, declared, bytes.NewReader(up.Data), int64(len(up.Data)))
	if err != nil {
		return Bill{}, fmt.Errorf("bills: store attachment: %w", err)
	}

	var previous string
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if b.Attachment != nil {
			previous = b.Attachment.Path
		}
		b.Attachment = &Attachment{Path: stored, FileName: name, ContentType: declared, Size: int64(len(up.Data))}
		b.UpdatedBy = &actor.ID
		return tx.UpdateHeader(ctx, b)
	})
	if err != nil {
		if derr := s.files.Delete(ctx, stored); derr != nil {
			s.logger.Warn("orphaned bill attachment", slog.String("path", stored), slog.Any("error", derr))
		}
		return Bill{}, err
	}
	if previous != "" && previous != stored {
		if err := s.files.Delete(ctx, previous); err != nil {
			s.logger.Warn("previous bill attachment not removed", slog.String("path", previous), slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

// RenderPDF renders the stored bill. Totals are taken as persisted.
func (s *Service) RenderPDF(ctx context.Context, id int64, actor shared.Actor) ([]byte, string, error) {
	if s.renderer == nil {
		return nil, "", errors.New("bills: pdf renderer not configured")
	}
	b, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, "", err
	}
	v, err := s.vendors.FindByID(ctx, b.VendorID)
	if err != nil {
		return nil, "", err
	}
	html, err := RenderHTML(b, v)
	if err != nil {
		return nil, "", fmt.Errorf("bills: render template: %w", err)
	}
	pdf, err := s.renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, "", fmt.Errorf("bills: render pdf: %w", err)
	}
	return pdf, b.Code + ".pdf", nil
}
