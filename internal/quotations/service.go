package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/backoffice/internal/events"
	"github.com/odyssey-erp/backoffice/internal/lineitem"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// BuildItems applies the quotation defaults (GST 18%, discount before tax) and
// returns persisted item rows with the document summary.
func BuildItems(reqs []ItemRequest) ([]Item, lineitem.Summary, error) {
	inputs := make([]lineitem.Input, len(reqs))
	for i, r := range reqs {
		if strings.TrimSpace(r.ItemName) == "" {
			return nil, lineitem.Summary{}, fmt.Errorf("%w: line %d: item name required", shared.ErrValidation, i+1)
		}
		inputs[i] = lineitem.Input{Quantity: r.Quantity, UnitPrice: r.UnitPrice, TaxPercent: r.TaxPercent, DiscountPercent: r.DiscountPercent}
	}
	resolved, results, summary := lineitem.Compute(inputs, lineitem.GST, lineitem.WithDiscount)
	if err := lineitem.ValidateAll(resolved); err != nil {
		return nil, lineitem.Summary{}, err
	}
	items := make([]Item, len(reqs))
	for i, r := range reqs {
		items[i] = Item{
			LineNo:          i + 1,
			ItemName:        strings.TrimSpace(r.ItemName),
			Description:     r.Description,
			Quantity:        resolved[i].Quantity,
			UnitPrice:       resolved[i].UnitPrice,
			TaxPercent:      resolved[i].TaxPercent,
			DiscountPercent: resolved[i].DiscountPercent,
			Subtotal:        results[i].Subtotal,
			DiscountAmount:  results[i].DiscountAmount,
			TaxAmount:       results[i].TaxAmount,
			LineTotal:       results[i].LineTotal,
		}
	}
	return items, summary, nil
}

func applySummary(q *Quotation, s lineitem.Summary) {
	q.Subtotal = s.Subtotal
	q.DiscountAmount = s.DiscountAmount
	q.TaxAmount = s.TaxAmount
	q.TotalAmount = s.Total
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// hasVendorReference accepts a vendor id or contact fields that can later
// provision or match a vendor.
func hasVendorReference(vendorID *int64, vendorName, vendorEmail *string) bool {
	return vendorID != nil || present(vendorName) || present(vendorEmail)
}

func (s *Service) Create(ctx context.Context, req CreateRequest, actor shared.Actor) (Quotation, error) {
	if err := actor.Validate(); err != nil {
		return Quotation{}, err
	}
	if !hasVendorReference(req.VendorID, req.VendorName, req.VendorEmail) {
		return Quotation{}, fmt.Errorf("%w: vendor reference required", shared.ErrValidation)
	}
	items, summary, err := BuildItems(req.Items)
	if err != nil {
		return Quotation{}, err
	}
	q := Quotation{
		RFQID:         req.RFQID,
		VendorID:      req.VendorID,
		VendorName:    req.VendorName,
		VendorEmail:   req.VendorEmail,
		VendorPhone:   req.VendorPhone,
		Category:      req.Category,
		DeliveryTerms: req.DeliveryTerms,
		PaymentTerms:  req.PaymentTerms,
		GroupName:     req.GroupName,
		SubGroupName:  req.SubGroupName,
		ProjectID:     req.ProjectID,
		Status:        StatusNew,
		ValidTill:     req.ValidTill,
		Notes:         req.Notes,
		AssignedTo:    req.AssignedTo,
		CreatedBy:     actor.ID,
	}
	applySummary(&q, summary)

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		code, err := tx.NextCode(ctx, s.now().Year())
		if err != nil {
			return err
		}
		q.Code = code
		if id, err = tx.Insert(ctx, q); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, id, items)
	})
	if err != nil {
		return Quotation{}, err
	}
	s.logger.Info("quotation created", slog.Int64("quotation_id", id), slog.String("code", q.Code), slog.Int64("actor_id", actor.ID))
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest, actor shared.Actor) (Quotation, error) {
	if err := actor.Validate(); err != nil {
		return Quotation{}, err
	}
	if !hasVendorReference(req.VendorID, req.VendorName, req.VendorEmail) {
		return Quotation{}, fmt.Errorf("%w: vendor reference required", shared.ErrValidation)
	}
	var items []Item
	var summary lineitem.Summary
	if req.Items != nil {
		var err error
		if items, summary, err = BuildItems(*req.Items); err != nil {
			return Quotation{}, err
		}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := shared.EnsureAccess(q, actor); err != nil {
			return err
		}
		if q.Status.Terminal() {
			return fmt.Errorf("%w: quotation %s is %s", shared.ErrInvalidState, q.Code, q.Status)
		}
		q.RFQID, q.VendorID, q.VendorName, q.VendorEmail, q.VendorPhone = req.RFQID, req.VendorID, req.VendorName, req.VendorEmail, req.VendorPhone
		q.Category, q.DeliveryTerms, q.PaymentTerms = req.Category, req.DeliveryTerms, req.PaymentTerms
		q.GroupName, q.SubGroupName, q.ProjectID = req.GroupName, req.SubGroupName, req.ProjectID
		q.ValidTill, q.Notes, q.AssignedTo = req.ValidTill, req.Notes, req.AssignedTo
		q.UpdatedBy = &actor.ID
		if req.Items != nil {
			applySummary(&q, summary)
			if err := tx.ReplaceItems(ctx, id, items); err != nil {
				return err
			}
		}
		return tx.UpdateHeader(ctx, q)
	})
	if err != nil {
		return Quotation{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64, actor shared.Actor) (Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if err := shared.EnsureAccess(q, actor); err != nil {
		return Quotation{}, err
	}
	return q, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, actor shared.Actor) ([]Quotation, shared.Pagination, error) {
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

// ChangeStatus applies a manual transition.
func (s *Service) ChangeStatus(ctx context.Context, id int64, req StatusRequest, actor shared.Actor) (Quotation, error) {
	if err := actor.Validate(); err != nil {
		return Quotation{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := shared.EnsureAccess(q, actor); err != nil {
			return err
		}
		if !CanTransition(q.Status, req.Status) {
			return fmt.Errorf("%w: quotation %s cannot move from %s to %s", shared.ErrInvalidState, q.Code, q.Status, req.Status)
		}
		now := s.now()
		switch req.Status {
		case StatusApproved:
			q.ApprovedBy = &actor.ID
			q.ApprovedAt = &now
		case StatusRejected:
			q.RejectionReason = req.Reason
		}
		q.Status = req.Status
		q.UpdatedBy = &actor.ID
		return tx.UpdateHeader(ctx, q)
	})
	if err != nil {
		return Quotation{}, err
	}
	s.logger.Info("quotation status changed", slog.Int64("quotation_id", id), slog.String("status", string(req.Status)))
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := shared.EnsureAccess(q, actor); err != nil {
			return err
		}
		return tx.SoftDelete(ctx, id, actor.ID)
	})
}

// ExpireSweep expires every quotation whose validity ended before today.
func (s *Service) ExpireSweep(ctx context.Context, today time.Time) (int, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	ids, err := s.repo.ExpireBefore(ctx, day)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.logger.Info("quotations expired", slog.Int("count", len(ids)), slog.Time("before", day))
	}
	return len(ids), nil
}

// LinkPurchaseOrder moves an approved quotation to PO_CREATED. The purchase
// order must be live and converted from this quotation. Linking the same
// purchase order again is a no-op; a different one is rejected.
func (s *Service) LinkPurchaseOrder(ctx context.Context, quotationID, poID int64, actor shared.Actor) error {
	if poID <= 0 {
		return fmt.Errorf("%w: purchase order id required", shared.ErrValidation)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Lock(ctx, quotationID)
		if err != nil {
			return err
		}
		if err := shared.EnsureAccess(q, actor); err != nil {
			return err
		}
		if q.POID != nil {
			if *q.POID == poID {
				return nil
			}
			return fmt.Errorf("%w: quotation %s already linked to purchase order %d", shared.ErrValidation, q.Code, *q.POID)
		}
		source, err := tx.PurchaseOrderSource(ctx, poID)
		if err != nil {
			return err
		}
		if source == nil || *source != q.ID {
			return fmt.Errorf("%w: purchase order %d was not created from quotation %s", shared.ErrValidation, poID, q.Code)
		}
		if q.Status != StatusApproved {
			return fmt.Errorf("%w: quotation %s is %s, not APPROVED", shared.ErrInvalidState, q.Code, q.Status)
		}
		q.POID = &poID
		q.Status = StatusPOCreated
		if actor.ID > 0 {
			q.UpdatedBy = &actor.ID
		}
		return tx.UpdateHeader(ctx, q)
	})
}

// HandleQuotationConverted is the bus subscriber that links a freshly created
// purchase order back to its quotation.
func (s *Service) HandleQuotationConverted(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.QuotationConverted)
	if !ok {
		return nil
	}
	system := shared.Actor{ID: e.ActorID, Role: shared.RoleSuperAdmin}
	if err := s.LinkPurchaseOrder(ctx, e.QuotationID, e.PurchaseOrderID, system); err != nil {
		return fmt.Errorf("link quotation %d to purchase order %d: %w", e.QuotationID, e.PurchaseOrderID, err)
	}
	s.logger.Info("quotation linked", slog.Int64("quotation_id", e.QuotationID), slog.Int64("purchase_order_id", e.PurchaseOrderID))
	return nil
}

// Subscribe registers the quotation linker on the bus.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.NameQuotationConverted, s.HandleQuotationConverted)
}
