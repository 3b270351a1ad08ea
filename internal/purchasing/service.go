package purchasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/events"
	"github.com/odyssey-erp/backoffice/internal/lineitem"
	"github.com/odyssey-erp/backoffice/internal/quotations"
	"github.com/odyssey-erp/backoffice/internal/shared"
	"github.com/odyssey-erp/backoffice/internal/vendors"
)

// OrderBookSource resolves the rows of a stored order book.
type OrderBookSource interface {
	PurchaseItems(ctx context.Context, orderBookID int64, actor shared.Actor) ([]ItemRequest, error)
}

type Service struct {
	repo       Repository
	orderBooks OrderBookSource
	publisher  events.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, orderBooks OrderBookSource, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, orderBooks: orderBooks, publisher: publisher, logger: logger, now: time.Now}
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	if s.publisher != nil && len(evts) > 0 {
		s.publisher.Publish(ctx, evts...)
	}
}

// BuildItems applies purchase order defaults (GST 18%, discount before tax).
func BuildItems(reqs []ItemRequest) ([]Item, lineitem.Summary, error) {
	if len(reqs) == 0 {
		return nil, lineitem.Summary{}, fmt.Errorf("%w: at least one item required", shared.ErrValidation)
	}
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
			DeliveredQty:    decimal.Zero,
		}
	}
	return items, summary, nil
}

func fromHeader(h Header, actor shared.Actor) PurchaseOrder {
	return PurchaseOrder{
		DeliveryTerms:    h.DeliveryTerms,
		PaymentTerms:     h.PaymentTerms,
		Category:         h.Category,
		GroupName:        h.GroupName,
		SubGroupName:     h.SubGroupName,
		ProjectID:        h.ProjectID,
		ExpectedDelivery: h.ExpectedDelivery,
		Notes:            h.Notes,
		AssignedTo:       h.AssignedTo,
		Status:           StatusDraft,
		CreatedBy:        actor.ID,
	}
}

func applySummary(po *PurchaseOrder, s lineitem.Summary) {
	po.Subtotal = s.Subtotal
	po.DiscountAmount = s.DiscountAmount
	po.TaxAmount = s.TaxAmount
	po.TotalValue = s.Total
	po.RecountItems()
}

// insert stores po and its items inside tx.
func (s *Service) insert(ctx context.Context, tx TxRepository, po *PurchaseOrder) error {
	code, err := tx.NextCode(ctx, s.now().Year())
	if err != nil {
		return err
	}
	po.Code = code
	id, err := tx.Insert(ctx, *po)
	if err != nil {
		return err
	}
	po.ID = id
	return tx.InsertItems(ctx, id, po.Items)
}

// Create stores a manual purchase order.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor shared.Actor) (PurchaseOrder, error) {
	if err := actor.Validate(); err != nil {
		return PurchaseOrder{}, err
	}
	items, summary, err := BuildItems(req.Items)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po := fromHeader(req.Header, actor)
	po.VendorID = req.VendorID
	po.Items = items
	applySummary(&po, summary)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetVendor(ctx, req.VendorID); err != nil {
			return err
		}
		return s.insert(ctx, tx, &po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.logger.Info("purchase order created", slog.Int64("purchase_order_id", po.ID), slog.String("code", po.Code))
	return s.repo.Get(ctx, po.ID)
}

// CreateFromOrderBook stores a purchase order built from order book rows
// without a quotation.
func (s *Service) CreateFromOrderBook(ctx context.Context, req FromOrderBookRequest, actor shared.Actor) (PurchaseOrder, error) {
	if err := actor.Validate(); err != nil {
		return PurchaseOrder{}, err
	}
	rows := req.Items
	if len(rows) == 0 && req.OrderBookID != nil {
		if s.orderBooks == nil {
			return PurchaseOrder{}, fmt.Errorf("%w: order book lookup unavailable", shared.ErrValidation)
		}
		var err error
		if rows, err = s.orderBooks.PurchaseItems(ctx, *req.OrderBookID, actor); err != nil {
			return PurchaseOrder{}, err
		}
	}
	items, summary, err := BuildItems(rows)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po := fromHeader(req.Header, actor)
	po.VendorID = req.VendorID
	po.OrderBookID = req.OrderBookID
	po.Items = items
	applySummary(&po, summary)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetVendor(ctx, req.VendorID); err != nil {
			return err
		}
		return s.insert(ctx, tx, &po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.logger.Info("purchase order created from order book", slog.Int64("purchase_order_id", po.ID), slog.String("code", po.Code))
	return s.repo.Get(ctx, po.ID)
}

// CreateFromQuotation converts an approved quotation. A missing or dangling
// vendor reference is repaired by matching the quotation's vendor email or by
// provisioning a vendor from its contact fields. The quotation is linked after commit through
// events.QuotationConverted.
func (s *Service) CreateFromQuotation(ctx context.Context, quotationID int64, req FromQuotationRequest, actor shared.Actor) (PurchaseOrder, error) {
	if err := actor.Validate(); err != nil {
		return PurchaseOrder{}, err
	}
	var po PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		quo, err := tx.LockQuotation(ctx, quotationID)
		if err != nil {
			return err
		}
		if err := shared.EnsureAccess(quo, actor); err != nil {
			return err
		}
		if quo.POID != nil {
			return fmt.Errorf("%w: quotation %s already linked to purchase order %d", shared.ErrValidation, quo.Code, *quo.POID)
		}
		if quo.Status != quotations.StatusApproved {
			return fmt.Errorf("%w: quotation %s is %s, not APPROVED", shared.ErrInvalidState, quo.Code, quo.Status)
		}
		existing, err := tx.CountByQuotation(ctx, quotationID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: quotation %s already converted", shared.ErrValidation, quo.Code)
		}
		if len(quo.Items) == 0 {
			return fmt.Errorf("%w: quotation %s has no items", shared.ErrValidation, quo.Code)
		}

		vendorID, err := s.resolveVendor(ctx, tx, quo, actor)
		if err != nil {
			return err
		}

		po = PurchaseOrder{
			QuotationID:      &quo.ID,
			VendorID:         vendorID,
			RFQID:            quo.RFQID,
			DeliveryTerms:    quo.DeliveryTerms,
			PaymentTerms:     quo.PaymentTerms,
			Category:         quo.Category,
			GroupName:        quo.GroupName,
			SubGroupName:     quo.SubGroupName,
			ProjectID:        quo.ProjectID,
			Status:           StatusDraft,
			ExpectedDelivery: req.ExpectedDelivery,
			Notes:            req.Notes,
			AssignedTo:       req.AssignedTo,
			CreatedBy:        actor.ID,
		}
		results := make([]lineitem.Result, len(quo.Items))
		po.Items = make([]Item, len(quo.Items))
		for i, qi := range quo.Items {
			po.Items[i] = Item{
				LineNo:          i + 1,
				ItemName:        qi.ItemName,
				Description:     qi.Description,
				Quantity:        qi.Quantity,
				UnitPrice:       qi.UnitPrice,
				TaxPercent:      qi.TaxPercent,
				DiscountPercent: qi.DiscountPercent,
				Subtotal:        qi.Subtotal,
				DiscountAmount:  qi.DiscountAmount,
				TaxAmount:       qi.TaxAmount,
				LineTotal:       qi.LineTotal,
				DeliveredQty:    decimal.Zero,
			}
			results[i] = lineitem.Result{Subtotal: qi.Subtotal, DiscountAmount: qi.DiscountAmount, TaxAmount: qi.TaxAmount, LineTotal: qi.LineTotal}
		}
		applySummary(&po, lineitem.Totals(results))
		return s.insert(ctx, tx, &po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.logger.Info("purchase order created from quotation",
		slog.Int64("purchase_order_id", po.ID), slog.Int64("quotation_id", quotationID), slog.Int64("vendor_id", po.VendorID))
	s.publish(ctx, events.QuotationConverted{
		QuotationID:     quotationID,
		PurchaseOrderID: po.ID,
		VendorID:        po.VendorID,
		ActorID:         actor.ID,
		At:              s.now(),
	})
	return s.repo.Get(ctx, po.ID)
}

func (s *Service) resolveVendor(ctx context.Context, tx TxRepository, quo quotations.Quotation, actor shared.Actor) (int64, error) {
	if quo.VendorID != nil {
		_, err := tx.GetVendor(ctx, *quo.VendorID)
		if err == nil {
			return *quo.VendorID, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return 0, err
		}
		s.logger.Warn("quotation references missing vendor, provisioning",
			slog.Int64("quotation_id", quo.ID), slog.Int64("vendor_id", *quo.VendorID))
	}
	if quo.VendorEmail != nil && strings.TrimSpace(*quo.VendorEmail) != "" {
		known, err := tx.FindVendorByEmail(ctx, *quo.VendorEmail)
		switch {
		case err == nil:
			if err := tx.SetQuotationVendor(ctx, quo.ID, known.ID); err != nil {
				return 0, err
			}
			s.logger.Info("quotation vendor matched by email", slog.Int64("vendor_id", known.ID), slog.Int64("quotation_id", quo.ID))
			return known.ID, nil
		case !errors.Is(err, shared.ErrNotFound):
			return 0, err
		}
	}
	in := vendors.ProvisionInput{
		QuotationCode: quo.Code,
		Phone:         quo.VendorPhone,
		Category:      quo.Category,
		GroupName:     quo.GroupName,
		SubGroupName:  quo.SubGroupName,
		ActorID:       actor.ID,
	}
	if quo.VendorName != nil {
		in.Name = *quo.VendorName
	}
	if quo.VendorEmail != nil {
		in.Email = *quo.VendorEmail
	}
	id, err := tx.CreateVendor(ctx, vendors.NewProvisioned(in))
	if err != nil {
		return 0, err
	}
	if err := tx.SetQuotationVendor(ctx, quo.ID, id); err != nil {
		return 0, err
	}
	s.logger.Info("vendor provisioned from quotation", slog.Int64("vendor_id", id), slog.Int64("quotation_id", quo.ID))
	return id, nil
}

func (s *Service) Get(ctx context.Context, id int64, actor shared.Actor) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := shared.EnsureAccess(po, actor); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, actor shared.Actor) ([]PurchaseOrder, shared.Pagination, error) {
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

// deliver moves po to DELIVERED and applies vendor statistics. The vendor
// ledger inside tx guarantees at most one application per order.
func (s *Service) deliver(ctx context.Context, tx TxRepository, po *PurchaseOrder) (*events.PurchaseOrderDelivered, error) {
	now := s.now()
	po.Status = StatusDelivered
	po.DeliveredAt = &now
	applied, err := tx.ApplyVendorDelivery(ctx, vendors.Delivery{
		PurchaseOrderID: po.ID,
		VendorID:        po.VendorID,
		TotalValue:      po.TotalValue,
		At:              now,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logger.Warn("vendor statistics already applied", slog.Int64("purchase_order_id", po.ID))
		return nil, nil
	}
	return &events.PurchaseOrderDelivered{
		PurchaseOrderID: po.ID,
		Code:            po.Code,
		VendorID:        po.VendorID,
		TotalValue:      po.TotalValue,
		At:              now,
	}, nil
}

// UpdateStatus applies a status change. Re-delivering a delivered order is a
// no-op.
func (s *Service) UpdateStatus(ctx context.Context, id int64, target Status, actor shared.Actor) (PurchaseOrder, error) {
	if err := actor.Validate(); err != nil {
		return PurchaseOrder{}, err
	}
	if !target.Valid() {
		return PurchaseOrder{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, target)
	}
	var delivered *events.PurchaseOrderDelivered
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := shared.EnsureAccess(po, actor); err != nil {
			return err
		}
		previous := po.Status
		if previous == StatusDelivered && target == StatusDelivered {
			return nil
		}
		if !CanTransition(previous, target) {
			return fmt.Errorf("%w: purchase order %s cannot move from %s to %s", shared.ErrInvalidState, po.Code, previous, target)
		}
		po.Status = target
		po.UpdatedBy = &actor.ID
		switch target {
		case StatusApproved:
			now := s.now()
			po.ApprovedBy = &actor.ID
			po.ApprovedAt = &now
		case StatusDelivered:
			if delivered, err = s.deliver(ctx, tx, &po); err != nil {
				return err
			}
		}
		return tx.UpdateHeader(ctx, po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	if delivered != nil {
		s.publish(ctx, *delivered)
	}
	return s.repo.Get(ctx, id)
}

// MarkItemDelivered records a delivered quantity for one item. When every item
// is fully delivered the order becomes DELIVERED.
func (s *Service) MarkItemDelivered(ctx context.Context, poID, itemID int64, qty decimal.Decimal, actor shared.Actor) (PurchaseOrder, error) {
	if err := actor.Validate(); err != nil {
		return PurchaseOrder{}, err
	}
	if qty.IsNegative() {
		return PurchaseOrder{}, fmt.Errorf("%w: delivered quantity must not be negative", shared.ErrValidation)
	}
	var delivered *events.PurchaseOrderDelivered
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.Lock(ctx, poID)
		if err != nil {
			return err
		}
		if err := shared.EnsureAccess(po, actor); err != nil {
			return err
		}
		if po.Status == StatusCancelled {
			return fmt.Errorf("%w: purchase order %s is cancelled", shared.ErrInvalidState, po.Code)
		}
		idx := -1
		for i, it := range po.Items {
			if it.ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: item %d does not belong to purchase order %s", shared.ErrValidation, itemID, po.Code)
		}
		item := &po.Items[idx]
		next := item.DeliveredQty.Add(qty)
		if next.GreaterThan(item.Quantity) {
			return fmt.Errorf("%w: delivering %s of %s exceeds ordered quantity %s (already delivered %s)",
				shared.ErrValidation, qty, item.ItemName, item.Quantity, item.DeliveredQty)
		}
		if !qty.IsZero() {
			item.DeliveredQty = next
			if err := tx.SetDelivered(ctx, item.ID, next); err != nil {
				return err
			}
		}
		po.RecountItems()
		po.UpdatedBy = &actor.ID
		if po.AllDelivered() && po.Status != StatusDelivered {
			if delivered, err = s.deliver(ctx, tx, &po); err != nil {
				return err
			}
		}
		return tx.UpdateHeader(ctx, po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	if delivered != nil {
		s.publish(ctx, *delivered)
	}
	return s.repo.Get(ctx, poID)
}

// Delete cancels and soft deletes an order that has not been delivered.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := shared.EnsureAccess(po, actor); err != nil {
			return err
		}
		if po.Status == StatusDelivered {
			return fmt.Errorf("%w: purchase order %s is delivered", shared.ErrInvalidState, po.Code)
		}
		return tx.SoftDelete(ctx, id, actor.ID)
	})
}
