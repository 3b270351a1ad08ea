package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/events"
	"github.com/odyssey-erp/backoffice/internal/lineitem"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// BuildItems applies invoice defaults: no default tax, discount before tax.
func BuildItems(reqs []ItemRequest) ([]Item, lineitem.Summary, error) {
	if len(reqs) == 0 {
		return nil, lineitem.Summary{}, fmt.Errorf("%w: at least one item required", shared.ErrValidation)
	}
	inputs := make([]lineitem.Input, len(reqs))
	for i, r := range reqs {
		if strings.TrimSpace(r.Description) == "" {
			return nil, lineitem.Summary{}, fmt.Errorf("%w: line %d: description required", shared.ErrValidation, i+1)
		}
		inputs[i] = lineitem.Input{Quantity: r.Quantity, UnitPrice: r.UnitPrice, TaxPercent: r.TaxPercent, DiscountPercent: r.DiscountPercent}
	}
	resolved, results, summary := lineitem.Compute(inputs, lineitem.NoTax, lineitem.WithDiscount)
	if err := lineitem.ValidateAll(resolved); err != nil {
		return nil, lineitem.Summary{}, err
	}
	items := make([]Item, len(reqs))
	for i, r := range reqs {
		items[i] = Item{
			LineNo:          i + 1,
			Description:     strings.TrimSpace(r.Description),
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

func (s *Service) Create(ctx context.Context, req CreateRequest, actor shared.Actor) (Invoice, error) {
	if err := actor.Validate(); err != nil {
		return Invoice{}, err
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return Invoice{}, fmt.Errorf("%w: customer name required", shared.ErrValidation)
	}
	items, summary, err := BuildItems(req.Items)
	if err != nil {
		return Invoice{}, err
	}
	inv := Invoice{
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerEmail:  req.CustomerEmail,
		OrderBookID:    req.OrderBookID,
		InvoiceDate:    s.now(),
		DueDate:        req.DueDate,
		Status:         StatusDraft,
		Subtotal:       summary.Subtotal,
		DiscountAmount: summary.DiscountAmount,
		TaxAmount:      summary.TaxAmount,
		TotalAmount:    summary.Total,
		PaidAmount:     decimal.Zero,
		Notes:          req.Notes,
		AssignedTo:     req.AssignedTo,
		CreatedBy:      actor.ID,
		Items:          items,
	}
	if req.InvoiceDate != nil {
		inv.InvoiceDate = *req.InvoiceDate
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		code, err := tx.NextCode(ctx, inv.InvoiceDate.Year())
		if err != nil {
			return err
		}
		inv.Code = code
		if inv.ID, err = tx.Insert(ctx, inv); err != nil {
			return err
		}
		return tx.InsertItems(ctx, inv.ID, items)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.logger.Info("invoice created", slog.Int64("invoice_id", inv.ID), slog.String("code", inv.Code))
	return s.repo.Get(ctx, inv.ID)
}

func (s *Service) Get(ctx context.Context, id int64, actor shared.Actor) (Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if err := shared.EnsureAccess(inv, actor); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, actor shared.Actor) ([]Invoice, shared.Pagination, error) {
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

func (s *Service) lock(ctx context.Context, tx TxRepository, id int64, actor shared.Actor) (Invoice, error) {
	inv, err := tx.Lock(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if err := shared.EnsureAccess(inv, actor); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Send moves a draft invoice to SENT.
func (s *Service) Send(ctx context.Context, id int64, actor shared.Actor) (Invoice, error) {
	if err := actor.Validate(); err != nil {
		return Invoice{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := s.lock(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return fmt.Errorf("%w: invoice %s is %s, not DRAFT", shared.ErrInvalidState, inv.Code, inv.Status)
		}
		now := s.now()
		inv.Status = StatusSent
		inv.SentAt = &now
		inv.UpdatedBy = &actor.ID
		return tx.UpdateHeader(ctx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	return s.repo.Get(ctx, id)
}

// RecordPayment appends a receipt. Amounts must be positive and may not
// exceed the outstanding balance, the same rule bills follow.
func (s *Service) RecordPayment(ctx context.Context, id int64, req PaymentRequest, actor shared.Actor) (Invoice, error) {
	if err := actor.Validate(); err != nil {
		return Invoice{}, err
	}
	amount := lineitem.Round2(req.Amount)
	if !amount.IsPositive() {
		return Invoice{}, fmt.Errorf("%w: payment amount must be at least 0.01", shared.ErrValidation)
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return Invoice{}, fmt.Errorf("%w: payment method required", shared.ErrValidation)
	}
	var (
		inv     Invoice
		payment PaymentHistory
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if inv, err = s.lock(ctx, tx, id, actor); err != nil {
			return err
		}
		if inv.Status == StatusPaid {
			return fmt.Errorf("%w: invoice %s is already paid", shared.ErrValidation, inv.Code)
		}
		if amount.GreaterThan(inv.Balance()) {
			return fmt.Errorf("%w: payment exceeds balance (%s outstanding)", shared.ErrValidation, inv.Balance().StringFixed(2))
		}
		payment = PaymentHistory{
			InvoiceID:      id,
			Amount:         amount,
			PaymentDate:    s.now(),
			PaymentMethod:  method,
			TransactionRef: req.TransactionRef,
			Notes:          req.Notes,
			RecordedBy:     actor.ID,
		}
		if req.PaymentDate != nil {
			payment.PaymentDate = *req.PaymentDate
		}
		if payment.ID, err = tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		inv.PaidAmount = inv.PaidAmount.Add(amount)
		inv.Status = statusAfterPayment(inv.Status, inv.PaidAmount, inv.TotalAmount)
		inv.UpdatedBy = &actor.ID
		return tx.UpdateHeader(ctx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.logger.Info("invoice payment recorded",
		slog.Int64("invoice_id", id), slog.String("amount", payment.Amount.StringFixed(2)), slog.String("status", string(inv.Status)))
	if s.publisher != nil {
		s.publisher.Publish(ctx, events.PaymentRecorded{
			Ledger:     events.LedgerInvoice,
			DocumentID: id,
			PaymentID:  payment.ID,
			Amount:     payment.Amount,
			At:         payment.PaymentDate,
		})
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) PaymentHistory(ctx context.Context, id int64, actor shared.Actor) ([]PaymentHistory, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.repo.PaymentHistory(ctx, id)
}

// Delete soft deletes an invoice that has not received any payment.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := s.lock(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		if inv.PaidAmount.IsPositive() {
			return fmt.Errorf("%w: invoice %s has payments", shared.ErrValidation, inv.Code)
		}
		return tx.SoftDelete(ctx, id, actor.ID)
	})
}
