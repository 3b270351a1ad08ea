package orderbooks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

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

// BuildItems applies order book defaults: GST 18% and discount before tax.
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
		}
	}
	return items, summary, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest, actor shared.Actor) (OrderBook, error) {
	if err := actor.Validate(); err != nil {
		return OrderBook{}, err
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return OrderBook{}, fmt.Errorf("%w: customer name required", shared.ErrValidation)
	}
	items, summary, err := BuildItems(req.Items)
	if err != nil {
		return OrderBook{}, err
	}
	ob := OrderBook{
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerEmail:    req.CustomerEmail,
		OrderDate:        s.now(),
		ExpectedDelivery: req.ExpectedDelivery,
		GroupName:        req.GroupName,
		SubGroupName:     req.SubGroupName,
		ProjectID:        req.ProjectID,
		Subtotal:         summary.Subtotal,
		DiscountAmount:   summary.DiscountAmount,
		TaxAmount:        summary.TaxAmount,
		TotalAmount:      summary.Total,
		Notes:            req.Notes,
		AssignedTo:       req.AssignedTo,
		CreatedBy:        actor.ID,
		Items:            items,
	}
	if req.OrderDate != nil {
		ob.OrderDate = *req.OrderDate
	}
	created, err := s.repo.Create(ctx, ob)
	if err != nil {
		return OrderBook{}, err
	}
	s.logger.Info("order book created", slog.Int64("order_book_id", created.ID), slog.String("code", created.Code))
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64, actor shared.Actor) (OrderBook, error) {
	ob, err := s.repo.Get(ctx, id)
	if err != nil {
		return OrderBook{}, err
	}
	if err := shared.EnsureAccess(ob, actor); err != nil {
		return OrderBook{}, err
	}
	return ob, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, actor shared.Actor) ([]OrderBook, shared.Pagination, error) {
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

// Items returns the rows of a live order book.
func (s *Service) Items(ctx context.Context, id int64, actor shared.Actor) ([]Item, error) {
	ob, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return ob.Items, nil
}

func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}
