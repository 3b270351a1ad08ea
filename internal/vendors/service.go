package vendors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Service exposes the vendor directory.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the vendor service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, req CreateVendorRequest, actor shared.Actor) (Vendor, error) {
	if err := actor.Validate(); err != nil {
		return Vendor{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Vendor{}, fmt.Errorf("%w: vendor name required", shared.ErrValidation)
	}
	v := Vendor{
		Name:               name,
		Email:              strings.TrimSpace(req.Email),
		Phone:              req.Phone,
		Category:           req.Category,
		GroupName:          req.GroupName,
		SubGroupName:       req.SubGroupName,
		TotalPurchaseValue: decimal.Zero,
		CreatedBy:          actor.ID,
	}
	id, err := s.repo.Create(ctx, v)
	if err != nil {
		return Vendor{}, err
	}
	s.logger.Info("vendor created", slog.Int64("vendor_id", id), slog.Int64("actor_id", actor.ID))
	return s.repo.FindByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateVendorRequest, actor shared.Actor) (Vendor, error) {
	if err := actor.Validate(); err != nil {
		return Vendor{}, err
	}
	if err := s.repo.UpdateContact(ctx, id, req); err != nil {
		return Vendor{}, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Vendor, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(f.Page, f.PerPage, total), nil
}
