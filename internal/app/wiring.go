package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/backoffice/internal/bills"
	"github.com/odyssey-erp/backoffice/internal/events"
	"github.com/odyssey-erp/backoffice/internal/invoices"
	"github.com/odyssey-erp/backoffice/internal/numbering"
	"github.com/odyssey-erp/backoffice/internal/observability"
	"github.com/odyssey-erp/backoffice/internal/orderbooks"
	"github.com/odyssey-erp/backoffice/internal/platform/cache"
	"github.com/odyssey-erp/backoffice/internal/purchasing"
	"github.com/odyssey-erp/backoffice/internal/quotations"
	"github.com/odyssey-erp/backoffice/internal/shared"
	"github.com/odyssey-erp/backoffice/internal/storage"
	"github.com/odyssey-erp/backoffice/internal/vendors"
)

const (
	billStatsNamespace  = "bills:stats"
	defaultBillStatsTTL = 30 * time.Second
)

// Infrastructure carries the process-wide clients the modules are built on.
type Infrastructure struct {
	Config   *Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Files    storage.Store
	Renderer bills.Renderer
	Metrics  *observability.Metrics
}

// Modules holds one service per document type plus the bus connecting them.
type Modules struct {
	Bus        *events.Bus
	Vendors    *vendors.Service
	Quotations *quotations.Service
	Purchasing *purchasing.Service
	Bills      *bills.Service
	Invoices   *invoices.Service
	OrderBooks *orderbooks.Service
}

// Repositories lets callers swap persistence, e.g. in-memory stores in tests.
type Repositories struct {
	Vendors    vendors.Repository
	Quotations quotations.Repository
	Purchasing purchasing.Repository
	Bills      bills.Repository
	Invoices   invoices.Repository
	OrderBooks orderbooks.Repository
}

// PostgresRepositories builds every repository on the pool.
func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	numbers := numbering.NewService()
	return Repositories{
		Vendors:    vendors.NewRepository(pool),
		Quotations: quotations.NewRepository(pool, numbers),
		Purchasing: purchasing.NewRepository(pool, numbers),
		Bills:      bills.NewRepository(pool, numbers),
		Invoices:   invoices.NewRepository(pool, numbers),
		OrderBooks: orderbooks.NewRepository(pool, numbers),
	}
}

// NewModules wires services and registers bus subscribers.
func NewModules(infra Infrastructure, repos Repositories) *Modules {
	logger := infra.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := defaultBillStatsTTL
	if infra.Config != nil && infra.Config.BillStatsTTL > 0 {
		ttl = infra.Config.BillStatsTTL
	}

	bus := events.NewBus(logger.With(slog.String("component", "events")))
	orderBooks := orderbooks.NewService(repos.OrderBooks, logger)
	m := &Modules{
		Bus:        bus,
		Vendors:    vendors.NewService(repos.Vendors, logger),
		Quotations: quotations.NewService(repos.Quotations, logger),
		Purchasing: purchasing.NewService(repos.Purchasing, orderBookItems{orderBooks}, bus, logger),
		Bills: bills.NewService(bills.Dependencies{
			Repo:      repos.Bills,
			Vendors:   repos.Vendors,
			Publisher: bus,
			Stats:     cache.NewVersioned(infra.Redis, billStatsNamespace, ttl),
			Files:     infra.Files,
			Renderer:  infra.Renderer,
			Logger:    logger,
		}),
		Invoices:   invoices.NewService(repos.Invoices, bus, logger),
		OrderBooks: orderBooks,
	}

	m.Quotations.Subscribe(bus)
	infra.Metrics.Subscribe(bus)
	if infra.Pool != nil {
		events.NewAuditTrail(infra.Pool).Subscribe(bus)
	}
	return m
}

// orderBookItems feeds stored order book rows into purchase order creation.
type orderBookItems struct {
	books *orderbooks.Service
}

func (o orderBookItems) PurchaseItems(ctx context.Context, orderBookID int64, actor shared.Actor) ([]purchasing.ItemRequest, error) {
	items, err := o.books.Items(ctx, orderBookID, actor)
	if err != nil {
		return nil, err
	}
	out := make([]purchasing.ItemRequest, 0, len(items))
	for _, it := range items {
		qty, price, tax := it.Quantity, it.UnitPrice, it.TaxPercent
		out = append(out, purchasing.ItemRequest{
			ItemName:        it.ItemName,
			Description:     it.Description,
			Quantity:        &qty,
			UnitPrice:       &price,
			TaxPercent:      &tax,
			DiscountPercent: it.DiscountPercent,
		})
	}
	return out, nil
}
