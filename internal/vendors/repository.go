package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Repository is the vendor directory port.
type Repository interface {
	FindByID(ctx context.Context, id int64) (Vendor, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, v Vendor) (int64, error)
	UpdateContact(ctx context.Context, id int64, req UpdateVendorRequest) error
	List(ctx context.Context, f ListFilter) ([]Vendor, int, error)
}

const vendorColumns = `v.id, v.name, v.email, v.phone, v.category, v.group_name, v.sub_group_name,
	v.provisioned, v.total_orders, v.total_purchase_value, v.last_purchase_amount, v.last_purchase_date,
	v.created_by, v.created_at, v.updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Category, &v.GroupName, &v.SubGroupName,
		&v.Provisioned, &v.TotalOrders, &v.TotalPurchaseValue, &v.LastPurchaseAmount, &v.LastPurchaseDate,
		&v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// FindByID loads a live vendor with q, which may be a pool or a transaction.
func FindByID(ctx context.Context, q db.Querier, id int64) (Vendor, error) {
	w := db.Live("v").Add("v.id = ?", id)
	v, err := scanVendor(q.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors v `+w.SQL(), w.Args()...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, fmt.Errorf("%w: vendor %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Vendor{}, fmt.Errorf("vendors: find %d: %w", id, err)
	}
	return v, nil
}

// FindByEmail loads the live vendor owning email, ignoring case.
func FindByEmail(ctx context.Context, q db.Querier, email string) (Vendor, error) {
	w := db.Live("v").Add("lower(v.email) = lower(?)", strings.TrimSpace(email))
	v, err := scanVendor(q.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors v `+w.SQL(), w.Args()...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, fmt.Errorf("%w: vendor email %s", shared.ErrNotFound, email)
	}
	if err != nil {
		return Vendor{}, fmt.Errorf("vendors: find by email: %w", err)
	}
	return v, nil
}

// Insert stores a new vendor and returns its id.
func Insert(ctx context.Context, q db.Querier, v Vendor) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO vendors (name, email, phone, category, group_name, sub_group_name, provisioned,
			total_orders, total_purchase_value, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, NOW(), NOW())
		RETURNING id`,
		v.Name, v.Email, v.Phone, v.Category, v.GroupName, v.SubGroupName, v.Provisioned, v.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: vendor email %s", shared.ErrDuplicate, v.Email)
		}
		return 0, fmt.Errorf("vendors: insert: %w", err)
	}
	return id, nil
}

// ApplyDelivery records a purchase order delivery against the vendor
// aggregates. The vendor_purchase_events row keyed by purchase order makes the
// update happen at most once per order; applied is false for a repeat.
func ApplyDelivery(ctx context.Context, q db.Querier, d Delivery) (applied bool, err error) {
	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	tag, err := q.Exec(ctx, `
		INSERT INTO vendor_purchase_events (purchase_order_id, vendor_id, amount, occurred_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (purchase_order_id) DO NOTHING`,
		d.PurchaseOrderID, d.VendorID, d.TotalValue, at)
	if err != nil {
		return false, fmt.Errorf("vendors: record delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	tag, err = q.Exec(ctx, `
		UPDATE vendors
		SET total_orders = total_orders + 1,
		    total_purchase_value = total_purchase_value + $2,
		    last_purchase_amount = $2,
		    last_purchase_date = $3,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		d.VendorID, d.TotalValue, at)
	if err != nil {
		return false, fmt.Errorf("vendors: apply delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, fmt.Errorf("%w: vendor %d", shared.ErrNotFound, d.VendorID)
	}
	return true, nil
}

// PgRepository is the PostgreSQL vendor directory.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) FindByID(ctx context.Context, id int64) (Vendor, error) {
	return FindByID(ctx, r.pool, id)
}

func (r *PgRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	w := db.Live("v").Add("v.id = ?", id)
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors v `+w.SQL()+`)`, w.Args()...).Scan(&exists); err != nil {
		return false, fmt.Errorf("vendors: exists %d: %w", id, err)
	}
	return exists, nil
}

func (r *PgRepository) Create(ctx context.Context, v Vendor) (int64, error) {
	return Insert(ctx, r.pool, v)
}

func (r *PgRepository) UpdateContact(ctx context.Context, id int64, req UpdateVendorRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE vendors SET name = $2, email = $3, phone = $4, category = $5, provisioned = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, req.Name, req.Email, req.Phone, req.Category)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: vendor email %s", shared.ErrDuplicate, req.Email)
		}
		return fmt.Errorf("vendors: update %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vendor %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Vendor, int, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	w := db.Live("v").
		AddIf(f.Search != "", "(v.name ILIKE ? OR v.email ILIKE ?)", "%"+f.Search+"%").
		AddIf(f.Category != "", "v.category = ?", f.Category)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vendors v `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("vendors: count: %w", err)
	}

	next := w.Next()
	args := append(w.Args(), perPage, (page-1)*perPage)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM vendors v %s ORDER BY v.name, v.id LIMIT $%d OFFSET $%d`,
		vendorColumns, w.SQL(), next, next+1), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("vendors: list: %w", err)
	}
	defer rows.Close()

	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("vendors: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}
