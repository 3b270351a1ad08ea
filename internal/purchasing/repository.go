package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/numbering"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/quotations"
	"github.com/odyssey-erp/backoffice/internal/shared"
	"github.com/odyssey-erp/backoffice/internal/vendors"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, f ListFilter) ([]PurchaseOrder, int, error)
}

// TxRepository spans the purchase order tables plus the quotation and vendor
// rows a conversion or delivery touches, so each operation commits atomically.
type TxRepository interface {
	NextCode(ctx context.Context, year int) (string, error)
	Lock(ctx context.Context, id int64) (PurchaseOrder, error)
	Insert(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertItems(ctx context.Context, poID int64, items []Item) error
	UpdateHeader(ctx context.Context, po PurchaseOrder) error
	SetDelivered(ctx context.Context, itemID int64, qty decimal.Decimal) error
	SoftDelete(ctx context.Context, id, actorID int64) error

	LockQuotation(ctx context.Context, id int64) (quotations.Quotation, error)
	CountByQuotation(ctx context.Context, quotationID int64) (int, error)
	SetQuotationVendor(ctx context.Context, quotationID, vendorID int64) error

	GetVendor(ctx context.Context, id int64) (vendors.Vendor, error)
	FindVendorByEmail(ctx context.Context, email string) (vendors.Vendor, error)
	CreateVendor(ctx context.Context, v vendors.Vendor) (int64, error)
	ApplyVendorDelivery(ctx context.Context, d vendors.Delivery) (bool, error)
}

// quotationLiveIndex keeps one live purchase order per quotation even when two
// conversions race past CountByQuotation.
const quotationLiveIndex = "purchase_orders_quotation_live_uq"

const headerColumns = `p.id, p.code, p.quotation_id, p.order_book_id, p.vendor_id, p.rfq_id, p.delivery_terms,
	p.payment_terms, p.category, p.group_name, p.sub_group_name, p.project_id, p.status, p.subtotal,
	p.discount_amount, p.tax_amount, p.total_value, p.total_items_ordered, p.total_items_delivered,
	p.expected_delivery, p.delivered_at, p.approved_by, p.approved_at, p.notes, p.assigned_to,
	p.created_by, p.created_at, p.updated_by, p.updated_at`

func scanHeader(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Code, &po.QuotationID, &po.OrderBookID, &po.VendorID, &po.RFQID, &po.DeliveryTerms,
		&po.PaymentTerms, &po.Category, &po.GroupName, &po.SubGroupName, &po.ProjectID, &po.Status, &po.Subtotal,
		&po.DiscountAmount, &po.TaxAmount, &po.TotalValue, &po.TotalItemsOrdered, &po.TotalItemsDelivered,
		&po.ExpectedDelivery, &po.DeliveredAt, &po.ApprovedBy, &po.ApprovedAt, &po.Notes, &po.AssignedTo,
		&po.CreatedBy, &po.CreatedAt, &po.UpdatedBy, &po.UpdatedAt)
	return po, err
}

func loadItems(ctx context.Context, q db.Querier, poID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, purchase_order_id, line_no, item_name, description, quantity, unit_price, tax_percent,
		       discount_percent, subtotal, discount_amount, tax_amount, line_total, delivered_qty
		FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY line_no, id`, poID)
	if err != nil {
		return nil, fmt.Errorf("purchasing: load items: %w", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.LineNo, &it.ItemName, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.TaxPercent, &it.DiscountPercent, &it.Subtotal, &it.DiscountAmount, &it.TaxAmount,
			&it.LineTotal, &it.DeliveredQty); err != nil {
			return nil, fmt.Errorf("purchasing: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func find(ctx context.Context, q db.Querier, id int64, forUpdate bool) (PurchaseOrder, error) {
	w := db.Live("p").Add("p.id = ?", id)
	sql := `SELECT ` + headerColumns + ` FROM purchase_orders p ` + w.SQL()
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	po, err := scanHeader(q.QueryRow(ctx, sql, w.Args()...))
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("purchasing: get %d: %w", id, err)
	}
	if po.Items, err = loadItems(ctx, q, id); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

type pgRepository struct {
	pool    *pgxpool.Pool
	numbers *numbering.Service
}

func NewRepository(pool *pgxpool.Pool, numbers *numbering.Service) Repository {
	return &pgRepository{pool: pool, numbers: numbers}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, numbers: r.numbers})
	})
}

func (r *pgRepository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return find(ctx, r.pool, id, false)
}

func (r *pgRepository) List(ctx context.Context, f ListFilter) ([]PurchaseOrder, int, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	w := db.Live("p").
		AddIf(f.Status != "", "p.status = ?", string(f.Status)).
		AddIf(f.VendorID > 0, "p.vendor_id = ?", f.VendorID).
		AddIf(f.QuotationID > 0, "p.quotation_id = ?", f.QuotationID).
		AddIf(f.GroupName != "", "p.group_name = ?", f.GroupName).
		AddIf(f.SubGroupName != "", "p.sub_group_name = ?", f.SubGroupName).
		AddIf(f.ProjectID > 0, "p.project_id = ?", f.ProjectID).
		AddIf(f.Search != "", "p.code ILIKE ?", "%"+f.Search+"%").
		AddIf(f.OwnerID > 0, "(p.created_by = ? OR p.assigned_to = ?)", f.OwnerID)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders p `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("purchasing: count: %w", err)
	}
	next := w.Next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM purchase_orders p %s ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`,
		headerColumns, w.SQL(), next, next+1), append(w.Args(), perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, fmt.Errorf("purchasing: list: %w", err)
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanHeader(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("purchasing: scan: %w", err)
		}
		out = append(out, po)
	}
	return out, total, rows.Err()
}

type pgTx struct {
	tx      pgx.Tx
	numbers *numbering.Service
}

func (t *pgTx) NextCode(ctx context.Context, year int) (string, error) {
	return t.numbers.Next(ctx, t.tx, numbering.PurchaseOrder, year)
}

func (t *pgTx) Lock(ctx context.Context, id int64) (PurchaseOrder, error) {
	return find(ctx, t.tx, id, true)
}

func (t *pgTx) Insert(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (code, quotation_id, order_book_id, vendor_id, rfq_id, delivery_terms,
			payment_terms, category, group_name, sub_group_name, project_id, status, subtotal, discount_amount,
			tax_amount, total_value, total_items_ordered, total_items_delivered, expected_delivery, notes,
			assigned_to, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, NOW(), NOW())
		RETURNING id`,
		po.Code, po.QuotationID, po.OrderBookID, po.VendorID, po.RFQID, po.DeliveryTerms,
		po.PaymentTerms, po.Category, po.GroupName, po.SubGroupName, po.ProjectID, string(po.Status), po.Subtotal, po.DiscountAmount,
		po.TaxAmount, po.TotalValue, po.TotalItemsOrdered, po.TotalItemsDelivered, po.ExpectedDelivery, po.Notes,
		po.AssignedTo, po.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolationOn(err, quotationLiveIndex) {
			return 0, fmt.Errorf("%w: quotation %d already converted", shared.ErrValidation, *po.QuotationID)
		}
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: purchase order code %s", shared.ErrDuplicate, po.Code)
		}
		return 0, fmt.Errorf("purchasing: insert: %w", err)
	}
	return id, nil
}

func (t *pgTx) InsertItems(ctx context.Context, poID int64, items []Item) error {
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO purchase_order_items (purchase_order_id, line_no, item_name, description, quantity, unit_price,
				tax_percent, discount_percent, subtotal, discount_amount, tax_amount, line_total, delivered_qty)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			poID, it.LineNo, it.ItemName, it.Description, it.Quantity, it.UnitPrice,
			it.TaxPercent, it.DiscountPercent, it.Subtotal, it.DiscountAmount, it.TaxAmount, it.LineTotal, it.DeliveredQty); err != nil {
			return fmt.Errorf("purchasing: insert item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) UpdateHeader(ctx context.Context, po PurchaseOrder) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE purchase_orders SET vendor_id = $2, status = $3, total_items_ordered = $4, total_items_delivered = $5,
			delivered_at = $6, approved_by = $7, approved_at = $8, notes = $9, assigned_to = $10,
			updated_by = $11, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		po.ID, po.VendorID, string(po.Status), po.TotalItemsOrdered, po.TotalItemsDelivered,
		po.DeliveredAt, po.ApprovedBy, po.ApprovedAt, po.Notes, po.AssignedTo, po.UpdatedBy)
	if err != nil {
		return fmt.Errorf("purchasing: update %d: %w", po.ID, err)
	}
	return nil
}

func (t *pgTx) SetDelivered(ctx context.Context, itemID int64, qty decimal.Decimal) error {
	if _, err := t.tx.Exec(ctx, `UPDATE purchase_order_items SET delivered_qty = $2 WHERE id = $1`, itemID, qty); err != nil {
		return fmt.Errorf("purchasing: set delivered: %w", err)
	}
	return nil
}

func (t *pgTx) SoftDelete(ctx context.Context, id, actorID int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE purchase_orders SET status = $3, deleted_at = NOW(), updated_by = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, actorID, string(StatusCancelled))
	if err != nil {
		return fmt.Errorf("purchasing: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	return nil
}

func (t *pgTx) LockQuotation(ctx context.Context, id int64) (quotations.Quotation, error) {
	return quotations.LockForUpdate(ctx, t.tx, id)
}

func (t *pgTx) CountByQuotation(ctx context.Context, quotationID int64) (int, error) {
	w := db.Live("p").Add("p.quotation_id = ?", quotationID)
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders p `+w.SQL(), w.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("purchasing: count by quotation: %w", err)
	}
	return n, nil
}

func (t *pgTx) SetQuotationVendor(ctx context.Context, quotationID, vendorID int64) error {
	return quotations.SetVendor(ctx, t.tx, quotationID, vendorID)
}

func (t *pgTx) GetVendor(ctx context.Context, id int64) (vendors.Vendor, error) {
	return vendors.FindByID(ctx, t.tx, id)
}

func (t *pgTx) FindVendorByEmail(ctx context.Context, email string) (vendors.Vendor, error) {
	return vendors.FindByEmail(ctx, t.tx, email)
}

func (t *pgTx) CreateVendor(ctx context.Context, v vendors.Vendor) (int64, error) {
	return vendors.Insert(ctx, t.tx, v)
}

func (t *pgTx) ApplyVendorDelivery(ctx context.Context, d vendors.Delivery) (bool, error) {
	return vendors.ApplyDelivery(ctx, t.tx, d)
}
