package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/numbering"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Repository is the read side plus the transaction entry point.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Quotation, error)
	List(ctx context.Context, f ListFilter) ([]Quotation, int, error)
	ExpireBefore(ctx context.Context, day time.Time) ([]int64, error)
}

// TxRepository is used inside a transaction.
type TxRepository interface {
	NextCode(ctx context.Context, year int) (string, error)
	Lock(ctx context.Context, id int64) (Quotation, error)
	Insert(ctx context.Context, q Quotation) (int64, error)
	UpdateHeader(ctx context.Context, q Quotation) error
	ReplaceItems(ctx context.Context, quotationID int64, items []Item) error
	SoftDelete(ctx context.Context, id, actorID int64) error
	// PurchaseOrderSource returns the quotation a live purchase order was
	// converted from, nil for orders created without one.
	PurchaseOrderSource(ctx context.Context, poID int64) (*int64, error)
}

const headerColumns = `q.id, q.code, q.rfq_id, q.vendor_id, q.vendor_name, q.vendor_email, q.vendor_phone,
	q.category, q.delivery_terms, q.payment_terms, q.group_name, q.sub_group_name, q.project_id,
	q.status, q.valid_till, q.subtotal, q.discount_amount, q.tax_amount, q.total_amount, q.po_id,
	q.approved_by, q.approved_at, q.rejection_reason, q.notes, q.assigned_to,
	q.created_by, q.created_at, q.updated_by, q.updated_at`

func scanHeader(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.Code, &q.RFQID, &q.VendorID, &q.VendorName, &q.VendorEmail, &q.VendorPhone,
		&q.Category, &q.DeliveryTerms, &q.PaymentTerms, &q.GroupName, &q.SubGroupName, &q.ProjectID,
		&q.Status, &q.ValidTill, &q.Subtotal, &q.DiscountAmount, &q.TaxAmount, &q.TotalAmount, &q.POID,
		&q.ApprovedBy, &q.ApprovedAt, &q.RejectionReason, &q.Notes, &q.AssignedTo,
		&q.CreatedBy, &q.CreatedAt, &q.UpdatedBy, &q.UpdatedAt)
	return q, err
}

func loadItems(ctx context.Context, q db.Querier, quotationID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, quotation_id, line_no, item_name, description, quantity, unit_price, tax_percent,
		       discount_percent, subtotal, discount_amount, tax_amount, line_total
		FROM quotation_items WHERE quotation_id = $1 ORDER BY line_no, id`, quotationID)
	if err != nil {
		return nil, fmt.Errorf("quotations: load items: %w", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.LineNo, &it.ItemName, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.TaxPercent, &it.DiscountPercent, &it.Subtotal, &it.DiscountAmount,
			&it.TaxAmount, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("quotations: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func find(ctx context.Context, q db.Querier, id int64, forUpdate bool) (Quotation, error) {
	w := db.Live("q").Add("q.id = ?", id)
	sql := `SELECT ` + headerColumns + ` FROM quotations q ` + w.SQL()
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	quo, err := scanHeader(q.QueryRow(ctx, sql, w.Args()...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Quotation{}, fmt.Errorf("quotations: get %d: %w", id, err)
	}
	if quo.Items, err = loadItems(ctx, q, id); err != nil {
		return Quotation{}, err
	}
	return quo, nil
}

// LockForUpdate loads a live quotation with its items and holds a row lock
// until the surrounding transaction ends.
func LockForUpdate(ctx context.Context, q db.Querier, id int64) (Quotation, error) {
	return find(ctx, q, id, true)
}

// SetVendor points a quotation at a vendor row.
func SetVendor(ctx context.Context, q db.Querier, id, vendorID int64) error {
	tag, err := q.Exec(ctx, `UPDATE quotations SET vendor_id = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, vendorID)
	if err != nil {
		return fmt.Errorf("quotations: set vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	return nil
}

type pgRepository struct {
	pool    *pgxpool.Pool
	numbers *numbering.Service
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, numbers *numbering.Service) Repository {
	return &pgRepository{pool: pool, numbers: numbers}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, numbers: r.numbers})
	})
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Quotation, error) {
	return find(ctx, r.pool, id, false)
}

func (r *pgRepository) List(ctx context.Context, f ListFilter) ([]Quotation, int, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	w := db.Live("q").
		AddIf(f.Status != "", "q.status = ?", string(f.Status)).
		AddIf(f.VendorID > 0, "q.vendor_id = ?", f.VendorID).
		AddIf(f.GroupName != "", "q.group_name = ?", f.GroupName).
		AddIf(f.SubGroupName != "", "q.sub_group_name = ?", f.SubGroupName).
		AddIf(f.ProjectID > 0, "q.project_id = ?", f.ProjectID).
		AddIf(f.Search != "", "(q.code ILIKE ? OR q.vendor_name ILIKE ?)", "%"+f.Search+"%").
		AddIf(f.OwnerID > 0, "(q.created_by = ? OR q.assigned_to = ?)", f.OwnerID)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations q `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("quotations: count: %w", err)
	}
	next := w.Next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM quotations q %s ORDER BY q.created_at DESC, q.id DESC LIMIT $%d OFFSET $%d`,
		headerColumns, w.SQL(), next, next+1), append(w.Args(), perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, fmt.Errorf("quotations: list: %w", err)
	}
	defer rows.Close()
	var out []Quotation
	for rows.Next() {
		q, err := scanHeader(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("quotations: scan: %w", err)
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

// ExpireBefore moves every live, non-terminal quotation whose validity ended
// before day to EXPIRED. Quotations already converted into a live purchase
// order are left for the linker. Re-running it is a no-op.
func (r *pgRepository) ExpireBefore(ctx context.Context, day time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE quotations q SET status = $2, updated_at = NOW()
		WHERE q.deleted_at IS NULL AND q.valid_till < $1 AND q.status IN ($3, $4, $5)
		  AND q.po_id IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM purchase_orders p
			WHERE p.quotation_id = q.id AND p.deleted_at IS NULL)
		RETURNING q.id`,
		day, string(StatusExpired), string(StatusNew), string(StatusShortlisted), string(StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("quotations: expire: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("quotations: expire: %w", err)
	}
	return ids, nil
}

type pgTx struct {
	tx      pgx.Tx
	numbers *numbering.Service
}

func (t *pgTx) NextCode(ctx context.Context, year int) (string, error) {
	return t.numbers.Next(ctx, t.tx, numbering.Quotation, year)
}

func (t *pgTx) Lock(ctx context.Context, id int64) (Quotation, error) {
	return LockForUpdate(ctx, t.tx, id)
}

func (t *pgTx) Insert(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO quotations (code, rfq_id, vendor_id, vendor_name, vendor_email, vendor_phone, category,
			delivery_terms, payment_terms, group_name, sub_group_name, project_id, status, valid_till,
			subtotal, discount_amount, tax_amount, total_amount, notes, assigned_to, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, NOW(), NOW())
		RETURNING id`,
		q.Code, q.RFQID, q.VendorID, q.VendorName, q.VendorEmail, q.VendorPhone, q.Category,
		q.DeliveryTerms, q.PaymentTerms, q.GroupName, q.SubGroupName, q.ProjectID, string(q.Status), q.ValidTill,
		q.Subtotal, q.DiscountAmount, q.TaxAmount, q.TotalAmount, q.Notes, q.AssignedTo, q.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: quotation code %s", shared.ErrDuplicate, q.Code)
		}
		return 0, fmt.Errorf("quotations: insert: %w", err)
	}
	return id, nil
}

func (t *pgTx) UpdateHeader(ctx context.Context, q Quotation) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE quotations SET rfq_id = $2, vendor_id = $3, vendor_name = $4, vendor_email = $5, vendor_phone = $6,
			category = $7, delivery_terms = $8, payment_terms = $9, group_name = $10, sub_group_name = $11,
			project_id = $12, status = $13, valid_till = $14, subtotal = $15, discount_amount = $16,
			tax_amount = $17, total_amount = $18, po_id = $19, approved_by = $20, approved_at = $21,
			rejection_reason = $22, notes = $23, assigned_to = $24, updated_by = $25, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		q.ID, q.RFQID, q.VendorID, q.VendorName, q.VendorEmail, q.VendorPhone,
		q.Category, q.DeliveryTerms, q.PaymentTerms, q.GroupName, q.SubGroupName,
		q.ProjectID, string(q.Status), q.ValidTill, q.Subtotal, q.DiscountAmount,
		q.TaxAmount, q.TotalAmount, q.POID, q.ApprovedBy, q.ApprovedAt,
		q.RejectionReason, q.Notes, q.AssignedTo, q.UpdatedBy)
	if err != nil {
		return fmt.Errorf("quotations: update %d: %w", q.ID, err)
	}
	return nil
}

func (t *pgTx) ReplaceItems(ctx context.Context, quotationID int64, items []Item) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID); err != nil {
		return fmt.Errorf("quotations: delete items: %w", err)
	}
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO quotation_items (quotation_id, line_no, item_name, description, quantity, unit_price,
				tax_percent, discount_percent, subtotal, discount_amount, tax_amount, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			quotationID, it.LineNo, it.ItemName, it.Description, it.Quantity, it.UnitPrice,
			it.TaxPercent, it.DiscountPercent, it.Subtotal, it.DiscountAmount, it.TaxAmount, it.LineTotal); err != nil {
			return fmt.Errorf("quotations: insert item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) PurchaseOrderSource(ctx context.Context, poID int64) (*int64, error) {
	w := db.Live("p").Add("p.id = ?", poID)
	var quotationID *int64
	err := t.tx.QueryRow(ctx, `SELECT p.quotation_id FROM purchase_orders p `+w.SQL(), w.Args()...).Scan(&quotationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, poID)
	}
	if err != nil {
		return nil, fmt.Errorf("quotations: purchase order %d: %w", poID, err)
	}
	return quotationID, nil
}

func (t *pgTx) SoftDelete(ctx context.Context, id, actorID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE quotations SET deleted_at = NOW(), updated_by = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, actorID)
	if err != nil {
		return fmt.Errorf("quotations: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quotation %d", shared.ErrNotFound, id)
	}
	return nil
}
