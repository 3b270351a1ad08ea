package bills

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
	Get(ctx context.Context, id int64) (Bill, error)
	List(ctx context.Context, f ListFilter) ([]Bill, int, error)
	Payments(ctx context.Context, billID int64) ([]Payment, error)
	Stats(ctx context.Context, f StatsFilter, monthStart time.Time) (StatsRow, error)
}

// TxRepository is used inside a transaction.
type TxRepository interface {
	NextCode(ctx context.Context, year int) (string, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	PurchaseOrderExists(ctx context.Context, id int64) (bool, error)
	Lock(ctx context.Context, id int64) (Bill, error)
	Insert(ctx context.Context, b Bill) (int64, error)
	ReplaceItems(ctx context.Context, billID int64, items []Item) error
	UpdateHeader(ctx context.Context, b Bill) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	SoftDelete(ctx context.Context, id, actorID int64) error
}

const headerColumns = `b.id, b.code, b.vendor_id, b.purchase_order_id, b.bill_date, b.due_date, b.group_name,
	b.sub_group_name, b.project_id, b.status, b.subtotal, b.tax_amount, b.total_amount, b.paid_amount,
	b.notes, b.attachment_path, b.attachment_name, b.attachment_type, b.attachment_size, b.assigned_to,
	b.created_by, b.created_at, b.updated_by, b.updated_at`

func scanHeader(row pgx.Row) (Bill, error) {
	var b Bill
	var path, name, contentType *string
	var size *int64
	err := row.Scan(&b.ID, &b.Code, &b.VendorID, &b.PurchaseOrderID, &b.BillDate, &b.DueDate, &b.GroupName,
		&b.SubGroupName, &b.ProjectID, &b.Status, &b.Subtotal, &b.TaxAmount, &b.TotalAmount, &b.PaidAmount,
		&b.Notes, &path, &name, &contentType, &size, &b.AssignedTo,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedBy, &b.UpdatedAt)
	if err != nil {
		return Bill{}, err
	}
	if path != nil {
		b.Attachment = &Attachment{Path: *path}
		if name != nil {
			b.Attachment.FileName = *name
		}
		if contentType != nil {
			b.Attachment.ContentType = *contentType
		}
		if size != nil {
			b.Attachment.Size = *size
		}
	}
	return b, nil
}

func loadItems(ctx context.Context, q db.Querier, billID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, bill_id, line_no, description, quantity, unit_price, tax_percent, subtotal, tax_amount, line_total
		FROM bill_items WHERE bill_id = $1 ORDER BY line_no, id`, billID)
	if err != nil {
		return nil, fmt.Errorf("bills: load items: %w", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.BillID, &it.LineNo, &it.Description, &it.Quantity, &it.UnitPrice,
			&it.TaxPercent, &it.Subtotal, &it.TaxAmount, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("bills: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func find(ctx context.Context, q db.Querier, id int64, forUpdate bool) (Bill, error) {
	w := db.Live("b").Add("b.id = ?", id)
	sql := `SELECT ` + headerColumns + ` FROM bills b ` + w.SQL()
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	b, err := scanHeader(q.QueryRow(ctx, sql, w.Args()...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, fmt.Errorf("%w: bill %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Bill{}, fmt.Errorf("bills: get %d: %w", id, err)
	}
	if b.Items, err = loadItems(ctx, q, id); err != nil {
		return Bill{}, err
	}
	return b, nil
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

func (r *pgRepository) Get(ctx context.Context, id int64) (Bill, error) {
	return find(ctx, r.pool, id, false)
}

func listWhere(f ListFilter) *db.Where {
	return db.Live("b").
		AddIf(f.Status != "", "b.status = ?", string(f.Status)).
		AddIf(f.VendorID > 0, "b.vendor_id = ?", f.VendorID).
		AddIf(f.PurchaseOrderID > 0, "b.purchase_order_id = ?", f.PurchaseOrderID).
		AddIf(f.GroupName != "", "b.group_name = ?", f.GroupName).
		AddIf(f.SubGroupName != "", "b.sub_group_name = ?", f.SubGroupName).
		AddIf(f.ProjectID > 0, "b.project_id = ?", f.ProjectID).
		AddIf(f.Search != "", "(b.code ILIKE ? OR b.notes ILIKE ?)", "%"+f.Search+"%").
		AddIf(f.OwnerID > 0, "(b.created_by = ? OR b.assigned_to = ?)", f.OwnerID)
}

func (r *pgRepository) List(ctx context.Context, f ListFilter) ([]Bill, int, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	w := listWhere(f)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bills b `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("bills: count: %w", err)
	}
	next := w.Next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM bills b %s ORDER BY b.bill_date DESC, b.id DESC LIMIT $%d OFFSET $%d`,
		headerColumns, w.SQL(), next, next+1), append(w.Args(), perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, fmt.Errorf("bills: list: %w", err)
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		b, err := scanHeader(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("bills: scan: %w", err)
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Payments(ctx context.Context, billID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.bill_id, p.amount, p.payment_date, p.payment_mode, p.reference_number, p.paid_by, p.notes, p.created_at
		FROM bill_payments p
		JOIN bills b ON b.id = p.bill_id AND b.deleted_at IS NULL
		WHERE p.bill_id = $1
		ORDER BY p.payment_date, p.id`, billID)
	if err != nil {
		return nil, fmt.Errorf("bills: payments: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		var p Payment
		err := row.Scan(&p.ID, &p.BillID, &p.Amount, &p.PaymentDate, &p.PaymentMode, &p.ReferenceNumber, &p.PaidBy, &p.Notes, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("bills: payments: %w", err)
	}
	return out, nil
}

func (r *pgRepository) Stats(ctx context.Context, f StatsFilter, monthStart time.Time) (StatsRow, error) {
	w := db.Live("b").
		AddIf(f.ProjectID > 0, "b.project_id = ?", f.ProjectID).
		AddIf(f.GroupName != "", "b.group_name = ?", f.GroupName).
		AddIf(f.SubGroupName != "", "b.sub_group_name = ?", f.SubGroupName).
		AddIf(f.OwnerID > 0, "(b.created_by = ? OR b.assigned_to = ?)", f.OwnerID)
	n := w.Next()
	var row StatsRow
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(b.total_amount - b.paid_amount) FILTER (WHERE b.status IN ($%d, $%d)), 0),
		       COUNT(*) FILTER (WHERE b.created_at >= $%d),
		       COUNT(*) FILTER (WHERE b.status = $%d),
		       COUNT(*) FILTER (WHERE b.purchase_order_id IS NOT NULL)
		FROM bills b %s`, n, n+1, n+2, n+3, w.SQL()),
		append(w.Args(), string(StatusPending), string(StatusPartiallyPaid), monthStart, string(StatusPaid))...,
	).Scan(&row.Total, &row.Outstanding, &row.ThisMonth, &row.Paid, &row.LinkedToPO)
	if err != nil {
		return StatsRow{}, fmt.Errorf("bills: stats: %w", err)
	}
	return row, nil
}

type pgTx struct {
	tx      pgx.Tx
	numbers *numbering.Service
}

func (t *pgTx) NextCode(ctx context.Context, year int) (string, error) {
	return t.numbers.Next(ctx, t.tx, numbering.Bill, year)
}

func (t *pgTx) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bills WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("bills: code lookup: %w", err)
	}
	return exists, nil
}

func (t *pgTx) PurchaseOrderExists(ctx context.Context, id int64) (bool, error) {
	w := db.Live("po").Add("po.id = ?", id)
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_orders po `+w.SQL()+`)`, w.Args()...).Scan(&exists); err != nil {
		return false, fmt.Errorf("bills: purchase order lookup: %w", err)
	}
	return exists, nil
}

func (t *pgTx) Lock(ctx context.Context, id int64) (Bill, error) {
	return find(ctx, t.tx, id, true)
}

func (t *pgTx) Insert(ctx context.Context, b Bill) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bills (code, vendor_id, purchase_order_id, bill_date, due_date, group_name, sub_group_name,
			project_id, status, subtotal, tax_amount, total_amount, paid_amount, notes, assigned_to,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING id`,
		b.Code, b.VendorID, b.PurchaseOrderID, b.BillDate, b.DueDate, b.GroupName, b.SubGroupName,
		b.ProjectID, string(b.Status), b.Subtotal, b.TaxAmount, b.TotalAmount, b.PaidAmount, b.Notes, b.AssignedTo,
		b.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: bill code %s", shared.ErrDuplicate, b.Code)
		}
		return 0, fmt.Errorf("bills: insert: %w", err)
	}
	return id, nil
}

func (t *pgTx) ReplaceItems(ctx context.Context, billID int64, items []Item) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, billID); err != nil {
		return fmt.Errorf("bills: delete items: %w", err)
	}
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO bill_items (bill_id, line_no, description, quantity, unit_price, tax_percent, subtotal, tax_amount, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			billID, it.LineNo, it.Description, it.Quantity, it.UnitPrice, it.TaxPercent,
			it.Subtotal, it.TaxAmount, it.LineTotal); err != nil {
			return fmt.Errorf("bills: insert item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) UpdateHeader(ctx context.Context, b Bill) error {
	var path, name, contentType *string
	var size *int64
	if a := b.Attachment; a != nil {
		path, name, contentType, size = &a.Path, &a.FileName, &a.ContentType, &a.Size
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE bills SET bill_date = $2, due_date = $3, status = $4, subtotal = $5, tax_amount = $6,
			total_amount = $7, paid_amount = $8, notes = $9, attachment_path = $10, attachment_name = $11,
			attachment_type = $12, attachment_size = $13, assigned_to = $14, updated_by = $15, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		b.ID, b.BillDate, b.DueDate, string(b.Status), b.Subtotal, b.TaxAmount,
		b.TotalAmount, b.PaidAmount, b.Notes, path, name,
		contentType, size, b.AssignedTo, b.UpdatedBy)
	if err != nil {
		return fmt.Errorf("bills: update %d: %w", b.ID, err)
	}
	return nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bill_payments (bill_id, amount, payment_date, payment_mode, reference_number, paid_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id`,
		p.BillID, p.Amount, p.PaymentDate, p.PaymentMode, p.ReferenceNumber, p.PaidBy, p.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("bills: insert payment: %w", err)
	}
	return id, nil
}

func (t *pgTx) SoftDelete(ctx context.Context, id, actorID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bills SET deleted_at = NOW(), updated_by = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, actorID)
	if err != nil {
		return fmt.Errorf("bills: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: bill %d", shared.ErrNotFound, id)
	}
	return nil
}
