package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/numbering"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, f ListFilter) ([]Invoice, int, error)
	PaymentHistory(ctx context.Context, invoiceID int64) ([]PaymentHistory, error)
}

type TxRepository interface {
	NextCode(ctx context.Context, year int) (string, error)
	Lock(ctx context.Context, id int64) (Invoice, error)
	Insert(ctx context.Context, inv Invoice) (int64, error)
	InsertItems(ctx context.Context, invoiceID int64, items []Item) error
	UpdateHeader(ctx context.Context, inv Invoice) error
	InsertPayment(ctx context.Context, p PaymentHistory) (int64, error)
	SoftDelete(ctx context.Context, id, actorID int64) error
}

const headerColumns = `i.id, i.code, i.customer_name, i.customer_email, i.order_book_id, i.invoice_date, i.due_date,
	i.status, i.subtotal, i.discount_amount, i.tax_amount, i.total_amount, i.paid_amount, i.sent_at, i.notes,
	i.assigned_to, i.created_by, i.created_at, i.updated_by, i.updated_at`

func scanHeader(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Code, &inv.CustomerName, &inv.CustomerEmail, &inv.OrderBookID, &inv.InvoiceDate, &inv.DueDate,
		&inv.Status, &inv.Subtotal, &inv.DiscountAmount, &inv.TaxAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.SentAt, &inv.Notes,
		&inv.AssignedTo, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedBy, &inv.UpdatedAt)
	return inv, err
}

func find(ctx context.Context, q db.Querier, id int64, forUpdate bool) (Invoice, error) {
	w := db.Live("i").Add("i.id = ?", id)
	sql := `SELECT ` + headerColumns + ` FROM invoices i ` + w.SQL()
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	inv, err := scanHeader(q.QueryRow(ctx, sql, w.Args()...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("invoices: get %d: %w", id, err)
	}
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, line_no, description, quantity, unit_price, tax_percent, discount_percent,
		       subtotal, discount_amount, tax_amount, line_total
		FROM invoice_items WHERE invoice_id = $1 ORDER BY line_no, id`, id)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoices: load items: %w", err)
	}
	inv.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.InvoiceID, &it.LineNo, &it.Description, &it.Quantity, &it.UnitPrice, &it.TaxPercent,
			&it.DiscountPercent, &it.Subtotal, &it.DiscountAmount, &it.TaxAmount, &it.LineTotal)
		return it, err
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("invoices: load items: %w", err)
	}
	return inv, nil
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

func (r *pgRepository) Get(ctx context.Context, id int64) (Invoice, error) {
	return find(ctx, r.pool, id, false)
}

func (r *pgRepository) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	w := db.Live("i").
		AddIf(f.Status != "", "i.status = ?", string(f.Status)).
		AddIf(f.Search != "", "(i.code ILIKE ? OR i.customer_name ILIKE ?)", "%"+f.Search+"%").
		AddIf(f.OwnerID > 0, "(i.created_by = ? OR i.assigned_to = ?)", f.OwnerID)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices i `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("invoices: count: %w", err)
	}
	next := w.Next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM invoices i %s ORDER BY i.invoice_date DESC, i.id DESC LIMIT $%d OFFSET $%d`,
		headerColumns, w.SQL(), next, next+1), append(w.Args(), perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoices: list: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) { return scanHeader(row) })
	if err != nil {
		return nil, 0, fmt.Errorf("invoices: list: %w", err)
	}
	return out, total, nil
}

func (r *pgRepository) PaymentHistory(ctx context.Context, invoiceID int64) ([]PaymentHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.invoice_id, p.amount, p.payment_date, p.payment_method, p.transaction_ref, p.notes, p.recorded_by, p.created_at
		FROM invoice_payments p
		JOIN invoices i ON i.id = p.invoice_id AND i.deleted_at IS NULL
		WHERE p.invoice_id = $1
		ORDER BY p.payment_date, p.id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoices: payment history: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PaymentHistory, error) {
		var p PaymentHistory
		err := row.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaymentDate, &p.PaymentMethod, &p.TransactionRef, &p.Notes, &p.RecordedBy, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("invoices: payment history: %w", err)
	}
	return out, nil
}

type pgTx struct {
	tx      pgx.Tx
	numbers *numbering.Service
}

func (t *pgTx) NextCode(ctx context.Context, year int) (string, error) {
	return t.numbers.Next(ctx, t.tx, numbering.Invoice, year)
}

func (t *pgTx) Lock(ctx context.Context, id int64) (Invoice, error) {
	return find(ctx, t.tx, id, true)
}

func (t *pgTx) Insert(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (code, customer_name, customer_email, order_book_id, invoice_date, due_date, status,
			subtotal, discount_amount, tax_amount, total_amount, paid_amount, notes, assigned_to, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id`,
		inv.Code, inv.CustomerName, inv.CustomerEmail, inv.OrderBookID, inv.InvoiceDate, inv.DueDate, string(inv.Status),
		inv.Subtotal, inv.DiscountAmount, inv.TaxAmount, inv.TotalAmount, inv.PaidAmount, inv.Notes, inv.AssignedTo, inv.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: invoice code %s", shared.ErrDuplicate, inv.Code)
		}
		return 0, fmt.Errorf("invoices: insert: %w", err)
	}
	return id, nil
}

func (t *pgTx) InsertItems(ctx context.Context, invoiceID int64, items []Item) error {
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, line_no, description, quantity, unit_price, tax_percent, discount_percent,
				subtotal, discount_amount, tax_amount, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			invoiceID, it.LineNo, it.Description, it.Quantity, it.UnitPrice, it.TaxPercent, it.DiscountPercent,
			it.Subtotal, it.DiscountAmount, it.TaxAmount, it.LineTotal); err != nil {
			return fmt.Errorf("invoices: insert item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) UpdateHeader(ctx context.Context, inv Invoice) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE invoices SET status = $2, paid_amount = $3, sent_at = $4, notes = $5, updated_by = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		inv.ID, string(inv.Status), inv.PaidAmount, inv.SentAt, inv.Notes, inv.UpdatedBy)
	if err != nil {
		return fmt.Errorf("invoices: update %d: %w", inv.ID, err)
	}
	return nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p PaymentHistory) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoice_payments (invoice_id, amount, payment_date, payment_method, transaction_ref, notes, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id`,
		p.InvoiceID, p.Amount, p.PaymentDate, p.PaymentMethod, p.TransactionRef, p.Notes, p.RecordedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("invoices: insert payment: %w", err)
	}
	return id, nil
}

func (t *pgTx) SoftDelete(ctx context.Context, id, actorID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET deleted_at = NOW(), updated_by = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, actorID)
	if err != nil {
		return fmt.Errorf("invoices: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return nil
}
