package orderbooks

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
	// Create reserves a code and stores the order book with its items.
	Create(ctx context.Context, ob OrderBook) (OrderBook, error)
	Get(ctx context.Context, id int64) (OrderBook, error)
	List(ctx context.Context, f ListFilter) ([]OrderBook, int, error)
	SoftDelete(ctx context.Context, id int64) error
}

const headerColumns = `o.id, o.code, o.customer_name, o.customer_email, o.order_date, o.expected_delivery,
	o.group_name, o.sub_group_name, o.project_id, o.subtotal, o.discount_amount, o.tax_amount, o.total_amount,
	o.notes, o.assigned_to, o.created_by, o.created_at, o.updated_at`

func scanHeader(row pgx.Row) (OrderBook, error) {
	var o OrderBook
	err := row.Scan(&o.ID, &o.Code, &o.CustomerName, &o.CustomerEmail, &o.OrderDate, &o.ExpectedDelivery,
		&o.GroupName, &o.SubGroupName, &o.ProjectID, &o.Subtotal, &o.DiscountAmount, &o.TaxAmount, &o.TotalAmount,
		&o.Notes, &o.AssignedTo, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type pgRepository struct {
	pool    *pgxpool.Pool
	numbers *numbering.Service
}

func NewRepository(pool *pgxpool.Pool, numbers *numbering.Service) Repository {
	return &pgRepository{pool: pool, numbers: numbers}
}

func (r *pgRepository) Create(ctx context.Context, ob OrderBook) (OrderBook, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		code, err := r.numbers.Next(ctx, tx, numbering.OrderBook, ob.OrderDate.Year())
		if err != nil {
			return err
		}
		ob.Code = code
		err = tx.QueryRow(ctx, `
			INSERT INTO order_books (code, customer_name, customer_email, order_date, expected_delivery, group_name,
				sub_group_name, project_id, subtotal, discount_amount, tax_amount, total_amount, notes, assigned_to,
				created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
			RETURNING id`,
			ob.Code, ob.CustomerName, ob.CustomerEmail, ob.OrderDate, ob.ExpectedDelivery, ob.GroupName,
			ob.SubGroupName, ob.ProjectID, ob.Subtotal, ob.DiscountAmount, ob.TaxAmount, ob.TotalAmount, ob.Notes, ob.AssignedTo,
			ob.CreatedBy,
		).Scan(&ob.ID)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("%w: order book code %s", shared.ErrDuplicate, ob.Code)
			}
			return fmt.Errorf("orderbooks: insert: %w", err)
		}
		batch := &pgx.Batch{}
		for _, it := range ob.Items {
			batch.Queue(`
				INSERT INTO order_book_items (order_book_id, line_no, item_name, description, quantity, unit_price,
					tax_percent, discount_percent, subtotal, discount_amount, tax_amount, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				ob.ID, it.LineNo, it.ItemName, it.Description, it.Quantity, it.UnitPrice,
				it.TaxPercent, it.DiscountPercent, it.Subtotal, it.DiscountAmount, it.TaxAmount, it.LineTotal)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("orderbooks: insert items: %w", err)
		}
		return nil
	})
	if err != nil {
		return OrderBook{}, err
	}
	return r.Get(ctx, ob.ID)
}

func (r *pgRepository) Get(ctx context.Context, id int64) (OrderBook, error) {
	w := db.Live("o").Add("o.id = ?", id)
	ob, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+` FROM order_books o `+w.SQL(), w.Args()...))
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderBook{}, fmt.Errorf("%w: order book %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return OrderBook{}, fmt.Errorf("orderbooks: get %d: %w", id, err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_book_id, line_no, item_name, description, quantity, unit_price, tax_percent,
		       discount_percent, subtotal, discount_amount, tax_amount, line_total
		FROM order_book_items WHERE order_book_id = $1 ORDER BY line_no, id`, id)
	if err != nil {
		return OrderBook{}, fmt.Errorf("orderbooks: load items: %w", err)
	}
	ob.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.OrderBookID, &it.LineNo, &it.ItemName, &it.Description, &it.Quantity, &it.UnitPrice,
			&it.TaxPercent, &it.DiscountPercent, &it.Subtotal, &it.DiscountAmount, &it.TaxAmount, &it.LineTotal)
		return it, err
	})
	if err != nil {
		return OrderBook{}, fmt.Errorf("orderbooks: load items: %w", err)
	}
	return ob, nil
}

func (r *pgRepository) List(ctx context.Context, f ListFilter) ([]OrderBook, int, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	w := db.Live("o").
		AddIf(f.ProjectID > 0, "o.project_id = ?", f.ProjectID).
		AddIf(f.Search != "", "(o.code ILIKE ? OR o.customer_name ILIKE ?)", "%"+f.Search+"%").
		AddIf(f.OwnerID > 0, "(o.created_by = ? OR o.assigned_to = ?)", f.OwnerID)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_books o `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("orderbooks: count: %w", err)
	}
	next := w.Next()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM order_books o %s ORDER BY o.order_date DESC, o.id DESC LIMIT $%d OFFSET $%d`,
		headerColumns, w.SQL(), next, next+1), append(w.Args(), perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, fmt.Errorf("orderbooks: list: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderBook, error) { return scanHeader(row) })
	if err != nil {
		return nil, 0, fmt.Errorf("orderbooks: list: %w", err)
	}
	return out, total, nil
}

func (r *pgRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE order_books SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("orderbooks: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order book %d", shared.ErrNotFound, id)
	}
	return nil
}
