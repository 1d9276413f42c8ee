package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pressroom-erp/pressroom-erp/internal/platform/db"
)

// PgRepository provides PostgreSQL backed persistence for invoices.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const invoiceColumns = `
	id, number, customer_id, branch_id, status, payment_status,
	subtotal, weight_charge, tax_amount, discount_amount, total_amount, total_weight,
	notes, cancel_reason, created_by, created_at, updated_at, deleted_at`

// GetByID retrieves a non-deleted invoice with its items.
func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND deleted_at IS NULL`

	row := r.pool.QueryRow(ctx, query, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("invoices: get %d: %w", id, err)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// GetWithDetails retrieves an invoice with joined names, payments and
// payment aggregates. RemainingBalance keeps its sign so callers can
// detect overpayment.
func (r *PgRepository) GetWithDetails(ctx context.Context, id int64) (*WithDetails, error) {
	inv, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &WithDetails{Invoice: *inv}

	_ = r.pool.QueryRow(ctx, `SELECT name FROM customers WHERE id = $1`, inv.CustomerID).Scan(&details.CustomerName)
	_ = r.pool.QueryRow(ctx, `SELECT name FROM branches WHERE id = $1`, inv.BranchID).Scan(&details.BranchName)

	rows, err := r.pool.Query(ctx, `
		SELECT id, receipt_number, amount, method, status, verification_status, payment_date
		FROM payments
		WHERE invoice_id = $1
		ORDER BY payment_date, id`, id)
	if err != nil {
		return nil, fmt.Errorf("invoices: list payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p PaymentSummary
		var amount pgtype.Numeric
		if err := rows.Scan(&p.ID, &p.ReceiptNumber, &amount, &p.Method, &p.Status, &p.VerificationStatus, &p.PaymentDate); err != nil {
			return nil, fmt.Errorf("invoices: scan payment: %w", err)
		}
		p.Amount = numericToDecimal(amount)
		details.Payments = append(details.Payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var paid, pending pgtype.Numeric
	err = r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE verification_status = 'pending'), 0)
		FROM payments
		WHERE invoice_id = $1`, id).Scan(&paid, &pending)
	if err != nil {
		return nil, fmt.Errorf("invoices: payment aggregates: %w", err)
	}
	details.PaidAmount = numericToDecimal(paid)
	details.PendingAmount = numericToDecimal(pending)
	details.RemainingBalance = inv.TotalAmount.Sub(details.PaidAmount)
	return details, nil
}

// List returns invoices with optional filtering plus the unpaginated count.
func (r *PgRepository) List(ctx context.Context, req ListRequest) ([]Invoice, int, error) {
	where := " WHERE deleted_at IS NULL"
	args := []any{}
	argNum := 1

	if req.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if req.PaymentStatus != "" {
		where += fmt.Sprintf(" AND payment_status = $%d", argNum)
		args = append(args, string(req.PaymentStatus))
		argNum++
	}
	if req.CustomerID > 0 {
		where += fmt.Sprintf(" AND customer_id = $%d", argNum)
		args = append(args, req.CustomerID)
		argNum++
	}
	if req.BranchID > 0 {
		where += fmt.Sprintf(" AND branch_id = $%d", argNum)
		args = append(args, req.BranchID)
		argNum++
	}
	if !req.FromDate.IsZero() {
		where += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, req.FromDate)
		argNum++
	}
	if !req.ToDate.IsZero() {
		where += fmt.Sprintf(" AND created_at <= $%d", argNum)
		args = append(args, req.ToDate)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("invoices: count: %w", err)
	}

	query := "SELECT " + invoiceColumns + " FROM invoices" + where + " ORDER BY created_at DESC"
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoices: list: %w", err)
	}
	defer rows.Close()

	var invs []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("invoices: scan: %w", err)
		}
		invs = append(invs, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}

// UpdateStatus transitions an invoice when its current status is allowed.
func (r *PgRepository) UpdateStatus(ctx context.Context, id int64, from []Status, to Status, updates map[string]any) error {
	set := "status = $1, updated_at = NOW()"
	args := []any{string(to)}
	argNum := 2
	for col, val := range updates {
		set += fmt.Sprintf(", %s = $%d", col, argNum)
		args = append(args, val)
		argNum++
	}

	fromList := make([]string, 0, len(from))
	for _, st := range from {
		fromList = append(fromList, string(st))
	}
	query := fmt.Sprintf(
		"UPDATE invoices SET %s WHERE id = $%d AND deleted_at IS NULL AND status = ANY($%d)",
		set, argNum, argNum+1)
	args = append(args, id, fromList)

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("invoices: update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// SoftDelete marks the invoice deleted.
func (r *PgRepository) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE invoices SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("invoices: soft delete: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Summary aggregates receivables over non-deleted invoices.
func (r *PgRepository) Summary(ctx context.Context) (Summary, error) {
	summary := Summary{ByStatus: map[string]int{}}

	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM invoices WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("invoices: summary counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.ByStatus[status] = count
		summary.TotalInvoices += count
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	var receivable, collected pgtype.Numeric
	err = r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(i.total_amount) FILTER (WHERE i.payment_status <> 'paid' AND i.status NOT IN ('cancelled')), 0),
			COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.status = 'completed'), 0)
		FROM invoices i
		WHERE i.deleted_at IS NULL`).Scan(&receivable, &collected)
	if err != nil {
		return Summary{}, fmt.Errorf("invoices: summary totals: %w", err)
	}
	summary.ReceivableTotal = numericToDecimal(receivable)
	summary.CollectedTotal = numericToDecimal(collected)
	return summary, nil
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *PgRepository) listItems(ctx context.Context, invoiceID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, product_id, description, quantity, unit_price, unit_weight,
			tax_rate, line_total, line_weight, tax_amount, created_at
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var productID pgtype.Int8
		var quantity, unitPrice, unitWeight, taxRate, lineTotal, lineWeight, taxAmount pgtype.Numeric
		err := rows.Scan(&it.ID, &it.InvoiceID, &productID, &it.Description,
			&quantity, &unitPrice, &unitWeight, &taxRate, &lineTotal, &lineWeight, &taxAmount, &it.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("invoices: scan item: %w", err)
		}
		if productID.Valid {
			it.ProductID = &productID.Int64
		}
		it.Quantity = numericToDecimal(quantity)
		it.UnitPrice = numericToDecimal(unitPrice)
		it.UnitWeight = numericToDecimal(unitWeight)
		it.TaxRate = numericToDecimal(taxRate)
		it.LineTotal = numericToDecimal(lineTotal)
		it.LineWeight = numericToDecimal(lineWeight)
		it.TaxAmount = numericToDecimal(taxAmount)
		items = append(items, it)
	}
	return items, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) LockInvoice(ctx context.Context, invoiceID int64) (*Invoice, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, invoiceID)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("invoices: lock %d: %w", invoiceID, err)
	}
	return inv, nil
}

func (t *txRepo) PaymentTotals(ctx context.Context, invoiceID int64) (decimal.Decimal, decimal.Decimal, error) {
	var verified, pending pgtype.Numeric
	err := t.tx.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE verification_status = 'pending'), 0)
		FROM payments
		WHERE invoice_id = $1`, invoiceID).Scan(&verified, &pending)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invoices: payment totals: %w", err)
	}
	return numericToDecimal(verified), numericToDecimal(pending), nil
}

func (t *txRepo) SetPaymentStatus(ctx context.Context, invoiceID int64, status PaymentStatus) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE invoices SET payment_status = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		invoiceID, string(status))
	if err != nil {
		return fmt.Errorf("invoices: set payment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (
			number, customer_id, branch_id, status, payment_status,
			subtotal, weight_charge, tax_amount, discount_amount, total_amount, total_weight,
			notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id`,
		inv.Number, inv.CustomerID, inv.BranchID, string(inv.Status), string(inv.PaymentStatus),
		inv.Subtotal, inv.WeightCharge, inv.TaxAmount, inv.DiscountAmount, inv.TotalAmount, inv.TotalWeight,
		inv.Notes, inv.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertItems(ctx context.Context, invoiceID int64, items []Item) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO invoice_items (
				invoice_id, product_id, description, quantity, unit_price, unit_weight,
				tax_rate, line_total, line_weight, tax_amount, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
			invoiceID, it.ProductID, it.Description, it.Quantity, it.UnitPrice, it.UnitWeight,
			it.TaxRate, it.LineTotal, it.LineWeight, it.TaxAmount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) DeleteItems(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	return err
}

func (t *txRepo) UpdateTotals(ctx context.Context, invoiceID int64, totals Totals) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE invoices SET
			subtotal = $2, weight_charge = $3, tax_amount = $4, discount_amount = $5,
			total_amount = $6, total_weight = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		invoiceID, totals.Subtotal, totals.WeightCharge, totals.TaxAmount,
		totals.DiscountAmount, totals.TotalAmount, totals.TotalWeight)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	var inv Invoice
	var subtotal, weightCharge, taxAmount, discount, total, weight pgtype.Numeric
	var notes, cancelReason pgtype.Text
	var createdBy pgtype.Int8
	var deletedAt pgtype.Timestamptz

	err := row.Scan(
		&inv.ID, &inv.Number, &inv.CustomerID, &inv.BranchID, &inv.Status, &inv.PaymentStatus,
		&subtotal, &weightCharge, &taxAmount, &discount, &total, &weight,
		&notes, &cancelReason, &createdBy, &inv.CreatedAt, &inv.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Subtotal = numericToDecimal(subtotal)
	inv.WeightCharge = numericToDecimal(weightCharge)
	inv.TaxAmount = numericToDecimal(taxAmount)
	inv.DiscountAmount = numericToDecimal(discount)
	inv.TotalAmount = numericToDecimal(total)
	inv.TotalWeight = numericToDecimal(weight)
	inv.CreatedBy = createdBy.Int64
	if notes.Valid {
		inv.Notes = &notes.String
	}
	if cancelReason.Valid {
		inv.CancelReason = &cancelReason.String
	}
	if deletedAt.Valid {
		inv.DeletedAt = &deletedAt.Time
	}
	return &inv, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
