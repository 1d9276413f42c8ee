package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
	"github.com/pressroom-erp/pressroom-erp/internal/platform/db"
)

// PgRepository provides PostgreSQL backed persistence for payments.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const paymentColumns = `
	id, invoice_id, receipt_number, amount, method, payment_date,
	bank_name, cheque_number, gateway_reference,
	verification_status, status, rejection_reason,
	verified_by, verified_at, recorded_by, notes, created_at, updated_at`

// GetByID retrieves a payment.
func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payments: get %d: %w", id, err)
	}
	return p, nil
}

// List returns payments with optional filtering plus the unpaginated count.
func (r *PgRepository) List(ctx context.Context, req ListRequest) ([]Payment, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if req.InvoiceID > 0 {
		where += fmt.Sprintf(" AND invoice_id = $%d", argNum)
		args = append(args, req.InvoiceID)
		argNum++
	}
	if req.VerificationStatus != "" {
		where += fmt.Sprintf(" AND verification_status = $%d", argNum)
		args = append(args, string(req.VerificationStatus))
		argNum++
	}
	if req.Method != "" {
		where += fmt.Sprintf(" AND method = $%d", argNum)
		args = append(args, string(req.Method))
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM payments"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("payments: count: %w", err)
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	query := "SELECT " + paymentColumns + " FROM payments" + where +
		fmt.Sprintf(" ORDER BY payment_date DESC, id DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("payments: list: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("payments: scan: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) LockInvoice(ctx context.Context, invoiceID int64) (*InvoiceRow, error) {
	var row InvoiceRow
	var total pgtype.Numeric
	err := t.tx.QueryRow(ctx, `
		SELECT id, status, payment_status, total_amount
		FROM invoices
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, invoiceID).
		Scan(&row.ID, &row.Status, &row.PaymentStatus, &total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("payments: lock invoice %d: %w", invoiceID, err)
	}
	row.TotalAmount = numericToDecimal(total)
	return &row, nil
}

func (t *txRepo) Aggregates(ctx context.Context, invoiceID int64) (Aggregates, error) {
	var verified, pending pgtype.Numeric
	err := t.tx.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE verification_status = 'pending'), 0)
		FROM payments
		WHERE invoice_id = $1`, invoiceID).Scan(&verified, &pending)
	if err != nil {
		return Aggregates{}, fmt.Errorf("payments: aggregates: %w", err)
	}
	return Aggregates{
		Verified: numericToDecimal(verified),
		Pending:  numericToDecimal(pending),
	}, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments (
			invoice_id, receipt_number, amount, method, payment_date,
			bank_name, cheque_number, gateway_reference,
			verification_status, status, recorded_by, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id`,
		p.InvoiceID, p.ReceiptNumber, p.Amount, string(p.Method), p.PaymentDate,
		p.BankName, p.ChequeNumber, p.GatewayReference,
		string(p.VerificationStatus), string(p.Status), p.RecordedBy, p.Notes,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *txRepo) LockPayment(ctx context.Context, paymentID int64) (*Payment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, paymentID)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payments: lock payment %d: %w", paymentID, err)
	}
	return p, nil
}

func (t *txRepo) FinalizeVerification(ctx context.Context, paymentID int64, verification VerificationStatus, status Status, reason *string, verifiedBy int64, at time.Time) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE payments SET
			verification_status = $2, status = $3, rejection_reason = $4,
			verified_by = $5, verified_at = $6, updated_at = NOW()
		WHERE id = $1 AND verification_status = 'pending'`,
		paymentID, string(verification), string(status), reason, verifiedBy, at)
	if err != nil {
		return fmt.Errorf("payments: finalize verification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyFinalized
	}
	return nil
}

func (t *txRepo) SetInvoicePaymentStatus(ctx context.Context, invoiceID int64, status invoices.PaymentStatus) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE invoices SET payment_status = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		invoiceID, string(status))
	if err != nil {
		return fmt.Errorf("payments: set invoice payment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	var amount pgtype.Numeric
	var bankName, chequeNumber, gatewayRef, rejectionReason, notes pgtype.Text
	var verifiedBy pgtype.Int8
	var verifiedAt pgtype.Timestamptz

	err := row.Scan(
		&p.ID, &p.InvoiceID, &p.ReceiptNumber, &amount, &p.Method, &p.PaymentDate,
		&bankName, &chequeNumber, &gatewayRef,
		&p.VerificationStatus, &p.Status, &rejectionReason,
		&verifiedBy, &verifiedAt, &p.RecordedBy, &notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Amount = numericToDecimal(amount)
	if bankName.Valid {
		p.BankName = &bankName.String
	}
	if chequeNumber.Valid {
		p.ChequeNumber = &chequeNumber.String
	}
	if gatewayRef.Valid {
		p.GatewayReference = &gatewayRef.String
	}
	if rejectionReason.Valid {
		p.RejectionReason = &rejectionReason.String
	}
	if verifiedBy.Valid {
		p.VerifiedBy = &verifiedBy.Int64
	}
	if verifiedAt.Valid {
		p.VerifiedAt = &verifiedAt.Time
	}
	if notes.Valid {
		p.Notes = &notes.String
	}
	return &p, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
