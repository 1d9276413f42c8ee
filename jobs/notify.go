package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

// NewReceiptMailHandler builds the handler for payment receipt emails. The
// email body is composed from the verified payment row; send is delegated to
// the shared send-email task so the SMTP integration lives in one place.
func NewReceiptMailHandler(pool *pgxpool.Pool, client *Client, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReceiptMailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		var (
			receipt string
			amount  pgtype.Numeric
			email   *string
			name    string
		)
		err := pool.QueryRow(ctx, `
			SELECT p.receipt_number, p.amount, c.email, c.name
			FROM payments p
			JOIN invoices i ON i.id = p.invoice_id
			JOIN customers c ON c.id = i.customer_id
			WHERE p.id = $1 AND p.verification_status = 'verified'`,
			payload.PaymentID).Scan(&receipt, &amount, &email, &name)
		if err != nil {
			logger.Warn("receipt mail lookup", slog.Int64("payment_id", payload.PaymentID), slog.Any("error", err))
			return asynq.SkipRetry
		}
		if email == nil || *email == "" {
			logger.Info("receipt mail skipped, customer has no email", slog.Int64("payment_id", payload.PaymentID))
			return nil
		}
		_, err = client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      *email,
			Subject: fmt.Sprintf("Payment receipt %s", receipt),
			Body: fmt.Sprintf("Dear %s,\n\nWe have received your payment of %s. Receipt number: %s.\n\nThank you.",
				name, shared.FormatRupees(numericToDecimal(amount)), receipt),
		})
		return err
	}
}

// NewProductionDispatchHandler builds the handler that notifies the production
// desk when an invoice becomes fully paid. Each dispatch leaves an audit row.
func NewProductionDispatchHandler(pool *pgxpool.Pool, client *Client, audit *shared.AuditLogger, deskEmail string, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ProductionDispatchPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		var (
			number string
			total  pgtype.Numeric
			name   string
		)
		err := pool.QueryRow(ctx, `
			SELECT i.number, i.total_amount, c.name
			FROM invoices i
			JOIN customers c ON c.id = i.customer_id
			WHERE i.id = $1 AND i.payment_status = 'paid' AND i.deleted_at IS NULL`,
			payload.InvoiceID).Scan(&number, &total, &name)
		if err != nil {
			logger.Warn("production dispatch lookup", slog.Int64("invoice_id", payload.InvoiceID), slog.Any("error", err))
			return asynq.SkipRetry
		}
		if err := audit.Record(ctx, shared.AuditLog{
			Action:   "production.dispatch",
			Entity:   "invoice",
			EntityID: strconv.FormatInt(payload.InvoiceID, 10),
			Meta:     map[string]any{"invoice_number": number},
		}); err != nil {
			logger.Warn("dispatch audit", slog.Int64("invoice_id", payload.InvoiceID), slog.Any("error", err))
		}
		if deskEmail == "" {
			logger.Info("production dispatch skipped, no desk email configured",
				slog.Int64("invoice_id", payload.InvoiceID))
			return nil
		}
		_, err = client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      deskEmail,
			Subject: fmt.Sprintf("Invoice %s is fully paid", number),
			Body: fmt.Sprintf("Invoice %s for %s (%s) is fully paid and ready for production.",
				number, name, shared.FormatRupees(numericToDecimal(total))),
		})
		return err
	}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
