package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReconcileBillingStatuses re-derives invoices.payment_status from the sum of
// verified payments and repairs any rows that drifted. Drift can happen when a
// process dies between finalizing a payment and updating the invoice.
func ReconcileBillingStatuses(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	started := time.Now()
	tag, err := pool.Exec(ctx, `
		UPDATE invoices i
		SET payment_status = derived.status,
		    updated_at = NOW()
		FROM (
			SELECT i.id,
			       CASE
			           WHEN COALESCE(p.paid, 0) >= i.total_amount THEN 'paid'
			           WHEN COALESCE(p.paid, 0) > 0 THEN 'partially_paid'
			           ELSE 'pending'
			       END AS status
			FROM invoices i
			LEFT JOIN (
				SELECT invoice_id, SUM(amount) AS paid
				FROM payments
				WHERE status = 'completed' AND verification_status = 'verified'
				GROUP BY invoice_id
			) p ON p.invoice_id = i.id
			WHERE i.deleted_at IS NULL
			  AND i.status NOT IN ('cancelled')
		) derived
		WHERE i.id = derived.id
		  AND i.payment_status <> derived.status`)
	if err != nil {
		logger.Error("billing reconcile", slog.Any("error", err))
		return err
	}
	logger.Info("billing reconcile complete",
		slog.Int64("repaired", tag.RowsAffected()),
		slog.Duration("elapsed", time.Since(started)))
	return nil
}

// NewBillingReconcileHandler adapts ReconcileBillingStatuses to an Asynq handler.
func NewBillingReconcileHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		return ReconcileBillingStatuses(ctx, pool, logger)
	}
}
