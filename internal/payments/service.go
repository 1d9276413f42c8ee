package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

// InvoiceRow is the invoice projection the payment service locks and reads.
type InvoiceRow struct {
	ID            int64
	Status        invoices.Status
	PaymentStatus invoices.PaymentStatus
	TotalAmount   decimal.Decimal
}

// Aggregates sums payment amounts per bucket for one invoice. Verified covers
// completed payments, Pending covers payments still awaiting verification.
// Rejected payments are in neither bucket.
type Aggregates struct {
	Verified decimal.Decimal
	Pending  decimal.Decimal
}

// Repository defines data access methods for payments.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	List(ctx context.Context, req ListRequest) ([]Payment, int, error)
}

// TxRepository exposes transactional operations. LockInvoice and LockPayment
// take row locks so concurrent submissions serialize on the database as well
// as on the Redis lock.
type TxRepository interface {
	LockInvoice(ctx context.Context, invoiceID int64) (*InvoiceRow, error)
	Aggregates(ctx context.Context, invoiceID int64) (Aggregates, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	LockPayment(ctx context.Context, paymentID int64) (*Payment, error)
	FinalizeVerification(ctx context.Context, paymentID int64, verification VerificationStatus, status Status, reason *string, verifiedBy int64, at time.Time) error
	SetInvoicePaymentStatus(ctx context.Context, invoiceID int64, status invoices.PaymentStatus) error
}

// TaskEnqueuer pushes follow-up work onto the background queue.
type TaskEnqueuer interface {
	EnqueueProductionDispatch(ctx context.Context, invoiceID int64) error
	EnqueueReceiptMail(ctx context.Context, paymentID int64) error
}

// AuditPort records payment mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles payment recording, verification and reconciliation.
type Service struct {
	repo   Repository
	lock   *shared.InvoiceLock
	idem   *shared.IdempotencyStore
	audit  AuditPort
	tasks  TaskEnqueuer
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithLock enables the per-invoice Redis lock around payment acceptance.
func (s *Service) WithLock(lock *shared.InvoiceLock) {
	s.lock = lock
}

// WithIdempotency enables Idempotency-Key replay protection.
func (s *Service) WithIdempotency(store *shared.IdempotencyStore) {
	s.idem = store
}

// WithTasks enables background task dispatch after verification.
func (s *Service) WithTasks(tasks TaskEnqueuer) {
	s.tasks = tasks
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Record accepts a payment against an invoice. The amount is validated
// against the remaining balance counting both verified and pending payments,
// so concurrent pending submissions cannot jointly overpay.
func (s *Service) Record(ctx context.Context, input RecordInput) (*Payment, error) {
	if err := validateRecordInput(input); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, shared.IdempotencyModulePayments); err != nil {
			return nil, err
		}
	}

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, input.InvoiceID)
		if err != nil {
			s.rollbackIdempotency(ctx, input.IdempotencyKey)
			return nil, err
		}
		defer release()
	}

	now := s.now()
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}
	payment := Payment{
		InvoiceID:          input.InvoiceID,
		ReceiptNumber:      generateReceiptNumber(now),
		Amount:             input.Amount,
		Method:             input.Method,
		PaymentDate:        paymentDate,
		BankName:           input.BankName,
		ChequeNumber:       input.ChequeNumber,
		GatewayReference:   input.GatewayReference,
		VerificationStatus: VerificationPending,
		Status:             StatusPending,
		RecordedBy:         input.RecordedBy,
		Notes:              input.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == invoices.StatusDraft || inv.Status == invoices.StatusCancelled {
			return fmt.Errorf("%w: %s", ErrInvoiceNotOpen, inv.Status)
		}

		agg, err := tx.Aggregates(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		remaining := inv.TotalAmount.Sub(agg.Verified).Sub(agg.Pending)
		if input.Amount.GreaterThan(remaining) {
			return fmt.Errorf("%w: remaining %s", ErrExceedsBalance, remaining.StringFixed(2))
		}

		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		payment.ID = id
		return nil
	})
	if err != nil {
		s.rollbackIdempotency(ctx, input.IdempotencyKey)
		return nil, err
	}

	s.recordAudit(ctx, input.RecordedBy, "payment.record", payment.ID, map[string]any{
		"invoice_id": input.InvoiceID,
		"amount":     input.Amount.String(),
		"method":     string(input.Method),
	})
	return &payment, nil
}

// Verify approves a pending payment. The payment becomes completed, starts
// counting into the invoice's paid total, and the invoice payment status is
// re-derived. Verifying an already verified payment is a no-op success.
func (s *Service) Verify(ctx context.Context, input VerifyInput) (*Payment, error) {
	var (
		result     *Payment
		alreadyRun bool
		fullyPaid  bool
	)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		payment, err := tx.LockPayment(ctx, input.PaymentID)
		if err != nil {
			return err
		}
		if payment.VerificationStatus == VerificationVerified {
			result = payment
			alreadyRun = true
			return nil
		}
		if payment.VerificationStatus == VerificationRejected {
			return fmt.Errorf("%w: %s", ErrAlreadyFinalized, payment.VerificationStatus)
		}

		now := s.now()
		if err := tx.FinalizeVerification(ctx, payment.ID, VerificationVerified, StatusCompleted, nil, input.VerifiedBy, now); err != nil {
			return err
		}
		payment.VerificationStatus = VerificationVerified
		payment.Status = StatusCompleted
		payment.VerifiedBy = &input.VerifiedBy
		payment.VerifiedAt = &now

		inv, err := tx.LockInvoice(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}
		agg, err := tx.Aggregates(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}
		derived := DerivePaymentStatus(inv.TotalAmount, agg.Verified)
		if derived != inv.PaymentStatus {
			if err := tx.SetInvoicePaymentStatus(ctx, payment.InvoiceID, derived); err != nil {
				return err
			}
		}
		fullyPaid = derived == invoices.PaymentPaid && inv.PaymentStatus != invoices.PaymentPaid
		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyRun {
		return result, nil
	}

	s.recordAudit(ctx, input.VerifiedBy, "payment.verify", result.ID, map[string]any{
		"invoice_id": result.InvoiceID,
		"amount":     result.Amount.String(),
	})
	s.dispatchFollowUps(ctx, result, fullyPaid)
	return result, nil
}

// Reject declines a pending payment. Rejected payments never count into the
// paid total and the state is terminal.
func (s *Service) Reject(ctx context.Context, input RejectInput) (*Payment, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var result *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		payment, err := tx.LockPayment(ctx, input.PaymentID)
		if err != nil {
			return err
		}
		if payment.VerificationStatus.IsTerminal() {
			return fmt.Errorf("%w: %s", ErrAlreadyFinalized, payment.VerificationStatus)
		}

		now := s.now()
		if err := tx.FinalizeVerification(ctx, payment.ID, VerificationRejected, StatusPending, &reason, input.RejectedBy, now); err != nil {
			return err
		}
		payment.VerificationStatus = VerificationRejected
		payment.RejectionReason = &reason
		payment.VerifiedBy = &input.RejectedBy
		payment.VerifiedAt = &now
		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, input.RejectedBy, "payment.reject", result.ID, map[string]any{
		"invoice_id": result.InvoiceID,
		"reason":     reason,
	})
	return result, nil
}

// GetByID retrieves a payment.
func (s *Service) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a filtered, paginated payment listing.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Payment, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(req.Page, req.PerPage, total), nil
}

func validateRecordInput(input RecordInput) error {
	if !input.Method.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidMethod, input.Method)
	}
	if !input.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if input.Method.RequiresBankName() && !hasValue(input.BankName) {
		return ErrBankNameRequired
	}
	if input.Method.RequiresChequeNumber() && !hasValue(input.ChequeNumber) {
		return ErrChequeRequired
	}
	if input.Method.RequiresGatewayReference() && !hasValue(input.GatewayReference) {
		return ErrGatewayRequired
	}
	return nil
}

func hasValue(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func generateReceiptNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RCP-%s-%s", now.Format("200601"), suffix)
}

func (s *Service) dispatchFollowUps(ctx context.Context, payment *Payment, fullyPaid bool) {
	if s.tasks == nil {
		return
	}
	if err := s.tasks.EnqueueReceiptMail(ctx, payment.ID); err != nil {
		s.logger.Error("enqueue receipt mail", slog.Any("error", err), slog.Int64("payment_id", payment.ID))
	}
	if fullyPaid {
		if err := s.tasks.EnqueueProductionDispatch(ctx, payment.InvoiceID); err != nil {
			s.logger.Error("enqueue production dispatch", slog.Any("error", err), slog.Int64("invoice_id", payment.InvoiceID))
		}
	}
}

func (s *Service) rollbackIdempotency(ctx context.Context, key string) {
	if key == "" || s.idem == nil {
		return
	}
	if err := s.idem.Delete(ctx, key); err != nil {
		s.logger.Error("idempotency rollback", slog.Any("error", err), slog.String("key", key))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, paymentID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "payment",
		EntityID: fmt.Sprintf("%d", paymentID),
		Meta:     meta,
		At:       s.now(),
	})
}
