package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

// Repository defines data access methods for print jobs.
type Repository interface {
	Create(ctx context.Context, job PrintJob) (int64, error)
	GetByID(ctx context.Context, id int64) (*PrintJob, error)
	GetByInvoiceID(ctx context.Context, invoiceID int64) (*PrintJob, error)
	List(ctx context.Context, req ListRequest) ([]PrintJob, int, error)
	Update(ctx context.Context, job *PrintJob) error
}

// InvoicePort is the slice of the invoice module production depends on.
type InvoicePort interface {
	GetByID(ctx context.Context, id int64) (*invoices.Invoice, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64) error
}

// AuditPort records production mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles print job business logic.
type Service struct {
	repo    Repository
	billing InvoicePort
	audit   AuditPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, billing InvoicePort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, billing: billing, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Eligibility evaluates whether a print job can be opened for the invoice.
// actorCanCreate is resolved by the HTTP layer from the actor's permissions.
func (s *Service) Eligibility(ctx context.Context, invoiceID int64, actorCanCreate bool) (Eligibility, error) {
	if !actorCanCreate {
		return Eligibility{Reason: "missing production.create permission"}, nil
	}

	inv, err := s.billing.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			return Eligibility{Reason: "invoice not found"}, nil
		}
		return Eligibility{}, err
	}
	if inv.PaymentStatus != invoices.PaymentPaid {
		return Eligibility{Reason: "invoice is not fully paid"}, nil
	}

	existing, err := s.repo.GetByInvoiceID(ctx, invoiceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Eligibility{}, err
	}
	if existing != nil {
		return Eligibility{Reason: "print job already exists"}, nil
	}
	return Eligibility{Eligible: true}, nil
}

// Create opens a print job for a fully paid invoice. The unique index on
// invoice_id closes the gate permanently once a job exists.
func (s *Service) Create(ctx context.Context, input CreateInput) (*PrintJob, error) {
	if !input.ActorCanCreate {
		return nil, ErrNotPermitted
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPriority, input.Priority)
	}

	inv, err := s.billing.GetByID(ctx, input.InvoiceID)
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	if inv.PaymentStatus != invoices.PaymentPaid {
		return nil, fmt.Errorf("%w: %s", ErrInvoiceNotPaid, inv.PaymentStatus)
	}

	now := s.now()
	job := PrintJob{
		InvoiceID:  input.InvoiceID,
		JobNumber:  generateJobNumber(now),
		Status:     StatusPending,
		Priority:   priority,
		AssignedTo: input.AssignedTo,
		Notes:      input.Notes,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	id, err := s.repo.Create(ctx, job)
	if err != nil {
		return nil, err
	}
	job.ID = id

	if err := s.billing.MarkProcessing(ctx, input.InvoiceID); err != nil {
		s.logger.Warn("mark invoice processing",
			slog.Any("error", err), slog.Int64("invoice_id", input.InvoiceID))
	}

	s.recordAudit(ctx, input.CreatedBy, "print_job.create", job.ID, map[string]any{
		"invoice_id": input.InvoiceID,
		"job_number": job.JobNumber,
	})
	return &job, nil
}

// UpdateStatus transitions a job. Completing forces progress to 100 and
// marks the invoice completed.
func (s *Service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*PrintJob, error) {
	job, err := s.repo.GetByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransitionTo(input.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, input.Status)
	}

	now := s.now()
	previous := job.Status
	job.Status = input.Status
	job.UpdatedAt = now
	if input.Status == StatusInProgress && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if input.Status == StatusCompleted {
		job.Progress = 100
		job.CompletedAt = &now
	}
	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}

	if input.Status == StatusCompleted {
		if err := s.billing.MarkCompleted(ctx, job.InvoiceID); err != nil {
			s.logger.Warn("mark invoice completed",
				slog.Any("error", err), slog.Int64("invoice_id", job.InvoiceID))
		}
	}

	s.recordAudit(ctx, input.ActorID, "print_job.status", job.ID, map[string]any{
		"from": string(previous),
		"to":   string(input.Status),
	})
	return job, nil
}

// UpdateProgress advances the completion percentage. Progress is monotone
// and only moves on unfinished jobs.
func (s *Service) UpdateProgress(ctx context.Context, input UpdateProgressInput) (*PrintJob, error) {
	if input.Progress < 0 || input.Progress > 100 {
		return nil, ErrProgressOutOfRange
	}
	job, err := s.repo.GetByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status == StatusCompleted {
		return nil, ErrJobFinished
	}
	if input.Progress < job.Progress {
		return nil, fmt.Errorf("%w: %d -> %d", ErrProgressDecreased, job.Progress, input.Progress)
	}

	job.Progress = input.Progress
	job.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, input.ActorID, "print_job.progress", job.ID, map[string]any{
		"progress": input.Progress,
	})
	return job, nil
}

// Assign hands the job to an operator, or clears the assignment.
func (s *Service) Assign(ctx context.Context, input AssignInput) (*PrintJob, error) {
	job, err := s.repo.GetByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status == StatusCompleted {
		return nil, ErrJobFinished
	}
	job.AssignedTo = input.AssignedTo
	job.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if input.AssignedTo != nil {
		meta["assigned_to"] = *input.AssignedTo
	}
	s.recordAudit(ctx, input.ActorID, "print_job.assign", job.ID, meta)
	return job, nil
}

// GetByID retrieves a print job.
func (s *Service) GetByID(ctx context.Context, id int64) (*PrintJob, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByInvoiceID retrieves the job opened for an invoice, if any.
func (s *Service) GetByInvoiceID(ctx context.Context, invoiceID int64) (*PrintJob, error) {
	return s.repo.GetByInvoiceID(ctx, invoiceID)
}

// List returns a filtered, paginated job listing.
func (s *Service) List(ctx context.Context, req ListRequest) ([]PrintJob, shared.Pagination, error) {
	jobs, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return jobs, shared.NewPagination(req.Page, req.PerPage, total), nil
}

func generateJobNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("JOB-%s-%s", now.Format("200601"), suffix)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, jobID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "print_job",
		EntityID: fmt.Sprintf("%d", jobID),
		Meta:     meta,
		At:       s.now(),
	})
}
