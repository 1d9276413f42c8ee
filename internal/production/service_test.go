package production

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
)

type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]*PrintJob
	byInvoice map[int64]int64
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, byID: map[int64]*PrintJob{}, byInvoice: map[int64]int64{}}
}

func (m *memRepo) Create(_ context.Context, job PrintJob) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byInvoice[job.InvoiceID]; exists {
		return 0, ErrJobExists
	}
	job.ID = m.nextID
	m.nextID++
	m.byID[job.ID] = &job
	m.byInvoice[job.InvoiceID] = job.ID
	return job.ID, nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*PrintJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memRepo) GetByInvoiceID(_ context.Context, invoiceID int64) (*PrintJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byInvoice[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m.byID[id]
	return &copied, nil
}

func (m *memRepo) List(_ context.Context, req ListRequest) ([]PrintJob, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PrintJob
	for _, job := range m.byID {
		if req.Status != "" && job.Status != req.Status {
			continue
		}
		out = append(out, *job)
	}
	return out, len(out), nil
}

func (m *memRepo) Update(_ context.Context, job *PrintJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[job.ID]; !ok {
		return ErrNotFound
	}
	copied := *job
	m.byID[job.ID] = &copied
	return nil
}

type fakeBilling struct {
	mu        sync.Mutex
	invoices  map[int64]*invoices.Invoice
	completed []int64
}

func (f *fakeBilling) GetByID(_ context.Context, id int64) (*invoices.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, invoices.ErrNotFound
	}
	copied := *inv
	return &copied, nil
}

func (f *fakeBilling) MarkProcessing(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.invoices[id]; ok && inv.Status == invoices.StatusPending {
		inv.Status = invoices.StatusProcessing
		return nil
	}
	return invoices.ErrInvalidTransition
}

func (f *fakeBilling) MarkCompleted(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.invoices[id]; ok && inv.Status == invoices.StatusProcessing {
		inv.Status = invoices.StatusCompleted
		f.completed = append(f.completed, id)
		return nil
	}
	return invoices.ErrInvalidTransition
}

func newTestService(t *testing.T) (*Service, *memRepo, *fakeBilling) {
	t.Helper()
	repo := newMemRepo()
	billing := &fakeBilling{invoices: map[int64]*invoices.Invoice{
		1: {ID: 1, Status: invoices.StatusPending, PaymentStatus: invoices.PaymentPaid, TotalAmount: decimal.NewFromInt(500)},
		2: {ID: 2, Status: invoices.StatusPending, PaymentStatus: invoices.PaymentPartiallyPaid, TotalAmount: decimal.NewFromInt(500)},
	}}
	svc := NewService(repo, billing, nil, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	})
	return svc, repo, billing
}

func TestEligibilityGate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Eligibility(ctx, 1, false)
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Contains(t, result.Reason, "permission")

	result, err = svc.Eligibility(ctx, 99, true)
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Equal(t, "invoice not found", result.Reason)

	result, err = svc.Eligibility(ctx, 2, true)
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Equal(t, "invoice is not fully paid", result.Reason)

	result, err = svc.Eligibility(ctx, 1, true)
	require.NoError(t, err)
	require.True(t, result.Eligible)

	_, err = svc.Create(ctx, CreateInput{InvoiceID: 1, ActorCanCreate: true})
	require.NoError(t, err)

	result, err = svc.Eligibility(ctx, 1, true)
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Equal(t, "print job already exists", result.Reason)
}

func TestCreateRequiresPaidInvoice(t *testing.T) {
	svc, _, billing := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{InvoiceID: 1, ActorCanCreate: false})
	require.ErrorIs(t, err, ErrNotPermitted)

	_, err = svc.Create(ctx, CreateInput{InvoiceID: 2, ActorCanCreate: true})
	require.ErrorIs(t, err, ErrInvoiceNotPaid)

	_, err = svc.Create(ctx, CreateInput{InvoiceID: 99, ActorCanCreate: true})
	require.ErrorIs(t, err, ErrInvoiceNotFound)

	job, err := svc.Create(ctx, CreateInput{InvoiceID: 1, ActorCanCreate: true})
	require.NoError(t, err)
	require.Equal(t, StatusPending, job.Status)
	require.Equal(t, PriorityNormal, job.Priority)
	require.Regexp(t, `^JOB-202603-[0-9A-F]{8}$`, job.JobNumber)
	require.Equal(t, invoices.StatusProcessing, billing.invoices[1].Status)
}

func TestSecondJobRejectedEvenWhenPaid(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{InvoiceID: 1, ActorCanCreate: true})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{InvoiceID: 1, ActorCanCreate: true, Priority: PriorityUrgent})
	require.ErrorIs(t, err, ErrJobExists)
}

func TestStatusTransitions(t *testing.T) {
	svc, _, billing := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, CreateInput{InvoiceID: 1, ActorCanCreate: true})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusCompleted})
	require.ErrorIs(t, err, ErrInvalidTransition)

	started, err := svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusInProgress})
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)

	held, err := svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusOnHold})
	require.NoError(t, err)
	require.Equal(t, StatusOnHold, held.Status)

	resumed, err := svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusInProgress})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, resumed.Status)

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusQualityCheck})
	require.NoError(t, err)

	done, err := svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusCompleted})
	require.NoError(t, err)
	require.Equal(t, 100, done.Progress)
	require.NotNil(t, done.CompletedAt)
	require.Equal(t, []int64{1}, billing.completed)

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusInProgress})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProgressIsMonotone(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, CreateInput{InvoiceID: 1, ActorCanCreate: true})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusInProgress})
	require.NoError(t, err)

	_, err = svc.UpdateProgress(ctx, UpdateProgressInput{JobID: job.ID, Progress: 101})
	require.ErrorIs(t, err, ErrProgressOutOfRange)
	_, err = svc.UpdateProgress(ctx, UpdateProgressInput{JobID: job.ID, Progress: -1})
	require.ErrorIs(t, err, ErrProgressOutOfRange)

	updated, err := svc.UpdateProgress(ctx, UpdateProgressInput{JobID: job.ID, Progress: 60})
	require.NoError(t, err)
	require.Equal(t, 60, updated.Progress)

	_, err = svc.UpdateProgress(ctx, UpdateProgressInput{JobID: job.ID, Progress: 40})
	require.ErrorIs(t, err, ErrProgressDecreased)

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusQualityCheck})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{JobID: job.ID, Status: StatusCompleted})
	require.NoError(t, err)

	_, err = svc.UpdateProgress(ctx, UpdateProgressInput{JobID: job.ID, Progress: 100})
	require.ErrorIs(t, err, ErrJobFinished)
}

func TestAssign(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, CreateInput{InvoiceID: 1, ActorCanCreate: true})
	require.NoError(t, err)

	operator := int64(42)
	assigned, err := svc.Assign(ctx, AssignInput{JobID: job.ID, AssignedTo: &operator})
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	require.Equal(t, operator, *assigned.AssignedTo)

	cleared, err := svc.Assign(ctx, AssignInput{JobID: job.ID})
	require.NoError(t, err)
	require.Nil(t, cleared.AssignedTo)
}
