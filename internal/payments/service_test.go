package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func strPtr(s string) *string { return &s }

type memStore struct {
	mu       sync.Mutex
	invoices map[int64]*InvoiceRow
	payments map[int64]*Payment
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		invoices: map[int64]*InvoiceRow{},
		payments: map[int64]*Payment{},
		nextID:   1,
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m)
}

func (m *memStore) GetByID(_ context.Context, id int64) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memStore) List(_ context.Context, req ListRequest) ([]Payment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payment
	for _, p := range m.payments {
		if req.InvoiceID > 0 && p.InvoiceID != req.InvoiceID {
			continue
		}
		if req.VerificationStatus != "" && p.VerificationStatus != req.VerificationStatus {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memStore) LockInvoice(_ context.Context, invoiceID int64) (*InvoiceRow, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *memStore) Aggregates(_ context.Context, invoiceID int64) (Aggregates, error) {
	agg := Aggregates{Verified: decimal.Zero, Pending: decimal.Zero}
	for _, p := range m.payments {
		if p.InvoiceID != invoiceID {
			continue
		}
		if p.Status == StatusCompleted {
			agg.Verified = agg.Verified.Add(p.Amount)
		}
		if p.VerificationStatus == VerificationPending {
			agg.Pending = agg.Pending.Add(p.Amount)
		}
	}
	return agg, nil
}

func (m *memStore) InsertPayment(_ context.Context, p Payment) (int64, error) {
	p.ID = m.nextID
	m.nextID++
	m.payments[p.ID] = &p
	return p.ID, nil
}

func (m *memStore) LockPayment(_ context.Context, paymentID int64) (*Payment, error) {
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memStore) FinalizeVerification(_ context.Context, paymentID int64, verification VerificationStatus, status Status, reason *string, verifiedBy int64, at time.Time) error {
	p, ok := m.payments[paymentID]
	if !ok {
		return ErrNotFound
	}
	if p.VerificationStatus != VerificationPending {
		return ErrAlreadyFinalized
	}
	p.VerificationStatus = verification
	p.Status = status
	p.RejectionReason = reason
	p.VerifiedBy = &verifiedBy
	p.VerifiedAt = &at
	return nil
}

func (m *memStore) SetInvoicePaymentStatus(_ context.Context, invoiceID int64, status invoices.PaymentStatus) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.PaymentStatus = status
	return nil
}

type memTasks struct {
	mu         sync.Mutex
	dispatched []int64
	receipts   []int64
}

func (t *memTasks) EnqueueProductionDispatch(_ context.Context, invoiceID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatched = append(t.dispatched, invoiceID)
	return nil
}

func (t *memTasks) EnqueueReceiptMail(_ context.Context, paymentID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receipts = append(t.receipts, paymentID)
	return nil
}

type memAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *memAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(t *testing.T) (*Service, *memStore, *memTasks) {
	t.Helper()
	store := newMemStore()
	store.invoices[1] = &InvoiceRow{
		ID:            1,
		Status:        invoices.StatusPending,
		PaymentStatus: invoices.PaymentPending,
		TotalAmount:   d("1000"),
	}
	tasks := &memTasks{}
	svc := NewService(store, &memAudit{}, nil)
	svc.WithTasks(tasks)
	return svc, store, tasks
}

func record(t *testing.T, svc *Service, amount string) *Payment {
	t.Helper()
	p, err := svc.Record(context.Background(), RecordInput{
		InvoiceID: 1,
		Amount:    d(amount),
		Method:    MethodCash,
	})
	require.NoError(t, err)
	return p
}

func TestRecordValidatesMethodFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordInput{InvoiceID: 1, Amount: d("10"), Method: "card"})
	require.ErrorIs(t, err, ErrInvalidMethod)

	_, err = svc.Record(ctx, RecordInput{InvoiceID: 1, Amount: d("0"), Method: MethodCash})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Record(ctx, RecordInput{InvoiceID: 1, Amount: d("10"), Method: MethodBankTransfer})
	require.ErrorIs(t, err, ErrBankNameRequired)

	_, err = svc.Record(ctx, RecordInput{InvoiceID: 1, Amount: d("10"), Method: MethodCheque, BankName: strPtr("ABC Bank")})
	require.ErrorIs(t, err, ErrChequeRequired)

	_, err = svc.Record(ctx, RecordInput{InvoiceID: 1, Amount: d("10"), Method: MethodOnline})
	require.ErrorIs(t, err, ErrGatewayRequired)

	p, err := svc.Record(ctx, RecordInput{
		InvoiceID:    1,
		Amount:       d("10"),
		Method:       MethodCheque,
		BankName:     strPtr("ABC Bank"),
		ChequeNumber: strPtr("000451"),
	})
	require.NoError(t, err)
	require.Equal(t, VerificationPending, p.VerificationStatus)
	require.Equal(t, StatusPending, p.Status)
	require.Regexp(t, `^RCP-\d{6}-[0-9A-F]{8}$`, p.ReceiptNumber)
}

func TestRecordRejectsOverpayment(t *testing.T) {
	svc, _, _ := newTestService(t)

	record(t, svc, "600")

	_, err := svc.Record(context.Background(), RecordInput{
		InvoiceID: 1,
		Amount:    d("500"),
		Method:    MethodCash,
	})
	require.ErrorIs(t, err, ErrExceedsBalance)

	record(t, svc, "400")
}

func TestRecordCountsPendingAgainstBalance(t *testing.T) {
	svc, store, _ := newTestService(t)

	p := record(t, svc, "1000")

	_, err := svc.Record(context.Background(), RecordInput{
		InvoiceID: 1,
		Amount:    d("0.01"),
		Method:    MethodCash,
	})
	require.ErrorIs(t, err, ErrExceedsBalance)

	_, err = svc.Reject(context.Background(), RejectInput{PaymentID: p.ID, Reason: "duplicate slip"})
	require.NoError(t, err)
	require.Equal(t, invoices.PaymentPending, store.invoices[1].PaymentStatus)

	record(t, svc, "1000")
}

func TestRecordRejectsClosedInvoices(t *testing.T) {
	svc, store, _ := newTestService(t)

	store.invoices[1].Status = invoices.StatusDraft
	_, err := svc.Record(context.Background(), RecordInput{InvoiceID: 1, Amount: d("10"), Method: MethodCash})
	require.ErrorIs(t, err, ErrInvoiceNotOpen)

	store.invoices[1].Status = invoices.StatusCancelled
	_, err = svc.Record(context.Background(), RecordInput{InvoiceID: 1, Amount: d("10"), Method: MethodCash})
	require.ErrorIs(t, err, ErrInvoiceNotOpen)

	_, err = svc.Record(context.Background(), RecordInput{InvoiceID: 99, Amount: d("10"), Method: MethodCash})
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestVerifyDerivesInvoicePaymentStatus(t *testing.T) {
	svc, store, tasks := newTestService(t)
	ctx := context.Background()

	first := record(t, svc, "400")
	second := record(t, svc, "600")

	verified, err := svc.Verify(ctx, VerifyInput{PaymentID: first.ID, VerifiedBy: 5})
	require.NoError(t, err)
	require.Equal(t, VerificationVerified, verified.VerificationStatus)
	require.Equal(t, StatusCompleted, verified.Status)
	require.Equal(t, invoices.PaymentPartiallyPaid, store.invoices[1].PaymentStatus)
	require.Empty(t, tasks.dispatched)
	require.Len(t, tasks.receipts, 1)

	_, err = svc.Verify(ctx, VerifyInput{PaymentID: second.ID, VerifiedBy: 5})
	require.NoError(t, err)
	require.Equal(t, invoices.PaymentPaid, store.invoices[1].PaymentStatus)
	require.Equal(t, []int64{1}, tasks.dispatched)
	require.Len(t, tasks.receipts, 2)
}

func TestVerifyIsIdempotent(t *testing.T) {
	svc, store, tasks := newTestService(t)
	ctx := context.Background()

	p := record(t, svc, "1000")
	_, err := svc.Verify(ctx, VerifyInput{PaymentID: p.ID, VerifiedBy: 5})
	require.NoError(t, err)

	again, err := svc.Verify(ctx, VerifyInput{PaymentID: p.ID, VerifiedBy: 5})
	require.NoError(t, err)
	require.Equal(t, VerificationVerified, again.VerificationStatus)

	agg, err := store.Aggregates(ctx, 1)
	require.NoError(t, err)
	require.True(t, agg.Verified.Equal(d("1000")), "verified %s", agg.Verified)
	require.Len(t, tasks.dispatched, 1)
	require.Len(t, tasks.receipts, 1)
}

func TestRejectNeverCountsIntoPaidTotal(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	p := record(t, svc, "300")
	_, err := svc.Reject(ctx, RejectInput{PaymentID: p.ID, Reason: ""})
	require.ErrorIs(t, err, ErrReasonRequired)

	rejected, err := svc.Reject(ctx, RejectInput{PaymentID: p.ID, Reason: "bounced cheque", RejectedBy: 5})
	require.NoError(t, err)
	require.Equal(t, VerificationRejected, rejected.VerificationStatus)
	require.Equal(t, StatusPending, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)

	agg, err := store.Aggregates(ctx, 1)
	require.NoError(t, err)
	require.True(t, agg.Verified.IsZero())
	require.True(t, agg.Pending.IsZero())
	require.Equal(t, invoices.PaymentPending, store.invoices[1].PaymentStatus)
}

func TestTerminalStatesConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rejected := record(t, svc, "100")
	_, err := svc.Reject(ctx, RejectInput{PaymentID: rejected.ID, Reason: "wrong invoice"})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, VerifyInput{PaymentID: rejected.ID})
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	_, err = svc.Reject(ctx, RejectInput{PaymentID: rejected.ID, Reason: "again"})
	require.ErrorIs(t, err, ErrAlreadyFinalized)

	verified := record(t, svc, "100")
	_, err = svc.Verify(ctx, VerifyInput{PaymentID: verified.ID})
	require.NoError(t, err)
	_, err = svc.Reject(ctx, RejectInput{PaymentID: verified.ID, Reason: "late"})
	require.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestRecordWithRedisLock(t *testing.T) {
	svc, _, _ := newTestService(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc.WithLock(shared.NewInvoiceLock(client, time.Second))

	record(t, svc, "250")
	require.False(t, mr.Exists(shared.InvoiceLockKey(1)))
}

func TestConcurrentRecordsNeverOverpay(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Record(ctx, RecordInput{InvoiceID: 1, Amount: d("300"), Method: MethodCash})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
		} else {
			require.ErrorIs(t, err, ErrExceedsBalance)
		}
	}
	require.Equal(t, 3, accepted)

	agg, err := store.Aggregates(ctx, 1)
	require.NoError(t, err)
	require.True(t, agg.Pending.LessThanOrEqual(d("1000")), "pending %s", agg.Pending)
}
