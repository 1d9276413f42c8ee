package invoices

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*Invoice
	verified map[int64]decimal.Decimal
	pending  map[int64]decimal.Decimal
	summary  Summary
	queries  int
}

func newMemRepo() *memRepo {
	return &memRepo{
		nextID:   1,
		byID:     map[int64]*Invoice{},
		verified: map[int64]decimal.Decimal{},
		pending:  map[int64]decimal.Decimal{},
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) LockInvoice(ctx context.Context, invoiceID int64) (*Invoice, error) {
	return m.GetByID(ctx, invoiceID)
}

func (m *memRepo) PaymentTotals(_ context.Context, invoiceID int64) (decimal.Decimal, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verified[invoiceID], m.pending[invoiceID], nil
}

func (m *memRepo) SetPaymentStatus(_ context.Context, invoiceID int64, status PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[invoiceID]
	if !ok || inv.DeletedAt != nil {
		return ErrNotFound
	}
	inv.PaymentStatus = status
	return nil
}

func (m *memRepo) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = m.nextID
	m.nextID++
	m.byID[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memRepo) InsertItems(_ context.Context, invoiceID int64, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := m.byID[invoiceID]
	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	inv.Items = append(inv.Items, items...)
	return nil
}

func (m *memRepo) DeleteItems(_ context.Context, invoiceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.byID[invoiceID]; ok {
		inv.Items = nil
	}
	return nil
}

func (m *memRepo) UpdateTotals(_ context.Context, invoiceID int64, totals Totals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[invoiceID]
	if !ok || inv.DeletedAt != nil {
		return ErrNotFound
	}
	inv.Subtotal = totals.Subtotal
	inv.WeightCharge = totals.WeightCharge
	inv.TaxAmount = totals.TaxAmount
	inv.DiscountAmount = totals.DiscountAmount
	inv.TotalAmount = totals.TotalAmount
	inv.TotalWeight = totals.TotalWeight
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok || inv.DeletedAt != nil {
		return nil, ErrNotFound
	}
	copied := *inv
	copied.Items = append([]Item(nil), inv.Items...)
	return &copied, nil
}

func (m *memRepo) GetWithDetails(ctx context.Context, id int64) (*WithDetails, error) {
	inv, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WithDetails{
		Invoice:          *inv,
		RemainingBalance: inv.TotalAmount,
	}, nil
}

func (m *memRepo) List(_ context.Context, req ListRequest) ([]Invoice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Invoice
	for _, inv := range m.byID {
		if inv.DeletedAt != nil {
			continue
		}
		if req.Status != "" && inv.Status != req.Status {
			continue
		}
		if req.CustomerID > 0 && inv.CustomerID != req.CustomerID {
			continue
		}
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id int64, from []Status, to Status, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok || inv.DeletedAt != nil {
		return ErrInvalidTransition
	}
	allowed := false
	for _, st := range from {
		if inv.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidTransition
	}
	inv.Status = to
	if reason, ok := updates["cancel_reason"].(string); ok {
		inv.CancelReason = &reason
	}
	return nil
}

func (m *memRepo) SoftDelete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok || inv.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	inv.DeletedAt = &now
	return nil
}

func (m *memRepo) Summary(_ context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	return m.summary, nil
}

type memCatalog struct {
	products map[int64]CatalogProduct
}

func (c *memCatalog) Product(_ context.Context, id int64) (*CatalogProduct, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
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

func newTestService(t *testing.T) (*Service, *memRepo, *memAudit) {
	t.Helper()
	repo := newMemRepo()
	catalog := &memCatalog{products: map[int64]CatalogProduct{
		10: {ID: 10, Name: "Business Cards", UnitPrice: d("100"), UnitWeight: d("0.5"), TaxRate: d("0"), Active: true},
		11: {ID: 11, Name: "Discontinued Flyers", UnitPrice: d("40"), UnitWeight: d("0.1"), Active: false},
	}}
	audit := &memAudit{}
	svc := NewService(repo, catalog, audit)
	svc.WithNow(func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	})
	return svc, repo, audit
}

func TestCreateComputesTotals(t *testing.T) {
	svc, _, audit := newTestService(t)

	inv, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		BranchID:   2,
		Discount:   d("20"),
		Items: []ItemInput{
			{Description: "Poster A2", Quantity: d("2"), UnitPrice: decPtr("100"), UnitWeight: decPtr("0.75")},
			{Description: "Lamination", Quantity: d("1"), UnitPrice: decPtr("50"), UnitWeight: decPtr("0.5")},
		},
		CreatedBy: 7,
	})
	require.NoError(t, err)
	require.NotZero(t, inv.ID)
	require.Equal(t, StatusDraft, inv.Status)
	require.Equal(t, PaymentPending, inv.PaymentStatus)
	require.True(t, inv.Subtotal.Equal(d("250")), "subtotal %s", inv.Subtotal)
	require.True(t, inv.TotalWeight.Equal(d("2")), "weight %s", inv.TotalWeight)
	require.True(t, inv.WeightCharge.Equal(d("300")), "weight charge %s", inv.WeightCharge)
	require.True(t, inv.TotalAmount.Equal(d("530")), "total %s", inv.TotalAmount)
	require.Regexp(t, `^INV-202603-[0-9A-F]{8}$`, inv.Number)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "invoice.create", audit.logs[0].Action)
	require.Equal(t, int64(7), audit.logs[0].ActorID)
}

func TestCreateFillsPricingFromCatalog(t *testing.T) {
	svc, _, _ := newTestService(t)

	productID := int64(10)
	inv, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		BranchID:   1,
		Items: []ItemInput{
			{ProductID: &productID, Quantity: d("3")},
		},
	})
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	require.Equal(t, "Business Cards", inv.Items[0].Description)
	require.True(t, inv.Items[0].UnitPrice.Equal(d("100")))
	require.True(t, inv.Subtotal.Equal(d("300")))
	require.True(t, inv.TotalWeight.Equal(d("1.5")))
	require.True(t, inv.WeightCharge.Equal(d("300")))
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	productID := int64(11)
	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		BranchID:   1,
		Items:      []ItemInput{{ProductID: &productID, Quantity: d("1")}},
	})
	require.ErrorIs(t, err, ErrProductInactive)
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	productID := int64(999)
	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		BranchID:   1,
		Items:      []ItemInput{{ProductID: &productID, Quantity: d("1")}},
	})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateItemsRecomputesTotals(t *testing.T) {
	svc, _, _ := newTestService(t)

	inv := mustCreate(t, svc)
	updated, err := svc.UpdateItems(context.Background(), UpdateItemsInput{
		InvoiceID: inv.ID,
		Items: []ItemInput{
			{Description: "Banner", Quantity: d("1"), UnitPrice: decPtr("1000"), UnitWeight: decPtr("6")},
		},
	})
	require.NoError(t, err)
	require.True(t, updated.Subtotal.Equal(d("1000")))
	require.True(t, updated.WeightCharge.Equal(d("550")), "charge %s", updated.WeightCharge)
	require.Len(t, updated.Items, 1)
}

func TestUpdateItemsRejectedAfterProcessing(t *testing.T) {
	svc, repo, _ := newTestService(t)

	inv := mustCreate(t, svc)
	repo.byID[inv.ID].Status = StatusProcessing

	_, err := svc.UpdateItems(context.Background(), UpdateItemsInput{
		InvoiceID: inv.ID,
		Items:     []ItemInput{{Description: "x", Quantity: d("1"), UnitPrice: decPtr("1")}},
	})
	require.ErrorIs(t, err, ErrCannotEditItems)
}

func TestUpdateItemsRejectedBelowRecordedPayments(t *testing.T) {
	svc, repo, _ := newTestService(t)

	inv := mustCreate(t, svc)
	repo.byID[inv.ID].Status = StatusPending
	repo.byID[inv.ID].PaymentStatus = PaymentPaid
	repo.verified[inv.ID] = d("300")

	_, err := svc.UpdateItems(context.Background(), UpdateItemsInput{
		InvoiceID: inv.ID,
		Items: []ItemInput{
			{Description: "Sticker", Quantity: d("1"), UnitPrice: decPtr("10"), UnitWeight: decPtr("0.2")},
		},
	})
	require.ErrorIs(t, err, ErrTotalBelowPaid)

	unchanged, err := svc.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.True(t, unchanged.TotalAmount.Equal(d("300")), "total %s", unchanged.TotalAmount)
	require.Equal(t, PaymentPaid, unchanged.PaymentStatus)
}

func TestUpdateItemsCountsPendingPaymentsAgainstTotal(t *testing.T) {
	svc, repo, _ := newTestService(t)

	inv := mustCreate(t, svc)
	repo.byID[inv.ID].Status = StatusPending
	repo.verified[inv.ID] = d("100")
	repo.pending[inv.ID] = d("150")

	_, err := svc.UpdateItems(context.Background(), UpdateItemsInput{
		InvoiceID: inv.ID,
		Items: []ItemInput{
			{Description: "Sticker", Quantity: d("1"), UnitPrice: decPtr("10"), UnitWeight: decPtr("0.2")},
		},
	})
	require.ErrorIs(t, err, ErrTotalBelowPaid)
}

func TestUpdateItemsRederivesPaymentStatus(t *testing.T) {
	svc, repo, _ := newTestService(t)

	inv := mustCreate(t, svc)
	repo.byID[inv.ID].Status = StatusPending
	repo.byID[inv.ID].PaymentStatus = PaymentPaid
	repo.verified[inv.ID] = d("300")

	updated, err := svc.UpdateItems(context.Background(), UpdateItemsInput{
		InvoiceID: inv.ID,
		Items: []ItemInput{
			{Description: "Banner", Quantity: d("1"), UnitPrice: decPtr("1000"), UnitWeight: decPtr("1")},
		},
	})
	require.NoError(t, err)
	require.True(t, updated.TotalAmount.Equal(d("1200")), "total %s", updated.TotalAmount)
	require.Equal(t, PaymentPartiallyPaid, updated.PaymentStatus)
}

func TestDerivePaymentStatus(t *testing.T) {
	require.Equal(t, PaymentPending, DerivePaymentStatus(d("100"), d("0")))
	require.Equal(t, PaymentPartiallyPaid, DerivePaymentStatus(d("100"), d("40")))
	require.Equal(t, PaymentPaid, DerivePaymentStatus(d("100"), d("100")))
	require.Equal(t, PaymentPaid, DerivePaymentStatus(d("0"), d("0")))
}

func TestSubmitRequiresItems(t *testing.T) {
	svc, _, _ := newTestService(t)

	inv, err := svc.Create(context.Background(), CreateInput{CustomerID: 1, BranchID: 1})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), inv.ID, 1)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestSubmitThenLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)

	inv := mustCreate(t, svc)
	submitted, err := svc.Submit(context.Background(), inv.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusPending, submitted.Status)

	_, err = svc.Submit(context.Background(), inv.ID, 1)
	require.ErrorIs(t, err, ErrCannotSubmit)

	require.NoError(t, svc.MarkProcessing(context.Background(), inv.ID))
	require.NoError(t, svc.MarkCompleted(context.Background(), inv.ID))

	final, err := svc.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, final.Status)
}

func TestCancelRequiresReason(t *testing.T) {
	svc, _, _ := newTestService(t)

	inv := mustCreate(t, svc)
	_, err := svc.Cancel(context.Background(), CancelInput{InvoiceID: inv.ID, Reason: "  "})
	require.ErrorIs(t, err, ErrReasonRequired)

	cancelled, err := svc.Cancel(context.Background(), CancelInput{InvoiceID: inv.ID, Reason: "customer withdrew"})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	require.Equal(t, "customer withdrew", *cancelled.CancelReason)
}

func TestCancelRejectedOnceProcessing(t *testing.T) {
	svc, repo, _ := newTestService(t)

	inv := mustCreate(t, svc)
	repo.byID[inv.ID].Status = StatusProcessing

	_, err := svc.Cancel(context.Background(), CancelInput{InvoiceID: inv.ID, Reason: "too late"})
	require.ErrorIs(t, err, ErrCannotCancel)
}

func TestDeleteOnlyDraftOrCancelled(t *testing.T) {
	svc, repo, _ := newTestService(t)

	inv := mustCreate(t, svc)
	repo.byID[inv.ID].Status = StatusPending
	require.ErrorIs(t, svc.Delete(context.Background(), inv.ID, 1), ErrCannotDelete)

	repo.byID[inv.ID].Status = StatusCancelled
	require.NoError(t, svc.Delete(context.Background(), inv.ID, 1))

	_, err := svc.GetByID(context.Background(), inv.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetWithDetailsFloorsBalanceAndFormats(t *testing.T) {
	svc, repo, _ := newTestService(t)

	inv := mustCreate(t, svc)
	repo.byID[inv.ID].TotalAmount = d("1234.5")

	details, err := svc.GetWithDetails(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, "Rs. 1,234.50", details.DisplayTotal)
	require.False(t, details.RemainingBalance.IsNegative())
}

func TestSummaryCachedInRedis(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.summary = Summary{TotalInvoices: 4, ByStatus: map[string]int{"draft": 4}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc.WithCache(client, time.Minute)

	first, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, first.TotalInvoices)

	second, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, second.TotalInvoices)
	require.Equal(t, 1, repo.queries)

	_ = mustCreate(t, svc)
	_, err = svc.GetSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.queries)
}

func mustCreate(t *testing.T, svc *Service) *Invoice {
	t.Helper()
	inv, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		BranchID:   1,
		Items: []ItemInput{
			{Description: "Poster", Quantity: d("1"), UnitPrice: decPtr("100"), UnitWeight: decPtr("1")},
		},
	})
	require.NoError(t, err)
	return inv
}

func decPtr(s string) *decimal.Decimal {
	v := d(s)
	return &v
}
