package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/pressroom-erp/pressroom-erp/internal/pricing"
	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

// Totals carries recomputed invoice amounts into the repository.
type Totals struct {
	Subtotal       decimal.Decimal
	WeightCharge   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	TotalWeight    decimal.Decimal
}

// Repository defines data access methods for invoices.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	GetWithDetails(ctx context.Context, id int64) (*WithDetails, error)
	List(ctx context.Context, req ListRequest) ([]Invoice, int, error)
	UpdateStatus(ctx context.Context, id int64, from []Status, to Status, updates map[string]any) error
	SoftDelete(ctx context.Context, id int64) error
	Summary(ctx context.Context) (Summary, error)
}

// TxRepository exposes transactional operations. LockInvoice takes a row lock
// so item edits serialize against concurrent payment acceptance.
type TxRepository interface {
	LockInvoice(ctx context.Context, invoiceID int64) (*Invoice, error)
	PaymentTotals(ctx context.Context, invoiceID int64) (verified, pending decimal.Decimal, err error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertItems(ctx context.Context, invoiceID int64, items []Item) error
	DeleteItems(ctx context.Context, invoiceID int64) error
	UpdateTotals(ctx context.Context, invoiceID int64, totals Totals) error
	SetPaymentStatus(ctx context.Context, invoiceID int64, status PaymentStatus) error
}

// CatalogProduct is the product view the invoice service consumes.
type CatalogProduct struct {
	ID         int64
	Name       string
	UnitPrice  decimal.Decimal
	UnitWeight decimal.Decimal
	TaxRate    decimal.Decimal
	Active     bool
}

// Catalog resolves products referenced by invoice lines.
type Catalog interface {
	Product(ctx context.Context, id int64) (*CatalogProduct, error)
}

// AuditPort records invoice mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const summaryCacheKey = "billing:invoices:summary"

// Service handles invoice business logic.
type Service struct {
	repo     Repository
	catalog  Catalog
	audit    AuditPort
	cache    *redis.Client
	cacheTTL time.Duration
	group    singleflight.Group
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, catalog Catalog, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit, now: time.Now}
}

// WithCache enables Redis-backed summary caching.
func (s *Service) WithCache(client *redis.Client, ttl time.Duration) {
	s.cache = client
	s.cacheTTL = ttl
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create prices the requested items and persists the invoice as draft.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Invoice, error) {
	if input.CustomerID == 0 {
		return nil, ErrCustomerRequired
	}
	if input.BranchID == 0 {
		return nil, ErrBranchRequired
	}

	items, quote, err := s.priceItems(ctx, input.Items, input.Discount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := Invoice{
		Number:         s.generateNumber(now),
		CustomerID:     input.CustomerID,
		BranchID:       input.BranchID,
		Status:         StatusDraft,
		PaymentStatus:  PaymentPending,
		Subtotal:       quote.Subtotal,
		WeightCharge:   quote.WeightCharge,
		TaxAmount:      quote.TaxAmount,
		DiscountAmount: quote.DiscountAmount,
		TotalAmount:    quote.TotalAmount,
		TotalWeight:    quote.TotalWeight,
		Notes:          input.Notes,
		CreatedBy:      input.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		inv.ID = id
		if len(items) > 0 {
			if err := tx.InsertItems(ctx, id, items); err != nil {
				return fmt.Errorf("insert items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	inv.Items = items

	s.recordAudit(ctx, input.CreatedBy, "invoice.create", inv.ID, map[string]any{
		"number": inv.Number,
		"total":  inv.TotalAmount.String(),
	})
	s.invalidateSummary(ctx)
	return &inv, nil
}

// UpdateItems replaces the line items and recomputes totals atomically.
// Recorded payments bound the edit: the new total may not fall below the sum
// of verified and pending payments, and payment_status is re-derived from the
// new total.
func (s *Service) UpdateItems(ctx context.Context, input UpdateItemsInput) (*Invoice, error) {
	existing, err := s.repo.GetByID(ctx, input.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanEditItems() {
		return nil, fmt.Errorf("%w: %s", ErrCannotEditItems, existing.Status)
	}

	items, quote, err := s.priceItems(ctx, input.Items, input.Discount)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockInvoice(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if !locked.Status.CanEditItems() {
			return fmt.Errorf("%w: %s", ErrCannotEditItems, locked.Status)
		}
		verified, pending, err := tx.PaymentTotals(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if committed := verified.Add(pending); quote.TotalAmount.LessThan(committed) {
			return fmt.Errorf("%w: payments total %s", ErrTotalBelowPaid, committed.StringFixed(2))
		}
		if err := tx.DeleteItems(ctx, input.InvoiceID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if len(items) > 0 {
			if err := tx.InsertItems(ctx, input.InvoiceID, items); err != nil {
				return fmt.Errorf("insert items: %w", err)
			}
		}
		if err := tx.UpdateTotals(ctx, input.InvoiceID, Totals{
			Subtotal:       quote.Subtotal,
			WeightCharge:   quote.WeightCharge,
			TaxAmount:      quote.TaxAmount,
			DiscountAmount: quote.DiscountAmount,
			TotalAmount:    quote.TotalAmount,
			TotalWeight:    quote.TotalWeight,
		}); err != nil {
			return err
		}
		if derived := DerivePaymentStatus(quote.TotalAmount, verified); derived != locked.PaymentStatus {
			if err := tx.SetPaymentStatus(ctx, input.InvoiceID, derived); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, input.UpdatedBy, "invoice.update_items", input.InvoiceID, map[string]any{
		"total": quote.TotalAmount.String(),
	})
	s.invalidateSummary(ctx)
	return s.repo.GetByID(ctx, input.InvoiceID)
}

// Submit moves a draft invoice to pending. At least one item is required.
func (s *Service) Submit(ctx context.Context, id, actorID int64) (*Invoice, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanSubmit() {
		return nil, fmt.Errorf("%w: %s", ErrCannotSubmit, existing.Status)
	}
	if len(existing.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := s.repo.UpdateStatus(ctx, id, []Status{StatusDraft}, StatusPending, nil); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "invoice.submit", id, nil)
	s.invalidateSummary(ctx)
	return s.repo.GetByID(ctx, id)
}

// Cancel cancels a draft or pending invoice; a reason is mandatory.
func (s *Service) Cancel(ctx context.Context, input CancelInput) (*Invoice, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, ErrReasonRequired
	}
	existing, err := s.repo.GetByID(ctx, input.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanCancel() {
		return nil, fmt.Errorf("%w: %s", ErrCannotCancel, existing.Status)
	}
	updates := map[string]any{"cancel_reason": input.Reason}
	if err := s.repo.UpdateStatus(ctx, input.InvoiceID, []Status{StatusDraft, StatusPending}, StatusCancelled, updates); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, input.CancelledBy, "invoice.cancel", input.InvoiceID, map[string]any{
		"reason": input.Reason,
	})
	s.invalidateSummary(ctx)
	return s.repo.GetByID(ctx, input.InvoiceID)
}

// MarkProcessing is invoked when a print job enters production.
func (s *Service) MarkProcessing(ctx context.Context, id int64) error {
	err := s.repo.UpdateStatus(ctx, id, []Status{StatusPending}, StatusProcessing, nil)
	if err == nil {
		s.invalidateSummary(ctx)
	}
	return err
}

// MarkCompleted is invoked when a print job finishes production.
func (s *Service) MarkCompleted(ctx context.Context, id int64) error {
	err := s.repo.UpdateStatus(ctx, id, []Status{StatusProcessing}, StatusCompleted, nil)
	if err == nil {
		s.invalidateSummary(ctx)
	}
	return err
}

// Delete soft deletes a draft or cancelled invoice.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !existing.Status.CanDelete() {
		return fmt.Errorf("%w: %s", ErrCannotDelete, existing.Status)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "invoice.delete", id, nil)
	s.invalidateSummary(ctx)
	return nil
}

// GetByID retrieves an invoice.
func (s *Service) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// GetWithDetails retrieves an invoice with items, payments and balances.
func (s *Service) GetWithDetails(ctx context.Context, id int64) (*WithDetails, error) {
	details, err := s.repo.GetWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if details.RemainingBalance.IsNegative() {
		details.RemainingBalance = decimal.Zero
	}
	details.DisplayTotal = shared.FormatRupees(details.TotalAmount)
	details.DisplayBalance = shared.FormatRupees(details.RemainingBalance)
	return details, nil
}

// List returns a filtered, paginated invoice listing.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Invoice, shared.Pagination, error) {
	invs, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return invs, shared.NewPagination(req.Page, req.PerPage, total), nil
}

// GetSummary returns receivable aggregates, cached in Redis and rebuilt
// under singleflight so concurrent dashboard hits share one query.
func (s *Service) GetSummary(ctx context.Context) (Summary, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, summaryCacheKey).Bytes(); err == nil {
			var cached Summary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	result, err, _ := s.group.Do(summaryCacheKey, func() (any, error) {
		summary, err := s.repo.Summary(ctx)
		if err != nil {
			return Summary{}, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(summary); err == nil {
				_ = s.cache.Set(ctx, summaryCacheKey, raw, s.cacheTTL).Err()
			}
		}
		return summary, nil
	})
	if err != nil {
		return Summary{}, err
	}
	summary, ok := result.(Summary)
	if !ok {
		return Summary{}, errors.New("invoices: unexpected summary type")
	}
	return summary, nil
}

func (s *Service) priceItems(ctx context.Context, inputs []ItemInput, discount decimal.Decimal) ([]Item, pricing.Quote, error) {
	engineItems := make([]pricing.Item, 0, len(inputs))
	meta := make([]Item, 0, len(inputs))

	for i, in := range inputs {
		item := Item{
			ProductID:   in.ProductID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
		}
		var unitPrice, unitWeight, taxRate decimal.Decimal
		if in.UnitPrice != nil {
			unitPrice = *in.UnitPrice
		}
		if in.UnitWeight != nil {
			unitWeight = *in.UnitWeight
		}
		if in.TaxRate != nil {
			taxRate = *in.TaxRate
		}

		if in.ProductID != nil {
			product, err := s.catalog.Product(ctx, *in.ProductID)
			if err != nil {
				return nil, pricing.Quote{}, fmt.Errorf("item %d: %w", i+1, err)
			}
			if product == nil {
				return nil, pricing.Quote{}, fmt.Errorf("item %d: %w", i+1, ErrProductNotFound)
			}
			if !product.Active {
				return nil, pricing.Quote{}, fmt.Errorf("item %d: %w", i+1, ErrProductInactive)
			}
			if in.UnitPrice == nil {
				unitPrice = product.UnitPrice
			}
			if in.UnitWeight == nil {
				unitWeight = product.UnitWeight
			}
			if in.TaxRate == nil {
				taxRate = product.TaxRate
			}
			if item.Description == "" {
				item.Description = product.Name
			}
		}

		item.UnitPrice = unitPrice
		item.UnitWeight = unitWeight
		item.TaxRate = taxRate
		meta = append(meta, item)
		engineItems = append(engineItems, pricing.Item{
			Quantity:   in.Quantity,
			UnitPrice:  unitPrice,
			UnitWeight: unitWeight,
			TaxRate:    taxRate,
		})
	}

	quote, err := pricing.Compute(engineItems, discount)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	for i := range meta {
		meta[i].LineTotal = quote.Items[i].LineTotal
		meta[i].LineWeight = quote.Items[i].LineWeight
		meta[i].TaxAmount = quote.Items[i].TaxAmount
	}
	return meta, quote, nil
}

func (s *Service) generateNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", now.Format("200601"), suffix)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, invoiceID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: fmt.Sprintf("%d", invoiceID),
		Meta:     meta,
		At:       s.now(),
	})
}

func (s *Service) invalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, summaryCacheKey).Err()
}
