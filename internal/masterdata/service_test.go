package masterdata

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	nextID    int64
	customers map[int64]Customer
	branches  map[int64]Branch
	products  map[int64]Product
}

func newMemRepo() *memRepo {
	return &memRepo{
		nextID:    1,
		customers: map[int64]Customer{},
		branches:  map[int64]Branch{},
		products:  map[int64]Product{},
	}
}

func (m *memRepo) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memRepo) ListCustomers(_ context.Context, _ ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memRepo) GetCustomer(_ context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (m *memRepo) CreateCustomer(_ context.Context, c Customer) (Customer, error) {
	c.ID = m.id()
	m.customers[c.ID] = c
	return c, nil
}

func (m *memRepo) UpdateCustomer(_ context.Context, id int64, c Customer) error {
	if _, ok := m.customers[id]; !ok {
		return ErrNotFound
	}
	c.ID = id
	m.customers[id] = c
	return nil
}

func (m *memRepo) SetCustomerActive(_ context.Context, id int64, active bool) error {
	c, ok := m.customers[id]
	if !ok {
		return ErrNotFound
	}
	c.Active = active
	m.customers[id] = c
	return nil
}

func (m *memRepo) ListBranches(_ context.Context, _ ListFilters) ([]Branch, int, error) {
	var out []Branch
	for _, b := range m.branches {
		out = append(out, b)
	}
	return out, len(out), nil
}

func (m *memRepo) GetBranch(_ context.Context, id int64) (Branch, error) {
	b, ok := m.branches[id]
	if !ok {
		return Branch{}, ErrNotFound
	}
	return b, nil
}

func (m *memRepo) CreateBranch(_ context.Context, b Branch) (Branch, error) {
	for _, existing := range m.branches {
		if existing.Code == b.Code {
			return Branch{}, ErrDuplicateCode
		}
	}
	b.ID = m.id()
	m.branches[b.ID] = b
	return b, nil
}

func (m *memRepo) UpdateBranch(_ context.Context, id int64, b Branch) error {
	if _, ok := m.branches[id]; !ok {
		return ErrNotFound
	}
	b.ID = id
	m.branches[id] = b
	return nil
}

func (m *memRepo) SetBranchActive(_ context.Context, id int64, active bool) error {
	b, ok := m.branches[id]
	if !ok {
		return ErrNotFound
	}
	b.Active = active
	m.branches[id] = b
	return nil
}

func (m *memRepo) ListProducts(_ context.Context, _ ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memRepo) GetProduct(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memRepo) CreateProduct(_ context.Context, p Product) (Product, error) {
	p.ID = m.id()
	m.products[p.ID] = p
	return p, nil
}

func (m *memRepo) UpdateProduct(_ context.Context, id int64, p Product) error {
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	p.ID = id
	m.products[id] = p
	return nil
}

func (m *memRepo) SetProductActive(_ context.Context, id int64, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = active
	m.products[id] = p
	return nil
}

func TestCustomerValidation(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, Customer{Name: "   "})
	require.ErrorIs(t, err, ErrNameRequired)

	c, err := svc.CreateCustomer(ctx, Customer{Name: " Acme Press ", Email: " SALES@ACME.COM "})
	require.NoError(t, err)
	require.Equal(t, "Acme Press", c.Name)
	require.Equal(t, "sales@acme.com", c.Email)
	require.True(t, c.Active)
}

func TestBranchCodeNormalized(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.CreateBranch(ctx, Branch{Name: "Main"})
	require.ErrorIs(t, err, ErrCodeRequired)

	b, err := svc.CreateBranch(ctx, Branch{Name: "Main", Code: " hq "})
	require.NoError(t, err)
	require.Equal(t, "HQ", b.Code)

	_, err = svc.CreateBranch(ctx, Branch{Name: "Other", Code: "HQ"})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestProductValidation(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, Product{Name: "Flyer", Code: "FLY", UnitPrice: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrNegativePrice)

	p, err := svc.CreateProduct(ctx, Product{
		Name:       "Flyer A5",
		Code:       "fly-a5",
		UnitPrice:  decimal.NewFromInt(12),
		UnitWeight: decimal.NewFromFloat(0.02),
		TaxRate:    decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.Equal(t, "FLY-A5", p.Code)
	require.True(t, p.Active)
}

func TestCatalogAdapter(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, Product{
		Name:      "Poster",
		Code:      "PST",
		UnitPrice: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.NoError(t, svc.SetProductActive(ctx, p.ID, false))

	catalog := NewCatalog(svc)
	resolved, err := catalog.Product(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	require.False(t, resolved.Active)
	require.True(t, resolved.UnitPrice.Equal(decimal.NewFromInt(100)))

	missing, err := catalog.Product(ctx, 999)
	require.NoError(t, err)
	require.Nil(t, missing)
}
