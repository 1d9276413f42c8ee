package masterdata

import (
	"context"
	"strings"
)

// Repository defines data access methods for master data.
type Repository interface {
	ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	CreateCustomer(ctx context.Context, c Customer) (Customer, error)
	UpdateCustomer(ctx context.Context, id int64, c Customer) error
	SetCustomerActive(ctx context.Context, id int64, active bool) error

	ListBranches(ctx context.Context, filters ListFilters) ([]Branch, int, error)
	GetBranch(ctx context.Context, id int64) (Branch, error)
	CreateBranch(ctx context.Context, b Branch) (Branch, error)
	UpdateBranch(ctx context.Context, id int64, b Branch) error
	SetBranchActive(ctx context.Context, id int64, active bool) error

	ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, p Product) error
	SetProductActive(ctx context.Context, id int64, active bool) error
}

// Service handles master data business logic.
type Service struct {
	repo Repository
}

// NewService creates a new master data service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Customer operations

func (s *Service) ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	return s.repo.ListCustomers(ctx, filters)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	if err := validateCustomer(&c); err != nil {
		return Customer{}, err
	}
	c.Active = true
	return s.repo.CreateCustomer(ctx, c)
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, c Customer) error {
	if err := validateCustomer(&c); err != nil {
		return err
	}
	return s.repo.UpdateCustomer(ctx, id, c)
}

func (s *Service) SetCustomerActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetCustomerActive(ctx, id, active)
}

// Branch operations

func (s *Service) ListBranches(ctx context.Context, filters ListFilters) ([]Branch, int, error) {
	return s.repo.ListBranches(ctx, filters)
}

func (s *Service) GetBranch(ctx context.Context, id int64) (Branch, error) {
	return s.repo.GetBranch(ctx, id)
}

func (s *Service) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	if err := validateBranch(&b); err != nil {
		return Branch{}, err
	}
	b.Active = true
	return s.repo.CreateBranch(ctx, b)
}

func (s *Service) UpdateBranch(ctx context.Context, id int64, b Branch) error {
	if err := validateBranch(&b); err != nil {
		return err
	}
	return s.repo.UpdateBranch(ctx, id, b)
}

func (s *Service) SetBranchActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetBranchActive(ctx, id, active)
}

// Product operations

func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filters)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if err := validateProduct(&p); err != nil {
		return Product{}, err
	}
	p.Active = true
	return s.repo.CreateProduct(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, p Product) error {
	if err := validateProduct(&p); err != nil {
		return err
	}
	return s.repo.UpdateProduct(ctx, id, p)
}

func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetProductActive(ctx, id, active)
}

func validateCustomer(c *Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ErrNameRequired
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	return nil
}

func validateBranch(b *Branch) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return ErrNameRequired
	}
	b.Code = strings.ToUpper(strings.TrimSpace(b.Code))
	if b.Code == "" {
		return ErrCodeRequired
	}
	b.Address = strings.TrimSpace(b.Address)
	return nil
}

func validateProduct(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrNameRequired
	}
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if p.Code == "" {
		return ErrCodeRequired
	}
	if p.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	if p.UnitWeight.IsNegative() {
		return ErrNegativeWeight
	}
	if p.TaxRate.IsNegative() {
		return ErrNegativeTaxRate
	}
	return nil
}
