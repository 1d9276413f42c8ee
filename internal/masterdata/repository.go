package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgRepository provides PostgreSQL backed persistence for master data.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Customers

func (r *PgRepository) ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	where, args, argNum := baseFilters(filters, "name", "email")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("masterdata: count customers: %w", err)
	}

	query := `SELECT id, name, email, phone, address, active, created_at, updated_at
		FROM customers` + where + fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limitOffset(filters)...)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("masterdata: list customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *PgRepository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, address, active, created_at, updated_at
		FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("masterdata: get customer %d: %w", id, err)
	}
	return c, nil
}

func (r *PgRepository) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		c.Name, c.Email, c.Phone, c.Address, c.Active).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, fmt.Errorf("masterdata: create customer: %w", err)
	}
	return c, nil
}

func (r *PgRepository) UpdateCustomer(ctx context.Context, id int64, c Customer) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE customers SET name = $2, email = $3, phone = $4, address = $5, updated_at = NOW()
		WHERE id = $1`, id, c.Name, c.Email, c.Phone, c.Address)
	if err != nil {
		return fmt.Errorf("masterdata: update customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) SetCustomerActive(ctx context.Context, id int64, active bool) error {
	return r.setActive(ctx, "customers", id, active)
}

// Branches

func (r *PgRepository) ListBranches(ctx context.Context, filters ListFilters) ([]Branch, int, error) {
	where, args, argNum := baseFilters(filters, "name", "code")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM branches"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("masterdata: count branches: %w", err)
	}

	query := `SELECT id, code, name, address, active, created_at, updated_at
		FROM branches` + where + fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limitOffset(filters)...)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("masterdata: list branches: %w", err)
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		branches = append(branches, b)
	}
	return branches, total, rows.Err()
}

func (r *PgRepository) GetBranch(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, address, active, created_at, updated_at
		FROM branches WHERE id = $1`, id).
		Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrNotFound
		}
		return Branch{}, fmt.Errorf("masterdata: get branch %d: %w", id, err)
	}
	return b, nil
}

func (r *PgRepository) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO branches (code, name, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		b.Code, b.Name, b.Address, b.Active).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Branch{}, ErrDuplicateCode
		}
		return Branch{}, fmt.Errorf("masterdata: create branch: %w", err)
	}
	return b, nil
}

func (r *PgRepository) UpdateBranch(ctx context.Context, id int64, b Branch) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE branches SET code = $2, name = $3, address = $4, updated_at = NOW()
		WHERE id = $1`, id, b.Code, b.Name, b.Address)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("masterdata: update branch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) SetBranchActive(ctx context.Context, id int64, active bool) error {
	return r.setActive(ctx, "branches", id, active)
}

// Products

func (r *PgRepository) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where, args, argNum := baseFilters(filters, "name", "code")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("masterdata: count products: %w", err)
	}

	query := `SELECT id, code, name, unit_price, unit_weight, tax_rate, active, created_at, updated_at
		FROM products` + where + fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limitOffset(filters)...)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("masterdata: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *PgRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, name, unit_price, unit_weight, tax_rate, active, created_at, updated_at
		FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("masterdata: get product %d: %w", id, err)
	}
	return p, nil
}

func (r *PgRepository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, unit_price, unit_weight, tax_rate, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		p.Code, p.Name, p.UnitPrice, p.UnitWeight, p.TaxRate, p.Active).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicateCode
		}
		return Product{}, fmt.Errorf("masterdata: create product: %w", err)
	}
	return p, nil
}

func (r *PgRepository) UpdateProduct(ctx context.Context, id int64, p Product) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE products SET code = $2, name = $3, unit_price = $4, unit_weight = $5, tax_rate = $6, updated_at = NOW()
		WHERE id = $1`, id, p.Code, p.Name, p.UnitPrice, p.UnitWeight, p.TaxRate)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("masterdata: update product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) SetProductActive(ctx context.Context, id int64, active bool) error {
	return r.setActive(ctx, "products", id, active)
}

func (r *PgRepository) setActive(ctx context.Context, table string, id int64, active bool) error {
	result, err := r.pool.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET active = $2, updated_at = NOW() WHERE id = $1", table), id, active)
	if err != nil {
		return fmt.Errorf("masterdata: set active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func baseFilters(filters ListFilters, searchColumns ...string) (string, []any, int) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if filters.Search != "" {
		clause := ""
		for i, col := range searchColumns {
			if i > 0 {
				clause += " OR "
			}
			clause += fmt.Sprintf("%s ILIKE $%d", col, argNum)
		}
		where += " AND (" + clause + ")"
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}
	if filters.IsActive != nil {
		where += fmt.Sprintf(" AND active = $%d", argNum)
		args = append(args, *filters.IsActive)
		argNum++
	}
	return where, args, argNum
}

func limitOffset(filters ListFilters) []any {
	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	return []any{perPage, (page - 1) * perPage}
}

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	var price, weight, tax pgtype.Numeric
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &price, &weight, &tax, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	p.UnitPrice = numericToDecimal(price)
	p.UnitWeight = numericToDecimal(weight)
	p.TaxRate = numericToDecimal(tax)
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
