package production

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository provides PostgreSQL backed persistence for print jobs.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const jobColumns = `
	id, invoice_id, job_number, status, priority, progress_percentage,
	assigned_to, notes, started_at, completed_at, created_by, created_at, updated_at`

// Create inserts a job. The unique index on invoice_id rejects a second job
// for the same invoice.
func (r *PgRepository) Create(ctx context.Context, job PrintJob) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO print_jobs (
			invoice_id, job_number, status, priority, progress_percentage,
			assigned_to, notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id`,
		job.InvoiceID, job.JobNumber, string(job.Status), string(job.Priority), job.Progress,
		job.AssignedTo, job.Notes, job.CreatedBy,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrJobExists
		}
		return 0, fmt.Errorf("production: create job: %w", err)
	}
	return id, nil
}

// GetByID retrieves a job.
func (r *PgRepository) GetByID(ctx context.Context, id int64) (*PrintJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM print_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("production: get job %d: %w", id, err)
	}
	return job, nil
}

// GetByInvoiceID retrieves the job for an invoice.
func (r *PgRepository) GetByInvoiceID(ctx context.Context, invoiceID int64) (*PrintJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM print_jobs WHERE invoice_id = $1`, invoiceID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("production: get job for invoice %d: %w", invoiceID, err)
	}
	return job, nil
}

// List returns jobs with optional filtering plus the unpaginated count.
func (r *PgRepository) List(ctx context.Context, req ListRequest) ([]PrintJob, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if req.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if req.Priority != "" {
		where += fmt.Sprintf(" AND priority = $%d", argNum)
		args = append(args, string(req.Priority))
		argNum++
	}
	if req.AssignedTo > 0 {
		where += fmt.Sprintf(" AND assigned_to = $%d", argNum)
		args = append(args, req.AssignedTo)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM print_jobs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("production: count: %w", err)
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	query := "SELECT " + jobColumns + " FROM print_jobs" + where + fmt.Sprintf(`
		ORDER BY CASE priority
			WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3
		END, created_at
		LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("production: list: %w", err)
	}
	defer rows.Close()

	var jobs []PrintJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("production: scan: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// Update persists mutable job fields.
func (r *PgRepository) Update(ctx context.Context, job *PrintJob) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE print_jobs SET
			status = $2, priority = $3, progress_percentage = $4,
			assigned_to = $5, notes = $6, started_at = $7, completed_at = $8,
			updated_at = NOW()
		WHERE id = $1`,
		job.ID, string(job.Status), string(job.Priority), job.Progress,
		job.AssignedTo, job.Notes, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("production: update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*PrintJob, error) {
	var job PrintJob
	var assignedTo pgtype.Int8
	var notes pgtype.Text
	var startedAt, completedAt pgtype.Timestamptz

	err := row.Scan(
		&job.ID, &job.InvoiceID, &job.JobNumber, &job.Status, &job.Priority, &job.Progress,
		&assignedTo, &notes, &startedAt, &completedAt, &job.CreatedBy, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assignedTo.Valid {
		job.AssignedTo = &assignedTo.Int64
	}
	if notes.Valid {
		job.Notes = &notes.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}
