package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository reads audit_logs from PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Timeline loads a filtered window of audit entries, newest first.
func (r *PgRepository) Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	query := `SELECT id, actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Entity != "" {
		query += fmt.Sprintf(" AND entity = $%d", argNum)
		args = append(args, filters.Entity)
		argNum++
	}
	if filters.EntityID != "" {
		query += fmt.Sprintf(" AND entity_id = $%d", argNum)
		args = append(args, filters.EntityID)
		argNum++
	}
	if filters.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argNum)
		args = append(args, filters.Action)
		argNum++
	}
	if filters.ActorID > 0 {
		query += fmt.Sprintf(" AND actor_id = $%d", argNum)
		args = append(args, filters.ActorID)
		argNum++
	}
	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argNum)
		args = append(args, filters.From)
		argNum++
	}
	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argNum)
		args = append(args, filters.To)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Meta, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
