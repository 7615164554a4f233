package repository

import (
	"context"
	"fmt"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresAuditRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAuditRepository(pool *pgxpool.Pool) *PostgresAuditRepository {
	return &PostgresAuditRepository{pool: pool}
}

func (r *PostgresAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, actor_id, action_type, payload, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`,
		entry.ID,
		entry.ActorID,
		entry.ActionType,
		encodeJSON(entry.Payload),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
