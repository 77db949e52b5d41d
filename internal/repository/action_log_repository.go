package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

// ActionLogRepository stores the audit trail of complaint actions.
type ActionLogRepository interface {
	Create(ctx context.Context, entry *domain.ActionLog) error
	ListByComplaint(ctx context.Context, complaintID int64, limit int) ([]domain.ActionLog, error)
}

type actionLogRepository struct {
	pool *pgxpool.Pool
}

// NewActionLogRepository builds the repository.
func NewActionLogRepository(pool *pgxpool.Pool) ActionLogRepository {
	return &actionLogRepository{pool: pool}
}

func (r *actionLogRepository) Create(ctx context.Context, entry *domain.ActionLog) error {
	const query = `
        INSERT INTO complaint_action_logs (id, complaint_id, agent_id, session_id, action, target_dept_id, reason, is_temporary)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.ComplaintID,
		entry.AgentID,
		entry.SessionID,
		entry.Action,
		entry.TargetDepartmentID,
		entry.Reason,
		entry.IsTemporary,
	).Scan(&entry.CreatedAt)
}

func (r *actionLogRepository) ListByComplaint(ctx context.Context, complaintID int64, limit int) ([]domain.ActionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `
        SELECT id, complaint_id, agent_id, session_id, action, target_dept_id, reason, is_temporary, created_at
        FROM complaint_action_logs WHERE complaint_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, complaintID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActionLog
	for rows.Next() {
		var entry domain.ActionLog
		if err := rows.Scan(
			&entry.ID,
			&entry.ComplaintID,
			&entry.AgentID,
			&entry.SessionID,
			&entry.Action,
			&entry.TargetDepartmentID,
			&entry.Reason,
			&entry.IsTemporary,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
