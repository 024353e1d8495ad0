package repository

import (
	"context"

	"github.com/dottraffic/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgUpdateRepository は UpdateRepository の PostgreSQL 実装
type PgUpdateRepository struct {
	pool *pgxpool.Pool
}

// NewPgUpdateRepository は PgUpdateRepository を生成する
func NewPgUpdateRepository(pool *pgxpool.Pool) *PgUpdateRepository {
	return &PgUpdateRepository{pool: pool}
}

// Create は台帳にエントリを追加する（INSERT のみ）
func (r *PgUpdateRepository) Create(ctx context.Context, update *model.Update) error {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO updates (id, project_id, text, created_on, due_on)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, update.ProjectLink, update.Text, update.CreatedOn, update.DueOn,
	)
	if err != nil {
		return err
	}
	update.RecordID = id
	return nil
}

// ListByProject はプロジェクトの台帳を新しい順に返す
func (r *PgUpdateRepository) ListByProject(ctx context.Context, projectRecordID string) ([]*model.Update, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, text, created_on, due_on
		 FROM updates WHERE project_id = $1
		 ORDER BY created_at DESC`,
		projectRecordID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []*model.Update
	for rows.Next() {
		var u model.Update
		if err := rows.Scan(&u.RecordID, &u.ProjectLink, &u.Text, &u.CreatedOn, &u.DueOn); err != nil {
			return nil, err
		}
		updates = append(updates, &u)
	}
	return updates, rows.Err()
}
