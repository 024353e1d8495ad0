package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dottraffic/backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgClientRepository は ClientRepository の PostgreSQL 実装
type PgClientRepository struct {
	pool *pgxpool.Pool
}

// NewPgClientRepository は PgClientRepository を生成する
func NewPgClientRepository(pool *pgxpool.Pool) *PgClientRepository {
	return &PgClientRepository{pool: pool}
}

// FindByCode はクライアントコードで 1 件取得する
func (r *PgClientRepository) FindByCode(ctx context.Context, code string) (*model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, COALESCE(name, ''), next_sequence,
		        COALESCE(team_id, ''), COALESCE(collaboration_url, '')
		 FROM clients WHERE code = $1`,
		code,
	).Scan(&c.RecordID, &c.Code, &c.Name, &c.NextSequence, &c.TeamID, &c.CollaborationURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CompareAndSwapSequence は 1 文の条件付き UPDATE で採番カウンタを進める。
// 0 行更新の場合は他の採番が先行しているので ErrConflict。
func (r *PgClientRepository) CompareAndSwapSequence(ctx context.Context, client *model.Client, expected, next int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE clients SET next_sequence = $1, updated_at = NOW()
		 WHERE id = $2 AND GREATEST(next_sequence, 1) = $3`,
		next, client.RecordID, expected,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %s: %w", client.Code, ErrConflict)
	}
	client.NextSequence = next
	return nil
}
