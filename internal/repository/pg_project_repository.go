package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dottraffic/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgProjectRepository は ProjectRepository の PostgreSQL 実装
type PgProjectRepository struct {
	pool *pgxpool.Pool
}

// NewPgProjectRepository は PgProjectRepository を生成する
func NewPgProjectRepository(pool *pgxpool.Pool) *PgProjectRepository {
	return &PgProjectRepository{pool: pool}
}

// FindByJobNumber はジョブ番号で 1 件取得する。clients と JOIN してクライアント名を得る。
func (r *PgProjectRepository) FindByJobNumber(ctx context.Context, jobNumber string) (*model.Project, error) {
	var p model.Project
	var clientLink *string
	err := r.pool.QueryRow(ctx,
		`SELECT p.id, p.job_number, p.name, COALESCE(c.name, ''), COALESCE(c.code, ''),
		        p.description, p.owner, p.stage, p.status, p.round, p.with_client,
		        COALESCE(p.channel_id, ''), p.client_id, p.start_date, p.live_date
		 FROM projects p
		 LEFT JOIN clients c ON c.id = p.client_id
		 WHERE p.job_number = $1`,
		jobNumber,
	).Scan(&p.RecordID, &p.JobNumber, &p.Name, &p.ClientName, &p.ClientCode,
		&p.Description, &p.Owner, &p.Stage, &p.Status, &p.Round, &p.WithClient,
		&p.CollaborationChannelID, &clientLink, &p.StartDate, &p.LiveDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if clientLink != nil {
		p.ClientLink = *clientLink
	}
	if p.ClientCode == "" {
		p.ClientCode = model.ClientCodeOf(p.JobNumber)
	}
	return &p, nil
}

// Create はプロジェクトを作成する。job_number の一意制約違反はそのままエラーになる。
func (r *PgProjectRepository) Create(ctx context.Context, project *model.Project) error {
	id := uuid.NewString()
	var clientID *string
	if project.ClientLink != "" {
		clientID = &project.ClientLink
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO projects (id, job_number, name, client_id, description, owner,
		                       stage, status, round, with_client, start_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, project.JobNumber, project.Name, clientID, project.Description, project.Owner,
		project.Stage, project.Status, project.Round, project.WithClient, project.StartDate,
	)
	if err != nil {
		return err
	}
	project.RecordID = id
	return nil
}

// Patch は非 nil フィールドだけを UPDATE する。列名は固定の対応表からのみ組み立てる。
func (r *PgProjectRepository) Patch(ctx context.Context, recordID string, patch model.ProjectPatch) error {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Stage != nil {
		add("stage", *patch.Stage)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.LiveDate != nil {
		add("live_date", *patch.LiveDate)
	}
	if patch.WithClient != nil {
		add("with_client", *patch.WithClient)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, recordID)
	query := "UPDATE projects SET " + strings.Join(sets, ", ") +
		fmt.Sprintf(", updated_at = NOW() WHERE id = $%d", len(args))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
