package repository

import (
	"context"

	"github.com/dottraffic/backend/internal/model"
)

// ClientRepository は Clients テーブルの永続化インターフェース
type ClientRepository interface {
	// FindByCode はクライアントコード完全一致で 1 件返す。無ければ ErrNotFound。
	FindByCode(ctx context.Context, code string) (*model.Client, error)
	// CompareAndSwapSequence は next_sequence が expected のときだけ next に更新する。
	// 他の書き込みが先行していた場合は ErrConflict。
	CompareAndSwapSequence(ctx context.Context, client *model.Client, expected, next int) error
}

// ProjectRepository は Jobs テーブルの永続化インターフェース
type ProjectRepository interface {
	// FindByJobNumber はジョブ番号完全一致で 1 件返す。無ければ ErrNotFound。
	FindByJobNumber(ctx context.Context, jobNumber string) (*model.Project, error)
	// Create はレコードを作成し、project.RecordID をセットする
	Create(ctx context.Context, project *model.Project) error
	// Patch は patch の非 nil フィールドだけを書き込む
	Patch(ctx context.Context, recordID string, patch model.ProjectPatch) error
}

// UpdateRepository は Updates テーブル（台帳）の永続化インターフェース。追記のみ。
type UpdateRepository interface {
	// Create は新しいエントリを作成し、update.RecordID をセットする
	Create(ctx context.Context, update *model.Update) error
	// ListByProject はプロジェクトに紐づくエントリを新しい順に返す
	ListByProject(ctx context.Context, projectRecordID string) ([]*model.Update, error)
}

// Store は 3 つのリポジトリをまとめたもの
type Store struct {
	Backend  string
	Clients  ClientRepository
	Projects ProjectRepository
	Updates  UpdateRepository
	Close    func()
}
