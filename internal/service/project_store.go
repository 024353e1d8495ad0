package service

import (
	"context"

	"github.com/dottraffic/backend/internal/lifecycle"
	"github.com/dottraffic/backend/internal/model"
)

// NewProject は Triage で作成するジョブの入力
type NewProject struct {
	JobNumber   string
	Name        string
	ClientCode  string
	Description string
	Owner       string
	ClientLink  string
}

// StageOutcome はステージ遷移の判定と、それが書き込まれたかどうか
type StageOutcome struct {
	lifecycle.Verdict
	Applied bool `json:"applied"`
}

// PatchResult は PatchFields の結果
type PatchResult struct {
	Applied []string      `json:"applied"`
	Dropped []string      `json:"dropped,omitempty"`
	Stage   *StageOutcome `json:"stage,omitempty"`
}

// ProjectStoreService は Jobs レコードの読み書きのインターフェース
type ProjectStoreService interface {
	// Find はジョブ番号でプロジェクトを返す。TBC を含む番号はストアに問い合わせず ErrNotFound。
	Find(ctx context.Context, jobNumber string) (*model.Project, error)
	// Create は新規ジョブを作成しレコード ID を返す。TBC の番号は ErrSentinelJobNumber。
	Create(ctx context.Context, p NewProject) (string, error)
	// PatchFields は許可リスト {Stage, Status, LiveDate, WithClient} のフィールドだけを書き込む
	PatchFields(ctx context.Context, jobNumber string, updates map[string]any) (PatchResult, error)
}
