package service

import (
	"context"
	"time"

	"github.com/dottraffic/backend/internal/model"
)

// LedgerService は更新台帳（追記のみ）のインターフェース
type LedgerService interface {
	// Append は新しいエントリを作成する。dueOn が nil の場合は今日から 5 営業日後。
	Append(ctx context.Context, projectRecordID, text string, dueOn *time.Time) (*model.Update, error)
	// List はプロジェクトのエントリを新しい順に返す
	List(ctx context.Context, projectRecordID string) ([]*model.Update, error)
}
