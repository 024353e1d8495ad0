package service

import (
	"errors"
	"fmt"

	"github.com/dottraffic/backend/internal/repository"
)

// ErrInvalidRequest は必須項目の欠落など、呼び出し側の入力が不正な場合のエラー
var ErrInvalidRequest = errors.New("invalid request")

// ErrDependencyUnavailable は記録ストアや分類サービスが応答しない場合のエラー
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// ErrSentinelJobNumber は未採番（TBC）のジョブ番号でレコードを作ろうとした場合のエラー
var ErrSentinelJobNumber = errors.New("job number is not allocated")

// unavailable は依存先の障害を ErrDependencyUnavailable で包む。
// ErrNotFound / ErrNotConfigured はそのまま返し、呼び出し側で判定できるようにする。
func unavailable(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrNotConfigured) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrDependencyUnavailable, op, err)
}
