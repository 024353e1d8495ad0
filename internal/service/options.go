package service

import (
	"context"
	"log/slog"
	"time"
)

// FallbackMode は記録ストア障害時の振る舞い
type FallbackMode string

const (
	// FallbackDegrade は障害を TBC / false / 空のエンリッチメントに置き換えて処理を続ける
	FallbackDegrade FallbackMode = "degrade"
	// FallbackStrict は障害を ErrDependencyUnavailable としてリクエストごと失敗させる
	FallbackStrict FallbackMode = "strict"
)

// StagePolicy はステージ表に無い遷移の扱い
type StagePolicy string

const (
	// StagePolicyFlag は遷移を書き込み、結果にフラグを立てる
	StagePolicyFlag StagePolicy = "flag"
	// StagePolicyReject は遷移をパッチから外す
	StagePolicyReject StagePolicy = "reject"
)

// 既定値
const (
	DefaultStoreTimeout    = 10 * time.Second
	DefaultMaxAttempts     = 5
	DefaultHouseClientCode = "HUN"
)

// Options は各サービス共通の設定
type Options struct {
	Fallback        FallbackMode
	StagePolicy     StagePolicy
	StoreTimeout    time.Duration
	MaxAttempts     int
	HouseClientCode string
	// LockLease は採番ロックの有効期限。0 より大きいと採番の読み書きをその 8 割以内に収める。
	LockLease time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Fallback == "" {
		o.Fallback = FallbackDegrade
	}
	if o.StagePolicy == "" {
		o.StagePolicy = StagePolicyFlag
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.HouseClientCode == "" {
		o.HouseClientCode = DefaultHouseClientCode
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// leaseCtx はロック保持中の処理をロックの有効期限より前に打ち切る context を返す
func (o Options) leaseCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.LockLease <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.LockLease-o.LockLease/5)
}

// storeCtx は記録ストア 1 回分のタイムアウト付き context を返す
func (o Options) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.StoreTimeout)
}
