package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dottraffic/backend/internal/lock"
	"github.com/dottraffic/backend/internal/metrics"
	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/internal/repository"
)

// AllocatorServiceImpl は AllocatorService の実装。
// 読み取りと書き込みをクライアントコード単位のロックで囲み、書き込みは CAS で行う。
type AllocatorServiceImpl struct {
	clients repository.ClientRepository
	locker  lock.Locker
	opts    Options
}

// NewAllocatorService は AllocatorServiceImpl を生成する（DI: ClientRepository と Locker を注入）
func NewAllocatorService(clients repository.ClientRepository, locker lock.Locker, opts Options) AllocatorService {
	return &AllocatorServiceImpl{clients: clients, locker: locker, opts: opts.withDefaults()}
}

// Allocate は次のジョブ番号を払い出す。
// 未知のクライアントは "<code> TBC" を返す（エラーではない）。
// CAS の競合は opts.MaxAttempts 回まで読み直して再試行し、使い切ると ErrDependencyUnavailable。
func (s *AllocatorServiceImpl) Allocate(ctx context.Context, clientCode string) (Allocation, error) {
	code := strings.ToUpper(strings.TrimSpace(clientCode))
	if code == "" {
		return Allocation{}, fmt.Errorf("%w: client code is required", ErrInvalidRequest)
	}
	sentinel := Allocation{JobNumber: model.SentinelJobNumber(code)}

	release, err := s.locker.Acquire(ctx, "client:"+code)
	if err != nil {
		return s.fallback(code, sentinel, fmt.Errorf("acquire allocation lock: %w", err))
	}
	defer release()

	// ロックが失効した後に書き込むと別インスタンスと同じ番号を払い出しうる
	ctx, cancel := s.opts.leaseCtx(ctx)
	defer cancel()

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			metrics.JobAllocationsTotal.WithLabelValues("lease_expired").Inc()
			return s.fallback(code, sentinel, fmt.Errorf("%w: allocate %s: lock lease ran out before attempt %d: %w",
				ErrDependencyUnavailable, code, attempt, ctx.Err()))
		}
		client, err := s.findClient(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			metrics.JobAllocationsTotal.WithLabelValues("unknown_client").Inc()
			s.opts.Logger.Info("client code not found, job number left unallocated", "client_code", code)
			return sentinel, nil
		}
		if err != nil {
			return s.fallback(code, sentinel, err)
		}

		seq := client.Sequence()
		err = s.swap(ctx, client, seq)
		if err == nil {
			metrics.JobAllocationsTotal.WithLabelValues("allocated").Inc()
			jobNumber := model.FormatJobNumber(code, seq)
			s.opts.Logger.Info("job number allocated", "client_code", code, "job_number", jobNumber, "attempt", attempt)
			return Allocation{
				JobNumber:        jobNumber,
				TeamID:           client.TeamID,
				CollaborationURL: client.CollaborationURL,
				ClientRecordID:   client.RecordID,
			}, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return s.fallback(code, sentinel, err)
		}
		metrics.AllocationConflictsTotal.Inc()
		s.opts.Logger.Warn("job counter changed during allocation, retrying", "client_code", code, "attempt", attempt)
	}

	metrics.JobAllocationsTotal.WithLabelValues("exhausted").Inc()
	err = fmt.Errorf("%w: allocate %s: gave up after %d attempts: %w",
		ErrDependencyUnavailable, code, s.opts.MaxAttempts, repository.ErrConflict)
	return s.fallback(code, sentinel, err)
}

// Lookup はカウンタを進めずにクライアントを読む
func (s *AllocatorServiceImpl) Lookup(ctx context.Context, clientCode string) (ClientInfo, error) {
	code := strings.ToUpper(strings.TrimSpace(clientCode))
	client, err := s.findClient(ctx, code)
	if err != nil {
		return ClientInfo{Code: code}, unavailable("lookup client "+code, err)
	}
	return ClientInfo{
		RecordID:         client.RecordID,
		Code:             client.Code,
		Name:             client.Name,
		TeamID:           client.TeamID,
		CollaborationURL: client.CollaborationURL,
	}, nil
}

func (s *AllocatorServiceImpl) findClient(ctx context.Context, code string) (*model.Client, error) {
	ctx, cancel := s.opts.storeCtx(ctx)
	defer cancel()
	return s.clients.FindByCode(ctx, code)
}

func (s *AllocatorServiceImpl) swap(ctx context.Context, client *model.Client, seq int) error {
	ctx, cancel := s.opts.storeCtx(ctx)
	defer cancel()
	return s.clients.CompareAndSwapSequence(ctx, client, seq, seq+1)
}

// fallback は障害時の振る舞いを決める。
// 未設定のストアと degrade モードでは TBC を返し、strict モードではエラーを返す。
func (s *AllocatorServiceImpl) fallback(code string, sentinel Allocation, err error) (Allocation, error) {
	if errors.Is(err, repository.ErrNotConfigured) || s.opts.Fallback == FallbackDegrade {
		metrics.StoreFallbacksTotal.WithLabelValues("allocate").Inc()
		metrics.JobAllocationsTotal.WithLabelValues("fallback").Inc()
		s.opts.Logger.Warn("record store unavailable, job number left unallocated", "client_code", code, "error", err)
		return sentinel, nil
	}
	metrics.JobAllocationsTotal.WithLabelValues("error").Inc()
	if errors.Is(err, ErrDependencyUnavailable) {
		return Allocation{}, err
	}
	return Allocation{}, fmt.Errorf("%w: allocate %s: %w", ErrDependencyUnavailable, code, err)
}
