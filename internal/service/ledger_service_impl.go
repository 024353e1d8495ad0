package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/internal/repository"
	"github.com/dottraffic/backend/internal/workday"
)

// LedgerServiceImpl は LedgerService の実装
type LedgerServiceImpl struct {
	updates repository.UpdateRepository
	opts    Options
}

// NewLedgerService は LedgerServiceImpl を生成する
func NewLedgerService(updates repository.UpdateRepository, opts Options) LedgerService {
	return &LedgerServiceImpl{updates: updates, opts: opts.withDefaults()}
}

// Append は常に新しいエントリを作る。既存エントリの変更や統合はしない。
func (s *LedgerServiceImpl) Append(ctx context.Context, projectRecordID, text string, dueOn *time.Time) (*model.Update, error) {
	text = strings.TrimSpace(text)
	if projectRecordID == "" {
		return nil, fmt.Errorf("%w: project record is required", ErrInvalidRequest)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: update text is empty", ErrInvalidRequest)
	}

	today := workday.Today(s.opts.Now())
	due := workday.Add(today, workday.DefaultDueDays)
	if dueOn != nil {
		due = workday.Today(*dueOn)
	}
	u := &model.Update{
		ProjectLink: projectRecordID,
		Text:        text,
		CreatedOn:   today,
		DueOn:       due,
	}

	ctx, cancel := s.opts.storeCtx(ctx)
	defer cancel()
	if err := s.updates.Create(ctx, u); err != nil {
		return nil, unavailable("append update", err)
	}
	s.opts.Logger.Info("update logged", "project_record_id", projectRecordID, "record_id", u.RecordID,
		"due_on", u.DueOn.Format(model.DateLayout))
	return u, nil
}

// List はプロジェクトのエントリを新しい順に返す
func (s *LedgerServiceImpl) List(ctx context.Context, projectRecordID string) ([]*model.Update, error) {
	if projectRecordID == "" {
		return nil, fmt.Errorf("%w: project record is required", ErrInvalidRequest)
	}
	ctx, cancel := s.opts.storeCtx(ctx)
	defer cancel()
	list, err := s.updates.ListByProject(ctx, projectRecordID)
	if err != nil {
		return nil, unavailable("list updates", err)
	}
	return list, nil
}
