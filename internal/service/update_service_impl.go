package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dottraffic/backend/internal/classifier"
	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/internal/repository"
)

// UpdateServiceImpl は UpdateService の実装
type UpdateServiceImpl struct {
	classifier   classifier.Classifier
	instructions classifier.Instructions
	projects     ProjectStoreService
	ledger       LedgerService
	opts         Options
}

// NewUpdateService は UpdateServiceImpl を生成する
func NewUpdateService(c classifier.Classifier, instructions classifier.Instructions, projects ProjectStoreService, ledger LedgerService, opts Options) UpdateService {
	return &UpdateServiceImpl{
		classifier:   c,
		instructions: instructions,
		projects:     projects,
		ledger:       ledger,
		opts:         opts.withDefaults(),
	}
}

// Update はジョブを引いてから分類する（見つからなければ分類サービスは呼ばない）。
// 台帳追記とフィールド更新は並行に実行し、一方の失敗が他方を止めることはない。
func (s *UpdateServiceImpl) Update(ctx context.Context, req UpdateRequest) (*UpdateResponse, error) {
	jobNumber := strings.TrimSpace(req.JobNumber)
	if jobNumber == "" || strings.TrimSpace(req.EmailContent) == "" {
		return nil, fmt.Errorf("%w: jobNumber and emailContent are required", ErrInvalidRequest)
	}

	project, err := s.projects.Find(ctx, jobNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if !errors.Is(err, ErrDependencyUnavailable) {
			err = fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
		}
		return nil, err
	}

	analysis, err := s.classifier.Classify(ctx, s.instructions.Prompt(classifier.TaskUpdate, updateText(project, req.EmailContent)))
	if err != nil {
		return nil, classifyErr(err)
	}

	fields := proposedFields(analysis)
	text, dueOn, patchFields := splitLedger(fields)

	resp := &UpdateResponse{
		JobNumber:    project.JobNumber,
		JobRecordID:  project.RecordID,
		ProjectName:  project.Name,
		FullAnalysis: analysis,
	}

	// 各枝の失敗は結果に書き込み済み。Wait は最初の失敗をログに残すためだけに使う。
	var g errgroup.Group
	g.Go(func() error {
		var err error
		resp.Ledger, err = s.appendLedger(ctx, project, text, dueOn)
		return err
	})
	g.Go(func() error {
		var err error
		resp.Patch, err = s.patch(ctx, project, patchFields)
		return err
	})
	if err := g.Wait(); err != nil {
		s.opts.Logger.Warn("job update partially applied",
			"job_number", project.JobNumber,
			"ledger_ok", resp.Ledger.Success,
			"patch_ok", resp.Patch.Success,
			"error", err)
	}

	return resp, nil
}

func (s *UpdateServiceImpl) appendLedger(ctx context.Context, project *model.Project, text string, dueOn *time.Time) (LedgerOutcome, error) {
	if strings.TrimSpace(text) == "" {
		return LedgerOutcome{Success: true, Skipped: true}, nil
	}
	u, err := s.ledger.Append(ctx, project.RecordID, text, dueOn)
	if err != nil {
		return LedgerOutcome{Error: err.Error()}, fmt.Errorf("ledger append: %w", err)
	}
	return LedgerOutcome{Success: true, RecordID: u.RecordID, DueOn: u.DueOn.Format(model.DateLayout)}, nil
}

func (s *UpdateServiceImpl) patch(ctx context.Context, project *model.Project, fields map[string]any) (PatchOutcome, error) {
	res, err := s.projects.PatchFields(ctx, project.JobNumber, fields)
	out := PatchOutcome{Success: err == nil, Applied: res.Applied, Dropped: res.Dropped, Stage: res.Stage}
	if out.Applied == nil {
		out.Applied = []string{}
	}
	if err != nil {
		out.Error = err.Error()
		return out, fmt.Errorf("field patch: %w", err)
	}
	return out, nil
}

// updateText は現在のプロジェクト状態を前置きにした本文を作る
func updateText(p *model.Project, email string) string {
	withClient := "no"
	if p.WithClient {
		withClient = "yes"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s - %s\n", p.JobNumber, p.Name)
	fmt.Fprintf(&b, "Client: %s\n", p.ClientName)
	fmt.Fprintf(&b, "Current stage: %s\n", p.Stage)
	fmt.Fprintf(&b, "Current status: %s\n", p.Status)
	fmt.Fprintf(&b, "Round: %d\n", p.Round)
	fmt.Fprintf(&b, "With client: %s\n", withClient)
	b.WriteString("\nEmail content:\n\n")
	b.WriteString(email)
	return b.String()
}

// proposedFields は "updates" オブジェクトがあればそれを、無ければトップレベルを更新候補とする
func proposedFields(analysis classifier.Result) map[string]any {
	if nested, ok := analysis.Object("updates"); ok {
		return nested
	}
	if _, present := analysis["updates"]; present {
		// "updates": null は提案なし
		return map[string]any{}
	}
	return analysis
}

// splitLedger は台帳専用フィールド（Update, Update due）を取り出し、残りをパッチ候補として返す。
// 期日が日付として読めない場合は nil（既定の 5 営業日後）にする。
func splitLedger(fields map[string]any) (string, *time.Time, map[string]any) {
	rest := make(map[string]any, len(fields))
	var text string
	var due *time.Time
	for k, v := range fields {
		if !isLedgerKey(k) {
			rest[k] = v
			continue
		}
		switch foldKey(k) {
		case "update":
			text = ledgerText(v)
		case "updatedue":
			if s, ok := nonEmptyString(v); ok {
				if d, err := time.Parse(model.DateLayout, s); err == nil {
					due = &d
				}
			}
		}
	}
	return text, due, rest
}

func ledgerText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, "\n")
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
