package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dottraffic/backend/internal/lifecycle"
	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/internal/repository"
	"github.com/dottraffic/backend/internal/workday"
)

// 許可リストのフィールド名
const (
	FieldStage      = "Stage"
	FieldStatus     = "Status"
	FieldLiveDate   = "LiveDate"
	FieldWithClient = "WithClient"
)

// 台帳専用のフィールド名。パッチには決して入らない。
const (
	FieldUpdate    = "Update"
	FieldUpdateDue = "Update due"
)

// ProjectStoreServiceImpl は ProjectStoreService の実装
type ProjectStoreServiceImpl struct {
	projects repository.ProjectRepository
	stages   *lifecycle.Machine
	opts     Options
}

// NewProjectStoreService は ProjectStoreServiceImpl を生成する。stages が nil の場合は組み込みのステージ表を使う。
func NewProjectStoreService(projects repository.ProjectRepository, stages *lifecycle.Machine, opts Options) ProjectStoreService {
	if stages == nil {
		stages = lifecycle.Default()
	}
	return &ProjectStoreServiceImpl{projects: projects, stages: stages, opts: opts.withDefaults()}
}

// Find はジョブ番号でプロジェクトを返す
func (s *ProjectStoreServiceImpl) Find(ctx context.Context, jobNumber string) (*model.Project, error) {
	jobNumber = strings.TrimSpace(jobNumber)
	if jobNumber == "" || model.IsSentinelJobNumber(jobNumber) {
		return nil, fmt.Errorf("job %q: %w", jobNumber, repository.ErrNotFound)
	}
	ctx, cancel := s.opts.storeCtx(ctx)
	defer cancel()
	p, err := s.projects.FindByJobNumber(ctx, jobNumber)
	if err != nil {
		return nil, unavailable("find job "+jobNumber, err)
	}
	return p, nil
}

// Create は Stage=Triage, Status=In Progress, Round=0, StartDate=今日 で新規ジョブを作成する
func (s *ProjectStoreServiceImpl) Create(ctx context.Context, np NewProject) (string, error) {
	if strings.TrimSpace(np.JobNumber) == "" || model.IsSentinelJobNumber(np.JobNumber) {
		return "", fmt.Errorf("%w: %q", ErrSentinelJobNumber, np.JobNumber)
	}
	today := workday.Today(s.opts.Now())
	p := &model.Project{
		JobNumber:   strings.TrimSpace(np.JobNumber),
		Name:        np.Name,
		ClientCode:  np.ClientCode,
		Description: np.Description,
		Owner:       np.Owner,
		Stage:       model.InitialStage,
		Status:      model.InitialStatus,
		Round:       0,
		ClientLink:  np.ClientLink,
		StartDate:   &today,
	}

	ctx, cancel := s.opts.storeCtx(ctx)
	defer cancel()
	if err := s.projects.Create(ctx, p); err != nil {
		return "", unavailable("create job "+p.JobNumber, err)
	}
	s.opts.Logger.Info("job created", "job_number", p.JobNumber, "record_id", p.RecordID)
	return p.RecordID, nil
}

// PatchFields は許可リストに含まれるフィールドだけを書き込む。
// 許可リスト外のキーは黙って捨て（Dropped に記録）、残りが空ならストアに書き込まず成功を返す。
func (s *ProjectStoreServiceImpl) PatchFields(ctx context.Context, jobNumber string, updates map[string]any) (PatchResult, error) {
	patch, dropped := BuildPatch(updates)
	res := PatchResult{Applied: []string{}, Dropped: dropped}
	if patch.IsEmpty() {
		return res, nil
	}

	project, err := s.Find(ctx, jobNumber)
	if err != nil {
		return res, err
	}

	if patch.Stage != nil {
		outcome := s.checkStage(project.Stage, *patch.Stage)
		res.Stage = &outcome
		if outcome.Applied {
			patch.Stage = &outcome.To
		} else {
			patch.Stage = nil
		}
		if outcome.Flagged {
			s.opts.Logger.Warn("stage transition outside the stage table",
				"job_number", project.JobNumber, "from", outcome.From, "to", outcome.To,
				"applied", outcome.Applied, "reason", outcome.Reason)
		}
	}
	if patch.IsEmpty() {
		return res, nil
	}

	pctx, cancel := s.opts.storeCtx(ctx)
	defer cancel()
	if err := s.projects.Patch(pctx, project.RecordID, patch); err != nil {
		if res.Stage != nil {
			res.Stage.Applied = false
		}
		return res, unavailable("patch job "+project.JobNumber, err)
	}
	res.Applied = patch.Fields()
	return res, nil
}

// checkStage はステージ方針に従い、遷移を書き込むかどうかを決める。
// flag 方針ではステージ表に載っているステージへの遷移は常に書き込む。
// ステージ表に無いステージは allow_unknown のときだけ書き込む。
func (s *ProjectStoreServiceImpl) checkStage(from, to string) StageOutcome {
	v := s.stages.Check(from, to)
	_, known := s.stages.Canonical(to)
	applied := v.Allowed
	if !applied && known && s.opts.StagePolicy == StagePolicyFlag {
		applied = true
	}
	return StageOutcome{Verdict: v, Applied: applied}
}

// BuildPatch は分類結果の更新候補から許可リストのフィールドだけを取り出して型変換する。
// 同じフィールドに揃うキーが複数あるときは許可リストと同じ綴りを優先し、無ければソート順で先のキーを使う。
// 2 つ目の戻り値は捨てたキー（許可リスト外、値が使えない、または他のキーに負けたもの）をソート済みで返す。
func BuildPatch(updates map[string]any) (model.ProjectPatch, []string) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var patch model.ProjectPatch
	var dropped []string
	winner := make(map[string]string)
	for _, key := range keys {
		field := foldKey(key)
		prev, taken := winner[field]
		if taken && (prev == patchFieldNames[field] || key != patchFieldNames[field]) {
			dropped = append(dropped, key)
			continue
		}
		if !applyPatchField(&patch, field, updates[key]) {
			dropped = append(dropped, key)
			continue
		}
		if taken {
			dropped = append(dropped, prev)
		}
		winner[field] = key
	}
	sort.Strings(dropped)
	return patch, dropped
}

// patchFieldNames は折り畳んだキーから許可リスト上の綴りへの対応
var patchFieldNames = map[string]string{
	"stage":      FieldStage,
	"status":     FieldStatus,
	"livedate":   FieldLiveDate,
	"withclient": FieldWithClient,
}

// applyPatchField は値が使える場合だけ patch に書き込み true を返す
func applyPatchField(patch *model.ProjectPatch, field string, value any) bool {
	switch field {
	case "stage":
		if s, ok := nonEmptyString(value); ok {
			patch.Stage = &s
			return true
		}
	case "status":
		if s, ok := nonEmptyString(value); ok {
			patch.Status = &s
			return true
		}
	case "livedate":
		if s, ok := nonEmptyString(value); ok {
			if d, err := time.Parse(model.DateLayout, s); err == nil {
				patch.LiveDate = &d
				return true
			}
		}
	case "withclient":
		if b, ok := coerceBool(value); ok {
			patch.WithClient = &b
			return true
		}
	}
	return false
}

// foldKey は "With Client" / "withClient" / "with_client" を同じキーに揃える
func foldKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if r == ' ' || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "y":
			return true, true
		case "no", "false", "n":
			return false, true
		}
	}
	return false, false
}

// isLedgerKey は台帳専用フィールドなら true
func isLedgerKey(key string) bool {
	k := foldKey(key)
	return k == "update" || k == "updatedue"
}
