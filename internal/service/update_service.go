package service

import (
	"context"

	"github.com/dottraffic/backend/internal/classifier"
)

// UpdateRequest は POST /update の入力
type UpdateRequest struct {
	JobNumber    string `json:"jobNumber"`
	EmailContent string `json:"emailContent"`
}

// LedgerOutcome は台帳への追記結果
type LedgerOutcome struct {
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped,omitempty"`
	RecordID string `json:"recordId,omitempty"`
	DueOn    string `json:"dueOn,omitempty"`
	Error    string `json:"error,omitempty"`
}

// PatchOutcome はプロジェクトフィールドの更新結果
type PatchOutcome struct {
	Success bool          `json:"success"`
	Applied []string      `json:"applied"`
	Dropped []string      `json:"dropped,omitempty"`
	Stage   *StageOutcome `json:"stage,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// UpdateResponse は POST /update の出力。台帳とパッチの結果は独立して報告する。
type UpdateResponse struct {
	JobNumber    string            `json:"jobNumber"`
	JobRecordID  string            `json:"jobRecordId"`
	ProjectName  string            `json:"projectName"`
	Ledger       LedgerOutcome     `json:"ledger"`
	Patch        PatchOutcome      `json:"patch"`
	FullAnalysis classifier.Result `json:"fullAnalysis"`
}

// UpdateService は既存ジョブの進捗メール処理のインターフェース
type UpdateService interface {
	// Update はメールを分類し、台帳への追記とフィールド更新を行う。
	// ジョブが見つからない場合は repository.ErrNotFound を返す。
	Update(ctx context.Context, req UpdateRequest) (*UpdateResponse, error)
}
