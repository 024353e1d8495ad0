package service

import (
	"context"

	"github.com/dottraffic/backend/internal/classifier"
)

// TriageRequest は POST /triage の入力
type TriageRequest struct {
	EmailContent string `json:"emailContent"`
}

// TriageResponse は POST /triage の出力。値が無いフィールドは null になる。
type TriageResponse struct {
	JobNumber        string  `json:"jobNumber"`
	JobName          string  `json:"jobName"`
	ClientCode       string  `json:"clientCode"`
	ClientName       string  `json:"clientName"`
	ProjectOwner     string  `json:"projectOwner"`
	TeamID           *string `json:"teamId"`
	CollaborationURL *string `json:"collaborationUrl"`
	// SharepointURL は CollaborationURL と同じ値。既存の自動化が読むキー名。
	SharepointURL *string           `json:"sharepointUrl"`
	JobRecordID   *string           `json:"jobRecordId"`
	FullAnalysis  classifier.Result `json:"fullAnalysis"`
}

// TriageService は新規ジョブ受付のインターフェース
type TriageService interface {
	// Triage はメールを分類し、採番とジョブ作成を行う
	Triage(ctx context.Context, req TriageRequest) (*TriageResponse, error)
}
