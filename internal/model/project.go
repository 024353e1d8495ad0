package model

import (
	"strings"
	"time"
)

// 新規プロジェクト作成時の初期値
const (
	InitialStage  = "Triage"
	InitialStatus = "In Progress"
)

// SentinelToken は「まだ採番されていない」ことを示すジョブ番号の目印
const SentinelToken = "TBC"

// Project は Jobs テーブルの 1 レコード
type Project struct {
	RecordID               string     `json:"recordId"`
	JobNumber              string     `json:"jobNumber"`
	Name                   string     `json:"projectName"`
	ClientName             string     `json:"clientName,omitempty"`
	ClientCode             string     `json:"clientCode,omitempty"`
	Description            string     `json:"description,omitempty"`
	Owner                  string     `json:"projectOwner,omitempty"`
	Stage                  string     `json:"stage"`
	Status                 string     `json:"status"`
	Round                  int        `json:"round"`
	WithClient             bool       `json:"withClient"`
	CollaborationChannelID string     `json:"channelId,omitempty"`
	ClientLink             string     `json:"clientLink,omitempty"`
	StartDate              *time.Time `json:"startDate,omitempty"`
	LiveDate               *time.Time `json:"liveDate,omitempty"`
}

// ProjectPatch は Jobs レコードへの部分更新。nil のフィールドは書き込まない。
// Update / Update due はここに存在しない（台帳専用フィールド）。
type ProjectPatch struct {
	Stage      *string    `json:"Stage,omitempty"`
	Status     *string    `json:"Status,omitempty"`
	LiveDate   *time.Time `json:"LiveDate,omitempty"`
	WithClient *bool      `json:"WithClient,omitempty"`
}

// IsEmpty は書き込むフィールドが 1 つも無い場合 true
func (p ProjectPatch) IsEmpty() bool {
	return p.Stage == nil && p.Status == nil && p.LiveDate == nil && p.WithClient == nil
}

// Fields は書き込まれるフィールド名（許可リスト上の名前）を返す
func (p ProjectPatch) Fields() []string {
	var fields []string
	if p.Stage != nil {
		fields = append(fields, "Stage")
	}
	if p.Status != nil {
		fields = append(fields, "Status")
	}
	if p.LiveDate != nil {
		fields = append(fields, "LiveDate")
	}
	if p.WithClient != nil {
		fields = append(fields, "WithClient")
	}
	return fields
}

// IsSentinelJobNumber はジョブ番号が未採番（TBC を含む）かどうかを返す
func IsSentinelJobNumber(jobNumber string) bool {
	return strings.Contains(strings.ToUpper(jobNumber), SentinelToken)
}

// SentinelJobNumber は "<code> TBC" を返す
func SentinelJobNumber(clientCode string) string {
	return clientCode + " " + SentinelToken
}

// ClientCodeOf はジョブ番号 "TOW 023" からクライアントコード "TOW" を取り出す
func ClientCodeOf(jobNumber string) string {
	code, _, _ := strings.Cut(strings.TrimSpace(jobNumber), " ")
	return strings.ToUpper(code)
}
