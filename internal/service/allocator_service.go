package service

import "context"

// Allocation は採番結果。未知のクライアントでは JobNumber が "<code> TBC" で他は空。
type Allocation struct {
	JobNumber        string `json:"jobNumber"`
	TeamID           string `json:"teamId,omitempty"`
	CollaborationURL string `json:"collaborationUrl,omitempty"`
	ClientRecordID   string `json:"clientRecordId,omitempty"`
}

// ClientInfo は採番せずに読んだクライアントの連絡先情報
type ClientInfo struct {
	RecordID         string `json:"recordId"`
	Code             string `json:"code"`
	Name             string `json:"name,omitempty"`
	TeamID           string `json:"teamId,omitempty"`
	CollaborationURL string `json:"collaborationUrl,omitempty"`
}

// AllocatorService はクライアントごとのジョブ番号採番のインターフェース
type AllocatorService interface {
	// Allocate は次のジョブ番号を払い出し、カウンタを 1 進める
	Allocate(ctx context.Context, clientCode string) (Allocation, error)
	// Lookup はカウンタを進めずにクライアント情報を返す
	Lookup(ctx context.Context, clientCode string) (ClientInfo, error)
}
