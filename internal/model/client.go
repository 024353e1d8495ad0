package model

import "fmt"

// Client は Clients テーブルの 1 レコード。このサービスは作成も削除もしない。
type Client struct {
	RecordID         string `json:"recordId"`
	Code             string `json:"code"`
	Name             string `json:"name,omitempty"`
	NextSequence     int    `json:"nextSequence"`
	TeamID           string `json:"teamId,omitempty"`
	CollaborationURL string `json:"collaborationUrl,omitempty"`
}

// Sequence は採番に使う現在値を返す。未設定（0 以下）の場合は 1。
func (c *Client) Sequence() int {
	if c.NextSequence < 1 {
		return 1
	}
	return c.NextSequence
}

// FormatJobNumber は "TOW 001" 形式のジョブ番号を組み立てる
func FormatJobNumber(clientCode string, seq int) string {
	return fmt.Sprintf("%s %03d", clientCode, seq)
}
