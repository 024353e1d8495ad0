package model

import "time"

// Update は Updates テーブル（台帳）の 1 エントリ。作成後は変更しない。
type Update struct {
	RecordID    string    `json:"recordId"`
	ProjectLink string    `json:"projectLink"`
	Text        string    `json:"text"`
	CreatedOn   time.Time `json:"createdOn"`
	DueOn       time.Time `json:"dueOn"`
}

// DateLayout は記録ストアでの日付表現
const DateLayout = "2006-01-02"
