package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dottraffic/backend/internal/classifier"
)

// StringList は JSON の文字列配列、またはカンマ区切りの 1 つの文字列を受け付ける
type StringList []string

// UnmarshalJSON は ["a","b"] と "a, b" の両方を受け付ける
func (l *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = nil
	if s == nil {
		return nil
	}
	for _, part := range strings.Split(*s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// TrafficRequest は POST /traffic の入力
type TrafficRequest struct {
	EmailContent    string     `json:"emailContent"`
	SubjectLine     string     `json:"subjectLine"`
	SenderEmail     string     `json:"senderEmail"`
	SenderName      string     `json:"senderName"`
	AllRecipients   StringList `json:"allRecipients"`
	HasAttachments  bool       `json:"hasAttachments"`
	AttachmentNames StringList `json:"attachmentNames"`
}

// TrafficService は受信メールの振り分けのインターフェース
type TrafficService interface {
	// Route はメールを分類し、ジョブ番号があれば現在のプロジェクト状態で補う
	Route(ctx context.Context, req TrafficRequest) (classifier.Result, error)
}
