package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/pkg/airtable"
)

// Airtable のフィールド名（既存ベースのスキーマに合わせる）
const (
	fieldClientCode       = "Client code"
	fieldClientName       = "Client name"
	fieldNextSequence     = "Next #"
	fieldTeamID           = "Teams ID"
	fieldCollaborationURL = "Sharepoint ID"

	fieldJobNumber   = "Job Number"
	fieldProjectName = "Project name"
	fieldClient      = "Client"
	fieldDescription = "Description"
	fieldStatus      = "Status"
	fieldStage       = "Stage"
	fieldRound       = "Round"
	fieldWithClient  = "With Client"
	fieldChannelID   = "Teams Channel ID"
	fieldOwner       = "Project owner"
	fieldStartDate   = "Start Date"
	fieldLiveDate    = "Live Date"
	fieldClientLink  = "Client Link"

	fieldProjectLink     = "Project Link"
	fieldProjectRecordID = "Project Record ID"
	fieldUpdateText      = "Update"
	fieldUpdateDue       = "Update due"
	fieldCreated         = "Created"
)

// AirtableTables は使用するテーブル名
type AirtableTables struct {
	Clients string
	Jobs    string
	Updates string
}

// NewAirtableStore は Airtable バックエンドの Store を返す
func NewAirtableStore(client *airtable.Client, tables AirtableTables) *Store {
	return &Store{
		Backend:  "airtable",
		Clients:  NewAirtableClientRepository(client, tables.Clients),
		Projects: NewAirtableProjectRepository(client, tables.Jobs),
		Updates:  NewAirtableUpdateRepository(client, tables.Updates),
		Close:    func() {},
	}
}

// wrapAirtableErr は未設定エラーを repository の番兵エラーに揃える
func wrapAirtableErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, airtable.ErrNotConfigured) {
		return ErrNotConfigured
	}
	if airtable.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// fieldString は文字列フィールドを取り出す。
// リンク・ルックアップ系のリスト値は先頭要素を使う。
func fieldString(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case []any:
		if len(v) == 0 {
			return ""
		}
		return fieldString(map[string]any{name: v[0]}, name)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func fieldInt(fields map[string]any, name string) int {
	switch v := fields[name].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return int(math.Floor(f))
		}
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	case []any:
		if len(v) > 0 {
			return fieldInt(map[string]any{name: v[0]}, name)
		}
	}
	return 0
}

func fieldBool(fields map[string]any, name string) bool {
	switch v := fields[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func fieldDate(fields map[string]any, name string) *time.Time {
	s := fieldString(fields, name)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}
