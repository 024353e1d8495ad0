package repository

import (
	"context"
	"sort"
	"time"

	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/pkg/airtable"
)

// AirtableUpdateRepository は UpdateRepository の Airtable 実装
type AirtableUpdateRepository struct {
	client *airtable.Client
	table  string
}

// NewAirtableUpdateRepository は AirtableUpdateRepository を生成する
func NewAirtableUpdateRepository(client *airtable.Client, table string) *AirtableUpdateRepository {
	return &AirtableUpdateRepository{client: client, table: table}
}

// Create は Updates にエントリを追加する。既存エントリには触れない。
func (r *AirtableUpdateRepository) Create(ctx context.Context, update *model.Update) error {
	fields := map[string]any{
		fieldProjectLink: []string{update.ProjectLink},
		fieldUpdateText:  update.Text,
		fieldUpdateDue:   update.DueOn.Format(model.DateLayout),
		fieldCreated:     update.CreatedOn.Format(model.DateLayout),
	}
	rec, err := r.client.Create(ctx, r.table, fields)
	if err != nil {
		return wrapAirtableErr("create update", err)
	}
	update.RecordID = rec.ID
	return nil
}

// ListByProject は Project Record ID（リンク先 RECORD_ID() のルックアップ）で絞り込む
func (r *AirtableUpdateRepository) ListByProject(ctx context.Context, projectRecordID string) ([]*model.Update, error) {
	formula := "FIND(" + airtable.Quote(projectRecordID) + ", ARRAYJOIN({" + fieldProjectRecordID + "}))"
	records, err := r.client.List(ctx, r.table, formula, 0)
	if err != nil {
		return nil, wrapAirtableErr("list updates", err)
	}

	updates := make([]*model.Update, 0, len(records))
	for _, rec := range records {
		u := &model.Update{
			RecordID:    rec.ID,
			ProjectLink: projectRecordID,
			Text:        fieldString(rec.Fields, fieldUpdateText),
		}
		if d := fieldDate(rec.Fields, fieldCreated); d != nil {
			u.CreatedOn = *d
		} else if t, err := time.Parse(time.RFC3339, rec.CreatedTime); err == nil {
			u.CreatedOn = t
		}
		if d := fieldDate(rec.Fields, fieldUpdateDue); d != nil {
			u.DueOn = *d
		}
		updates = append(updates, u)
	}
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].CreatedOn.After(updates[j].CreatedOn)
	})
	return updates, nil
}
