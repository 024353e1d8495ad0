package repository

import (
	"context"
	"fmt"

	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/pkg/airtable"
)

// AirtableClientRepository は ClientRepository の Airtable 実装
type AirtableClientRepository struct {
	client *airtable.Client
	table  string
}

// NewAirtableClientRepository は AirtableClientRepository を生成する
func NewAirtableClientRepository(client *airtable.Client, table string) *AirtableClientRepository {
	return &AirtableClientRepository{client: client, table: table}
}

// FindByCode は {Client code}='<code>' で検索する
func (r *AirtableClientRepository) FindByCode(ctx context.Context, code string) (*model.Client, error) {
	records, err := r.client.List(ctx, r.table, airtable.FieldEquals(fieldClientCode, code), 1)
	if err != nil {
		return nil, wrapAirtableErr("find client", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return clientFromRecord(records[0]), nil
}

// CompareAndSwapSequence はレコードを読み直して Next # が expected のままなら PATCH する。
// Airtable には条件付き更新が無いため、読み直しと PATCH の間は排他できない。
// 複数プロセス間の排他は呼び出し側のロックが担う。
func (r *AirtableClientRepository) CompareAndSwapSequence(ctx context.Context, client *model.Client, expected, next int) error {
	current, err := r.client.Get(ctx, r.table, client.RecordID)
	if err != nil {
		return wrapAirtableErr("reread client", err)
	}
	if got := (&model.Client{NextSequence: fieldInt(current.Fields, fieldNextSequence)}).Sequence(); got != expected {
		return fmt.Errorf("client %s: next sequence is %d, expected %d: %w", client.Code, got, expected, ErrConflict)
	}
	if _, err := r.client.Update(ctx, r.table, client.RecordID, map[string]any{fieldNextSequence: next}); err != nil {
		return wrapAirtableErr("advance client sequence", err)
	}
	client.NextSequence = next
	return nil
}

func clientFromRecord(rec airtable.Record) *model.Client {
	return &model.Client{
		RecordID:         rec.ID,
		Code:             fieldString(rec.Fields, fieldClientCode),
		Name:             fieldString(rec.Fields, fieldClientName),
		NextSequence:     fieldInt(rec.Fields, fieldNextSequence),
		TeamID:           fieldString(rec.Fields, fieldTeamID),
		CollaborationURL: fieldString(rec.Fields, fieldCollaborationURL),
	}
}
