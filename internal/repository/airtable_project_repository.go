package repository

import (
	"context"

	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/pkg/airtable"
)

// AirtableProjectRepository は ProjectRepository の Airtable 実装
type AirtableProjectRepository struct {
	client *airtable.Client
	table  string
}

// NewAirtableProjectRepository は AirtableProjectRepository を生成する
func NewAirtableProjectRepository(client *airtable.Client, table string) *AirtableProjectRepository {
	return &AirtableProjectRepository{client: client, table: table}
}

// FindByJobNumber は {Job Number}='<jobNumber>' で検索する
func (r *AirtableProjectRepository) FindByJobNumber(ctx context.Context, jobNumber string) (*model.Project, error) {
	records, err := r.client.List(ctx, r.table, airtable.FieldEquals(fieldJobNumber, jobNumber), 1)
	if err != nil {
		return nil, wrapAirtableErr("find project", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return projectFromRecord(records[0]), nil
}

// Create は Jobs にレコードを作成する
func (r *AirtableProjectRepository) Create(ctx context.Context, project *model.Project) error {
	fields := map[string]any{
		fieldJobNumber:   project.JobNumber,
		fieldProjectName: project.Name,
		fieldDescription: project.Description,
		fieldStatus:      project.Status,
		fieldStage:       project.Stage,
		fieldRound:       project.Round,
		fieldOwner:       project.Owner,
	}
	if project.StartDate != nil {
		fields[fieldStartDate] = project.StartDate.Format(model.DateLayout)
	}
	if project.ClientLink != "" {
		fields[fieldClientLink] = []string{project.ClientLink}
	}

	rec, err := r.client.Create(ctx, r.table, fields)
	if err != nil {
		return wrapAirtableErr("create project", err)
	}
	project.RecordID = rec.ID
	return nil
}

// Patch は非 nil フィールドだけを PATCH する
func (r *AirtableProjectRepository) Patch(ctx context.Context, recordID string, patch model.ProjectPatch) error {
	fields := map[string]any{}
	if patch.Stage != nil {
		fields[fieldStage] = *patch.Stage
	}
	if patch.Status != nil {
		fields[fieldStatus] = *patch.Status
	}
	if patch.LiveDate != nil {
		fields[fieldLiveDate] = patch.LiveDate.Format(model.DateLayout)
	}
	if patch.WithClient != nil {
		fields[fieldWithClient] = *patch.WithClient
	}
	if len(fields) == 0 {
		return nil
	}
	_, err := r.client.Update(ctx, r.table, recordID, fields)
	return wrapAirtableErr("patch project", err)
}

func projectFromRecord(rec airtable.Record) *model.Project {
	return &model.Project{
		RecordID:               rec.ID,
		JobNumber:              fieldString(rec.Fields, fieldJobNumber),
		Name:                   fieldString(rec.Fields, fieldProjectName),
		ClientName:             fieldString(rec.Fields, fieldClient),
		ClientCode:             model.ClientCodeOf(fieldString(rec.Fields, fieldJobNumber)),
		Description:            fieldString(rec.Fields, fieldDescription),
		Owner:                  fieldString(rec.Fields, fieldOwner),
		Stage:                  fieldString(rec.Fields, fieldStage),
		Status:                 fieldString(rec.Fields, fieldStatus),
		Round:                  fieldInt(rec.Fields, fieldRound),
		WithClient:             fieldBool(rec.Fields, fieldWithClient),
		CollaborationChannelID: fieldString(rec.Fields, fieldChannelID),
		ClientLink:             fieldString(rec.Fields, fieldClientLink),
		StartDate:              fieldDate(rec.Fields, fieldStartDate),
		LiveDate:               fieldDate(rec.Fields, fieldLiveDate),
	}
}
