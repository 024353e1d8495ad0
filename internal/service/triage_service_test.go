package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dottraffic/backend/internal/classifier"
	"github.com/dottraffic/backend/internal/lock"
	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/internal/repository"
)

func newTriageFixture(c classifier.Classifier, clients repository.ClientRepository, projects repository.ProjectRepository, opts Options) TriageService {
	alloc := NewAllocatorService(clients, lock.NewLocal(), opts)
	store := NewProjectStoreService(projects, nil, opts)
	return NewTriageService(c, testInstructions, alloc, store, opts)
}

func TestTriageService_Triage_AllocatesAndCreates(t *testing.T) {
	mc := returning(t, `{"clientCode":"tow","clientName":"Tower Ltd","jobName":"Spring campaign","jobSummary":"Posters and social","projectOwner":"Sam"}`)
	clients := &mockClientRepository{
		findFunc: func(context.Context, string) (*model.Client, error) {
			return &model.Client{RecordID: "recTOW", Code: "TOW", NextSequence: 23, TeamID: "team-1", CollaborationURL: "https://share/tow"}, nil
		},
	}
	var created *model.Project
	projects := &mockProjectRepository{
		createFunc: func(_ context.Context, p *model.Project) error {
			created = p
			p.RecordID = "recJob"
			return nil
		},
	}

	got, err := newTriageFixture(mc, clients, projects, testOptions()).Triage(context.Background(), TriageRequest{EmailContent: "We need posters"})
	require.NoError(t, err)
	assert.Equal(t, "TOW 023", got.JobNumber)
	assert.Equal(t, "Spring campaign", got.JobName)
	assert.Equal(t, "TOW", got.ClientCode)
	assert.Equal(t, "Tower Ltd", got.ClientName)
	assert.Equal(t, "Sam", got.ProjectOwner)
	require.NotNil(t, got.TeamID)
	assert.Equal(t, "team-1", *got.TeamID)
	require.NotNil(t, got.SharepointURL)
	assert.Equal(t, "https://share/tow", *got.SharepointURL)
	assert.Equal(t, got.CollaborationURL, got.SharepointURL)
	require.NotNil(t, got.JobRecordID)
	assert.Equal(t, "recJob", *got.JobRecordID)
	assert.Equal(t, "Posters and social", got.FullAnalysis["jobSummary"])

	require.NotNil(t, created)
	assert.Equal(t, "Posters and social", created.Description)
	assert.Equal(t, "recTOW", created.ClientLink)
	assert.Equal(t, "Triage", created.Stage)

	require.Len(t, mc.calls, 1)
	assert.Equal(t, "Email content:\n\nWe need posters", mc.calls[0].Text)
	assert.Equal(t, 2000, mc.calls[0].MaxTokens)
}

func TestTriageService_Triage_HouseAndUnknownCodesSkipAllocation(t *testing.T) {
	for _, raw := range []string{`{"clientCode":"HUN","jobName":"Website refresh"}`, `{"clientCode":"TBC"}`, `{"jobName":"No client"}`} {
		mc := returning(t, raw)
		clients := &mockClientRepository{
			findFunc: func(context.Context, string) (*model.Client, error) {
				t.Error("allocation must be skipped")
				return nil, nil
			},
		}
		projects := &mockProjectRepository{
			createFunc: func(context.Context, *model.Project) error {
				t.Error("project must not be created for a TBC number")
				return nil
			},
		}
		got, err := newTriageFixture(mc, clients, projects, testOptions()).Triage(context.Background(), TriageRequest{EmailContent: "x"})
		require.NoError(t, err)
		assert.True(t, model.IsSentinelJobNumber(got.JobNumber), "job number %q", got.JobNumber)
		assert.Nil(t, got.JobRecordID)
		assert.Nil(t, got.TeamID)
	}
}

func TestTriageService_Triage_Defaults(t *testing.T) {
	mc := returning(t, `{"clientCode":"TBC"}`)
	got, err := newTriageFixture(mc, &mockClientRepository{}, &mockProjectRepository{}, testOptions()).Triage(context.Background(), TriageRequest{EmailContent: "x"})
	require.NoError(t, err)
	assert.Equal(t, "TBC TBC", got.JobNumber)
	assert.Equal(t, "Untitled", got.JobName)
	assert.Equal(t, "", got.ProjectOwner)
}

func TestTriageService_Triage_UnknownClient(t *testing.T) {
	mc := returning(t, `{"clientCode":"ZZZ","jobName":"Mystery"}`)
	clients := &mockClientRepository{
		findFunc: func(context.Context, string) (*model.Client, error) { return nil, repository.ErrNotFound },
	}
	projects := &mockProjectRepository{
		createFunc: func(context.Context, *model.Project) error {
			t.Error("no create for an unknown client")
			return nil
		},
	}
	got, err := newTriageFixture(mc, clients, projects, testOptions()).Triage(context.Background(), TriageRequest{EmailContent: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ZZZ TBC", got.JobNumber)
}

func TestTriageService_Triage_CreateFailure(t *testing.T) {
	mc := returning(t, `{"clientCode":"TOW"}`)
	clients := &mockClientRepository{
		findFunc: func(context.Context, string) (*model.Client, error) {
			return &model.Client{RecordID: "recTOW", Code: "TOW", NextSequence: 4}, nil
		},
	}
	projects := &mockProjectRepository{
		createFunc: func(context.Context, *model.Project) error { return errors.New("HTTP 422") },
	}

	got, err := newTriageFixture(mc, clients, projects, testOptions()).Triage(context.Background(), TriageRequest{EmailContent: "x"})
	require.NoError(t, err)
	assert.Equal(t, "TOW 004", got.JobNumber)
	assert.Nil(t, got.JobRecordID)

	opts := testOptions()
	opts.Fallback = FallbackStrict
	_, err = newTriageFixture(mc, clients, projects, opts).Triage(context.Background(), TriageRequest{EmailContent: "x"})
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestTriageService_Triage_RequiresEmail(t *testing.T) {
	_, err := newTriageFixture(&mockClassifier{}, &mockClientRepository{}, &mockProjectRepository{}, testOptions()).Triage(context.Background(), TriageRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
