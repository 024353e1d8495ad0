package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/pkg/airtable"
)

// ---------------------------------------------------------------------------
// fakeAirtable records requests and serves canned records per table
// ---------------------------------------------------------------------------

type fakeAirtable struct {
	mu       sync.Mutex
	records  map[string][]airtable.Record // key: table
	patches  []map[string]any
	creates  []map[string]any
	formulas []string
}

func newFakeAirtable(t *testing.T) (*fakeAirtable, *airtable.Client) {
	t.Helper()
	f := &fakeAirtable{records: map[string][]airtable.Record{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	c := airtable.NewClient("key", "appBase", 5*time.Second)
	c.BaseURL = srv.URL
	return f, c
}

func (f *fakeAirtable) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/appBase/"), "/")
	table := parts[0]
	switch r.Method {
	case http.MethodGet:
		if len(parts) == 2 {
			for _, rec := range f.records[table] {
				if rec.ID == parts[1] {
					_ = json.NewEncoder(w).Encode(rec)
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"NOT_FOUND"}`))
			return
		}
		f.formulas = append(f.formulas, r.URL.Query().Get("filterByFormula"))
		_ = json.NewEncoder(w).Encode(map[string]any{"records": f.records[table]})
	case http.MethodPost:
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.creates = append(f.creates, body.Fields)
		_ = json.NewEncoder(w).Encode(airtable.Record{ID: "recCreated", Fields: body.Fields})
	case http.MethodPatch:
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.patches = append(f.patches, body.Fields)
		_ = json.NewEncoder(w).Encode(airtable.Record{ID: parts[1], Fields: body.Fields})
	}
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

func TestAirtableClientRepository_FindByCode(t *testing.T) {
	fake, c := newFakeAirtable(t)
	fake.records["Clients"] = []airtable.Record{{
		ID: "recTOW",
		Fields: map[string]any{
			"Client code":   "TOW",
			"Client name":   "Tower Insurance",
			"Next #":        23,
			"Teams ID":      "team-1",
			"Sharepoint ID": "https://sp/tow",
		},
	}}
	repo := NewAirtableClientRepository(c, "Clients")

	got, err := repo.FindByCode(context.Background(), "TOW")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if got.RecordID != "recTOW" || got.NextSequence != 23 || got.TeamID != "team-1" || got.CollaborationURL != "https://sp/tow" {
		t.Errorf("unexpected client: %+v", got)
	}
	if fake.formulas[0] != "{Client code}='TOW'" {
		t.Errorf("unexpected formula %q", fake.formulas[0])
	}
}

func TestAirtableClientRepository_FindByCode_NotFound(t *testing.T) {
	_, c := newFakeAirtable(t)
	repo := NewAirtableClientRepository(c, "Clients")

	_, err := repo.FindByCode(context.Background(), "ZZZ")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAirtableClientRepository_CompareAndSwap_Advances(t *testing.T) {
	fake, c := newFakeAirtable(t)
	fake.records["Clients"] = []airtable.Record{{ID: "recTOW", Fields: map[string]any{"Client code": "TOW", "Next #": 4}}}
	repo := NewAirtableClientRepository(c, "Clients")

	client := &model.Client{RecordID: "recTOW", Code: "TOW", NextSequence: 4}
	if err := repo.CompareAndSwapSequence(context.Background(), client, 4, 5); err != nil {
		t.Fatalf("CompareAndSwapSequence: %v", err)
	}
	if len(fake.patches) != 1 || fake.patches[0]["Next #"] != float64(5) {
		t.Errorf("expected a single PATCH with Next # = 5, got %v", fake.patches)
	}
	if client.NextSequence != 5 {
		t.Errorf("expected client.NextSequence updated to 5, got %d", client.NextSequence)
	}
}

func TestAirtableClientRepository_CompareAndSwap_ConflictSkipsWrite(t *testing.T) {
	fake, c := newFakeAirtable(t)
	fake.records["Clients"] = []airtable.Record{{ID: "recTOW", Fields: map[string]any{"Client code": "TOW", "Next #": 6}}}
	repo := NewAirtableClientRepository(c, "Clients")

	err := repo.CompareAndSwapSequence(context.Background(), &model.Client{RecordID: "recTOW", Code: "TOW"}, 4, 5)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(fake.patches) != 0 {
		t.Errorf("expected no PATCH on conflict, got %v", fake.patches)
	}
}

func TestAirtableRepositories_NotConfigured(t *testing.T) {
	c := airtable.NewClient("", "", time.Second)
	store := NewAirtableStore(c, AirtableTables{Clients: "Clients", Jobs: "Jobs", Updates: "Updates"})

	if _, err := store.Clients.FindByCode(context.Background(), "TOW"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("clients: expected ErrNotConfigured, got %v", err)
	}
	if _, err := store.Projects.FindByJobNumber(context.Background(), "TOW 001"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("projects: expected ErrNotConfigured, got %v", err)
	}
	if err := store.Updates.Create(context.Background(), &model.Update{ProjectLink: "rec"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("updates: expected ErrNotConfigured, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func TestAirtableProjectRepository_FindByJobNumber_UnwrapsLinkedFields(t *testing.T) {
	fake, c := newFakeAirtable(t)
	fake.records["Jobs"] = []airtable.Record{{
		ID: "recJob",
		Fields: map[string]any{
			"Job Number":       "TOW 023",
			"Project name":     "Renewal mailer",
			"Client":           []any{"Tower Insurance"},
			"Stage":            "Design",
			"Status":           "In Progress",
			"Round":            2,
			"With Client":      true,
			"Teams Channel ID": "19:abc",
			"Client Link":      []any{"recTOW"},
			"Start Date":       "2026-10-01",
		},
	}}
	repo := NewAirtableProjectRepository(c, "Jobs")

	p, err := repo.FindByJobNumber(context.Background(), "TOW 023")
	if err != nil {
		t.Fatalf("FindByJobNumber: %v", err)
	}
	if p.ClientName != "Tower Insurance" {
		t.Errorf("expected first element of linked client, got %q", p.ClientName)
	}
	if p.ClientLink != "recTOW" || p.ClientCode != "TOW" {
		t.Errorf("unexpected client refs: link=%q code=%q", p.ClientLink, p.ClientCode)
	}
	if p.Round != 2 || !p.WithClient || p.CollaborationChannelID != "19:abc" || p.Stage != "Design" {
		t.Errorf("unexpected project: %+v", p)
	}
	if p.StartDate == nil || p.StartDate.Format(model.DateLayout) != "2026-10-01" {
		t.Errorf("unexpected start date: %v", p.StartDate)
	}
}

func TestAirtableProjectRepository_Create_SendsClientLink(t *testing.T) {
	fake, c := newFakeAirtable(t)
	repo := NewAirtableProjectRepository(c, "Jobs")

	start := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	p := &model.Project{
		JobNumber: "TOW 001", Name: "Mailer", Stage: model.InitialStage, Status: model.InitialStatus,
		Owner: "Sam", ClientLink: "recTOW", StartDate: &start,
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.RecordID != "recCreated" {
		t.Errorf("expected record id recCreated, got %q", p.RecordID)
	}
	fields := fake.creates[0]
	if fields["Stage"] != "Triage" || fields["Status"] != "In Progress" || fields["Start Date"] != "2026-10-14" {
		t.Errorf("unexpected create fields: %v", fields)
	}
	link, ok := fields["Client Link"].([]any)
	if !ok || len(link) != 1 || link[0] != "recTOW" {
		t.Errorf("expected Client Link [recTOW], got %v", fields["Client Link"])
	}
}

func TestAirtableProjectRepository_Patch_OnlySetFields(t *testing.T) {
	fake, c := newFakeAirtable(t)
	repo := NewAirtableProjectRepository(c, "Jobs")

	stage := "Live"
	if err := repo.Patch(context.Background(), "recJob", model.ProjectPatch{Stage: &stage}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(fake.patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(fake.patches))
	}
	if len(fake.patches[0]) != 1 || fake.patches[0]["Stage"] != "Live" {
		t.Errorf("unexpected patch payload: %v", fake.patches[0])
	}
}

func TestAirtableProjectRepository_Patch_EmptyIsNoop(t *testing.T) {
	fake, c := newFakeAirtable(t)
	repo := NewAirtableProjectRepository(c, "Jobs")

	if err := repo.Patch(context.Background(), "recJob", model.ProjectPatch{}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(fake.patches) != 0 {
		t.Errorf("expected no request, got %v", fake.patches)
	}
}

// ---------------------------------------------------------------------------
// Updates
// ---------------------------------------------------------------------------

func TestAirtableUpdateRepository_Create(t *testing.T) {
	fake, c := newFakeAirtable(t)
	repo := NewAirtableUpdateRepository(c, "Updates")

	u := &model.Update{
		ProjectLink: "recJob",
		Text:        "shipped",
		CreatedOn:   time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		DueOn:       time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fields := fake.creates[0]
	if fields["Update"] != "shipped" || fields["Update due"] != "2026-10-23" || fields["Created"] != "2026-10-16" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if u.RecordID != "recCreated" {
		t.Errorf("expected record id, got %q", u.RecordID)
	}
}

func TestAirtableUpdateRepository_ListByProject_NewestFirst(t *testing.T) {
	fake, c := newFakeAirtable(t)
	fake.records["Updates"] = []airtable.Record{
		{ID: "u1", Fields: map[string]any{"Update": "first", "Created": "2026-10-01", "Update due": "2026-10-08"}},
		{ID: "u2", Fields: map[string]any{"Update": "second", "Created": "2026-10-05", "Update due": "2026-10-12"}},
	}
	repo := NewAirtableUpdateRepository(c, "Updates")

	got, err := repo.ListByProject(context.Background(), "recJob")
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(got) != 2 || got[0].RecordID != "u2" {
		t.Errorf("expected newest first, got %+v", got)
	}
	if !strings.Contains(fake.formulas[0], "'recJob'") {
		t.Errorf("expected formula to reference the project id, got %q", fake.formulas[0])
	}
}
