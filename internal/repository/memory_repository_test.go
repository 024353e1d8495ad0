package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dottraffic/backend/internal/model"
)

func TestMemoryStore_SeedClients(t *testing.T) {
	m := NewMemoryStore()
	if err := m.SeedClients("tow:1, ABC:12,XYZ"); err != nil {
		t.Fatalf("SeedClients: %v", err)
	}
	if c, ok := m.Client("TOW"); !ok || c.NextSequence != 1 {
		t.Errorf("unexpected TOW: %+v", c)
	}
	if c, ok := m.Client("ABC"); !ok || c.NextSequence != 12 {
		t.Errorf("unexpected ABC: %+v", c)
	}
	if c, ok := m.Client("XYZ"); !ok || c.NextSequence != 1 {
		t.Errorf("unexpected XYZ: %+v", c)
	}
	if err := m.SeedClients("BAD:x"); err == nil {
		t.Error("expected error for non-numeric counter")
	}
}

func TestMemoryStore_CompareAndSwap_OnlyOneWinner(t *testing.T) {
	m := NewMemoryStore()
	m.PutClient(model.Client{Code: "TOW", NextSequence: 1})
	store := m.Store()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := store.Clients.FindByCode(context.Background(), "TOW")
			if err != nil {
				t.Error(err)
				return
			}
			err = store.Clients.CompareAndSwapSequence(context.Background(), c, 1, 2)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != 19 {
		t.Errorf("expected 1 win and 19 conflicts, got %d/%d", wins, conflicts)
	}
	if c, _ := m.Client("TOW"); c.NextSequence != 2 {
		t.Errorf("expected counter 2, got %d", c.NextSequence)
	}
}

func TestMemoryStore_ProjectsAndUpdates(t *testing.T) {
	m := NewMemoryStore()
	store := m.Store()
	ctx := context.Background()

	p := &model.Project{JobNumber: "TOW 001", Stage: model.InitialStage}
	if err := store.Projects.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Projects.Create(ctx, &model.Project{JobNumber: "TOW 001"}); err == nil {
		t.Error("expected duplicate job number to fail")
	}

	stage := "Live"
	if err := store.Projects.Patch(ctx, p.RecordID, model.ProjectPatch{Stage: &stage}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	got, err := store.Projects.FindByJobNumber(ctx, "TOW 001")
	if err != nil || got.Stage != "Live" {
		t.Fatalf("expected patched stage, got %+v (%v)", got, err)
	}

	for _, text := range []string{"first", "second"} {
		if err := store.Updates.Create(ctx, &model.Update{ProjectLink: p.RecordID, Text: text}); err != nil {
			t.Fatalf("Create update: %v", err)
		}
	}
	list, err := store.Updates.ListByProject(ctx, p.RecordID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(list) != 2 || list[0].Text != "second" {
		t.Errorf("expected newest first, got %+v", list)
	}

	if err := store.Updates.Create(ctx, &model.Update{ProjectLink: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown project, got %v", err)
	}
	if err := store.Projects.Patch(ctx, "missing", model.ProjectPatch{Stage: &stage}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown record, got %v", err)
	}
}
