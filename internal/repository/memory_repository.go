package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dottraffic/backend/internal/model"
	"github.com/google/uuid"
)

// MemoryStore はプロセス内マップによる記録ストア。ローカル開発と結合テスト用。
// 3 つのリポジトリインターフェースをすべて実装する。
type MemoryStore struct {
	mu       sync.Mutex
	clients  map[string]*model.Client // key: code
	projects map[string]*model.Project
	updates  []*model.Update
	seq      int
}

// NewMemoryStore は空の MemoryStore を生成する
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:  make(map[string]*model.Client),
		projects: make(map[string]*model.Project),
	}
}

// Store は MemoryStore を Store として包む
func (m *MemoryStore) Store() *Store {
	return &Store{
		Backend:  "memory",
		Clients:  memoryClients{m},
		Projects: memoryProjects{m},
		Updates:  memoryUpdates{m},
		Close:    func() {},
	}
}

// PutClient はクライアントを登録する（外部で作成されたクライアントの代わり）
func (m *MemoryStore) PutClient(c model.Client) *model.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.RecordID == "" {
		c.RecordID = "cli_" + uuid.NewString()
	}
	m.clients[c.Code] = &c
	cp := c
	return &cp
}

// PutProject はプロジェクトを直接登録する
func (m *MemoryStore) PutProject(p model.Project) *model.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.RecordID == "" {
		p.RecordID = "job_" + uuid.NewString()
	}
	m.projects[p.RecordID] = &p
	cp := p
	return &cp
}

// Client はコードに対応するクライアントのコピーを返す
func (m *MemoryStore) Client(code string) (model.Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[code]
	if !ok {
		return model.Client{}, false
	}
	return *c, true
}

// Projects は登録済みプロジェクトのコピーを返す
func (m *MemoryStore) Projects() []model.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobNumber < out[j].JobNumber })
	return out
}

// Updates は台帳エントリのコピーを追加順で返す
func (m *MemoryStore) Updates() []model.Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Update, 0, len(m.updates))
	for _, u := range m.updates {
		out = append(out, *u)
	}
	return out
}

// SeedClients は "TOW:1,ABC:12" 形式の文字列からクライアントを登録する
func (m *MemoryStore) SeedClients(list string) error {
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, next, found := strings.Cut(part, ":")
		c := model.Client{Code: strings.ToUpper(strings.TrimSpace(code)), NextSequence: 1}
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(next))
			if err != nil {
				return fmt.Errorf("seed client %q: %w", part, err)
			}
			c.NextSequence = n
		}
		m.PutClient(c)
	}
	return nil
}

type memoryClients struct{ m *MemoryStore }

func (r memoryClients) FindByCode(ctx context.Context, code string) (*model.Client, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.clients[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memoryClients) CompareAndSwapSequence(ctx context.Context, client *model.Client, expected, next int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.clients[client.Code]
	if !ok || c.RecordID != client.RecordID {
		return ErrNotFound
	}
	if c.Sequence() != expected {
		return fmt.Errorf("client %s: %w", client.Code, ErrConflict)
	}
	c.NextSequence = next
	client.NextSequence = next
	return nil
}

type memoryProjects struct{ m *MemoryStore }

func (r memoryProjects) FindByJobNumber(ctx context.Context, jobNumber string) (*model.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.projects {
		if p.JobNumber == jobNumber {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryProjects) Create(ctx context.Context, project *model.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.projects {
		if p.JobNumber == project.JobNumber {
			return fmt.Errorf("job number %s already exists", project.JobNumber)
		}
	}
	project.RecordID = "job_" + uuid.NewString()
	cp := *project
	r.m.projects[cp.RecordID] = &cp
	return nil
}

func (r memoryProjects) Patch(ctx context.Context, recordID string, patch model.ProjectPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.projects[recordID]
	if !ok {
		return ErrNotFound
	}
	if patch.Stage != nil {
		p.Stage = *patch.Stage
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.LiveDate != nil {
		d := *patch.LiveDate
		p.LiveDate = &d
	}
	if patch.WithClient != nil {
		p.WithClient = *patch.WithClient
	}
	return nil
}

type memoryUpdates struct{ m *MemoryStore }

func (r memoryUpdates) Create(ctx context.Context, update *model.Update) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.projects[update.ProjectLink]; !ok {
		return fmt.Errorf("project %s: %w", update.ProjectLink, ErrNotFound)
	}
	r.m.seq++
	update.RecordID = fmt.Sprintf("upd_%06d", r.m.seq)
	cp := *update
	r.m.updates = append(r.m.updates, &cp)
	return nil
}

func (r memoryUpdates) ListByProject(ctx context.Context, projectRecordID string) ([]*model.Update, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Update
	for i := len(r.m.updates) - 1; i >= 0; i-- {
		if u := r.m.updates[i]; u.ProjectLink == projectRecordID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}
