package store

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

var errNotFound = common.NewServiceError(404, "organization not found", nil)

// ---- helpers ----

type org = crm.Organization

func newOrg(id, name string) org {
	return org{Base: crm.Base{ID: id}, Name: name}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ---- fake service ----

// fakeService implements EntityService[org]. Rows back FindMany by default;
// the function fields override single methods.
type fakeService struct {
	mu    sync.Mutex
	calls map[string]int
	rows  []org

	LastQuery   crm.Query
	LastUpdates []crm.BulkUpdate

	findMany   func(ctx context.Context, q crm.Query) (crm.Page[org], error)
	findByID   func(ctx context.Context, id string) (org, error)
	create     func(ctx context.Context, payload org) (org, error)
	update     func(ctx context.Context, id string, patch crm.Patch) (org, error)
	delete     func(ctx context.Context, id string) error
	deleteMany func(ctx context.Context, ids []string) (crm.BulkResult, error)
	updateMany func(ctx context.Context, updates []crm.BulkUpdate) (crm.BulkResult, error)
}

func newFakeService(rows ...org) *fakeService {
	return &fakeService{calls: map[string]int{}, rows: rows}
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeService) FindMany(ctx context.Context, q crm.Query) (crm.Page[org], error) {
	f.hit("find_many")
	f.mu.Lock()
	f.LastQuery = q
	f.mu.Unlock()
	if f.findMany != nil {
		return f.findMany(ctx, q)
	}
	start := min(q.Offset(), len(f.rows))
	end := min(start+q.Limit, len(f.rows))
	return crm.Page[org]{
		Data:    append([]org(nil), f.rows[start:end]...),
		Page:    q.Page,
		Limit:   q.Limit,
		Count:   len(f.rows),
		HasMore: end < len(f.rows),
	}, nil
}

func (f *fakeService) FindByID(ctx context.Context, id string) (org, error) {
	f.hit("find_by_id")
	if f.findByID != nil {
		return f.findByID(ctx, id)
	}
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return org{}, errNotFound
}

func (f *fakeService) Create(ctx context.Context, payload org) (org, error) {
	f.hit("create")
	if f.create != nil {
		return f.create(ctx, payload)
	}
	payload.ID = "real-" + payload.Name
	return payload, nil
}

func (f *fakeService) Update(ctx context.Context, id string, patch crm.Patch) (org, error) {
	f.hit("update")
	if f.update != nil {
		return f.update(ctx, id, patch)
	}
	return applyPatch(newOrg(id, ""), patch)
}

func (f *fakeService) Delete(ctx context.Context, id string) error {
	f.hit("delete")
	if f.delete != nil {
		return f.delete(ctx, id)
	}
	return nil
}

func (f *fakeService) DeleteMany(ctx context.Context, ids []string) (crm.BulkResult, error) {
	f.hit("delete_many")
	if f.deleteMany != nil {
		return f.deleteMany(ctx, ids)
	}
	return crm.BulkResult{Success: true}, nil
}

func (f *fakeService) UpdateMany(ctx context.Context, updates []crm.BulkUpdate) (crm.BulkResult, error) {
	f.hit("update_many")
	f.mu.Lock()
	f.LastUpdates = updates
	f.mu.Unlock()
	if f.updateMany != nil {
		return f.updateMany(ctx, updates)
	}
	return crm.BulkResult{Success: true}, nil
}

// ---- fake session ----

type fakeSession struct {
	mu   sync.Mutex
	user string
	subs map[int]func(ctx context.Context, ev AuthEvent)
	next int
}

func newFakeSession(user string) *fakeSession {
	return &fakeSession{user: user, subs: map[int]func(context.Context, AuthEvent){}}
}

func (f *fakeSession) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeSession) Subscribe(fn func(ctx context.Context, ev AuthEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeSession) emit(ctx context.Context, ev AuthEvent) {
	f.mu.Lock()
	f.user = ev.UserID
	subs := make([]func(context.Context, AuthEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ctx, ev)
	}
}

type fakeLookup struct {
	name string
	ids  map[string]bool
}

func (f fakeLookup) Name() string            { return f.name }
func (f fakeLookup) Contains(id string) bool { return f.ids[id] }

func newTestStore(svc *fakeService, clock *fakeClock, opts ...func(*Options[org])) *Store[org] {
	o := Options[org]{
		Name:         "organizations",
		TTL:          5 * time.Minute,
		PageSize:     2,
		SearchFields: []string{"name", "city"},
		Now:          clock.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return New[org](svc, o)
}
