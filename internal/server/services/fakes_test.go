package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/cryptox"
	"github.com/dmitrijs2005/foodcrm/internal/dbx"
	"github.com/dmitrijs2005/foodcrm/internal/server/models"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/entities"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// cheapHashing swaps argon2 parameters for fast ones.
func cheapHashing(t *testing.T) {
	t.Helper()
	orig := hashPassword
	hashPassword = func(p string) (string, error) {
		return cryptox.HashPassword([]byte(p), cryptox.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8})
	}
	t.Cleanup(func() { hashPassword = orig })
}

type fakeUsersRepo struct {
	mu     sync.Mutex
	byName map[string]*models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrAlreadyExists
	}
	u.ID = "u-" + u.UserName
	f.byName[u.UserName] = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeRefreshRepo struct {
	mu        sync.Mutex
	tokens    map[string]models.RefreshToken
	createErr error
	purged    time.Time
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = models.RefreshToken{UserID: userID, Token: token, Expires: expires}
	return nil
}

func (f *fakeRefreshRepo) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tokens, token)
	return &rt, nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = now
	var n int64
	for k, rt := range f.tokens {
		if rt.Expires.Before(now) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

// fakeEntityRepo records calls and fails ids listed in failIDs.
type fakeEntityRepo struct {
	mu      sync.Mutex
	rows    map[string]entities.Row
	failIDs map[string]error
	lastQ   crm.Query
	total   int
	calls   []string
}

func (f *fakeEntityRepo) List(ctx context.Context, q crm.Query) ([]entities.Row, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = q
	var out []entities.Row
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, f.total, nil
}

func (f *fakeEntityRepo) Get(ctx context.Context, id string) (entities.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeEntityRepo) Insert(ctx context.Context, userID string, fields crm.Patch) (entities.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "insert:"+userID)
	row := entities.Row{"id": "new", "created_by": userID}
	for k, v := range fields {
		row[k] = v
	}
	return row, nil
}

func (f *fakeEntityRepo) Update(ctx context.Context, userID, id string, fields crm.Patch) (entities.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update:"+id)
	if err := f.failIDs[id]; err != nil {
		return nil, err
	}
	return entities.Row{"id": id}, nil
}

func (f *fakeEntityRepo) SoftDelete(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+id)
	return f.failIDs[id]
}

type fakeRepoManager struct {
	u      *fakeUsersRepo
	r      *fakeRefreshRepo
	e      *fakeEntityRepo
	tables []string
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{byName: map[string]*models.User{}},
		r: &fakeRefreshRepo{tokens: map[string]models.RefreshToken{}},
		e: &fakeEntityRepo{rows: map[string]entities.Row{}, failIDs: map[string]error{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Entities(db dbx.DBTX, s crm.Schema) entities.Repository {
	m.tables = append(m.tables, s.Table)
	return m.e
}
