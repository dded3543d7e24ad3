package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/blockedtokens"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTxDB returns an empty in-memory SQLite database. Fake repositories
// ignore it; it only gives dbx.WithTx real transactions to open and commit.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore is an in-memory stand-in for all repositories. Per-method error
// fields let tests inject failures.
type memStore struct {
	mu sync.Mutex

	users     map[int64]*models.User
	refresh   map[int64]*models.RefreshToken
	blocked   map[string]time.Time
	files     map[int64]*models.File
	nextID    int64
	callCount map[string]int

	errs map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]*models.User{},
		refresh:   map[int64]*models.RefreshToken{},
		blocked:   map[string]time.Time{},
		files:     map[int64]*models.File{},
		callCount: map[string]int{},
		errs:      map[string]error{},
	}
}

func (m *memStore) enter(op string) error {
	m.callCount[op]++
	return m.errs[op]
}

func (m *memStore) calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[op]
}

func (m *memStore) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *memStore) Users(dbx.DBTX) users.Repository {
	return memUsers{m}
}

func (m *memStore) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return memRefresh{m}
}

func (m *memStore) BlockedTokens(dbx.DBTX) blockedtokens.Repository {
	return memBlocked{m}
}

func (m *memStore) Files(dbx.DBTX) files.Repository {
	return memFiles{m}
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.m.users {
		if existing.Login == u.Login {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.m.nextID++
	cp := *u
	cp.ID = r.m.nextID
	cp.CreatedAt = time.Now()
	r.m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r memUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("users.GetUserByLogin"); err != nil {
		return nil, err
	}
	for _, u := range r.m.users {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("users.GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

type memRefresh struct{ m *memStore }

func (r memRefresh) Create(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("refresh.Create"); err != nil {
		return err
	}
	if _, ok := r.m.refresh[userID]; ok {
		return common.ErrorAlreadyExists
	}
	r.m.refresh[userID] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (r memRefresh) Save(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("refresh.Save"); err != nil {
		return err
	}
	r.m.refresh[userID] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (r memRefresh) Rotate(_ context.Context, userID int64, oldToken, newToken string, expiresAt, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("refresh.Rotate"); err != nil {
		return err
	}
	rt, ok := r.m.refresh[userID]
	if !ok || rt.Token != oldToken || !rt.Expires.After(now) {
		return common.ErrorNotFound
	}
	rt.Token = newToken
	rt.Expires = expiresAt
	return nil
}

func (r memRefresh) FindByTokenAndUser(_ context.Context, token string, userID int64) (*models.RefreshToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("refresh.FindByTokenAndUser"); err != nil {
		return nil, err
	}
	rt, ok := r.m.refresh[userID]
	if !ok || rt.Token != token {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (r memRefresh) DeleteByToken(_ context.Context, token string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("refresh.DeleteByToken"); err != nil {
		return err
	}
	for id, rt := range r.m.refresh {
		if rt.Token == token {
			delete(r.m.refresh, id)
		}
	}
	return nil
}

func (r memRefresh) DeleteByUser(_ context.Context, userID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("refresh.DeleteByUser"); err != nil {
		return err
	}
	delete(r.m.refresh, userID)
	return nil
}

func (r memRefresh) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("refresh.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for id, rt := range r.m.refresh {
		if !rt.Expires.After(now) {
			delete(r.m.refresh, id)
			n++
		}
	}
	return n, nil
}

type memBlocked struct{ m *memStore }

func (r memBlocked) Block(_ context.Context, token string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("blocked.Block"); err != nil {
		return err
	}
	if _, ok := r.m.blocked[token]; !ok {
		r.m.blocked[token] = expiresAt
	}
	return nil
}

func (r memBlocked) IsBlocked(_ context.Context, token string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("blocked.IsBlocked"); err != nil {
		return false, err
	}
	_, ok := r.m.blocked[token]
	return ok, nil
}

func (r memBlocked) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("blocked.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for tok, exp := range r.m.blocked {
		if !exp.After(now) {
			delete(r.m.blocked, tok)
			n++
		}
	}
	return n, nil
}

type memFiles struct{ m *memStore }

func (r memFiles) Create(_ context.Context, f *models.File) (*models.File, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("files.Create"); err != nil {
		return nil, err
	}
	r.m.nextID++
	cp := *f
	cp.ID = r.m.nextID
	cp.UploadDate = time.Now()
	r.m.files[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r memFiles) ListByUser(_ context.Context, userID int64, limit, offset int) ([]*models.File, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("files.ListByUser"); err != nil {
		return nil, err
	}
	all := make([]*models.File, 0)
	for _, f := range r.m.files {
		if f.UserID == userID {
			cp := *f
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []*models.File{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r memFiles) GetByID(_ context.Context, id int64) (*models.File, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("files.GetByID"); err != nil {
		return nil, err
	}
	f, ok := r.m.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r memFiles) Update(_ context.Context, f *models.File) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("files.Update"); err != nil {
		return err
	}
	existing, ok := r.m.files[f.ID]
	if !ok || existing.UserID != f.UserID {
		return common.ErrorNotFound
	}
	cp := *f
	cp.UploadDate = time.Now()
	r.m.files[f.ID] = &cp
	return nil
}

func (r memFiles) Delete(_ context.Context, id, userID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.enter("files.Delete"); err != nil {
		return err
	}
	existing, ok := r.m.files[id]
	if !ok || existing.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.m.files, id)
	return nil
}
