package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeUsers struct {
	signup    func(ctx context.Context, login, password string) (*services.TokenPair, error)
	signin    func(ctx context.Context, login, password string) (*services.TokenPair, error)
	refresh   func(ctx context.Context, token string) (*services.TokenPair, error)
	logout    func(ctx context.Context, access, refresh string) error
	authorize func(ctx context.Context, token string) (*models.User, error)
}

func (f *fakeUsers) Signup(ctx context.Context, login, password string) (*services.TokenPair, error) {
	return f.signup(ctx, login, password)
}

func (f *fakeUsers) Signin(ctx context.Context, login, password string) (*services.TokenPair, error) {
	return f.signin(ctx, login, password)
}

func (f *fakeUsers) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	return f.refresh(ctx, token)
}

func (f *fakeUsers) Logout(ctx context.Context, access, refresh string) error {
	return f.logout(ctx, access, refresh)
}

func (f *fakeUsers) Authorize(ctx context.Context, token string) (*models.User, error) {
	if f.authorize == nil {
		return &models.User{ID: 7, Login: "alice"}, nil
	}
	return f.authorize(ctx, token)
}

type fakeFiles struct {
	upload func(ctx context.Context, userID int64, in services.Upload) (*models.File, error)
	list   func(ctx context.Context, userID int64, listSize, page int) ([]*models.File, error)
	get    func(ctx context.Context, userID, id int64) (*models.File, error)
	open   func(ctx context.Context, userID, id int64) (*models.File, io.ReadCloser, error)
	update func(ctx context.Context, userID, id int64, in services.Upload) (*models.File, error)
	delete func(ctx context.Context, userID, id int64) error
}

func (f *fakeFiles) Upload(ctx context.Context, userID int64, in services.Upload) (*models.File, error) {
	return f.upload(ctx, userID, in)
}

func (f *fakeFiles) List(ctx context.Context, userID int64, listSize, page int) ([]*models.File, error) {
	return f.list(ctx, userID, listSize, page)
}

func (f *fakeFiles) Get(ctx context.Context, userID, id int64) (*models.File, error) {
	return f.get(ctx, userID, id)
}

func (f *fakeFiles) Open(ctx context.Context, userID, id int64) (*models.File, io.ReadCloser, error) {
	return f.open(ctx, userID, id)
}

func (f *fakeFiles) Update(ctx context.Context, userID, id int64, in services.Upload) (*models.File, error) {
	return f.update(ctx, userID, id, in)
}

func (f *fakeFiles) Delete(ctx context.Context, userID, id int64) error {
	return f.delete(ctx, userID, id)
}

func newTestServer(users *fakeUsers, files *fakeFiles) *HTTPServer {
	if users == nil {
		users = &fakeUsers{}
	}
	if files == nil {
		files = &fakeFiles{}
	}
	return NewHTTPServer(":0", logging.Nop{}, users, files, prometheus.NewRegistry(), time.Second)
}

func do(t *testing.T, s *HTTPServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}
