package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/khovattu/khovattu/internal/auth"
	"github.com/khovattu/khovattu/internal/rbac"
	"github.com/khovattu/khovattu/internal/shared"
	_ "github.com/khovattu/khovattu/testing"
)

type stubRepo struct {
	users  map[string]*auth.User
	nextID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]*auth.User{}}
}

func (s *stubRepo) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateUser(_ context.Context, user auth.User, roles []string) (int64, error) {
	if _, ok := s.users[user.Username]; ok {
		return 0, auth.ErrUsernameTaken
	}
	s.nextID++
	user.ID = s.nextID
	user.IsActive = true
	user.Roles = roles
	s.users[user.Username] = &user
	return user.ID, nil
}

func (s *stubRepo) ListUsers(_ context.Context) ([]auth.User, error) {
	out := make([]auth.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, err := s.FindByID(context.Background(), id)
	if err != nil {
		return err
	}
	u.IsActive = active
	return nil
}

func (s *stubRepo) CountUsers(_ context.Context) (int, error) {
	return len(s.users), nil
}

type noPermissions struct{}

func (noPermissions) EffectivePermissions(context.Context, int64) ([]string, error) {
	return nil, nil
}

func newRouter(t *testing.T, repo *stubRepo) (http.Handler, *auth.Service) {
	t.Helper()
	svc := auth.NewService(repo, auth.NewTokenIssuer("secret", time.Hour), nil)
	handler := auth.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, rbac.Middleware{Service: noPermissions{}})
	r := chi.NewRouter()
	r.Route("/api/auth", handler.MountRoutes)
	return r, svc
}

func addUser(t *testing.T, repo *stubRepo, username, password string, roles ...string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = repo.CreateUser(context.Background(), auth.User{Username: username, PasswordHash: string(hash), FullName: username}, roles)
	require.NoError(t, err)
}

func login(t *testing.T, h http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesTokenForMe(t *testing.T) {
	repo := newStubRepo()
	addUser(t, repo, "kho1", "secret-pass", "staff")
	h, _ := newRouter(t, repo)

	rec := login(t, h, "kho1", "secret-pass")
	require.Equal(t, http.StatusOK, rec.Code)
	var tok auth.Token
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tok))
	require.NotEmpty(t, tok.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"kho1"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := newStubRepo()
	addUser(t, repo, "kho1", "secret-pass")
	h, _ := newRouter(t, repo)

	require.Equal(t, http.StatusUnauthorized, login(t, h, "kho1", "wrong").Code)
	require.Equal(t, http.StatusUnauthorized, login(t, h, "ghost", "secret-pass").Code)
	require.Equal(t, http.StatusBadRequest, login(t, h, "", "").Code)
}

func TestMeRequiresToken(t *testing.T) {
	h, _ := newRouter(t, newStubRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRequiresPermission(t *testing.T) {
	repo := newStubRepo()
	addUser(t, repo, "staff1", "secret-pass", "staff")
	addUser(t, repo, "root", "secret-pass", "admin")
	h, _ := newRouter(t, repo)

	register := func(username string) int {
		var tok auth.Token
		require.NoError(t, json.NewDecoder(login(t, h, username, "secret-pass").Body).Decode(&tok))
		body := `{"username":"new-user","password":"123456","full_name":"New User","roles":["staff"]}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusForbidden, register("staff1"))
	require.Equal(t, http.StatusCreated, register("root"))
	require.Equal(t, http.StatusConflict, register("root"))
}

func TestSeedAdminOnce(t *testing.T) {
	repo := newStubRepo()
	_, svc := newRouter(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.SeedAdmin(ctx, "admin", "s3cret-pass"))
	require.NoError(t, svc.SeedAdmin(ctx, "admin", "other"))
	require.Len(t, repo.users, 1)
	require.Equal(t, []string{"admin"}, repo.users["admin"].Roles)

	_, err := svc.Login(ctx, auth.LoginInput{Username: "admin", Password: "s3cret-pass"})
	require.NoError(t, err)
}
