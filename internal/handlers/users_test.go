package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hagzilla/apiserver/internal/auth"
	"github.com/hagzilla/apiserver/internal/services"
	"github.com/hagzilla/apiserver/internal/store"
	"github.com/hagzilla/apiserver/types"
)

type stubUserService struct {
	users   map[int]types.User
	nextID  int
	pwCheck string
	err     error
}

func newStubUserService(users ...types.User) *stubUserService {
	s := &stubUserService{users: map[int]types.User{}, nextID: 100, pwCheck: "secret"}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUserService) Register(_ context.Context, username, _ string, budget float64) (types.User, error) {
	if s.err != nil {
		return types.User{}, s.err
	}
	for _, u := range s.users {
		if u.Username == username {
			return types.User{}, store.ErrConflict
		}
	}
	s.nextID++
	u := types.User{ID: s.nextID, Username: username, Budget: budget, Role: types.RoleUser}
	s.users[u.ID] = u
	return u, nil
}

func (s *stubUserService) GetByID(_ context.Context, id int) (types.User, error) {
	u, ok := s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *stubUserService) List(context.Context) ([]types.User, error) {
	out := make([]types.User, 0, len(s.users))
	for id := 1; id <= s.nextID; id++ {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubUserService) mutate(id int, fn func(*types.User)) (types.User, error) {
	u, ok := s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	fn(&u)
	s.users[id] = u
	return u, nil
}

func (s *stubUserService) Update(_ context.Context, id int, username string, budget float64) (types.User, error) {
	return s.mutate(id, func(u *types.User) { u.Username, u.Budget = username, budget })
}

func (s *stubUserService) UpdateBudget(_ context.Context, id int, budget float64) (types.User, error) {
	return s.mutate(id, func(u *types.User) { u.Budget = budget })
}

func (s *stubUserService) SetRole(_ context.Context, id int, role string) (types.User, error) {
	return s.mutate(id, func(u *types.User) { u.Role = role })
}

func (s *stubUserService) SetDisabled(_ context.Context, id int, disabled bool) (types.User, error) {
	return s.mutate(id, func(u *types.User) { u.Disabled = disabled })
}

func (s *stubUserService) ChangePassword(_ context.Context, id int, current, _ string) error {
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	if current != s.pwCheck {
		return auth.ErrInvalidCredentials
	}
	return nil
}

func (s *stubUserService) Delete(_ context.Context, id int) error {
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func newUserRouter(svc UserService) http.Handler {
	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		UserRouter(r, svc, testAuthMiddleware())
	})
	return r
}

func seededUsers() *stubUserService {
	return newStubUserService(
		types.User{ID: 1, Username: "alice", Budget: 100, Role: types.RoleUser},
		types.User{ID: 2, Username: "root", Budget: 0, Role: types.RoleAdmin},
		types.User{ID: 3, Username: "carol", Budget: 50, Role: types.RoleUser},
	)
}

func TestRegister(t *testing.T) {
	svc := seededUsers()
	h := newUserRouter(svc)

	rec := doRequest(t, h, http.MethodPost, "/users", "", strings.NewReader(`{"username":"dave","password":"hunter2","budget":250}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "dave", user["username"])
	assert.Equal(t, float64(250), user["budget"])
	assert.Equal(t, types.RoleUser, user["role"])
	assert.NotContains(t, user, "password_hash")
}

func TestRegisterRejectsBadInput(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "short username", body: `{"username":"ab","password":"hunter2"}`, wantError: "username must be at least 3 characters"},
		{name: "missing password", body: `{"username":"dave"}`, wantError: "password is required"},
		{name: "negative budget", body: `{"username":"dave","password":"hunter2","budget":-1}`, wantError: "budget must be at least 0"},
		{name: "unknown field", body: `{"username":"dave","password":"hunter2","role":"admin"}`, wantError: "invalid request"},
		{name: "not json", body: `username=dave`, wantError: "invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newUserRouter(seededUsers()), http.MethodPost, "/users", "", strings.NewReader(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec))
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	rec := doRequest(t, newUserRouter(seededUsers()), http.MethodPost, "/users", "", strings.NewReader(`{"username":"alice","password":"hunter2"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMe(t *testing.T) {
	h := newUserRouter(seededUsers())

	rec := doRequest(t, h, http.MethodGet, "/users/me", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	rec = doRequest(t, h, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMyBudget(t *testing.T) {
	svc := seededUsers()
	h := newUserRouter(svc)

	rec := doRequest(t, h, http.MethodPut, "/users/me/budget", "alice-token", strings.NewReader(`{"budget":0}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), svc.users[1].Budget)

	rec = doRequest(t, h, http.MethodPut, "/users/me/budget", "alice-token", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "budget is required", decodeError(t, rec))
}

func TestChangeMyPassword(t *testing.T) {
	h := newUserRouter(seededUsers())

	rec := doRequest(t, h, http.MethodPut, "/users/me/password", "alice-token",
		strings.NewReader(`{"current_password":"secret","new_password":"better"}`))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodPut, "/users/me/password", "alice-token",
		strings.NewReader(`{"current_password":"wrong","new_password":"better"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "current password is incorrect", decodeError(t, rec))
}

func TestAdminUserRoutesRequireAdmin(t *testing.T) {
	h := newUserRouter(seededUsers())

	routes := []struct {
		method string
		target string
		body   string
	}{
		{http.MethodGet, "/users", ""},
		{http.MethodPut, "/users/3", `{"username":"carol","budget":1}`},
		{http.MethodDelete, "/users/3", ""},
		{http.MethodPut, "/users/3/role", `{"role":"admin"}`},
		{http.MethodPut, "/users/3/disabled", `{"disabled":true}`},
	}

	for _, route := range routes {
		rec := doRequest(t, h, route.method, route.target, "alice-token", jsonBody(route.body))
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", route.method, route.target)

		rec = doRequest(t, h, route.method, route.target, "", jsonBody(route.body))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.target)
	}
}

func TestAdminUserRoutes(t *testing.T) {
	svc := seededUsers()
	h := newUserRouter(svc)

	rec := doRequest(t, h, http.MethodGet, "/users", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 3)

	rec = doRequest(t, h, http.MethodPut, "/users/3", "admin-token", strings.NewReader(`{"username":"caroline","budget":75}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "caroline", svc.users[3].Username)
	assert.Equal(t, float64(75), svc.users[3].Budget)

	rec = doRequest(t, h, http.MethodPut, "/users/3/role", "admin-token", strings.NewReader(`{"role":"admin"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.RoleAdmin, svc.users[3].Role)

	rec = doRequest(t, h, http.MethodPut, "/users/3/role", "admin-token", strings.NewReader(`{"role":"Admin"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role must be one of: user admin", decodeError(t, rec))

	rec = doRequest(t, h, http.MethodPut, "/users/3/disabled", "admin-token", strings.NewReader(`{"disabled":true}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.users[3].Disabled)

	rec = doRequest(t, h, http.MethodDelete, "/users/3", "admin-token", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, svc.users, 3)

	rec = doRequest(t, h, http.MethodDelete, "/users/3", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, "/users/abc", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// memUserRepo backs a real UserService for the paths that hash passwords.
type memUserRepo struct {
	services.UserRepository
	users map[int]types.User
}

func (r *memUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) Create(_ context.Context, u types.User) (types.User, error) {
	u.ID = len(r.users) + 1
	r.users[u.ID] = u
	return u, nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id int, digest string) error {
	u := r.users[id]
	u.PasswordHash = digest
	r.users[id] = u
	return nil
}

func TestPasswordsOverBcryptLimit(t *testing.T) {
	hasher, err := auth.NewPasswordHasher(auth.SchemeBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	digest, err := hasher.Hash("secret")
	require.NoError(t, err)
	repo := &memUserRepo{users: map[int]types.User{
		1: {ID: 1, Username: "alice", PasswordHash: digest, Role: types.RoleUser},
	}}
	h := newUserRouter(services.NewUserService(repo, hasher))

	// 40 characters pass max=72 but are 80 bytes
	long := strings.Repeat("é", 40)

	rec := doRequest(t, h, http.MethodPost, "/users", "", strings.NewReader(`{"username":"bob","password":"`+long+`","budget":10}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "password exceeds 72 bytes")
	assert.Len(t, repo.users, 1)

	rec = doRequest(t, h, http.MethodPut, "/users/me/password", "alice-token",
		strings.NewReader(`{"current_password":"secret","new_password":"`+long+`"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, hasher.Verify("secret", repo.users[1].PasswordHash))
}
