package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagzilla/apiserver/internal/auth"
	"github.com/hagzilla/apiserver/types"
)

type stubLogin struct {
	token auth.Token
	err   error
}

func (s *stubLogin) Login(_ context.Context, username, password string) (auth.Token, error) {
	if s.err != nil {
		return auth.Token{}, s.err
	}
	return s.token, nil
}

// stubGate maps raw tokens to identities. Unknown tokens are rejected.
type stubGate struct {
	identities map[string]auth.Identity
	err        error
}

func (g *stubGate) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	if g.err != nil {
		return auth.Identity{}, g.err
	}
	identity, ok := g.identities[token]
	if !ok {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return identity, nil
}

var (
	aliceIdentity = auth.Identity{UserID: 1, Username: "alice", Role: types.RoleUser}
	adminIdentity = auth.Identity{UserID: 2, Username: "root", Role: types.RoleAdmin}
)

func testAuthMiddleware() func(http.Handler) http.Handler {
	return RequireAuth(&stubGate{identities: map[string]auth.Identity{
		"alice-token": aliceIdentity,
		"admin-token": adminIdentity,
	}})
}

func doRequest(t *testing.T, h http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(s string) io.Reader {
	if s == "" {
		return nil
	}
	return strings.NewReader(s)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func postForm(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTokenHandler(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		loginErr   error
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			form:       url.Values{"username": {"alice"}, "password": {"secret"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing password",
			form:       url.Values{"username": {"alice"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "username and password are required",
		},
		{
			name:       "bad credentials",
			form:       url.Values{"username": {"alice"}, "password": {"nope"}},
			loginErr:   auth.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Incorrect username or password",
		},
		{
			name:       "disabled account",
			form:       url.Values{"username": {"alice"}, "password": {"secret"}},
			loginErr:   fmt.Errorf("%w: %w", auth.ErrForbidden, auth.ErrAccountDisabled),
			wantStatus: http.StatusForbidden,
			wantError:  "account disabled",
		},
		{
			name:       "directory failure",
			form:       url.Values{"username": {"alice"}, "password": {"secret"}},
			loginErr:   fmt.Errorf("lookup user: %w", context.DeadlineExceeded),
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to authenticate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			AuthRouter(r, &stubLogin{
				token: auth.Token{AccessToken: "abc", TokenType: auth.TokenTypeBearer},
				err:   tt.loginErr,
			})

			rec := postForm(r, "/token", tt.form)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rec))
				return
			}

			var token map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
			assert.Equal(t, map[string]string{"access_token": "abc", "token_type": "bearer"}, token)
		})
	}
}

func TestTokenHandlerSetsChallengeOnFailure(t *testing.T) {
	r := chi.NewRouter()
	AuthRouter(r, &stubLogin{err: auth.ErrInvalidCredentials})

	rec := postForm(r, "/token", url.Values{"username": {"alice"}, "password": {"x"}})
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestRequireAuth(t *testing.T) {
	protected := func(gate Authenticator) http.Handler {
		return RequireAuth(gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			require.True(t, ok)
			writeJSON(w, http.StatusOK, map[string]string{"username": identity.Username})
		}))
	}
	gate := &stubGate{identities: map[string]auth.Identity{"good": aliceIdentity}}

	t.Run("valid token", func(t *testing.T) {
		rec := doRequest(t, protected(gate), http.MethodGet, "/", "good", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"username":"alice"}`, rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		rec := doRequest(t, protected(gate), http.MethodGet, "/", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Invalid authentication credentials", decodeError(t, rec))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic YWxpY2U6c2VjcmV0")
		rec := httptest.NewRecorder()
		protected(gate).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := doRequest(t, protected(gate), http.MethodGet, "/", "forged", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("disabled account", func(t *testing.T) {
		disabled := &stubGate{err: fmt.Errorf("%w: %w", auth.ErrForbidden, auth.ErrAccountDisabled)}
		rec := doRequest(t, protected(disabled), http.MethodGet, "/", "good", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("directory failure", func(t *testing.T) {
		broken := &stubGate{err: fmt.Errorf("lookup user: %w", io.ErrUnexpectedEOF)}
		rec := doRequest(t, protected(broken), http.MethodGet, "/", "good", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	r := chi.NewRouter()
	r.Use(testAuthMiddleware(), RequireRole(types.RoleAdmin))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := doRequest(t, r, http.MethodGet, "/", "admin-token", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, r, http.MethodGet, "/", "alice-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not enough privileges", decodeError(t, rec))
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	h := RequireRole(types.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := doRequest(t, h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "bearer   abc  ", want: "abc", ok: true},
		{header: "Bearer", ok: false},
		{header: "Bearer    ", ok: false},
		{header: "Token abc", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tt.header)
		got, err := bearerToken(req)
		if !tt.ok {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}
