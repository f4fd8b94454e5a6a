package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagzilla/apiserver/internal/auth"
	"github.com/hagzilla/apiserver/types"
)

type staticGate struct{}

func (staticGate) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	if token != "ok" {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return auth.Identity{UserID: 1, Username: "alice", Role: types.RoleUser}, nil
}

func serve(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	router := Routes(Dependencies{Gate: staticGate{}})

	rec := serve(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, target := range []string{"/expenses", "/users/me", "/reports/all", "/alerts", "/quiz/subjects"} {
		rec = serve(t, router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}

	// admin routes check the role before touching any service
	rec = serve(t, router, http.MethodGet, "/alerts", "ok")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesRecordRequestMetrics(t *testing.T) {
	router := Routes(Dependencies{Gate: staticGate{}})

	serve(t, router, http.MethodGet, "/health", "")

	rec := serve(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `apiserver_http_request_duration_seconds_count{method="GET",route="/health",status="200"}`)
}

type deadlineGate struct {
	deadline time.Time
	ok       bool
}

func (g *deadlineGate) Authenticate(ctx context.Context, _ string) (auth.Identity, error) {
	g.deadline, g.ok = ctx.Deadline()
	return auth.Identity{}, auth.ErrUnauthenticated
}

func TestRequestTimeoutFitsWriteTimeout(t *testing.T) {
	gate := &deadlineGate{}
	router := Routes(Dependencies{Gate: gate})

	start := time.Now()
	serve(t, router, http.MethodGet, "/expenses", "ok")

	require.True(t, gate.ok, "handler context has no deadline")
	assert.WithinDuration(t, start.Add(requestTimeout), gate.deadline, time.Second)

	srv := newHTTPServer(8080, router)
	assert.Equal(t, ":8080", srv.Addr)
	assert.Less(t, requestTimeout, srv.WriteTimeout)
}
