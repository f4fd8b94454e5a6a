package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagzilla/apiserver/internal/store"
	"github.com/hagzilla/apiserver/types"
)

type stubDirectory struct {
	users map[string]types.User
	err   error
	calls int
}

func newStubDirectory(users ...types.User) *stubDirectory {
	d := &stubDirectory{users: map[string]types.User{}}
	for _, u := range users {
		d.users[u.Username] = u
	}
	return d
}

func (d *stubDirectory) FindByUsername(_ context.Context, username string) (types.User, error) {
	d.calls++
	if d.err != nil {
		return types.User{}, d.err
	}
	u, ok := d.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func TestGateAuthenticate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, clock)
	dir := newStubDirectory(types.User{ID: 7, Username: "bob", Role: types.RoleUser})
	gate := NewGate(codec, dir)

	token, _, err := codec.Issue("bob", 0)
	require.NoError(t, err)

	identity, err := gate.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 7, Username: "bob", Role: types.RoleUser}, identity)
}

func TestGateFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, clock)

	valid, _, err := codec.Issue("bob", 0)
	require.NoError(t, err)
	ghost, _, err := codec.Issue("ghost", 0)
	require.NoError(t, err)

	dir := newStubDirectory(types.User{ID: 7, Username: "bob", Role: types.RoleUser})
	gate := NewGate(codec, dir)

	_, err = gate.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = gate.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = gate.Authenticate(context.Background(), ghost)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	clock.Advance(30 * time.Minute)
	_, err = gate.Authenticate(context.Background(), valid)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestGateDirectoryErrorIsNotUnauthenticated(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	codec := newTestCodec(t, clock)
	dir := newStubDirectory()
	dir.err = errors.New("connection refused")
	gate := NewGate(codec, dir)

	token, _, err := codec.Issue("bob", 0)
	require.NoError(t, err)

	_, err = gate.Authenticate(context.Background(), token)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthenticated))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestGateRereadsUserOnEveryCall(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	codec := newTestCodec(t, clock)
	dir := newStubDirectory(types.User{ID: 7, Username: "bob", Role: types.RoleUser})
	gate := NewGate(codec, dir)

	token, _, err := codec.Issue("bob", 0)
	require.NoError(t, err)

	identity, err := gate.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, identity.Role)

	bob := dir.users["bob"]
	bob.Role = types.RoleAdmin
	dir.users["bob"] = bob

	identity, err = gate.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, identity.Role)

	bob.Disabled = true
	dir.users["bob"] = bob

	_, err = gate.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrAccountDisabled)
	assert.False(t, errors.Is(err, ErrUnauthenticated))
	assert.Equal(t, 3, dir.calls)
}

func TestRequireRole(t *testing.T) {
	user := Identity{Username: "bob", Role: types.RoleUser}
	admin := Identity{Username: "root", Role: types.RoleAdmin}

	assert.ErrorIs(t, RequireRole(user, types.RoleAdmin), ErrForbidden)
	assert.NoError(t, RequireRole(admin, types.RoleAdmin))
	assert.NoError(t, RequireRole(user, types.RoleUser))
	// exact match only
	assert.ErrorIs(t, RequireRole(admin, types.RoleUser), ErrForbidden)
}
