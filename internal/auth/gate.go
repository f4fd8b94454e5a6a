package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hagzilla/apiserver/internal/metrics"
	"github.com/hagzilla/apiserver/internal/store"
	"github.com/hagzilla/apiserver/types"
)

// UserDirectory is the only persistence the auth flows need. Implementations
// return store.ErrNotFound for an unknown username.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (types.User, error)
}

// Identity is the per-request view of the authenticated user. Role and
// Disabled come from the directory, never from the token.
type Identity struct {
	UserID   int
	Username string
	Role     string
	Disabled bool
}

type Gate struct {
	codec *TokenCodec
	users UserDirectory
}

func NewGate(codec *TokenCodec, users UserDirectory) *Gate {
	return &Gate{codec: codec, users: users}
}

// Authenticate resolves a raw bearer token. Failures are ErrUnauthenticated
// or ErrForbidden (disabled account); anything else is a directory error.
func (g *Gate) Authenticate(ctx context.Context, token string) (Identity, error) {
	identity, err := g.authenticate(ctx, token)
	observe("request", err)
	return identity, err
}

func (g *Gate) authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	claims, err := g.codec.Decode(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := g.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, fmt.Errorf("auth: resolve user: %w", err)
	}

	if user.Disabled {
		return Identity{}, fmt.Errorf("%w: %w", ErrForbidden, ErrAccountDisabled)
	}

	return Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Disabled: user.Disabled,
	}, nil
}

// RequireRole is an exact match: admin does not satisfy a user requirement.
func RequireRole(identity Identity, role string) error {
	if identity.Role != role {
		return ErrForbidden
	}
	return nil
}

func observe(stage string, err error) {
	metrics.AuthAttemptsTotal.WithLabelValues(stage, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAccountDisabled):
		return "disabled"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "error"
	}
}
