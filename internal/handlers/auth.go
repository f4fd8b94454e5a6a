package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hagzilla/apiserver/internal/auth"
	"github.com/hagzilla/apiserver/internal/logger"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

type LoginService interface {
	Login(ctx context.Context, username, password string) (auth.Token, error)
}

// AuthHandler exchanges credentials for a bearer token.
type AuthHandler struct {
	login LoginService
}

func NewAuthHandler(login LoginService) *AuthHandler {
	return &AuthHandler{login: login}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, login LoginService) {
	handler := NewAuthHandler(login)
	r.Post("/token", handler.Token)
}

// Token reads a form-encoded username and password.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if strings.TrimSpace(username) == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.login.Login(r.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeUnauthorized(w, "Incorrect username or password")
		case errors.Is(err, auth.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, "account disabled")
		default:
			logger.Get().Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
		}
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// RequireAuth resolves the bearer token through the gate and stores the
// identity in the request context.
func RequireAuth(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				logger.Get().Debug().Str("stage", "extract").Msg("request rejected")
				writeUnauthorized(w, "Invalid authentication credentials")
				return
			}

			identity, err := gate.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrUnauthenticated):
					logger.Get().Debug().Str("stage", "token").Msg("request rejected")
					writeUnauthorized(w, "Invalid authentication credentials")
				case errors.Is(err, auth.ErrForbidden):
					logger.Get().Debug().Str("stage", "liveness").Msg("request rejected")
					writeError(w, http.StatusForbidden, "account disabled")
				default:
					logger.Get().Error().Err(err).Msg("authenticate request")
					writeError(w, http.StatusInternalServerError, "failed to authenticate")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole must run after RequireAuth. The role must match exactly.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeUnauthorized(w, "Invalid authentication credentials")
				return
			}
			if err := auth.RequireRole(identity, role); err != nil {
				writeError(w, http.StatusForbidden, "Not enough privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
