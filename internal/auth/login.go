package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hagzilla/apiserver/internal/store"
)

const TokenTypeBearer = "bearer"

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type LoginService struct {
	users  UserDirectory
	hasher CredentialHasher
	codec  *TokenCodec

	dummyOnce   sync.Once
	dummyDigest string
}

func NewLoginService(users UserDirectory, hasher CredentialHasher, codec *TokenCodec) *LoginService {
	return &LoginService{users: users, hasher: hasher, codec: codec}
}

// Login checks username and password and issues a token with the default
// ttl. The disabled flag is only consulted once the password matched, so a
// disabled account does not reveal itself to a caller without the password.
func (s *LoginService) Login(ctx context.Context, username, password string) (Token, error) {
	token, err := s.login(ctx, username, password)
	observe("login", err)
	return token, err
}

func (s *LoginService) login(ctx context.Context, username, password string) (Token, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Token{}, ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// pay the same hashing cost as a wrong password
			s.hasher.Verify(password, s.dummy())
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, fmt.Errorf("auth: lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return Token{}, ErrInvalidCredentials
	}

	if user.Disabled {
		return Token{}, fmt.Errorf("%w: %w", ErrForbidden, ErrAccountDisabled)
	}

	signed, expiresAt, err := s.codec.Issue(user.Username, 0)
	if err != nil {
		return Token{}, err
	}

	return Token{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// dummy is a digest of the configured scheme and cost, verified against
// when the username does not exist.
func (s *LoginService) dummy() string {
	s.dummyOnce.Do(func() {
		// on failure the digest stays empty and Verify rejects it
		s.dummyDigest, _ = s.hasher.Hash("no such user")
	})
	return s.dummyDigest
}
