package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hagzilla/apiserver/internal/auth"
	"github.com/hagzilla/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	FindByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdateBudget(ctx context.Context, id int, budget float64) (types.User, error)
	SetRole(ctx context.Context, id int, role string) (types.User, error)
	SetDisabled(ctx context.Context, id int, disabled bool) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	Delete(ctx context.Context, id int) error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
}

func NewUserService(repo UserRepository, hasher PasswordHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

// Register creates a regular account with the given starting budget.
func (s *UserService) Register(ctx context.Context, username, password string, budget float64) (types.User, error) {
	return s.create(ctx, username, password, budget, types.RoleUser)
}

// CreateAdmin bootstraps an administrator account.
func (s *UserService) CreateAdmin(ctx context.Context, username, password string) (types.User, error) {
	return s.create(ctx, username, password, 0, types.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, username, password string, budget float64, role string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if budget < 0 {
		return types.User{}, fmt.Errorf("%w: budget must not be negative", ErrInvalidInput)
	}

	digest, err := s.hash(password)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: digest,
		Budget:       budget,
		Role:         role,
	})
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Update lets an administrator rename a user and reset the budget.
func (s *UserService) Update(ctx context.Context, id int, username string, budget float64) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return types.User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	return s.repo.Update(ctx, types.User{ID: id, Username: username, Budget: budget})
}

func (s *UserService) UpdateBudget(ctx context.Context, id int, budget float64) (types.User, error) {
	if budget < 0 {
		return types.User{}, fmt.Errorf("%w: budget must not be negative", ErrInvalidInput)
	}
	return s.repo.UpdateBudget(ctx, id, budget)
}

func (s *UserService) SetRole(ctx context.Context, id int, role string) (types.User, error) {
	if !types.ValidRole(role) {
		return types.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.repo.SetRole(ctx, id, role)
}

func (s *UserService) SetDisabled(ctx context.Context, id int, disabled bool) (types.User, error) {
	return s.repo.SetDisabled(ctx, id, disabled)
}

// ChangePassword requires the current password. A mismatch is reported as
// auth.ErrInvalidCredentials.
func (s *UserService) ChangePassword(ctx context.Context, id int, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return auth.ErrInvalidCredentials
	}

	digest, err := s.hash(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, digest)
}

func (s *UserService) hash(password string) (string, error) {
	digest, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return digest, err
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
