package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hagzilla/apiserver/internal/auth"
	"github.com/hagzilla/apiserver/types"
)

type UserService interface {
	Register(ctx context.Context, username, password string, budget float64) (types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Update(ctx context.Context, id int, username string, budget float64) (types.User, error)
	UpdateBudget(ctx context.Context, id int, budget float64) (types.User, error)
	SetRole(ctx context.Context, id int, role string) (types.User, error)
	SetDisabled(ctx context.Context, id int, disabled bool) (types.User, error)
	ChangePassword(ctx context.Context, id int, current, next string) error
	Delete(ctx context.Context, id int) error
}

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UserRouter registers user routes. Registration is public, /me routes need
// a valid token and the rest is admin only.
func UserRouter(r chi.Router, users UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(users)

	r.Post("/", handler.Register)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/me", handler.Me)
		r.Put("/me/budget", handler.UpdateMyBudget)
		r.Put("/me/password", handler.ChangeMyPassword)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(types.RoleAdmin))

			r.Get("/", handler.List)
			r.Route("/{userID}", func(r chi.Router) {
				r.Put("/", handler.Update)
				r.Delete("/", handler.Delete)
				r.Put("/role", handler.SetRole)
				r.Put("/disabled", handler.SetDisabled)
			})
		})
	})
}

type RegisterRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=64"`
	Password string  `json:"password" validate:"required,min=4,max=72"`
	Budget   float64 `json:"budget" validate:"gte=0"`
}

type BudgetRequest struct {
	Budget *float64 `json:"budget" validate:"required,gte=0"`
}

type PasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=4,max=72"`
}

type UserUpdateRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=64"`
	Budget   *float64 `json:"budget" validate:"required,gte=0"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type DisabledRequest struct {
	Disabled *bool `json:"disabled" validate:"required"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password, req.Budget)
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	user, err := h.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateMyBudget(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req BudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.UpdateBudget(r.Context(), identity.UserID, *req.Budget)
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to update budget")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangeMyPassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req PasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.users.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "current password is incorrect")
			return
		}
		writeServiceError(w, r, err, "user not found", "failed to change password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UserUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Update(r.Context(), id, req.Username, *req.Budget)
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "user not found", "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.SetRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) SetDisabled(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req DisabledRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.SetDisabled(r.Context(), id, *req.Disabled)
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
