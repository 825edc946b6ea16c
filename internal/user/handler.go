package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/api"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/user/entity"
)

// UserService is the surface the handler needs; the concrete *Service
// satisfies it and tests substitute a stub.
type UserService interface {
	Register(ctx context.Context, name, email, password, role string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (string, *entity.User, error)
	Profile(ctx context.Context, id int64) (*entity.User, error)
}

// Handler exposes HTTP endpoints for registration, login and profile.
type Handler struct {
	svc    UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (req RegisterRequest) validate() []api.FieldError {
	var fields []api.FieldError
	if strings.TrimSpace(req.Name) == "" {
		fields = append(fields, api.FieldError{Field: "name", Message: "name is required"})
	}
	if !strings.Contains(req.Email, "@") {
		fields = append(fields, api.FieldError{Field: "email", Message: "a valid email is required"})
	}
	if len(req.Password) < 8 {
		fields = append(fields, api.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	if req.Role != "" && req.Role != auth.RoleCustomer && req.Role != auth.RoleAdmin {
		fields = append(fields, api.FieldError{Field: "role", Message: "role must be customer or admin"})
	}
	return fields
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Failure(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if fields := req.validate(); fields != nil {
		api.ValidationFailure(w, fields)
		return
	}
	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			api.Failure(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Errorw("register failed", "err", err)
		api.Internal(w)
		return
	}
	api.Success(w, http.StatusCreated, "user registered", u)
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Failure(w, http.StatusBadRequest, "invalid payload")
		return
	}
	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.logger.Debugw("login rejected", "email", req.Email)
			api.Failure(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Errorw("login failed", "err", err)
		api.Internal(w)
		return
	}
	api.Success(w, http.StatusOK, "login successful", map[string]any{
		"token": token,
		"user":  u,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	u, err := h.svc.Profile(r.Context(), id.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.Failure(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Errorw("profile read failed", "err", err)
		api.Internal(w)
		return
	}
	api.Success(w, http.StatusOK, "profile", u)
}
