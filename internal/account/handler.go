package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/api"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
)

// AccountService is the surface the handler needs; the concrete *Service
// satisfies it and tests substitute a stub.
type AccountService interface {
	Create(ctx context.Context, caller auth.Identity, in CreateInput) (*entity.Account, error)
	Get(ctx context.Context, caller auth.Identity, id int64) (*entity.Account, error)
	ListOwn(ctx context.Context, caller auth.Identity) ([]*entity.Account, error)
	ListAll(ctx context.Context, caller auth.Identity) ([]*entity.Account, error)
	Delete(ctx context.Context, caller auth.Identity, id int64) error
}

type Handler struct {
	svc    AccountService
	logger *zap.SugaredLogger
}

func NewHandler(svc AccountService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest request body for the administrative create endpoint.
type CreateRequest struct {
	UserID            int64           `json:"user_id"`
	BankName          string          `json:"bank_name"`
	BankAccountNumber string          `json:"bank_account_number"`
	Balance           decimal.Decimal `json:"balance"`
}

func (req CreateRequest) validate() []api.FieldError {
	var fields []api.FieldError
	if req.UserID <= 0 {
		fields = append(fields, api.FieldError{Field: "user_id", Message: "user_id is required"})
	}
	if strings.TrimSpace(req.BankName) == "" {
		fields = append(fields, api.FieldError{Field: "bank_name", Message: "bank_name is required"})
	}
	if req.Balance.IsNegative() {
		fields = append(fields, api.FieldError{Field: "balance", Message: "balance cannot be negative"})
	}
	return fields
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Failure(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if fields := req.validate(); fields != nil {
		api.ValidationFailure(w, fields)
		return
	}
	a, err := h.svc.Create(r.Context(), caller, CreateInput{
		UserID:            req.UserID,
		BankName:          req.BankName,
		BankAccountNumber: req.BankAccountNumber,
		Balance:           req.Balance,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			api.Failure(w, http.StatusForbidden, "admin role required")
		case errors.Is(err, ErrNegativeBalance):
			api.ValidationFailure(w, []api.FieldError{{Field: "balance", Message: "balance cannot be negative"}})
		case errors.Is(err, ErrOwnerNotFound):
			api.Failure(w, http.StatusConflict, "owning user not found")
		case errors.Is(err, ErrDuplicateNumber):
			api.Failure(w, http.StatusConflict, "bank account number already in use")
		default:
			h.logger.Errorw("account create failed", "err", err)
			api.Internal(w)
		}
		return
	}
	api.Success(w, http.StatusCreated, "account created", a)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		api.Failure(w, http.StatusBadRequest, "invalid account id")
		return
	}
	a, err := h.svc.Get(r.Context(), caller, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Failure(w, http.StatusNotFound, "account not found")
		case errors.Is(err, ErrForbidden):
			api.Failure(w, http.StatusForbidden, "not allowed to access this account")
		default:
			h.logger.Errorw("account read failed", "err", err)
			api.Internal(w)
		}
		return
	}
	api.Success(w, http.StatusOK, "account", a)
}

func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	accounts, err := h.svc.ListOwn(r.Context(), caller)
	if err != nil {
		h.logger.Errorw("account list failed", "err", err)
		api.Internal(w)
		return
	}
	api.Success(w, http.StatusOK, "accounts", accounts)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	accounts, err := h.svc.ListAll(r.Context(), caller)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			api.Failure(w, http.StatusForbidden, "admin role required")
			return
		}
		h.logger.Errorw("account list failed", "err", err)
		api.Internal(w)
		return
	}
	api.Success(w, http.StatusOK, "accounts", accounts)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		api.Failure(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.svc.Delete(r.Context(), caller, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Failure(w, http.StatusNotFound, "account not found")
		case errors.Is(err, ErrForbidden):
			api.Failure(w, http.StatusForbidden, "admin role required")
		default:
			h.logger.Errorw("account delete failed", "err", err)
			api.Internal(w)
		}
		return
	}
	api.Success(w, http.StatusOK, "account deleted", nil)
}
