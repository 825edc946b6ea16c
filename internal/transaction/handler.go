package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/api"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/transaction/entity"
)

// TransferService is the surface the handler needs; the concrete *Service
// satisfies it and tests substitute a stub.
type TransferService interface {
	Transfer(ctx context.Context, caller auth.Identity, sourceID, destinationID int64, amount decimal.Decimal) (*Result, error)
	Get(ctx context.Context, caller auth.Identity, id int64) (*entity.Detail, error)
	ListOwn(ctx context.Context, caller auth.Identity) ([]*entity.Transaction, error)
	ListAll(ctx context.Context, caller auth.Identity) ([]*entity.Transaction, error)
}

type Handler struct {
	svc    TransferService
	logger *zap.SugaredLogger
}

func NewHandler(svc TransferService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the transfer request body. The account ids are payload
// references, not path resources, which is why unresolved ids answer as
// conflicts rather than not-found.
type CreateRequest struct {
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
}

func (req CreateRequest) validate() []api.FieldError {
	var fields []api.FieldError
	if req.SourceAccountID <= 0 {
		fields = append(fields, api.FieldError{Field: "source_account_id", Message: "source_account_id is required"})
	}
	if req.DestinationAccountID <= 0 {
		fields = append(fields, api.FieldError{Field: "destination_account_id", Message: "destination_account_id is required"})
	}
	if !req.Amount.IsPositive() {
		fields = append(fields, api.FieldError{Field: "amount", Message: "amount must be a positive number"})
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
	res, err := h.svc.Transfer(r.Context(), caller, req.SourceAccountID, req.DestinationAccountID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotFound):
			api.Failure(w, http.StatusConflict, "source or destination account not found")
		case errors.Is(err, ErrSameAccount):
			api.Failure(w, http.StatusConflict, "source and destination must differ")
		case errors.Is(err, ErrNotOwner):
			api.Failure(w, http.StatusForbidden, "caller does not own the source account")
		case errors.Is(err, ErrInsufficientBalance):
			api.Failure(w, http.StatusConflict, "insufficient balance")
		case errors.Is(err, ErrAmountNotPositive):
			api.ValidationFailure(w, []api.FieldError{{Field: "amount", Message: "amount must be a positive number"}})
		default:
			h.logger.Errorw("transfer failed", "err", err)
			api.Internal(w)
		}
		return
	}
	api.Success(w, http.StatusCreated, "transfer completed", res)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		api.Failure(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	d, err := h.svc.Get(r.Context(), caller, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Failure(w, http.StatusNotFound, "transaction not found")
		case errors.Is(err, ErrForbidden):
			api.Failure(w, http.StatusForbidden, "not allowed to access this transaction")
		default:
			h.logger.Errorw("transaction read failed", "err", err)
			api.Internal(w)
		}
		return
	}
	api.Success(w, http.StatusOK, "transaction", d)
}

func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	txs, err := h.svc.ListOwn(r.Context(), caller)
	if err != nil {
		h.logger.Errorw("transaction list failed", "err", err)
		api.Internal(w)
		return
	}
	api.Success(w, http.StatusOK, "transactions", txs)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.Failure(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	txs, err := h.svc.ListAll(r.Context(), caller)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			api.Failure(w, http.StatusForbidden, "admin role required")
			return
		}
		h.logger.Errorw("transaction list failed", "err", err)
		api.Internal(w)
		return
	}
	api.Success(w, http.StatusOK, "transactions", txs)
}
