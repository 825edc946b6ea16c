package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
)

type stubService struct {
	createErr error
	getErr    error
}

func (s *stubService) Create(ctx context.Context, caller auth.Identity, in CreateInput) (*entity.Account, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &entity.Account{ID: 1, UserID: in.UserID, BankName: in.BankName}, nil
}

func (s *stubService) Get(ctx context.Context, caller auth.Identity, id int64) (*entity.Account, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &entity.Account{ID: id}, nil
}

func (s *stubService) ListOwn(ctx context.Context, caller auth.Identity) ([]*entity.Account, error) {
	return nil, nil
}

func (s *stubService) ListAll(ctx context.Context, caller auth.Identity) ([]*entity.Account, error) {
	return nil, nil
}

func (s *stubService) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	return nil
}

func TestCreateStatusMapping(t *testing.T) {
	logger := zap.NewNop().Sugar()
	body := `{"user_id":1,"bank_name":"First National","bank_account_number":"n1","balance":100}`

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusCreated},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"owner missing", ErrOwnerNotFound, http.StatusConflict},
		{"duplicate number", ErrDuplicateNumber, http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&stubService{createErr: tc.err}, logger)
			req := httptest.NewRequest(http.MethodPost, "/ledger-api/accounts", strings.NewReader(body))
			req = req.WithContext(auth.ContextWithIdentity(req.Context(), admin))
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status=%d want=%d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestGetStatusMapping(t *testing.T) {
	logger := zap.NewNop().Sugar()
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"found", nil, http.StatusOK},
		{"missing", ErrNotFound, http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&stubService{getErr: tc.err}, logger)
			req := httptest.NewRequest(http.MethodGet, "/ledger-api/accounts/3", nil)
			req.SetPathValue("id", "3")
			req = req.WithContext(auth.ContextWithIdentity(req.Context(), customer))
			rec := httptest.NewRecorder()
			h.Get(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status=%d want=%d", rec.Code, tc.wantStatus)
			}
		})
	}
}
