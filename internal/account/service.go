package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/utilities"
)

// Repo is the persistence port the service depends on.
type Repo interface {
	Create(ctx context.Context, a *entity.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.Account, error)
	ListAll(ctx context.Context) ([]*entity.Account, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

var (
	ErrNotFound        = errors.New("account not found")
	ErrForbidden       = errors.New("not allowed to access this account")
	ErrOwnerNotFound   = errors.New("owning user not found")
	ErrDuplicateNumber = errors.New("bank account number already in use")
	ErrNegativeBalance = errors.New("starting balance cannot be negative")
)

// Service owns bank accounts and the read-side access policy over them.
// Creation and deletion are administrative actions; balances are never
// mutated here.
type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service { return &Service{repo: repo} }

// CreateInput carries the administrative create parameters. An empty
// BankAccountNumber gets a generated one.
type CreateInput struct {
	UserID            int64
	BankName          string
	BankAccountNumber string
	Balance           decimal.Decimal
}

// Create registers a new account on behalf of any user. Admin only.
func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (*entity.Account, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if in.Balance.IsNegative() {
		return nil, ErrNegativeBalance
	}
	number := in.BankAccountNumber
	if number == "" {
		number = utilities.NewAccountNumber()
	}
	a := &entity.Account{
		UserID:            in.UserID,
		BankName:          in.BankName,
		BankAccountNumber: number,
		Balance:           in.Balance,
	}
	if _, err := s.repo.Create(ctx, a); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateKey):
			return nil, ErrDuplicateNumber
		case errors.Is(err, database.ErrForeignKeyViolation):
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

// Get returns one account. Existence is checked before ownership, so
// non-owners addressing a missing id still see not-found.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id int64) (*entity.Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if a.UserID != caller.ID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return a, nil
}

// ListOwn returns the caller's accounts, ascending by id.
func (s *Service) ListOwn(ctx context.Context, caller auth.Identity) ([]*entity.Account, error) {
	return s.repo.ListByUser(ctx, caller.ID)
}

// ListAll returns every account, ascending by id. Admin only.
func (s *Service) ListAll(ctx context.Context, caller auth.Identity) ([]*entity.Account, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.repo.ListAll(ctx)
}

// Delete hard-deletes an account. Admin only; transaction history stays.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
