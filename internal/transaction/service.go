// Package transaction contains the funds-transfer engine and the read-side
// rules for transaction history.
package transaction

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	acctentity "github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/transaction/entity"
)

// TransferStore is the view of the ledger the engine uses inside one unit of
// work. AccountForUpdate must hold a row lock (or equivalent) until the unit
// commits or rolls back.
type TransferStore interface {
	AccountForUpdate(ctx context.Context, id int64) (*acctentity.Account, error)
	UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) (*acctentity.Account, error)
	InsertTransaction(ctx context.Context, t *entity.Transaction) error
}

// UnitOfWork runs fn atomically: every store call inside fn commits together
// or not at all. A non-nil error from fn rolls the unit back and is returned
// unchanged.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(TransferStore) error) error
}

// Reader serves the query side of the ledger.
type Reader interface {
	GetDetail(ctx context.Context, id int64) (*entity.Detail, error)
	ListAll(ctx context.Context) ([]*entity.Transaction, error)
	ListByParticipant(ctx context.Context, userID int64) ([]*entity.Transaction, error)
}

var (
	ErrAccountNotFound     = errors.New("transfer account not found")
	ErrSameAccount         = errors.New("source and destination are the same account")
	ErrNotOwner            = errors.New("caller does not own the source account")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAmountNotPositive   = errors.New("amount must be positive")
	ErrNotFound            = errors.New("transaction not found")
	ErrForbidden           = errors.New("not allowed to access this transaction")
)

// Result carries the created transaction plus both post-update accounts.
type Result struct {
	Transaction        *entity.Transaction `json:"transaction"`
	SourceAccount      *acctentity.Account `json:"source_account"`
	DestinationAccount *acctentity.Account `json:"destination_account"`
}

// Service is the transfer engine plus the transaction read policy.
type Service struct {
	uow    UnitOfWork
	reader Reader
}

func NewService(uow UnitOfWork, reader Reader) *Service {
	return &Service{uow: uow, reader: reader}
}

// Transfer validates and applies one transfer as a single atomic unit of
// work. Precondition order is fixed and determines which error a malformed
// request receives: existence, same-account, ownership, balance. A failed
// precondition leaves no state change behind.
func (s *Service) Transfer(ctx context.Context, caller auth.Identity, sourceID, destinationID int64, amount decimal.Decimal) (*Result, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	var res Result
	err := s.uow.Do(ctx, func(st TransferStore) error {
		source, destination, err := lockPair(ctx, st, sourceID, destinationID)
		if err != nil {
			return err
		}
		if sourceID == destinationID {
			return ErrSameAccount
		}
		if source.UserID != caller.ID {
			return ErrNotOwner
		}
		if source.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}

		t := &entity.Transaction{
			SourceAccountID:      sourceID,
			DestinationAccountID: destinationID,
			Amount:               amount,
		}
		if err := st.InsertTransaction(ctx, t); err != nil {
			return err
		}
		updatedSource, err := st.UpdateAccountBalance(ctx, sourceID, source.Balance.Sub(amount))
		if err != nil {
			return err
		}
		updatedDestination, err := st.UpdateAccountBalance(ctx, destinationID, destination.Balance.Add(amount))
		if err != nil {
			return err
		}
		res = Result{Transaction: t, SourceAccount: updatedSource, DestinationAccount: updatedDestination}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// lockPair locks both accounts in ascending-id order so two overlapping
// transfers cannot deadlock, then hands them back in source/destination
// order. Equal ids lock once; the same-account rejection happens after the
// existence check so a missing id still reports not-found.
func lockPair(ctx context.Context, st TransferStore, sourceID, destinationID int64) (*acctentity.Account, *acctentity.Account, error) {
	if sourceID == destinationID {
		a, err := st.AccountForUpdate(ctx, sourceID)
		if err != nil {
			return nil, nil, mapMissing(err)
		}
		return a, a, nil
	}
	firstID, secondID := sourceID, destinationID
	if destinationID < sourceID {
		firstID, secondID = destinationID, sourceID
	}
	first, err := st.AccountForUpdate(ctx, firstID)
	if err != nil {
		return nil, nil, mapMissing(err)
	}
	second, err := st.AccountForUpdate(ctx, secondID)
	if err != nil {
		return nil, nil, mapMissing(err)
	}
	if firstID == sourceID {
		return first, second, nil
	}
	return second, first, nil
}

func mapMissing(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	return err
}

// Get returns one transaction with account and owner names. Existence is
// checked before ownership; then the caller must own the source or the
// destination account, or be an admin.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id int64) (*entity.Detail, error) {
	d, err := s.reader.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !caller.IsAdmin() && !d.OwnedBy(caller.ID) {
		return nil, ErrForbidden
	}
	return d, nil
}

// ListOwn returns the transactions where the caller owns the source or the
// destination account (set union), ascending by id.
func (s *Service) ListOwn(ctx context.Context, caller auth.Identity) ([]*entity.Transaction, error) {
	return s.reader.ListByParticipant(ctx, caller.ID)
}

// ListAll returns every transaction, ascending by id. Admin only.
func (s *Service) ListAll(ctx context.Context, caller auth.Identity) ([]*entity.Transaction, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.reader.ListAll(ctx)
}
