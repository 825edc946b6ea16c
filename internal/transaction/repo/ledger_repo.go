package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	acctentity "github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/transaction"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/transaction/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/database"
)

// LedgerStore is the SQL implementation of the transfer engine's ports:
// transaction.UnitOfWork on the write side and transaction.Reader on the
// query side.
type LedgerStore struct {
	db *sqlx.DB
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore { return &LedgerStore{db: db} }

var (
	_ transaction.UnitOfWork = (*LedgerStore)(nil)
	_ transaction.Reader     = (*LedgerStore)(nil)
)

// EnsureTable creates the transactions table if not exists (idempotent).
// The account columns carry no foreign keys: accounts may be hard-deleted
// while their history remains.
func (s *LedgerStore) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS transactions (
  id BIGSERIAL PRIMARY KEY,
  source_account_id BIGINT NOT NULL,
  destination_account_id BIGINT NOT NULL,
  amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_source_account_id ON transactions(source_account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_destination_account_id ON transactions(destination_account_id);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Do runs fn inside one database transaction, committing on success and
// rolling back on error or panic. Errors from fn (domain rejections
// included) come back unchanged so callers can match on them.
func (s *LedgerStore) Do(ctx context.Context, fn func(transaction.TransferStore) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback failed (%v) after: %w", rbErr, err)
			}
		}
	}()

	if err = fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

// txStore scopes the transfer store to one open database transaction.
type txStore struct {
	tx *sqlx.Tx
}

// AccountForUpdate loads an account under a row lock held until the
// surrounding transaction ends. Returns sql.ErrNoRows for unknown ids.
func (t *txStore) AccountForUpdate(ctx context.Context, id int64) (*acctentity.Account, error) {
	const q = `SELECT id, user_id, bank_name, bank_account_number, balance, created_at, updated_at
		FROM bank_accounts WHERE id=$1 FOR UPDATE`
	var row acctentity.Account
	if err := t.tx.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateAccountBalance writes the new balance and returns the updated row.
func (t *txStore) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) (*acctentity.Account, error) {
	const q = `UPDATE bank_accounts SET balance=$2, updated_at=NOW() WHERE id=$1
		RETURNING id, user_id, bank_name, bank_account_number, balance, created_at, updated_at`
	var row acctentity.Account
	if err := t.tx.GetContext(ctx, &row, q, id, balance); err != nil {
		return nil, database.MapError(err)
	}
	return &row, nil
}

// InsertTransaction appends the immutable transfer record, filling the
// generated id and timestamp.
func (t *txStore) InsertTransaction(ctx context.Context, tr *entity.Transaction) error {
	const q = `INSERT INTO transactions (source_account_id, destination_account_id, amount)
		VALUES ($1, $2, $3) RETURNING id, created_at`
	row := t.tx.QueryRowxContext(ctx, q, tr.SourceAccountID, tr.DestinationAccountID, tr.Amount)
	if err := row.Scan(&tr.ID, &tr.CreatedAt); err != nil {
		return database.MapError(err)
	}
	return nil
}

const selectTransaction = `SELECT id, source_account_id, destination_account_id, amount, created_at
	FROM transactions`

// GetDetail returns one transaction joined with its accounts and owners.
// Left joins keep history readable after an account is hard-deleted.
func (s *LedgerStore) GetDetail(ctx context.Context, id int64) (*entity.Detail, error) {
	const q = `SELECT t.id, t.source_account_id, t.destination_account_id, t.amount, t.created_at,
		sa.user_id AS source_user_id,
		da.user_id AS destination_user_id,
		sa.bank_name AS source_bank_name,
		da.bank_name AS destination_bank_name,
		su.name AS source_owner_name,
		du.name AS destination_owner_name
	FROM transactions t
	LEFT JOIN bank_accounts sa ON sa.id = t.source_account_id
	LEFT JOIN bank_accounts da ON da.id = t.destination_account_id
	LEFT JOIN users su ON su.id = sa.user_id
	LEFT JOIN users du ON du.id = da.user_id
	WHERE t.id = $1`
	var row entity.Detail
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListAll returns every transaction, ascending by id.
func (s *LedgerStore) ListAll(ctx context.Context) ([]*entity.Transaction, error) {
	var rows []*entity.Transaction
	if err := s.db.SelectContext(ctx, &rows, selectTransaction+` ORDER BY id ASC`); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByParticipant returns the transactions where the given user owns the
// source or the destination account, ascending by id.
func (s *LedgerStore) ListByParticipant(ctx context.Context, userID int64) ([]*entity.Transaction, error) {
	const q = selectTransaction + ` t
	WHERE EXISTS (
		SELECT 1 FROM bank_accounts a
		WHERE a.user_id = $1
		  AND a.id IN (t.source_account_id, t.destination_account_id)
	)
	ORDER BY t.id ASC`
	var rows []*entity.Transaction
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	return rows, nil
}
