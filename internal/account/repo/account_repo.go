package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/database"
)

// AccountRepo provides data access for the bank_accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// EnsureTable creates the bank_accounts table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS bank_accounts (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id),
  bank_name TEXT NOT NULL,
  bank_account_number TEXT UNIQUE NOT NULL,
  balance NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_bank_accounts_user_id ON bank_accounts(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new account row and returns the assigned ID. Constraint
// violations come back as database.ErrDuplicateKey (account number) or
// database.ErrForeignKeyViolation (unknown owning user).
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) (int64, error) {
	const q = `INSERT INTO bank_accounts (user_id, bank_name, bank_account_number, balance)
		VALUES (:user_id, :bank_name, :bank_account_number, :balance) RETURNING id`
	stmt, err := r.db.NamedQueryContext(ctx, q, a)
	if err != nil {
		return 0, database.MapError(err)
	}
	defer stmt.Close()
	if stmt.Next() {
		if err := stmt.Scan(&a.ID); err != nil {
			return 0, err
		}
		return a.ID, nil
	}
	return 0, errors.New("no id returned")
}

const selectAccount = `SELECT id, user_id, bank_name, bank_account_number, balance, created_at, updated_at
	FROM bank_accounts`

// GetByID fetches an account row or sql.ErrNoRows.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	var row entity.Account
	if err := r.db.GetContext(ctx, &row, selectAccount+` WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByUser returns the accounts owned by one user, ascending by id.
func (r *AccountRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.Account, error) {
	var rows []*entity.Account
	if err := r.db.SelectContext(ctx, &rows, selectAccount+` WHERE user_id=$1 ORDER BY id ASC`, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every account, ascending by id.
func (r *AccountRepo) ListAll(ctx context.Context) ([]*entity.Account, error) {
	var rows []*entity.Account
	if err := r.db.SelectContext(ctx, &rows, selectAccount+` ORDER BY id ASC`); err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete hard-deletes an account and reports how many rows went away.
// Transaction history referencing the account is left untouched.
func (r *AccountRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank_accounts WHERE id=$1`, id)
	if err != nil {
		return 0, database.MapError(err)
	}
	return res.RowsAffected()
}
