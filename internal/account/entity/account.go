package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a row in the `bank_accounts` table. Balance is a
// non-negative decimal; it is only ever mutated inside the transfer engine's
// unit of work.
type Account struct {
	ID                int64           `db:"id" json:"id"`
	UserID            int64           `db:"user_id" json:"user_id"`
	BankName          string          `db:"bank_name" json:"bank_name"`
	BankAccountNumber string          `db:"bank_account_number" json:"bank_account_number"`
	Balance           decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}
