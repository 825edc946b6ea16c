package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable row in the `transactions` table: a historical
// fact of one completed transfer. Never updated or deleted.
type Transaction struct {
	ID                   int64           `db:"id" json:"id"`
	SourceAccountID      int64           `db:"source_account_id" json:"source_account_id"`
	DestinationAccountID int64           `db:"destination_account_id" json:"destination_account_id"`
	Amount               decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

// Detail is a transaction joined with its participating accounts and their
// owners. The joined columns are nullable because accounts can be
// hard-deleted while their history remains.
type Detail struct {
	Transaction
	SourceUserID         *int64  `db:"source_user_id" json:"-"`
	DestinationUserID    *int64  `db:"destination_user_id" json:"-"`
	SourceBankName       *string `db:"source_bank_name" json:"source_bank_name,omitempty"`
	DestinationBankName  *string `db:"destination_bank_name" json:"destination_bank_name,omitempty"`
	SourceOwnerName      *string `db:"source_owner_name" json:"source_owner_name,omitempty"`
	DestinationOwnerName *string `db:"destination_owner_name" json:"destination_owner_name,omitempty"`
}

// OwnedBy reports whether userID owns the source or destination account.
func (d *Detail) OwnedBy(userID int64) bool {
	if d.SourceUserID != nil && *d.SourceUserID == userID {
		return true
	}
	if d.DestinationUserID != nil && *d.DestinationUserID == userID {
		return true
	}
	return false
}
