package transaction

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	acctentity "github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/transaction/entity"
)

// fakeLedger is an in-memory implementation of UnitOfWork and Reader. Do
// serializes units of work under one mutex and applies changes to staged
// copies, so a failed unit leaves no state change behind, matching the
// contract the SQL store provides with row locks and rollback.
type fakeLedger struct {
	mu       sync.Mutex
	accounts map[int64]*acctentity.Account
	txs      []*entity.Transaction
	nextTxID int64

	failInsert error // when set, InsertTransaction fails with this error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: make(map[int64]*acctentity.Account)}
}

func (f *fakeLedger) addAccount(id, userID int64, balance int64) {
	f.accounts[id] = &acctentity.Account{
		ID:      id,
		UserID:  userID,
		Balance: decimal.NewFromInt(balance),
	}
}

func (f *fakeLedger) Do(ctx context.Context, fn func(TransferStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stage := &fakeStore{
		ledger:   f,
		accounts: make(map[int64]*acctentity.Account, len(f.accounts)),
		nextTxID: f.nextTxID,
	}
	for id, a := range f.accounts {
		cp := *a
		stage.accounts[id] = &cp
	}

	if err := fn(stage); err != nil {
		return err
	}

	f.accounts = stage.accounts
	f.txs = append(f.txs, stage.txs...)
	f.nextTxID = stage.nextTxID
	return nil
}

type fakeStore struct {
	ledger   *fakeLedger
	accounts map[int64]*acctentity.Account
	txs      []*entity.Transaction
	nextTxID int64
}

func (s *fakeStore) AccountForUpdate(ctx context.Context, id int64) (*acctentity.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (s *fakeStore) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) (*acctentity.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a.Balance = balance
	cp := *a
	return &cp, nil
}

func (s *fakeStore) InsertTransaction(ctx context.Context, t *entity.Transaction) error {
	if s.ledger.failInsert != nil {
		return s.ledger.failInsert
	}
	s.nextTxID++
	t.ID = s.nextTxID
	s.txs = append(s.txs, t)
	return nil
}

func (f *fakeLedger) GetDetail(ctx context.Context, id int64) (*entity.Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.txs {
		if t.ID == id {
			d := &entity.Detail{Transaction: *t}
			if a, ok := f.accounts[t.SourceAccountID]; ok {
				uid := a.UserID
				d.SourceUserID = &uid
			}
			if a, ok := f.accounts[t.DestinationAccountID]; ok {
				uid := a.UserID
				d.DestinationUserID = &uid
			}
			return d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedger) ListAll(ctx context.Context) ([]*entity.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Transaction, len(f.txs))
	copy(out, f.txs)
	return out, nil
}

func (f *fakeLedger) ListByParticipant(ctx context.Context, userID int64) ([]*entity.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Transaction
	for _, t := range f.txs {
		if f.ownedLocked(t.SourceAccountID, userID) || f.ownedLocked(t.DestinationAccountID, userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLedger) ownedLocked(accountID, userID int64) bool {
	a, ok := f.accounts[accountID]
	return ok && a.UserID == userID
}

func (f *fakeLedger) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		t.Fatalf("account %d missing", id)
	}
	return a.Balance
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

var (
	user1 = auth.Identity{ID: 1, Role: auth.RoleCustomer}
	user2 = auth.Identity{ID: 2, Role: auth.RoleCustomer}
	admin = auth.Identity{ID: 99, Role: auth.RoleAdmin}
)

func TestTransfer(t *testing.T) {
	f := newFakeLedger()
	f.addAccount(10, 1, 500)
	f.addAccount(20, 2, 100)
	svc := NewService(f, f)

	res, err := svc.Transfer(context.Background(), user1, 10, 20, dec(200))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !res.SourceAccount.Balance.Equal(dec(300)) {
		t.Fatalf("source balance=%s want=300", res.SourceAccount.Balance)
	}
	if !res.DestinationAccount.Balance.Equal(dec(300)) {
		t.Fatalf("destination balance=%s want=300", res.DestinationAccount.Balance)
	}
	if res.Transaction.ID == 0 || !res.Transaction.Amount.Equal(dec(200)) {
		t.Fatalf("unexpected transaction %+v", res.Transaction)
	}

	// conservation of funds
	total := f.balance(t, 10).Add(f.balance(t, 20))
	if !total.Equal(dec(600)) {
		t.Fatalf("total=%s want=600", total)
	}

	txs, err := f.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions=%d want=1", len(txs))
	}
}

func TestTransferRejections(t *testing.T) {
	newSvc := func() (*Service, *fakeLedger) {
		f := newFakeLedger()
		f.addAccount(10, 1, 300)
		f.addAccount(20, 2, 100)
		return NewService(f, f), f
	}

	tests := []struct {
		name    string
		caller  auth.Identity
		source  int64
		dest    int64
		amount  int64
		wantErr error
	}{
		{"unknown source", user1, 77, 20, 50, ErrAccountNotFound},
		{"unknown destination", user1, 10, 77, 50, ErrAccountNotFound},
		{"same account", user1, 10, 10, 50, ErrSameAccount},
		{"same unknown account", user1, 77, 77, 50, ErrAccountNotFound},
		{"not owner", user2, 10, 20, 50, ErrNotOwner},
		{"not owner despite funds", user2, 10, 20, 1, ErrNotOwner},
		{"insufficient balance", user1, 10, 20, 1000, ErrInsufficientBalance},
		{"zero amount", user1, 10, 20, 0, ErrAmountNotPositive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, f := newSvc()
			_, err := svc.Transfer(context.Background(), tc.caller, tc.source, tc.dest, dec(tc.amount))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err=%v want=%v", err, tc.wantErr)
			}
			// rejections are repeatable and leave no state change
			_, err2 := svc.Transfer(context.Background(), tc.caller, tc.source, tc.dest, dec(tc.amount))
			if !errors.Is(err2, tc.wantErr) {
				t.Fatalf("second attempt err=%v want=%v", err2, tc.wantErr)
			}
			if !f.balance(t, 10).Equal(dec(300)) || !f.balance(t, 20).Equal(dec(100)) {
				t.Fatalf("balances changed after rejection: %s %s", f.balance(t, 10), f.balance(t, 20))
			}
			if txs, _ := f.ListAll(context.Background()); len(txs) != 0 {
				t.Fatalf("transactions recorded after rejection: %d", len(txs))
			}
		})
	}
}

func TestTransferRollbackOnStoreFailure(t *testing.T) {
	f := newFakeLedger()
	f.addAccount(10, 1, 300)
	f.addAccount(20, 2, 100)
	f.failInsert = errors.New("connection reset")
	svc := NewService(f, f)

	_, err := svc.Transfer(context.Background(), user1, 10, 20, dec(50))
	if err == nil {
		t.Fatal("expected error")
	}
	if !f.balance(t, 10).Equal(dec(300)) || !f.balance(t, 20).Equal(dec(100)) {
		t.Fatalf("balances changed after failed unit: %s %s", f.balance(t, 10), f.balance(t, 20))
	}
}

func TestTransferConcurrentDebit(t *testing.T) {
	f := newFakeLedger()
	f.addAccount(10, 1, 300)
	f.addAccount(20, 2, 0)
	svc := NewService(f, f)

	// two simultaneous full-balance debits: exactly one may win
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transfer(context.Background(), user1, 10, 20, dec(300))
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("ok=%d insufficient=%d want 1/1", ok, insufficient)
	}
	if !f.balance(t, 10).Equal(dec(0)) {
		t.Fatalf("source balance=%s want=0", f.balance(t, 10))
	}
	if !f.balance(t, 20).Equal(dec(300)) {
		t.Fatalf("destination balance=%s want=300", f.balance(t, 20))
	}
}

func TestGetTransactionPolicy(t *testing.T) {
	f := newFakeLedger()
	f.addAccount(10, 1, 500)
	f.addAccount(20, 2, 100)
	svc := NewService(f, f)

	res, err := svc.Transfer(context.Background(), user1, 10, 20, dec(50))
	if err != nil {
		t.Fatal(err)
	}
	txID := res.Transaction.ID

	if _, err := svc.Get(context.Background(), user1, txID); err != nil {
		t.Fatalf("source owner read: %v", err)
	}
	if _, err := svc.Get(context.Background(), user2, txID); err != nil {
		t.Fatalf("destination owner read: %v", err)
	}
	if _, err := svc.Get(context.Background(), admin, txID); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	stranger := auth.Identity{ID: 3, Role: auth.RoleCustomer}
	if _, err := svc.Get(context.Background(), stranger, txID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger read err=%v want=ErrForbidden", err)
	}

	// missing transaction answers not-found before any ownership evaluation
	if _, err := svc.Get(context.Background(), stranger, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing read err=%v want=ErrNotFound", err)
	}
}

func TestListTransactionsScoping(t *testing.T) {
	f := newFakeLedger()
	f.addAccount(10, 1, 500)
	f.addAccount(20, 2, 500)
	f.addAccount(30, 3, 500)
	svc := NewService(f, f)

	ctx := context.Background()
	mustTransfer := func(caller auth.Identity, src, dst int64) {
		t.Helper()
		if _, err := svc.Transfer(ctx, caller, src, dst, dec(10)); err != nil {
			t.Fatalf("transfer %d->%d: %v", src, dst, err)
		}
	}
	mustTransfer(user1, 10, 20)
	mustTransfer(user2, 20, 30)
	mustTransfer(auth.Identity{ID: 3, Role: auth.RoleCustomer}, 30, 20)

	// user 1 participates in one transfer only
	own, err := svc.ListOwn(ctx, user1)
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != 1 || own[0].SourceAccountID != 10 {
		t.Fatalf("user1 list=%+v want one row sourced from account 10", own)
	}

	// user 2 is source or destination in all three (set union)
	own2, err := svc.ListOwn(ctx, user2)
	if err != nil {
		t.Fatal(err)
	}
	if len(own2) != 3 {
		t.Fatalf("user2 list=%d want=3", len(own2))
	}

	// admin scope returns all, ascending by id
	all, err := svc.ListAll(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("admin list=%d want=3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("admin list not ascending: %d then %d", all[i-1].ID, all[i].ID)
		}
	}

	// admin scope is closed to customers
	if _, err := svc.ListAll(ctx, user1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer admin-list err=%v want=ErrForbidden", err)
	}
}
