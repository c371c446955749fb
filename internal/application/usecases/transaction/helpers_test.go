package transaction

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// In-memory fakes for the ports this package depends on. They reproduce the
// storage behaviors the engine leans on: the unique index on reference_id,
// fresh row reads on every unit-of-work attempt, and rollback of everything
// written inside an aborted attempt. Reads and writes go through clones, so
// a mutation that was never saved is never visible to a later read.

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entities.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*entities.User)}
}

func (r *memUserRepo) Save(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID()] = user
	return nil
}

func (r *memUserRepo) UpdateKYCStatus(ctx context.Context, user *entities.User, from entities.KYCStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[user.ID()]
	if !ok || current.KYCStatus() != from {
		return errors.NewConcurrencyError("user", user.ID().String(), "verification state changed concurrently")
	}
	r.users[user.ID()] = user
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NewNotFound("user")
	}
	return user, nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email() == email {
			return true, nil
		}
	}
	return false, nil
}

type memWalletRepo struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*entities.Wallet
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{byUser: make(map[uuid.UUID]*entities.Wallet)}
}

func cloneWallet(w *entities.Wallet) *entities.Wallet {
	return entities.ReconstructWallet(w.ID(), w.UserID(), w.Balance(), w.CreatedAt(), w.UpdatedAt())
}

func (r *memWalletRepo) Save(ctx context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[wallet.UserID()] = cloneWallet(wallet)
	return nil
}

func (r *memWalletRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wallet := range r.byUser {
		if wallet.ID() == id {
			return cloneWallet(wallet), nil
		}
	}
	return nil, errors.NewNotFound("wallet")
}

func (r *memWalletRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.byUser[userID]
	if !ok {
		return nil, errors.NewNotFound("wallet")
	}
	return cloneWallet(wallet), nil
}

func (r *memWalletRepo) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	return r.FindByUserID(ctx, userID)
}

func (r *memWalletRepo) List(ctx context.Context, offset, limit int) ([]*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*entities.Wallet, 0, len(r.byUser))
	for _, wallet := range r.byUser {
		all = append(all, cloneWallet(wallet))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt().Equal(all[j].CreatedAt()) {
			return all[i].CreatedAt().Before(all[j].CreatedAt())
		}
		return all[i].ID().String() < all[j].ID().String()
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memWalletRepo) snapshot() map[uuid.UUID]*entities.Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[uuid.UUID]*entities.Wallet, len(r.byUser))
	for userID, wallet := range r.byUser {
		copied[userID] = cloneWallet(wallet)
	}
	return copied
}

func (r *memWalletRepo) restore(state map[uuid.UUID]*entities.Wallet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser = state
}

type memTransactionRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*entities.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{byID: make(map[uuid.UUID]*entities.Transaction)}
}

func cloneTransaction(tx *entities.Transaction) (*entities.Transaction, error) {
	metadataJSON, err := tx.MetadataJSON()
	if err != nil {
		return nil, err
	}
	return entities.ReconstructTransaction(
		tx.ID(), tx.ReferenceID(), tx.Type(), tx.Status(),
		tx.FromWalletID(), tx.ToWalletID(), tx.Amount(), tx.Description(),
		tx.FromBalanceBefore(), tx.FromBalanceAfter(), tx.ToBalanceBefore(), tx.ToBalanceAfter(),
		tx.ErrorMessage(), tx.RetryCount(), metadataJSON, tx.CreatedAt(), tx.CompletedAt(), tx.UpdatedAt(),
	)
}

func (r *memTransactionRepo) Save(ctx context.Context, tx *entities.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.ReferenceID() == tx.ReferenceID() && existing.ID() != tx.ID() {
			return errors.NewDuplicateTransaction(tx.ReferenceID())
		}
	}
	clone, err := cloneTransaction(tx)
	if err != nil {
		return err
	}
	r.byID[tx.ID()] = clone
	return nil
}

func (r *memTransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byID[id]
	if !ok {
		return nil, errors.NewNotFound("transaction")
	}
	return cloneTransaction(tx)
}

func (r *memTransactionRepo) FindByReferenceID(ctx context.Context, referenceID string) (*entities.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.byID {
		if tx.ReferenceID() == referenceID {
			return cloneTransaction(tx)
		}
	}
	return nil, errors.NewNotFound("transaction")
}

func (r *memTransactionRepo) List(ctx context.Context, filter ports.TransactionFilter, offset, limit int) ([]*entities.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*entities.Transaction, 0, len(r.byID))
	for _, tx := range r.byID {
		if filter.WalletID != nil && !tx.IsParticipant(*filter.WalletID) {
			continue
		}
		if filter.Type != nil && tx.Type() != *filter.Type {
			continue
		}
		if filter.Status != nil && tx.Status() != *filter.Status {
			continue
		}
		matched = append(matched, tx)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})

	if offset >= len(matched) {
		return []*entities.Transaction{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]*entities.Transaction, 0, end-offset)
	for _, tx := range matched[offset:end] {
		clone, err := cloneTransaction(tx)
		if err != nil {
			return nil, err
		}
		page = append(page, clone)
	}
	return page, nil
}

func (r *memTransactionRepo) snapshot() map[uuid.UUID]*entities.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[uuid.UUID]*entities.Transaction, len(r.byID))
	for id, tx := range r.byID {
		copied[id] = tx
	}
	return copied
}

func (r *memTransactionRepo) restore(state map[uuid.UUID]*entities.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = state
}

type memLedgerRepo struct {
	mu      sync.Mutex
	entries []*entities.LedgerEntry
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{}
}

func (r *memLedgerRepo) SaveAll(ctx context.Context, entries []*entities.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

// FindByTransactionID returns entries in insertion order, matching the
// sequence ordering of the real table.
func (r *memLedgerRepo) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*entities.LedgerEntry, 0, 2)
	for _, entry := range r.entries {
		if entry.TransactionID() == transactionID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (r *memLedgerRepo) FindByWalletID(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*entities.LedgerEntry, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].WalletID() == walletID {
			matched = append(matched, r.entries[i])
		}
	}
	if offset >= len(matched) {
		return []*entities.LedgerEntry{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *memLedgerRepo) SumByWalletID(ctx context.Context, walletID uuid.UUID) (valueobjects.Money, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := valueobjects.ZeroMoney()
	for _, entry := range r.entries {
		if entry.WalletID() != walletID {
			continue
		}
		if entry.Type() == entities.LedgerEntryCredit {
			sum = sum.Add(entry.Amount())
			continue
		}
		var err error
		sum, err = sum.Subtract(entry.Amount())
		if err != nil {
			return valueobjects.Money{}, err
		}
	}
	return sum, nil
}

func (r *memLedgerRepo) snapshot() []*entities.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]*entities.LedgerEntry, len(r.entries))
	copy(copied, r.entries)
	return copied
}

func (r *memLedgerRepo) restore(state []*entities.LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = state
}

type memCache struct {
	mu     sync.Mutex
	refs   map[string]uuid.UUID
	getErr error
	setErr error
	hits   int
}

func newMemCache() *memCache {
	return &memCache{refs: make(map[string]uuid.UUID)}
}

func (c *memCache) Get(ctx context.Context, referenceID string) (uuid.UUID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return uuid.Nil, false, c.getErr
	}
	id, ok := c.refs[referenceID]
	if ok {
		c.hits++
	}
	return id, ok, nil
}

func (c *memCache) Set(ctx context.Context, referenceID string, transactionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.refs[referenceID] = transactionID
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, referenceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.refs, referenceID)
	return nil
}

// memUnitOfWork serializes movements with one mutex, the coarse equivalent
// of the row locks the real implementation takes. abortAttempts simulates
// the database rejecting the first n commits with a serialization failure:
// the writes of the attempt are rolled back and the function runs again.
type memUnitOfWork struct {
	mu            sync.Mutex
	snapshot      func() func()
	abortAttempts int
	attempts      int
}

func (u *memUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	restore := u.snapshot()
	if err := fn(ctx); err != nil {
		restore()
		return err
	}
	return nil
}

func (u *memUnitOfWork) ExecuteWithRetry(ctx context.Context, fn func(context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for {
		u.attempts++
		restore := u.snapshot()
		if err := fn(ctx); err != nil {
			restore()
			return err
		}
		if u.attempts <= u.abortAttempts {
			restore()
			continue
		}
		return nil
	}
}

// fixture bundles the fakes behind one seedable backing store.
type fixture struct {
	users        *memUserRepo
	wallets      *memWalletRepo
	transactions *memTransactionRepo
	ledger       *memLedgerRepo
	cache        *memCache
	uow          *memUnitOfWork
}

func newFixture() *fixture {
	f := &fixture{
		users:        newMemUserRepo(),
		wallets:      newMemWalletRepo(),
		transactions: newMemTransactionRepo(),
		ledger:       newMemLedgerRepo(),
		cache:        newMemCache(),
		uow:          &memUnitOfWork{},
	}
	f.uow.snapshot = func() func() {
		wallets := f.wallets.snapshot()
		transactions := f.transactions.snapshot()
		ledger := f.ledger.snapshot()
		return func() {
			f.wallets.restore(wallets)
			f.transactions.restore(transactions)
			f.ledger.restore(ledger)
		}
	}
	return f
}

func testLimits() Limits {
	return Limits{
		MinAmount: valueobjects.MustMoney("0.01"),
		MaxAmount: valueobjects.MustMoney("1000000"),
	}
}

func (f *fixture) transferUseCase() *TransferUseCase {
	return NewTransferUseCase(f.users, f.wallets, f.transactions, f.ledger, f.cache, f.uow, testLimits())
}

func (f *fixture) depositUseCase() *DepositUseCase {
	return NewDepositUseCase(f.users, f.wallets, f.transactions, f.ledger, f.uow)
}

// seedUser stores a user in the given KYC state plus their wallet, and
// returns the user id.
func (f *fixture) seedUser(t *testing.T, status entities.KYCStatus, active bool, balance string) uuid.UUID {
	t.Helper()
	now := time.Now()
	userID := uuid.New()
	user := entities.ReconstructUser(
		userID,
		fmt.Sprintf("user-%s@example.com", userID),
		"Test User",
		status, active, false,
		nil, nil,
		now, now,
	)
	if err := f.users.Save(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	wallet := entities.ReconstructWallet(uuid.New(), userID, valueobjects.MustMoney(balance), now, now)
	if err := f.wallets.Save(context.Background(), wallet); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	return userID
}

// seedVerifiedUser stores an active VERIFIED user able to transact.
func (f *fixture) seedVerifiedUser(t *testing.T, balance string) uuid.UUID {
	t.Helper()
	return f.seedUser(t, entities.KYCStatusVerified, true, balance)
}

// balanceOf reads a user's committed wallet balance.
func (f *fixture) balanceOf(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	wallet, err := f.wallets.FindByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	return wallet.Balance().String()
}

// storedTransaction reads a transaction's committed row.
func (f *fixture) storedTransaction(t *testing.T, id uuid.UUID) *entities.Transaction {
	t.Helper()
	tx, err := f.transactions.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	return tx
}

// ledgerOf reads the ledger entries appended for one transaction.
func (f *fixture) ledgerOf(t *testing.T, transactionID uuid.UUID) []*entities.LedgerEntry {
	t.Helper()
	entries, err := f.ledger.FindByTransactionID(context.Background(), transactionID)
	if err != nil {
		t.Fatalf("load ledger entries: %v", err)
	}
	return entries
}

// ledgerSumOf folds the user's ledger into credits minus debits. Equals the
// wallet balance whenever the whole balance history ran through the engine.
func (f *fixture) ledgerSumOf(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	wallet, err := f.wallets.FindByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	sum, err := f.ledger.SumByWalletID(context.Background(), wallet.ID())
	if err != nil {
		t.Fatalf("sum ledger entries: %v", err)
	}
	return sum.String()
}
