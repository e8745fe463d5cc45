package repository

import (
	"context"
	"fmt"

	"github.com/GooferByte/portfolio-engine/internal/models"
)

var (
	// ErrDuplicateTransaction indicates a transaction with the same idempotency key already exists.
	ErrDuplicateTransaction = fmt.Errorf("duplicate transaction")
)

// Filter narrows a transaction listing. An empty AccountID lists every
// transaction; a set one excludes transactions without an account.
type Filter struct {
	AccountID string
	Ticker    string
}

// TransactionRepository abstracts persistence for the trade log.
type TransactionRepository interface {
	// CreateTransaction stores tx and returns it with its insertion sequence set.
	CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, accountID, key string) (*models.Transaction, error)
	// ListTransactions returns matching transactions in replay order.
	ListTransactions(ctx context.Context, filter Filter) ([]models.Transaction, error)
}

// BookLocker is implemented by repositories shared between processes. It runs
// fn with writes to one (account, ticker) book serialized, passing a
// repository bound to the locked scope.
type BookLocker interface {
	WithBookLock(ctx context.Context, accountID, ticker string, fn func(TransactionRepository) error) error
}

// BookKey identifies the (account, ticker) book of a transaction.
func BookKey(accountID, ticker string) string {
	return accountID + "::" + ticker
}

// Matches reports whether tx passes f.
func (f Filter) Matches(tx models.Transaction) bool {
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	if f.Ticker != "" && tx.Ticker != f.Ticker {
		return false
	}
	return true
}
