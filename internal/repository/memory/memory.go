package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/GooferByte/portfolio-engine/internal/repository"
)

type InMemoryRepo struct {
	mu        sync.RWMutex
	txs       []models.Transaction
	idemIndex map[string]string
	seq       int64
}

func New() *InMemoryRepo {
	return &InMemoryRepo{
		txs:       []models.Transaction{},
		idemIndex: make(map[string]string),
	}
}

func (r *InMemoryRepo) CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.IdempotencyKey != "" {
		key := r.key(tx.AccountID, tx.IdempotencyKey)
		if _, ok := r.idemIndex[key]; ok {
			return models.Transaction{}, repository.ErrDuplicateTransaction
		}
		r.idemIndex[key] = tx.ID
	}

	r.seq++
	tx.Seq = r.seq
	r.txs = append(r.txs, tx)
	return tx, nil
}

func (r *InMemoryRepo) FindByIdempotencyKey(ctx context.Context, accountID, key string) (*models.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.idemIndex[r.key(accountID, key)]; ok {
		for _, tx := range r.txs {
			if tx.ID == id {
				copy := tx
				return &copy, nil
			}
		}
	}
	return nil, nil
}

func (r *InMemoryRepo) ListTransactions(ctx context.Context, filter repository.Filter) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	txs := []models.Transaction{}
	for _, tx := range r.txs {
		if filter.Matches(tx) {
			txs = append(txs, tx)
		}
	}
	slices.SortFunc(txs, func(a, b models.Transaction) int {
		if a.Before(b) {
			return -1
		}
		if b.Before(a) {
			return 1
		}
		return 0
	})
	return txs, nil
}

func (r *InMemoryRepo) key(accountID, idem string) string {
	return accountID + "::" + idem
}
