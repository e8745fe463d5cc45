package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/GooferByte/portfolio-engine/internal/repository"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations.
func Migrate(db *sql.DB, logger *logrus.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(logger.WithField("component", "migrations"))
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository implements TransactionRepository backed by PostgreSQL.
type Repository struct {
	db *sql.DB
	q  querier
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, q: db}
}

// WithBookLock runs fn inside a transaction holding an advisory lock on the
// (account, ticker) book. The lock is released on commit or rollback.
func (r *Repository) WithBookLock(ctx context.Context, accountID, ticker string, fn func(repository.TransactionRepository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, repository.BookKey(accountID, ticker)); err != nil {
		return fmt.Errorf("lock book: %w", err)
	}
	if err = fn(&Repository{db: r.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

const columns = `seq, id, account_id, ticker, side, quantity, trade_date, price_per_share, price_currency, idempotency_key, created_at`

func (r *Repository) CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	const query = `
		INSERT INTO transactions
		(id, account_id, ticker, side, quantity, trade_date, price_per_share, price_currency, idempotency_key, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING seq
	`
	err := r.q.QueryRowContext(ctx, query,
		tx.ID, nullableString(tx.AccountID), tx.Ticker, string(tx.Side), tx.Quantity, tx.Date,
		tx.PricePerShare, tx.PriceCurrency, nullableString(tx.IdempotencyKey), tx.CreatedAt,
	).Scan(&tx.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Transaction{}, repository.ErrDuplicateTransaction
		}
		return models.Transaction{}, err
	}
	return tx, nil
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, accountID, key string) (*models.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	query := `SELECT ` + columns + `
		FROM transactions
		WHERE COALESCE(account_id, '') = $1 AND idempotency_key = $2
	`
	row := r.q.QueryRowContext(ctx, query, accountID, key)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *Repository) ListTransactions(ctx context.Context, filter repository.Filter) ([]models.Transaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Ticker != "" {
		args = append(args, filter.Ticker)
		where = append(where, fmt.Sprintf("ticker = $%d", len(args)))
	}
	query := `SELECT ` + columns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY trade_date ASC, seq ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner) (models.Transaction, error) {
	var (
		tx      models.Transaction
		account sql.NullString
		idem    sql.NullString
		side    string
	)
	if err := s.Scan(&tx.Seq, &tx.ID, &account, &tx.Ticker, &side, &tx.Quantity, &tx.Date,
		&tx.PricePerShare, &tx.PriceCurrency, &idem, &tx.CreatedAt); err != nil {
		return models.Transaction{}, err
	}
	tx.AccountID = account.String
	tx.IdempotencyKey = idem.String
	tx.Side = models.Side(side)
	tx.Date = tx.Date.UTC()
	return tx, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
