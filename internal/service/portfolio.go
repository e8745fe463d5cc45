package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/dates"
	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/GooferByte/portfolio-engine/internal/portfolio"
	"github.com/GooferByte/portfolio-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrValidation = errors.New("validation_error")
	// ErrOversell is returned when a SELL would exceed the open quantity at any
	// point of the account's history.
	ErrOversell  = fmt.Errorf("%w: oversell", ErrValidation)
	ErrDuplicate = repository.ErrDuplicateTransaction
)

var (
	tickerPattern   = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-=^]{0,19}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// PortfolioService records trades and runs the portfolio computations over
// the stored log.
type PortfolioService struct {
	repo      repository.TransactionRepository
	engine    *portfolio.Engine
	benchmark string
	now       func() time.Time
	books     bookLocks
	logger    *logrus.Entry
}

// bookLocks hands out one mutex per (account, ticker) book.
type bookLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (b *bookLocks) lock(key string) (unlock func()) {
	b.mu.Lock()
	if b.locks == nil {
		b.locks = make(map[string]*sync.Mutex)
	}
	m, ok := b.locks[key]
	if !ok {
		m = &sync.Mutex{}
		b.locks[key] = m
	}
	b.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// NewPortfolioService builds a PortfolioService. benchmark is used when a
// performance request names none.
func NewPortfolioService(repo repository.TransactionRepository, engine *portfolio.Engine, benchmark string, logger *logrus.Logger) *PortfolioService {
	return &PortfolioService{
		repo:      repo,
		engine:    engine,
		benchmark: benchmark,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.WithField("component", "portfolio-service"),
	}
}

// RecordTransactionInput is the DTO consumed by the service.
type RecordTransactionInput struct {
	AccountID      string
	Ticker         string
	Side           string
	Quantity       decimal.Decimal
	Date           time.Time
	PricePerShare  decimal.NullDecimal
	PriceCurrency  string
	IdempotencyKey string
}

// RecordTransaction validates and appends a trade to the log. A repeated
// idempotency key returns the stored transaction together with ErrDuplicate.
func (s *PortfolioService) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*models.Transaction, error) {
	tx, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByIdempotencyKey(ctx, tx.AccountID, tx.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrDuplicate
	}

	tx.ID = uuid.NewString()
	tx.CreatedAt = s.now()
	stored, err := s.store(ctx, tx)
	if errors.Is(err, ErrDuplicate) {
		// Lost the race on the idempotency key to a concurrent writer.
		existing, findErr := s.repo.FindByIdempotencyKey(ctx, tx.AccountID, tx.IdempotencyKey)
		if findErr != nil {
			return nil, findErr
		}
		return existing, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"transaction": stored.ID,
		"account":     stored.AccountID,
		"ticker":      stored.Ticker,
		"side":        stored.Side,
		"quantity":    stored.Quantity.String(),
	}).Info("transaction recorded")
	return &stored, nil
}

// store writes tx. A SELL is checked against its book and written while the
// book is locked, in this process and in the repository when it supports it.
func (s *PortfolioService) store(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.Side != models.SideSell {
		return s.repo.CreateTransaction(ctx, tx)
	}

	unlock := s.books.lock(repository.BookKey(tx.AccountID, tx.Ticker))
	defer unlock()

	var stored models.Transaction
	write := func(repo repository.TransactionRepository) error {
		if err := checkOversell(ctx, repo, tx); err != nil {
			return err
		}
		var err error
		stored, err = repo.CreateTransaction(ctx, tx)
		return err
	}
	if locker, ok := s.repo.(repository.BookLocker); ok {
		if err := locker.WithBookLock(ctx, tx.AccountID, tx.Ticker, write); err != nil {
			return models.Transaction{}, err
		}
		return stored, nil
	}
	if err := write(s.repo); err != nil {
		return models.Transaction{}, err
	}
	return stored, nil
}

func (s *PortfolioService) normalize(input RecordTransactionInput) (models.Transaction, error) {
	ticker := strings.ToUpper(strings.TrimSpace(input.Ticker))
	if !tickerPattern.MatchString(ticker) {
		return models.Transaction{}, fmt.Errorf("%w: ticker %q is not a valid symbol", ErrValidation, input.Ticker)
	}
	side := models.ParseSide(input.Side)
	if !side.Valid() {
		return models.Transaction{}, fmt.Errorf("%w: side must be BUY or SELL", ErrValidation)
	}
	if !input.Quantity.IsPositive() {
		return models.Transaction{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if input.Date.IsZero() {
		return models.Transaction{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	day := dates.Day(input.Date)
	if day.After(dates.Day(s.now())) {
		return models.Transaction{}, fmt.Errorf("%w: date %s is in the future", ErrValidation, dates.Format(day))
	}
	if input.PricePerShare.Valid && input.PricePerShare.Decimal.IsNegative() {
		return models.Transaction{}, fmt.Errorf("%w: price per share cannot be negative", ErrValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.PriceCurrency))
	if currency == "" {
		currency = models.CurrencyUSD
	}
	if !currencyPattern.MatchString(currency) {
		return models.Transaction{}, fmt.Errorf("%w: currency must be a 3-letter ISO code", ErrValidation)
	}

	return models.Transaction{
		AccountID:      strings.TrimSpace(input.AccountID),
		Ticker:         ticker,
		Side:           side,
		Quantity:       input.Quantity,
		Date:           day,
		PricePerShare:  input.PricePerShare,
		PriceCurrency:  currency,
		IdempotencyKey: strings.TrimSpace(input.IdempotencyKey),
	}, nil
}

// checkOversell replays the open quantity of the ticker with tx inserted
// after every trade already recorded on its day. Trades without an account
// form their own book.
func checkOversell(ctx context.Context, repo repository.TransactionRepository, tx models.Transaction) error {
	history, err := repo.ListTransactions(ctx, repository.Filter{AccountID: tx.AccountID, Ticker: tx.Ticker})
	if err != nil {
		return err
	}
	var maxSeq int64
	book := make([]models.Transaction, 0, len(history)+1)
	for _, h := range history {
		if h.AccountID != tx.AccountID {
			continue
		}
		if h.Seq > maxSeq {
			maxSeq = h.Seq
		}
		book = append(book, h)
	}
	candidate := tx
	candidate.Seq = maxSeq + 1
	book = append(book, candidate)

	open := decimal.Zero
	for _, h := range models.SortChronologically(book) {
		if h.Side == models.SideBuy {
			open = open.Add(h.Quantity)
			continue
		}
		open = open.Sub(h.Quantity)
		if open.IsNegative() {
			return fmt.Errorf("%w: selling %s %s on %s leaves %s short",
				ErrOversell, tx.Quantity, tx.Ticker, dates.Format(h.Date), open.Neg())
		}
	}
	return nil
}

// ListTransactions returns the account's log in replay order.
func (s *PortfolioService) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return s.repo.ListTransactions(ctx, repository.Filter{AccountID: accountID})
}

func (s *PortfolioService) Holdings(ctx context.Context, accountID string) (models.Holdings, error) {
	txs, err := s.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.engine.ComputeHoldings(ctx, txs)
}

func (s *PortfolioService) Composition(ctx context.Context, accountID string) (models.Composition, error) {
	holdings, err := s.Holdings(ctx, accountID)
	if err != nil {
		return models.Composition{}, err
	}
	return s.engine.ComputeComposition(ctx, holdings)
}

func (s *PortfolioService) RealizedGains(ctx context.Context, accountID string) (models.RealizedGains, error) {
	txs, err := s.ListTransactions(ctx, accountID)
	if err != nil {
		return models.RealizedGains{}, err
	}
	return s.engine.ComputeRealizedGains(ctx, txs)
}

// Performance compares the account with benchmark, or with the configured
// default benchmark when benchmark is empty.
func (s *PortfolioService) Performance(ctx context.Context, accountID, benchmark string) (models.PerformanceReport, error) {
	if strings.TrimSpace(benchmark) == "" {
		benchmark = s.benchmark
	}
	txs, err := s.ListTransactions(ctx, accountID)
	if err != nil {
		return models.PerformanceReport{}, err
	}
	return s.engine.ComputePerformance(ctx, txs, benchmark)
}
