package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/config"
	"github.com/GooferByte/portfolio-engine/internal/http"
	"github.com/GooferByte/portfolio-engine/internal/logger"
	"github.com/GooferByte/portfolio-engine/internal/portfolio"
	"github.com/GooferByte/portfolio-engine/internal/pricing"
	"github.com/GooferByte/portfolio-engine/internal/repository"
	"github.com/GooferByte/portfolio-engine/internal/repository/memory"
	"github.com/GooferByte/portfolio-engine/internal/repository/postgres"
	"github.com/GooferByte/portfolio-engine/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment, cfg.LogLevel)

	oracle := pricing.NewCachedOracle(newProvider(cfg, log), newCacheStore(cfg, log), cfg.PriceTTL, cfg.HistoryTTL, log)
	engine := portfolio.NewEngine(oracle, log, portfolio.WithConcurrency(cfg.OracleConcurrency))

	var repoImpl repository.TransactionRepository
	if cfg.UseInMemoryStore {
		log.Warn("DATABASE_URL not set, using in-memory store. Data will reset on restart.")
		repoImpl = memory.New()
	} else {
		db, err := sql.Open("postgres", cfg.DBURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to postgres")
		}
		if err := db.Ping(); err != nil {
			log.WithError(err).Fatal("postgres ping failed")
		}
		if err := postgres.Migrate(db, log); err != nil {
			log.WithError(err).Fatal("postgres migrations failed")
		}
		repoImpl = postgres.New(db)
		defer db.Close()
		log.Info("connected to postgres")
	}

	svc := service.NewPortfolioService(repoImpl, engine, cfg.BenchmarkTicker, log)
	router := http.Router(svc, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.WithFields(logrus.Fields{
		"provider":  cfg.PriceProvider,
		"benchmark": cfg.BenchmarkTicker,
	}).Infof("portfolio engine listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func newProvider(cfg config.Config, log *logrus.Logger) pricing.Oracle {
	switch cfg.PriceProvider {
	case config.ProviderYahoo:
		return pricing.NewYahooOracle(cfg.OracleTimeout)
	case config.ProviderRandom:
		return pricing.NewRandomOracle(cfg.PriceTTL)
	default:
		log.WithField("provider", cfg.PriceProvider).Warn("unknown price provider, using random")
		return pricing.NewRandomOracle(cfg.PriceTTL)
	}
}

func newCacheStore(cfg config.Config, log *logrus.Logger) pricing.Store {
	if cfg.RedisURL == "" {
		return pricing.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := pricing.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, caching quotes in memory")
		return pricing.NewMemoryStore()
	}
	log.Info("caching quotes in redis")
	return store
}
