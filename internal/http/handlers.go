package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/dates"
	"github.com/GooferByte/portfolio-engine/internal/report"
	"github.com/GooferByte/portfolio-engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Router wires all handlers.
func Router(svc *service.PortfolioService, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/transactions", func(c *gin.Context) {
		handleRecordTransaction(c, svc)
	})
	r.GET("/transactions", func(c *gin.Context) {
		handleListTransactions(c, svc)
	})
	r.GET("/holdings", func(c *gin.Context) {
		handleHoldings(c, svc)
	})
	r.GET("/composition", func(c *gin.Context) {
		handleComposition(c, svc)
	})
	r.GET("/realized-gains", func(c *gin.Context) {
		handleRealizedGains(c, svc)
	})
	r.GET("/performance", func(c *gin.Context) {
		handlePerformance(c, svc)
	})
	return r
}

type transactionRequest struct {
	AccountID      string  `json:"accountId"`
	Ticker         string  `json:"ticker" binding:"required"`
	Side           string  `json:"side" binding:"required"`
	Quantity       string  `json:"quantity" binding:"required"`
	Date           string  `json:"date" binding:"required"`
	PricePerShare  *string `json:"pricePerShare"`
	PriceCurrency  string  `json:"priceCurrency"`
	IdempotencyKey string  `json:"idempotencyKey"`
}

func handleRecordTransaction(c *gin.Context, svc *service.PortfolioService) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || qty.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a positive decimal string"})
		return
	}
	day, err := dates.Parse(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var price decimal.NullDecimal
	if req.PricePerShare != nil && strings.TrimSpace(*req.PricePerShare) != "" {
		p, err := decimal.NewFromString(strings.TrimSpace(*req.PricePerShare))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pricePerShare must be a decimal string"})
			return
		}
		price = decimal.NewNullDecimal(p)
	}
	idem := req.IdempotencyKey
	if idem == "" {
		idem = c.GetHeader("Idempotency-Key")
	}

	tx, err := svc.RecordTransaction(c.Request.Context(), service.RecordTransactionInput{
		AccountID:      req.AccountID,
		Ticker:         req.Ticker,
		Side:           req.Side,
		Quantity:       qty,
		Date:           day,
		PricePerShare:  price,
		PriceCurrency:  req.PriceCurrency,
		IdempotencyKey: idem,
	})
	if err != nil {
		status := statusFor(err)
		body := gin.H{"error": err.Error()}
		if status == http.StatusConflict && tx != nil {
			body["transaction"] = report.TransactionOf(*tx)
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, report.TransactionOf(*tx))
}

func handleListTransactions(c *gin.Context, svc *service.PortfolioService) {
	txs, err := svc.ListTransactions(c.Request.Context(), account(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": report.Transactions(txs)})
}

func handleHoldings(c *gin.Context, svc *service.PortfolioService) {
	holdings, err := svc.Holdings(c.Request.Context(), account(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report.Holdings(holdings))
}

func handleComposition(c *gin.Context, svc *service.PortfolioService) {
	comp, err := svc.Composition(c.Request.Context(), account(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report.Composition(comp))
}

func handleRealizedGains(c *gin.Context, svc *service.PortfolioService) {
	gains, err := svc.RealizedGains(c.Request.Context(), account(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report.Realized(gains))
}

func handlePerformance(c *gin.Context, svc *service.PortfolioService) {
	perf, err := svc.Performance(c.Request.Context(), account(c), c.Query("benchmark"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report.Performance(perf))
}

func account(c *gin.Context) string {
	return strings.TrimSpace(c.Query("account"))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func logMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"query":    c.Request.URL.RawQuery,
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		}).Info("request completed")
	}
}
