package portfolio

import (
	"context"

	"github.com/GooferByte/portfolio-engine/internal/dates"
	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// trade is a transaction converted to USD and EUR at its own date.
type trade struct {
	models.Transaction
	price     decimal.Decimal // per share, in currency
	currency  string
	amountUSD decimal.Decimal // cost for a BUY, proceeds for a SELL
	amountEUR decimal.Decimal
	rate      decimal.Decimal
}

// prepare orders txs for replay and converts each one at its transaction-date
// rate. Trades without a price are valued at the USD close of that date,
// whatever currency they were recorded in.
func (e *Engine) prepare(ctx context.Context, txs []models.Transaction) ([]trade, error) {
	sorted := make([]models.Transaction, len(txs))
	for i, tx := range txs {
		tx.Date = dates.Day(tx.Date)
		sorted[i] = tx
	}
	sorted = models.SortChronologically(sorted)

	keys := keySet{}
	for _, tx := range sorted {
		keys.add(rateKey(tx.Date))
		if !tx.PricePerShare.Valid {
			keys.add(priceKey(tx.Ticker, tx.Date))
		}
	}
	q, err := e.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}

	trades := make([]trade, 0, len(sorted))
	for _, tx := range sorted {
		fields := logrus.Fields{"transaction": tx.ID, "ticker": tx.Ticker, "date": dates.Format(tx.Date)}
		price, currency := tx.PricePerShare.Decimal, models.CurrencyUSD
		if tx.IsEUR() {
			currency = models.CurrencyEUR
		}
		if !tx.PricePerShare.Valid {
			p, err := q.get(priceKey(tx.Ticker, tx.Date))
			if err != nil {
				e.logger.WithError(err).WithFields(fields).Warn("trade has no price and no close is known, valuing at 0")
			}
			price, currency = p, models.CurrencyUSD
		}
		rate := e.rate(q, rateKey(tx.Date), fields)
		gross := tx.Quantity.Mul(price)

		t := trade{Transaction: tx, price: price, currency: currency, rate: rate}
		if currency == models.CurrencyEUR {
			t.amountEUR = gross
			t.amountUSD = gross.Mul(rate)
		} else {
			t.amountUSD = gross
			t.amountEUR = gross.Div(rate)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// book is the FIFO state of a replay: one queue of open lots per ticker,
// oldest lot first. Tickers keep the order of their first appearance.
type book struct {
	order  []string
	queues map[string][]models.Lot
	logger *logrus.Entry
}

func newBook(logger *logrus.Entry) *book {
	return &book{queues: make(map[string][]models.Lot), logger: logger}
}

// apply replays one trade. For a SELL it returns the FIFO match.
func (b *book) apply(t trade) (models.RealizedSale, bool) {
	if _, seen := b.queues[t.Ticker]; !seen {
		b.order = append(b.order, t.Ticker)
		b.queues[t.Ticker] = nil
	}
	if t.Side == models.SideBuy {
		b.buy(t)
		return models.RealizedSale{}, false
	}
	return b.sell(t), true
}

func (b *book) buy(t trade) {
	perShareUSD := decimal.Zero
	if t.Quantity.IsPositive() {
		perShareUSD = t.amountUSD.Div(t.Quantity)
	}
	b.queues[t.Ticker] = append(b.queues[t.Ticker], models.Lot{
		TransactionID:      t.ID,
		Ticker:             t.Ticker,
		Quantity:           t.Quantity,
		CostNativePerShare: t.price,
		NativeCurrency:     t.currency,
		CostUSDPerShare:    perShareUSD,
		CostEUR:            t.amountEUR,
		AcquiredOn:         t.Date,
	})
}

func (b *book) sell(t trade) models.RealizedSale {
	sale := models.RealizedSale{
		TransactionID: t.ID,
		Ticker:        t.Ticker,
		Date:          t.Date,
		Quantity:      t.Quantity,
		ProceedsUSD:   t.amountUSD,
		ProceedsEUR:   t.amountEUR,
	}

	queue := b.queues[t.Ticker]
	remaining := t.Quantity
	for remaining.IsPositive() && len(queue) > 0 {
		lot := &queue[0]
		if lot.Quantity.LessThanOrEqual(remaining) {
			sale.CostBasisUSD = sale.CostBasisUSD.Add(lot.CostUSD())
			sale.CostBasisEUR = sale.CostBasisEUR.Add(lot.CostEUR)
			sale.MatchedQuantity = sale.MatchedQuantity.Add(lot.Quantity)
			remaining = remaining.Sub(lot.Quantity)
			queue = queue[1:]
			continue
		}
		portionEUR := lot.CostEUR.Mul(remaining).Div(lot.Quantity)
		sale.CostBasisUSD = sale.CostBasisUSD.Add(remaining.Mul(lot.CostUSDPerShare))
		sale.CostBasisEUR = sale.CostBasisEUR.Add(portionEUR)
		sale.MatchedQuantity = sale.MatchedQuantity.Add(remaining)
		lot.CostEUR = lot.CostEUR.Sub(portionEUR)
		lot.Quantity = lot.Quantity.Sub(remaining)
		remaining = decimal.Zero
	}
	b.queues[t.Ticker] = queue

	if remaining.IsPositive() {
		b.logger.WithFields(logrus.Fields{
			"transaction": t.ID,
			"ticker":      t.Ticker,
			"date":        dates.Format(t.Date),
			"unmatched":   remaining.String(),
		}).Warn("sell exceeds open lots, queue drained")
	}

	sale.GainUSD = sale.ProceedsUSD.Sub(sale.CostBasisUSD)
	sale.GainEUR = sale.ProceedsEUR.Sub(sale.CostBasisEUR)
	return sale
}

// costBasis sums the open lots of every ticker.
func (b *book) costBasis() (usd, eur decimal.Decimal) {
	for _, ticker := range b.order {
		for _, lot := range b.queues[ticker] {
			usd = usd.Add(lot.CostUSD())
			eur = eur.Add(lot.CostEUR)
		}
	}
	return usd, eur
}

// quantity is the open quantity of ticker.
func (b *book) quantity(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range b.queues[ticker] {
		total = total.Add(lot.Quantity)
	}
	return total
}

// holdings snapshots the open positions. Lots are copied so later replay
// steps cannot change a returned holding.
func (b *book) holdings() models.Holdings {
	out := models.Holdings{}
	for _, ticker := range b.order {
		queue := b.queues[ticker]
		qty := b.quantity(ticker)
		if !qty.IsPositive() {
			continue
		}
		h := models.Holding{
			Ticker:       ticker,
			Quantity:     qty,
			FirstBuyDate: queue[0].AcquiredOn,
			Lots:         append([]models.Lot(nil), queue...),
		}
		for _, lot := range queue {
			h.CostBasisUSD = h.CostBasisUSD.Add(lot.CostUSD())
			h.CostBasisEUR = h.CostBasisEUR.Add(lot.CostEUR)
		}
		h.AvgCostPerShare = h.CostBasisUSD.Div(qty)
		out = append(out, h)
	}
	return out
}

// replay runs trades through a fresh book. onSell, when set, receives every
// SELL match in replay order.
func replay(trades []trade, logger *logrus.Entry, onSell func(models.RealizedSale)) *book {
	b := newBook(logger)
	for _, t := range trades {
		if sale, ok := b.apply(t); ok && onSell != nil {
			onSell(sale)
		}
	}
	return b
}
