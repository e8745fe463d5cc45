package portfolio

import (
	"context"

	"github.com/GooferByte/portfolio-engine/internal/models"
)

// ComputeRealizedGains replays txs and sums the gain of every SELL against
// the FIFO cost of the lots it consumed. Proceeds are converted at the sell
// date rate, costs at the purchase date rate.
func (e *Engine) ComputeRealizedGains(ctx context.Context, txs []models.Transaction) (models.RealizedGains, error) {
	_, gains, err := e.ComputeLedger(ctx, txs)
	return gains, err
}

type realizedAccumulator struct {
	gains    models.RealizedGains
	order    []string
	byTicker map[string]*models.TickerGain
}

func newRealizedAccumulator() *realizedAccumulator {
	return &realizedAccumulator{
		gains:    models.RealizedGains{Sales: []models.RealizedSale{}},
		byTicker: make(map[string]*models.TickerGain),
	}
}

func (a *realizedAccumulator) add(sale models.RealizedSale) {
	a.gains.TotalUSD = a.gains.TotalUSD.Add(sale.GainUSD)
	a.gains.TotalEUR = a.gains.TotalEUR.Add(sale.GainEUR)
	a.gains.SoldCostBasisEUR = a.gains.SoldCostBasisEUR.Add(sale.CostBasisEUR)
	a.gains.SellCount++
	a.gains.Sales = append(a.gains.Sales, sale)

	tg, ok := a.byTicker[sale.Ticker]
	if !ok {
		tg = &models.TickerGain{Ticker: sale.Ticker}
		a.byTicker[sale.Ticker] = tg
		a.order = append(a.order, sale.Ticker)
	}
	tg.GainUSD = tg.GainUSD.Add(sale.GainUSD)
	tg.GainEUR = tg.GainEUR.Add(sale.GainEUR)
	tg.SoldCostBasisEUR = tg.SoldCostBasisEUR.Add(sale.CostBasisEUR)
	tg.SellCount++
	tg.UnmatchedQuantity = tg.UnmatchedQuantity.Add(sale.Unmatched())
}

func (a *realizedAccumulator) result() models.RealizedGains {
	out := a.gains
	out.ByTicker = make([]models.TickerGain, 0, len(a.order))
	for _, ticker := range a.order {
		out.ByTicker = append(out.ByTicker, *a.byTicker[ticker])
	}
	return out
}
