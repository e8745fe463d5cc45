package portfolio

import (
	"context"

	"github.com/GooferByte/portfolio-engine/internal/models"
)

// ComputeHoldings replays txs with FIFO matching and returns every ticker
// that still has open quantity, in order of first appearance.
func (e *Engine) ComputeHoldings(ctx context.Context, txs []models.Transaction) (models.Holdings, error) {
	holdings, _, err := e.ComputeLedger(ctx, txs)
	return holdings, err
}

// ComputeLedger returns open holdings and realized gains from one replay, so
// both views always agree on which lot portions were sold.
func (e *Engine) ComputeLedger(ctx context.Context, txs []models.Transaction) (models.Holdings, models.RealizedGains, error) {
	trades, err := e.prepare(ctx, txs)
	if err != nil {
		return nil, models.RealizedGains{}, err
	}
	acc := newRealizedAccumulator()
	b := replay(trades, e.logger, acc.add)
	return b.holdings(), acc.result(), nil
}
