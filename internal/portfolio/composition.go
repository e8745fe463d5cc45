package portfolio

import (
	"context"
	"sort"

	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// ComputeComposition values holdings at current prices. A ticker whose price
// cannot be fetched is kept with a zero value instead of failing the whole
// composition. Positions are sorted by weight, heaviest first.
func (e *Engine) ComputeComposition(ctx context.Context, holdings models.Holdings) (models.Composition, error) {
	keys := keySet{}
	keys.add(currentRateKey)
	for _, h := range holdings {
		keys.add(currentPriceKey(h.Ticker))
	}
	q, err := e.fetch(ctx, keys)
	if err != nil {
		return models.Composition{}, err
	}

	rate := e.rate(q, currentRateKey, logrus.Fields{"date": "current"})
	comp := models.Composition{
		Positions:  make([]models.Position, 0, len(holdings)),
		EURUSDRate: rate,
	}

	for _, h := range holdings {
		price, err := q.get(currentPriceKey(h.Ticker))
		if err != nil {
			e.logger.WithError(err).WithField("ticker", h.Ticker).Warn("current price lookup failed, valuing position at 0")
		}
		value := price.Mul(h.Quantity)
		gain := value.Sub(h.CostBasisUSD)
		comp.Positions = append(comp.Positions, models.Position{
			Ticker:          h.Ticker,
			Quantity:        h.Quantity,
			CurrentPrice:    price,
			PriceAvailable:  err == nil,
			CurrentValueUSD: value,
			CurrentValueEUR: value.Div(rate),
			CostBasisUSD:    h.CostBasisUSD,
			CostBasisEUR:    h.CostBasisEUR,
			AvgCostPerShare: h.AvgCostPerShare,
			GainUSD:         gain,
			GainPct:         pct(gain, h.CostBasisUSD),
			FirstBuyDate:    h.FirstBuyDate,
		})
		comp.TotalValueUSD = comp.TotalValueUSD.Add(value)
		comp.TotalCostBasisUSD = comp.TotalCostBasisUSD.Add(h.CostBasisUSD)
		comp.TotalCostBasisEUR = comp.TotalCostBasisEUR.Add(h.CostBasisEUR)
	}

	for i := range comp.Positions {
		comp.Positions[i].Weight = pct(comp.Positions[i].CurrentValueUSD, comp.TotalValueUSD)
	}
	sort.SliceStable(comp.Positions, func(i, j int) bool {
		return comp.Positions[i].Weight.GreaterThan(comp.Positions[j].Weight)
	})

	comp.TotalValueEUR = comp.TotalValueUSD.Div(rate)
	comp.TotalGainUSD = comp.TotalValueUSD.Sub(comp.TotalCostBasisUSD)
	comp.TotalGainEUR = comp.TotalValueEUR.Sub(comp.TotalCostBasisEUR)
	comp.TotalGainPct = pct(comp.TotalGainUSD, comp.TotalCostBasisUSD)
	return comp, nil
}
