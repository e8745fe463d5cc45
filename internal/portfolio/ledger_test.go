package portfolio_test

import (
	"math/rand"
	"testing"

	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuysConserveQuantity(t *testing.T) {
	e := newEngine(emptyOracle(), dayN(30))
	holdings, err := e.ComputeHoldings(ctx, []models.Transaction{
		buy(1, "AAPL", 3, 100, day0),
		buy(2, "MSFT", 4, 300, dayN(1)),
		buy(3, "AAPL", 2.5, 110, dayN(2)),
	})
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	aapl, ok := holdings.Find("AAPL")
	require.True(t, ok)
	assertDecimal(t, "5.5", aapl.Quantity)
	assert.Len(t, aapl.Lots, 2)
	assert.Equal(t, day0, aapl.FirstBuyDate)

	msft, ok := holdings.Find("MSFT")
	require.True(t, ok)
	assertDecimal(t, "4", msft.Quantity)
	assertDecimal(t, "1200", msft.CostBasisUSD)
}

func TestSellConsumesOldestLotFirst(t *testing.T) {
	e := newEngine(emptyOracle(), dayN(30))
	holdings, err := e.ComputeHoldings(ctx, []models.Transaction{
		buy(1, "AAPL", 10, 10, day0),
		buy(2, "AAPL", 10, 20, dayN(1)),
		sell(3, "AAPL", 5, 25, dayN(2)),
	})
	require.NoError(t, err)

	h, ok := holdings.Find("AAPL")
	require.True(t, ok)
	require.Len(t, h.Lots, 2)
	assertDecimal(t, "5", h.Lots[0].Quantity)
	assertDecimal(t, "10", h.Lots[0].CostUSDPerShare)
	assertDecimal(t, "10", h.Lots[1].Quantity)
	assertDecimal(t, "20", h.Lots[1].CostUSDPerShare)
	assertDecimal(t, "250", h.CostBasisUSD)
	assert.Equal(t, day0, h.FirstBuyDate)
}

func TestFullConsumptionRemovesLot(t *testing.T) {
	e := newEngine(emptyOracle(), dayN(30))
	holdings, err := e.ComputeHoldings(ctx, []models.Transaction{
		buy(1, "AAPL", 10, 10, day0),
		sell(2, "AAPL", 10, 12, dayN(3)),
	})
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestCostBasisMatchesRemainingLots(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tickers := []string{"AAPL", "MSFT", "VWCE"}
	var txs []models.Transaction
	for i := 0; i < 60; i++ {
		ticker := tickers[rng.Intn(len(tickers))]
		qty := float64(rng.Intn(20) + 1)
		price := float64(rng.Intn(500) + 1)
		if rng.Intn(3) == 0 {
			txs = append(txs, sell(int64(i), ticker, qty, price, dayN(i)))
		} else {
			txs = append(txs, buy(int64(i), ticker, qty, price, dayN(i)))
		}
	}

	e := newEngine(emptyOracle(), dayN(90))
	holdings, err := e.ComputeHoldings(ctx, txs)
	require.NoError(t, err)

	for _, h := range holdings {
		usd, eur, qty := decimal.Zero, decimal.Zero, decimal.Zero
		for _, lot := range h.Lots {
			assert.True(t, lot.Quantity.IsPositive(), "%s has an empty lot", h.Ticker)
			usd = usd.Add(lot.Quantity.Mul(lot.CostUSDPerShare))
			eur = eur.Add(lot.CostEUR)
			qty = qty.Add(lot.Quantity)
		}
		assert.True(t, usd.Equal(h.CostBasisUSD), "%s usd basis", h.Ticker)
		assert.True(t, eur.Equal(h.CostBasisEUR), "%s eur basis", h.Ticker)
		assert.True(t, qty.Equal(h.Quantity), "%s quantity", h.Ticker)
	}
}

func TestRealizedGainAgreesWithOpenLots(t *testing.T) {
	e := newEngine(emptyOracle(), dayN(30))
	holdings, gains, err := e.ComputeLedger(ctx, []models.Transaction{
		buy(1, "AAPL", 10, 10, day0),
		sell(2, "AAPL", 4, 15, day0),
	})
	require.NoError(t, err)

	assertDecimal(t, "20", gains.TotalUSD)
	assertDecimal(t, "20", gains.TotalEUR)
	assertDecimal(t, "40", gains.SoldCostBasisEUR)
	assert.Equal(t, 1, gains.SellCount)
	require.Len(t, gains.ByTicker, 1)
	assertDecimal(t, "20", gains.ByTicker[0].GainUSD)

	h, ok := holdings.Find("AAPL")
	require.True(t, ok)
	assertDecimal(t, "6", h.Quantity)
	assertDecimal(t, "60", h.CostBasisUSD)
	assertDecimal(t, "10", h.AvgCostPerShare)
}

func TestSameDayTradesReplayInInsertionOrder(t *testing.T) {
	e := newEngine(emptyOracle(), dayN(30))
	// Supplied out of order; Seq decides.
	holdings, gains, err := e.ComputeLedger(ctx, []models.Transaction{
		sell(2, "AAPL", 4, 15, day0),
		buy(1, "AAPL", 10, 10, day0),
	})
	require.NoError(t, err)

	h, ok := holdings.Find("AAPL")
	require.True(t, ok)
	assertDecimal(t, "6", h.Quantity)
	assertDecimal(t, "20", gains.TotalUSD)
	assertDecimal(t, "4", gains.Sales[0].MatchedQuantity)
}

func TestHoldingsAreIdempotent(t *testing.T) {
	o := emptyOracle().WithRate(day0, 1.1)
	e := newEngine(o, dayN(30))
	txs := []models.Transaction{
		buy(1, "AAPL", 10, 10, day0),
		buy(2, "MSFT", 3, 250, dayN(1)),
		sell(3, "AAPL", 4, 15, dayN(2)),
	}

	first, err := e.ComputeHoldings(ctx, txs)
	require.NoError(t, err)
	second, err := e.ComputeHoldings(ctx, txs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEURTradesUseTransactionDateRates(t *testing.T) {
	o := emptyOracle().
		WithRate(day0, 1.10).
		WithRate(dayN(1), 1.20)
	e := newEngine(o, dayN(30))

	eurBuy := buy(1, "VWCE", 10, 100, day0)
	eurBuy.PriceCurrency = models.CurrencyEUR

	holdings, gains, err := e.ComputeLedger(ctx, []models.Transaction{
		eurBuy,
		sell(2, "VWCE", 5, 120, dayN(1)),
	})
	require.NoError(t, err)

	require.Len(t, gains.Sales, 1)
	sale := gains.Sales[0]
	assertDecimal(t, "600", sale.ProceedsUSD)
	assertDecimal(t, "500", sale.ProceedsEUR)
	assertDecimal(t, "550", sale.CostBasisUSD)
	assertDecimal(t, "500", sale.CostBasisEUR)
	assertDecimal(t, "50", sale.GainUSD)
	assertDecimal(t, "0", sale.GainEUR)

	h, ok := holdings.Find("VWCE")
	require.True(t, ok)
	assertDecimal(t, "550", h.CostBasisUSD)
	assertDecimal(t, "500", h.CostBasisEUR)
	assert.Equal(t, models.CurrencyEUR, h.Lots[0].NativeCurrency)
	assertDecimal(t, "100", h.Lots[0].CostNativePerShare)
}

func TestMissingRateFallsBackToParity(t *testing.T) {
	e := newEngine(emptyOracle(), dayN(30))
	holdings, err := e.ComputeHoldings(ctx, []models.Transaction{buy(1, "AAPL", 2, 50, day0)})
	require.NoError(t, err)

	h, _ := holdings.Find("AAPL")
	assertDecimal(t, "100", h.CostBasisUSD)
	assertDecimal(t, "100", h.CostBasisEUR)
}

func TestTradeWithoutPriceUsesClose(t *testing.T) {
	o := emptyOracle().WithPrice("AAPL", day0, 150)
	e := newEngine(o, dayN(30))

	known := buy(1, "AAPL", 2, 0, day0)
	known.PricePerShare = decimal.NullDecimal{}
	unknown := buy(2, "ZZZZ", 3, 0, day0)
	unknown.PricePerShare = decimal.NullDecimal{}

	holdings, err := e.ComputeHoldings(ctx, []models.Transaction{known, unknown})
	require.NoError(t, err)

	aapl, ok := holdings.Find("AAPL")
	require.True(t, ok)
	assertDecimal(t, "300", aapl.CostBasisUSD)

	zzzz, ok := holdings.Find("ZZZZ")
	require.True(t, ok)
	assertDecimal(t, "3", zzzz.Quantity)
	assertDecimal(t, "0", zzzz.CostBasisUSD)
}

func TestEURTradeWithoutPriceUsesUSDClose(t *testing.T) {
	o := emptyOracle().
		WithPrice("AAPL", day0, 110).
		WithPrice("AAPL", dayN(1), 121).
		WithRate(day0, 1.10).
		WithRate(dayN(1), 1.10)
	e := newEngine(o, dayN(30))

	bought := buy(1, "AAPL", 10, 0, day0)
	bought.PricePerShare = decimal.NullDecimal{}
	bought.PriceCurrency = models.CurrencyEUR
	sold := sell(2, "AAPL", 4, 0, dayN(1))
	sold.PricePerShare = decimal.NullDecimal{}
	sold.PriceCurrency = models.CurrencyEUR

	holdings, gains, err := e.ComputeLedger(ctx, []models.Transaction{bought, sold})
	require.NoError(t, err)

	aapl, ok := holdings.Find("AAPL")
	require.True(t, ok)
	assertDecimal(t, "660", aapl.CostBasisUSD)
	assertDecimal(t, "600", aapl.CostBasisEUR)
	require.Len(t, aapl.Lots, 1)
	assert.Equal(t, models.CurrencyUSD, aapl.Lots[0].NativeCurrency)
	assertDecimal(t, "110", aapl.Lots[0].CostNativePerShare)

	require.Len(t, gains.Sales, 1)
	s := gains.Sales[0]
	assertDecimal(t, "484", s.ProceedsUSD)
	assertDecimal(t, "440", s.ProceedsEUR)
	assertDecimal(t, "440", s.CostBasisUSD)
	assertDecimal(t, "400", s.CostBasisEUR)
}

func TestOversellDrainsQueue(t *testing.T) {
	e := newEngine(emptyOracle(), dayN(30))
	holdings, gains, err := e.ComputeLedger(ctx, []models.Transaction{
		buy(1, "AAPL", 5, 10, day0),
		sell(2, "AAPL", 8, 12, dayN(1)),
	})
	require.NoError(t, err)
	assert.Empty(t, holdings)

	require.Len(t, gains.Sales, 1)
	assertDecimal(t, "8", gains.Sales[0].Quantity)
	assertDecimal(t, "5", gains.Sales[0].MatchedQuantity)
	assertDecimal(t, "46", gains.TotalUSD)
	assertDecimal(t, "3", gains.ByTicker[0].UnmatchedQuantity)
}

func TestRealizedGainsWithoutSells(t *testing.T) {
	e := newEngine(emptyOracle(), dayN(30))
	gains, err := e.ComputeRealizedGains(ctx, []models.Transaction{buy(1, "AAPL", 1, 10, day0)})
	require.NoError(t, err)
	assert.Equal(t, 0, gains.SellCount)
	assert.True(t, gains.TotalUSD.IsZero())
	assert.NotNil(t, gains.Sales)
	assert.Empty(t, gains.ByTicker)
}
