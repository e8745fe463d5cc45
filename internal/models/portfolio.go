package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is an open purchase batch of one ticker. CostEUR is the euro cost of
// the remaining quantity, fixed at the purchase-date rate.
type Lot struct {
	TransactionID      string          `json:"transactionId"`
	Ticker             string          `json:"ticker"`
	Quantity           decimal.Decimal `json:"quantity"`
	CostNativePerShare decimal.Decimal `json:"costNativePerShare"`
	NativeCurrency     string          `json:"nativeCurrency"`
	CostUSDPerShare    decimal.Decimal `json:"costUsdPerShare"`
	CostEUR            decimal.Decimal `json:"costEur"`
	AcquiredOn         time.Time       `json:"acquiredOn"`
}

// CostUSD is the USD cost of the remaining quantity.
func (l Lot) CostUSD() decimal.Decimal {
	return l.Quantity.Mul(l.CostUSDPerShare)
}

// Holding is the point-in-time position of one ticker.
type Holding struct {
	Ticker          string          `json:"ticker"`
	Quantity        decimal.Decimal `json:"quantity"`
	CostBasisUSD    decimal.Decimal `json:"costBasisUsd"`
	CostBasisEUR    decimal.Decimal `json:"costBasisEur"`
	AvgCostPerShare decimal.Decimal `json:"avgCostPerShare"`
	FirstBuyDate    time.Time       `json:"firstBuyDate"`
	Lots            []Lot           `json:"lots"`
}

// Holdings keeps positions in the order their ticker first appeared in the log.
type Holdings []Holding

// Find returns the holding for ticker, if any.
func (h Holdings) Find(ticker string) (Holding, bool) {
	for _, holding := range h {
		if holding.Ticker == ticker {
			return holding, true
		}
	}
	return Holding{}, false
}

// RealizedSale is the FIFO match of one SELL transaction.
type RealizedSale struct {
	TransactionID   string          `json:"transactionId"`
	Ticker          string          `json:"ticker"`
	Date            time.Time       `json:"date"`
	Quantity        decimal.Decimal `json:"quantity"`
	MatchedQuantity decimal.Decimal `json:"matchedQuantity"`
	ProceedsUSD     decimal.Decimal `json:"proceedsUsd"`
	ProceedsEUR     decimal.Decimal `json:"proceedsEur"`
	CostBasisUSD    decimal.Decimal `json:"costBasisUsd"`
	CostBasisEUR    decimal.Decimal `json:"costBasisEur"`
	GainUSD         decimal.Decimal `json:"gainUsd"`
	GainEUR         decimal.Decimal `json:"gainEur"`
}

// Unmatched is the part of the sale that found no open lot.
func (s RealizedSale) Unmatched() decimal.Decimal {
	return s.Quantity.Sub(s.MatchedQuantity)
}

// TickerGain aggregates realized results of one ticker.
type TickerGain struct {
	Ticker            string          `json:"ticker"`
	GainUSD           decimal.Decimal `json:"gainUsd"`
	GainEUR           decimal.Decimal `json:"gainEur"`
	SoldCostBasisEUR  decimal.Decimal `json:"soldCostBasisEur"`
	SellCount         int             `json:"sellCount"`
	UnmatchedQuantity decimal.Decimal `json:"unmatchedQuantity"`
}

// RealizedGains accumulates every SELL of a replay.
type RealizedGains struct {
	TotalUSD         decimal.Decimal `json:"totalUsd"`
	TotalEUR         decimal.Decimal `json:"totalEur"`
	SoldCostBasisEUR decimal.Decimal `json:"soldCostBasisEur"`
	SellCount        int             `json:"sellCount"`
	ByTicker         []TickerGain    `json:"byTicker"`
	Sales            []RealizedSale  `json:"sales"`
}

// Position is a holding valued at current market prices.
type Position struct {
	Ticker          string          `json:"ticker"`
	Quantity        decimal.Decimal `json:"quantity"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	PriceAvailable  bool            `json:"priceAvailable"`
	CurrentValueUSD decimal.Decimal `json:"currentValueUsd"`
	CurrentValueEUR decimal.Decimal `json:"currentValueEur"`
	CostBasisUSD    decimal.Decimal `json:"costBasisUsd"`
	CostBasisEUR    decimal.Decimal `json:"costBasisEur"`
	AvgCostPerShare decimal.Decimal `json:"avgCostPerShare"`
	GainUSD         decimal.Decimal `json:"gainUsd"`
	GainPct         decimal.Decimal `json:"gainPct"`
	Weight          decimal.Decimal `json:"weight"`
	FirstBuyDate    time.Time       `json:"firstBuyDate"`
}

// Composition is the current valuation of all open holdings.
type Composition struct {
	Positions         []Position      `json:"positions"`
	TotalValueUSD     decimal.Decimal `json:"totalValueUsd"`
	TotalValueEUR     decimal.Decimal `json:"totalValueEur"`
	TotalCostBasisUSD decimal.Decimal `json:"totalCostBasisUsd"`
	TotalCostBasisEUR decimal.Decimal `json:"totalCostBasisEur"`
	TotalGainUSD      decimal.Decimal `json:"totalGainUsd"`
	TotalGainEUR      decimal.Decimal `json:"totalGainEur"`
	TotalGainPct      decimal.Decimal `json:"totalGainPct"`
	EURUSDRate        decimal.Decimal `json:"eurUsdRate"`
}

// PerformancePoint values the portfolio and its shadow benchmark on one grid date.
type PerformancePoint struct {
	Date                  time.Time       `json:"date"`
	PortfolioValueUSD     decimal.Decimal `json:"portfolioValueUsd"`
	PortfolioValueEUR     decimal.Decimal `json:"portfolioValueEur"`
	BenchmarkValueUSD     decimal.Decimal `json:"benchmarkValueUsd"`
	BenchmarkValueEUR     decimal.Decimal `json:"benchmarkValueEur"`
	CostBasisUSD          decimal.Decimal `json:"costBasisUsd"`
	CostBasisEUR          decimal.Decimal `json:"costBasisEur"`
	GrowthPctUSD          decimal.Decimal `json:"growthPctUsd"`
	GrowthPctEUR          decimal.Decimal `json:"growthPctEur"`
	BenchmarkGrowthPctUSD decimal.Decimal `json:"benchmarkGrowthPctUsd"`
	BenchmarkGrowthPctEUR decimal.Decimal `json:"benchmarkGrowthPctEur"`
}

// TradeMarker annotates the performance chart with a trade.
type TradeMarker struct {
	Date      time.Time       `json:"date"`
	Ticker    string          `json:"ticker"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	AmountUSD decimal.Decimal `json:"amountUsd"`
}

// PerformanceSummary compares the first and last points of a series.
// Returns and CAGRs are percentages.
type PerformanceSummary struct {
	StartDate          time.Time       `json:"startDate"`
	EndDate            time.Time       `json:"endDate"`
	Years              decimal.Decimal `json:"years"`
	FinalValueUSD      decimal.Decimal `json:"finalValueUsd"`
	FinalValueEUR      decimal.Decimal `json:"finalValueEur"`
	FinalCostBasisEUR  decimal.Decimal `json:"finalCostBasisEur"`
	TotalReturnUSD     decimal.Decimal `json:"totalReturnUsd"`
	TotalReturnEUR     decimal.Decimal `json:"totalReturnEur"`
	BenchmarkReturnUSD decimal.Decimal `json:"benchmarkReturnUsd"`
	BenchmarkReturnEUR decimal.Decimal `json:"benchmarkReturnEur"`
	OutperformanceUSD  decimal.Decimal `json:"outperformanceUsd"`
	OutperformanceEUR  decimal.Decimal `json:"outperformanceEur"`
	CAGREUR            decimal.Decimal `json:"cagrEur"`
	BenchmarkCAGREUR   decimal.Decimal `json:"benchmarkCagrEur"`
	SkippedPoints      int             `json:"skippedPoints"`
}

// PerformanceReport is the outcome of a performance replay. When NoData is
// set every other field is empty and Reason explains why.
type PerformanceReport struct {
	Benchmark    string             `json:"benchmark"`
	NoData       bool               `json:"noData"`
	Reason       string             `json:"reason,omitempty"`
	Points       []PerformancePoint `json:"points"`
	Transactions []TradeMarker      `json:"transactions"`
	Summary      PerformanceSummary `json:"summary"`
}
