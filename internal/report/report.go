// Package report turns engine results into the JSON documents served by the
// API. Currency amounts are rounded to 2 places and percentages to 1 place
// here and nowhere else.
package report

import (
	"time"

	"github.com/GooferByte/portfolio-engine/internal/dates"
	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/shopspring/decimal"
)

func amount(d decimal.Decimal) float64  { return d.Round(2).InexactFloat64() }
func percent(d decimal.Decimal) float64 { return d.Round(1).InexactFloat64() }
func rate(d decimal.Decimal) float64    { return d.Round(4).InexactFloat64() }
func day(t time.Time) string            { return dates.Format(t) }

type Lot struct {
	TransactionID      string  `json:"transactionId"`
	Quantity           string  `json:"quantity"`
	CostNativePerShare float64 `json:"costNativePerShare"`
	NativeCurrency     string  `json:"nativeCurrency"`
	CostUSDPerShare    float64 `json:"costUsdPerShare"`
	CostEUR            float64 `json:"costEur"`
	AcquiredOn         string  `json:"acquiredOn"`
}

type Holding struct {
	Ticker          string  `json:"ticker"`
	Quantity        string  `json:"quantity"`
	CostBasisUSD    float64 `json:"costBasisUsd"`
	CostBasisEUR    float64 `json:"costBasisEur"`
	AvgCostPerShare float64 `json:"avgCostPerShare"`
	FirstBuyDate    string  `json:"firstBuyDate"`
	Lots            []Lot   `json:"lots"`
}

type HoldingsReport struct {
	Holdings []Holding `json:"holdings"`
}

// Holdings renders open positions. Quantities keep full precision.
func Holdings(h models.Holdings) HoldingsReport {
	out := HoldingsReport{Holdings: make([]Holding, 0, len(h))}
	for _, holding := range h {
		lots := make([]Lot, 0, len(holding.Lots))
		for _, l := range holding.Lots {
			lots = append(lots, Lot{
				TransactionID:      l.TransactionID,
				Quantity:           l.Quantity.String(),
				CostNativePerShare: amount(l.CostNativePerShare),
				NativeCurrency:     l.NativeCurrency,
				CostUSDPerShare:    amount(l.CostUSDPerShare),
				CostEUR:            amount(l.CostEUR),
				AcquiredOn:         day(l.AcquiredOn),
			})
		}
		out.Holdings = append(out.Holdings, Holding{
			Ticker:          holding.Ticker,
			Quantity:        holding.Quantity.String(),
			CostBasisUSD:    amount(holding.CostBasisUSD),
			CostBasisEUR:    amount(holding.CostBasisEUR),
			AvgCostPerShare: amount(holding.AvgCostPerShare),
			FirstBuyDate:    day(holding.FirstBuyDate),
			Lots:            lots,
		})
	}
	return out
}

type Position struct {
	Ticker          string  `json:"ticker"`
	Quantity        string  `json:"quantity"`
	CurrentPrice    float64 `json:"currentPrice"`
	PriceAvailable  bool    `json:"priceAvailable"`
	CurrentValueUSD float64 `json:"currentValueUsd"`
	CurrentValueEUR float64 `json:"currentValueEur"`
	CostBasisUSD    float64 `json:"costBasisUsd"`
	CostBasisEUR    float64 `json:"costBasisEur"`
	AvgCostPerShare float64 `json:"avgCostPerShare"`
	GainUSD         float64 `json:"gainUsd"`
	GainPct         float64 `json:"gainPct"`
	Weight          float64 `json:"weight"`
	FirstBuyDate    string  `json:"firstBuyDate"`
}

type CompositionReport struct {
	Holdings          []Position `json:"holdings"`
	TotalValueUSD     float64    `json:"totalValueUsd"`
	TotalValueEUR     float64    `json:"totalValueEur"`
	TotalCostBasisUSD float64    `json:"totalCostBasisUsd"`
	TotalCostBasisEUR float64    `json:"totalCostBasisEur"`
	TotalGainUSD      float64    `json:"totalGainUsd"`
	TotalGainEUR      float64    `json:"totalGainEur"`
	TotalGainPct      float64    `json:"totalGainPct"`
	EURUSDRate        float64    `json:"eurusdRate"`
}

func Composition(c models.Composition) CompositionReport {
	out := CompositionReport{
		Holdings:          make([]Position, 0, len(c.Positions)),
		TotalValueUSD:     amount(c.TotalValueUSD),
		TotalValueEUR:     amount(c.TotalValueEUR),
		TotalCostBasisUSD: amount(c.TotalCostBasisUSD),
		TotalCostBasisEUR: amount(c.TotalCostBasisEUR),
		TotalGainUSD:      amount(c.TotalGainUSD),
		TotalGainEUR:      amount(c.TotalGainEUR),
		TotalGainPct:      percent(c.TotalGainPct),
		EURUSDRate:        rate(c.EURUSDRate),
	}
	for _, p := range c.Positions {
		out.Holdings = append(out.Holdings, Position{
			Ticker:          p.Ticker,
			Quantity:        p.Quantity.String(),
			CurrentPrice:    amount(p.CurrentPrice),
			PriceAvailable:  p.PriceAvailable,
			CurrentValueUSD: amount(p.CurrentValueUSD),
			CurrentValueEUR: amount(p.CurrentValueEUR),
			CostBasisUSD:    amount(p.CostBasisUSD),
			CostBasisEUR:    amount(p.CostBasisEUR),
			AvgCostPerShare: amount(p.AvgCostPerShare),
			GainUSD:         amount(p.GainUSD),
			GainPct:         percent(p.GainPct),
			Weight:          percent(p.Weight),
			FirstBuyDate:    day(p.FirstBuyDate),
		})
	}
	return out
}

type Sale struct {
	TransactionID     string  `json:"transactionId"`
	Ticker            string  `json:"ticker"`
	Date              string  `json:"date"`
	Quantity          string  `json:"quantity"`
	UnmatchedQuantity string  `json:"unmatchedQuantity"`
	ProceedsUSD       float64 `json:"proceedsUsd"`
	ProceedsEUR       float64 `json:"proceedsEur"`
	CostBasisUSD      float64 `json:"costBasisUsd"`
	CostBasisEUR      float64 `json:"costBasisEur"`
	GainUSD           float64 `json:"gainUsd"`
	GainEUR           float64 `json:"gainEur"`
}

type TickerGain struct {
	Ticker            string  `json:"ticker"`
	GainUSD           float64 `json:"gainUsd"`
	GainEUR           float64 `json:"gainEur"`
	SoldCostBasisEUR  float64 `json:"soldCostBasisEur"`
	SellCount         int     `json:"sellCount"`
	UnmatchedQuantity string  `json:"unmatchedQuantity"`
}

type RealizedReport struct {
	TotalUSD         float64      `json:"totalUsd"`
	TotalEUR         float64      `json:"totalEur"`
	SoldCostBasisEUR float64      `json:"soldCostBasisEur"`
	SellCount        int          `json:"sellCount"`
	ByTicker         []TickerGain `json:"byTicker"`
	Sales            []Sale       `json:"sales"`
}

func Realized(g models.RealizedGains) RealizedReport {
	out := RealizedReport{
		TotalUSD:         amount(g.TotalUSD),
		TotalEUR:         amount(g.TotalEUR),
		SoldCostBasisEUR: amount(g.SoldCostBasisEUR),
		SellCount:        g.SellCount,
		ByTicker:         make([]TickerGain, 0, len(g.ByTicker)),
		Sales:            make([]Sale, 0, len(g.Sales)),
	}
	for _, tg := range g.ByTicker {
		out.ByTicker = append(out.ByTicker, TickerGain{
			Ticker:            tg.Ticker,
			GainUSD:           amount(tg.GainUSD),
			GainEUR:           amount(tg.GainEUR),
			SoldCostBasisEUR:  amount(tg.SoldCostBasisEUR),
			SellCount:         tg.SellCount,
			UnmatchedQuantity: tg.UnmatchedQuantity.String(),
		})
	}
	for _, s := range g.Sales {
		out.Sales = append(out.Sales, Sale{
			TransactionID:     s.TransactionID,
			Ticker:            s.Ticker,
			Date:              day(s.Date),
			Quantity:          s.Quantity.String(),
			UnmatchedQuantity: s.Unmatched().String(),
			ProceedsUSD:       amount(s.ProceedsUSD),
			ProceedsEUR:       amount(s.ProceedsEUR),
			CostBasisUSD:      amount(s.CostBasisUSD),
			CostBasisEUR:      amount(s.CostBasisEUR),
			GainUSD:           amount(s.GainUSD),
			GainEUR:           amount(s.GainEUR),
		})
	}
	return out
}

type Point struct {
	Date                  string  `json:"date"`
	PortfolioValueUSD     float64 `json:"portfolioValueUsd"`
	PortfolioValueEUR     float64 `json:"portfolioValueEur"`
	BenchmarkValueUSD     float64 `json:"benchmarkValueUsd"`
	BenchmarkValueEUR     float64 `json:"benchmarkValueEur"`
	CostBasisUSD          float64 `json:"costBasisUsd"`
	CostBasisEUR          float64 `json:"costBasisEur"`
	GrowthPctUSD          float64 `json:"growthPctUsd"`
	GrowthPctEUR          float64 `json:"growthPctEur"`
	BenchmarkGrowthPctUSD float64 `json:"benchmarkGrowthPctUsd"`
	BenchmarkGrowthPctEUR float64 `json:"benchmarkGrowthPctEur"`
}

type Marker struct {
	Date      string  `json:"date"`
	Ticker    string  `json:"ticker"`
	Side      string  `json:"side"`
	Quantity  string  `json:"quantity"`
	AmountUSD float64 `json:"amountUsd"`
}

type Summary struct {
	StartDate          string  `json:"startDate"`
	EndDate            string  `json:"endDate"`
	Years              float64 `json:"years"`
	FinalValueUSD      float64 `json:"finalValueUsd"`
	FinalValueEUR      float64 `json:"finalValueEur"`
	FinalCostBasisEUR  float64 `json:"finalCostBasisEur"`
	TotalReturnUSD     float64 `json:"totalReturnUsd"`
	TotalReturnEUR     float64 `json:"totalReturnEur"`
	BenchmarkReturnUSD float64 `json:"benchmarkReturnUsd"`
	BenchmarkReturnEUR float64 `json:"benchmarkReturnEur"`
	OutperformanceUSD  float64 `json:"outperformanceUsd"`
	OutperformanceEUR  float64 `json:"outperformanceEur"`
	CAGREUR            float64 `json:"cagrEur"`
	BenchmarkCAGREUR   float64 `json:"benchmarkCagrEur"`
	SkippedPoints      int     `json:"skippedPoints"`
}

// PerformanceReport is the chart document. Summary is omitted with NoData.
type PerformanceReport struct {
	Benchmark    string   `json:"benchmark"`
	NoData       bool     `json:"noData"`
	Error        string   `json:"error,omitempty"`
	Data         []Point  `json:"data"`
	Transactions []Marker `json:"transactions"`
	Summary      *Summary `json:"summary,omitempty"`
}

func Performance(r models.PerformanceReport) PerformanceReport {
	out := PerformanceReport{
		Benchmark:    r.Benchmark,
		NoData:       r.NoData,
		Error:        r.Reason,
		Data:         make([]Point, 0, len(r.Points)),
		Transactions: make([]Marker, 0, len(r.Transactions)),
	}
	if r.NoData {
		return out
	}
	for _, p := range r.Points {
		out.Data = append(out.Data, Point{
			Date:                  day(p.Date),
			PortfolioValueUSD:     amount(p.PortfolioValueUSD),
			PortfolioValueEUR:     amount(p.PortfolioValueEUR),
			BenchmarkValueUSD:     amount(p.BenchmarkValueUSD),
			BenchmarkValueEUR:     amount(p.BenchmarkValueEUR),
			CostBasisUSD:          amount(p.CostBasisUSD),
			CostBasisEUR:          amount(p.CostBasisEUR),
			GrowthPctUSD:          percent(p.GrowthPctUSD),
			GrowthPctEUR:          percent(p.GrowthPctEUR),
			BenchmarkGrowthPctUSD: percent(p.BenchmarkGrowthPctUSD),
			BenchmarkGrowthPctEUR: percent(p.BenchmarkGrowthPctEUR),
		})
	}
	for _, m := range r.Transactions {
		out.Transactions = append(out.Transactions, Marker{
			Date:      day(m.Date),
			Ticker:    m.Ticker,
			Side:      string(m.Side),
			Quantity:  m.Quantity.String(),
			AmountUSD: amount(m.AmountUSD),
		})
	}
	s := r.Summary
	out.Summary = &Summary{
		StartDate:          day(s.StartDate),
		EndDate:            day(s.EndDate),
		Years:              s.Years.Round(2).InexactFloat64(),
		FinalValueUSD:      amount(s.FinalValueUSD),
		FinalValueEUR:      amount(s.FinalValueEUR),
		FinalCostBasisEUR:  amount(s.FinalCostBasisEUR),
		TotalReturnUSD:     percent(s.TotalReturnUSD),
		TotalReturnEUR:     percent(s.TotalReturnEUR),
		BenchmarkReturnUSD: percent(s.BenchmarkReturnUSD),
		BenchmarkReturnEUR: percent(s.BenchmarkReturnEUR),
		OutperformanceUSD:  percent(s.OutperformanceUSD),
		OutperformanceEUR:  percent(s.OutperformanceEUR),
		CAGREUR:            percent(s.CAGREUR),
		BenchmarkCAGREUR:   percent(s.BenchmarkCAGREUR),
		SkippedPoints:      s.SkippedPoints,
	}
	return out
}

type Transaction struct {
	ID             string   `json:"id"`
	AccountID      string   `json:"accountId,omitempty"`
	Ticker         string   `json:"ticker"`
	Side           string   `json:"side"`
	Quantity       string   `json:"quantity"`
	Date           string   `json:"date"`
	PricePerShare  *float64 `json:"pricePerShare"`
	PriceCurrency  string   `json:"priceCurrency"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
	CreatedAt      string   `json:"createdAt"`
}

// Transactions renders the log as stored. Prices are not rounded.
func Transactions(txs []models.Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionOf(tx))
	}
	return out
}

func TransactionOf(tx models.Transaction) Transaction {
	var price *float64
	if tx.PricePerShare.Valid {
		p := tx.PricePerShare.Decimal.InexactFloat64()
		price = &p
	}
	return Transaction{
		ID:             tx.ID,
		AccountID:      tx.AccountID,
		Ticker:         tx.Ticker,
		Side:           string(tx.Side),
		Quantity:       tx.Quantity.String(),
		Date:           day(tx.Date),
		PricePerShare:  price,
		PriceCurrency:  tx.PriceCurrency,
		IdempotencyKey: tx.IdempotencyKey,
		CreatedAt:      tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}
