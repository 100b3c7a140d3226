// Package insight detects monetizable patterns in an account's customer and
// transaction history, filters obvious or low-value findings, and merges
// results from independent sources into one consensus.
package insight

import (
	"context"
	"time"
)

// Categories emitted by the built-in detectors.
const (
	CategoryChurnRisk        = "churn_risk_high_value"
	CategoryTipOptimization  = "tip_optimization"
	CategoryFrequencyDecline = "frequency_decline"
	CategoryModel            = "model_insight"
)

// Insight is the single shape every detector and provider adapter produces.
// Value is in dollars.
type Insight struct {
	Source      string         `json:"source"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Reasoning   string         `json:"reasoning,omitempty"`
	Confidence  float64        `json:"confidence"`
	Value       float64        `json:"potential_value"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	Actions     []string       `json:"action_items"`
}

// Customer is the read-only view of a customer a detector sees.
type Customer struct {
	ID        string
	GivenName string
	Email     string
}

// Transaction amounts are in cents. CustomerID is empty when the payment is
// not linked to a known customer.
type Transaction struct {
	ID          string
	CustomerID  string
	AmountCents int64
	TipCents    int64
	OccurredAt  time.Time
}

// Snapshot is an in-memory copy of one account's data. Detectors must not
// modify it.
type Snapshot struct {
	AccountID    string
	Customers    []Customer
	Transactions []Transaction
	Now          time.Time
}

// BusinessSummary is the aggregate every consensus source receives. Money is
// in dollars, TipRate is a fraction.
type BusinessSummary struct {
	CustomerCount    int     `json:"customer_count"`
	TransactionCount int     `json:"transaction_count"`
	AvgTransaction   float64 `json:"avg_transaction"`
	TipRate          float64 `json:"tip_rate"`
	MonthlyRevenue   float64 `json:"monthly_revenue"`
}

// Source is one independent producer of insights for a consensus run.
type Source interface {
	Name() string
	Insights(ctx context.Context, summary BusinessSummary) ([]Insight, error)
}

const (
	daysPerMonth = 30
	centsPerUSD  = 100.0
)

// SummarizeSnapshot derives the business summary for s. Monthly revenue is
// total revenue scaled to 30 days over the span of the transactions, with a
// 30-day minimum window.
func SummarizeSnapshot(s Snapshot) BusinessSummary {
	sum := BusinessSummary{
		CustomerCount:    len(s.Customers),
		TransactionCount: len(s.Transactions),
	}
	if len(s.Transactions) == 0 {
		return sum
	}

	var total int64
	var tipped int
	first, last := s.Transactions[0].OccurredAt, s.Transactions[0].OccurredAt
	for _, t := range s.Transactions {
		total += t.AmountCents
		if t.TipCents > 0 {
			tipped++
		}
		if t.OccurredAt.Before(first) {
			first = t.OccurredAt
		}
		if t.OccurredAt.After(last) {
			last = t.OccurredAt
		}
	}

	n := float64(len(s.Transactions))
	sum.AvgTransaction = float64(total) / n / centsPerUSD
	sum.TipRate = float64(tipped) / n

	window := max(daysBetween(first, last), daysPerMonth)
	sum.MonthlyRevenue = float64(total) / centsPerUSD * daysPerMonth / float64(window)
	return sum
}

// daysBetween counts whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
