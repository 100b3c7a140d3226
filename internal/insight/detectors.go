package insight

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Detector finds patterns in a snapshot. Implementations are pure.
type Detector interface {
	Name() string
	Detect(s Snapshot) []Insight
}

// DefaultDetectors returns the built-in detectors in run order.
func DefaultDetectors() []Detector {
	return []Detector{
		ChurnRiskDetector{},
		TipRateDetector{},
		FrequencyDeclineDetector{},
	}
}

// DetectorRun is the output of RunDetectors.
type DetectorRun struct {
	Insights   []Insight
	ByDetector map[string]int
}

// RunDetectors runs each detector in order. A detector that panics
// contributes nothing.
func RunDetectors(s Snapshot, detectors []Detector, logger *zap.Logger) DetectorRun {
	run := DetectorRun{ByDetector: make(map[string]int, len(detectors))}
	for _, d := range detectors {
		found := safeDetect(d, s, logger)
		for i := range found {
			if found[i].Source == "" {
				found[i].Source = d.Name()
			}
		}
		run.ByDetector[d.Name()] = len(found)
		run.Insights = append(run.Insights, found...)
	}
	return run
}

func safeDetect(d Detector, s Snapshot, logger *zap.Logger) (out []Insight) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Detector panicked", zap.String("detector", d.Name()), zap.Any("panic", r))
			out = nil
		}
	}()
	return d.Detect(s)
}

// byCustomer groups transactions by customer id in order of first
// appearance. Unlinked transactions are ignored.
func byCustomer(txns []Transaction) ([]string, map[string][]Transaction) {
	var order []string
	groups := make(map[string][]Transaction)
	for _, t := range txns {
		if t.CustomerID == "" {
			continue
		}
		if _, seen := groups[t.CustomerID]; !seen {
			order = append(order, t.CustomerID)
		}
		groups[t.CustomerID] = append(groups[t.CustomerID], t)
	}
	return order, groups
}

func totalCents(txns []Transaction) int64 {
	var total int64
	for _, t := range txns {
		total += t.AmountCents
	}
	return total
}

// ChurnRiskDetector flags valuable customers who have not transacted in over
// 30 days.
type ChurnRiskDetector struct{}

const (
	churnInactiveDays    = 30
	churnMinSpendCents   = 10000
	churnConfidence      = 0.85
	churnAnnualizeVisits = 12
)

func (ChurnRiskDetector) Name() string { return "churn_risk" }

func (ChurnRiskDetector) Detect(s Snapshot) []Insight {
	_, groups := byCustomer(s.Transactions)

	var out []Insight
	for _, c := range s.Customers {
		txns := groups[c.ID]
		if len(txns) == 0 {
			continue
		}

		last := txns[0].OccurredAt
		for _, t := range txns[1:] {
			if t.OccurredAt.After(last) {
				last = t.OccurredAt
			}
		}
		daysSince := daysBetween(last, s.Now)
		total := totalCents(txns)
		if daysSince <= churnInactiveDays || total <= churnMinSpendCents {
			continue
		}

		avg := float64(total) / float64(len(txns))
		name := c.GivenName
		if name == "" {
			name = "Customer"
		}
		contact := c.Email
		if contact == "" {
			contact = "customer"
		}

		out = append(out, Insight{
			Category:    CategoryChurnRisk,
			Description: fmt.Sprintf("High-value customer %s hasn't visited in %d days", name, daysSince),
			Confidence:  churnConfidence,
			Value:       avg * churnAnnualizeVisits / centsPerUSD,
			Evidence: map[string]any{
				"customer_id":       c.ID,
				"last_visit_days":   daysSince,
				"total_spent":       total,
				"avg_transaction":   avg,
				"transaction_count": len(txns),
			},
			Actions: []string{
				fmt.Sprintf("Send personalized win-back offer to %s", contact),
				fmt.Sprintf("Offer 15%% discount on their favorite service (avg $%.2f)", avg/centsPerUSD),
				"Follow up with phone call within 48 hours",
				"Track response rate and re-visit patterns",
			},
		})
	}
	return out
}

// TipRateDetector projects the revenue lost to a low share of tipped
// transactions against an 18% industry tip.
type TipRateDetector struct{}

const (
	tipMinTransactions = 10
	tipRateCeiling     = 0.5
	tipIndustryRate    = 0.18
	tipTargetShare     = 0.65
	tipMinMonthlyDelta = 100
	tipConfidence      = 0.88
)

func (TipRateDetector) Name() string { return "tip_rate" }

func (TipRateDetector) Detect(s Snapshot) []Insight {
	n := len(s.Transactions)
	if n <= tipMinTransactions {
		return nil
	}

	var tipped int
	var amount, tips int64
	for _, t := range s.Transactions {
		amount += t.AmountCents
		tips += t.TipCents
		if t.TipCents > 0 {
			tipped++
		}
	}

	rate := float64(tipped) / float64(n)
	if rate >= tipRateCeiling {
		return nil
	}

	avg := float64(amount) / float64(n)
	potential := float64(n) * tipIndustryRate * avg / centsPerUSD
	current := float64(tips) / centsPerUSD
	delta := potential - current
	if delta <= tipMinMonthlyDelta {
		return nil
	}

	return []Insight{{
		Category:    CategoryTipOptimization,
		Description: fmt.Sprintf("Only %.1f%% of transactions include tips - industry average is 65%%", rate*100),
		Confidence:  tipConfidence,
		Value:       delta * 12,
		Evidence: map[string]any{
			"current_tip_rate":           rate,
			"industry_average":           tipTargetShare,
			"total_transactions":         n,
			"potential_monthly_increase": delta,
		},
		Actions: []string{
			"Train staff on tip suggestion timing and techniques",
			"Implement suggested tip amounts on payment screen",
			"Create tip coaching program for employees",
			fmt.Sprintf("Target: Increase tip rate from %.1f%% to %.0f%%", rate*100, tipTargetShare*100),
		},
	}}
}

// FrequencyDeclineDetector flags customers whose latest gap between visits is
// much longer than their first.
type FrequencyDeclineDetector struct{}

const (
	freqMinVisits     = 3
	freqGapGrowth     = 1.5
	freqMinSpendCents = 5000
	freqConfidence    = 0.78
	freqProjectVisits = 6
)

func (FrequencyDeclineDetector) Name() string { return "frequency_decline" }

func (FrequencyDeclineDetector) Detect(s Snapshot) []Insight {
	order, groups := byCustomer(s.Transactions)

	var out []Insight
	for _, id := range order {
		txns := groups[id]
		if len(txns) < freqMinVisits {
			continue
		}

		sorted := make([]Transaction, len(txns))
		copy(sorted, txns)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
		})

		gaps := make([]int, 0, len(sorted)-1)
		for i := 1; i < len(sorted); i++ {
			gaps = append(gaps, daysBetween(sorted[i-1].OccurredAt, sorted[i].OccurredAt))
		}
		if float64(gaps[len(gaps)-1]) <= float64(gaps[0])*freqGapGrowth {
			continue
		}

		total := totalCents(txns)
		if total <= freqMinSpendCents {
			continue
		}

		out = append(out, Insight{
			Category:    CategoryFrequencyDecline,
			Description: "High-value customer showing declining visit frequency",
			Confidence:  freqConfidence,
			Value:       float64(total) / float64(len(txns)) * freqProjectVisits / centsPerUSD,
			Evidence: map[string]any{
				"customer_id":     id,
				"total_value":     total,
				"visit_count":     len(txns),
				"frequency_trend": "declining",
				"first_gap_days":  gaps[0],
				"last_gap_days":   gaps[len(gaps)-1],
			},
			Actions: []string{
				"Send personalized re-engagement campaign",
				"Offer loyalty program or package deals",
				"Schedule follow-up call to understand satisfaction",
				"Create targeted retention offer",
			},
		})
	}
	return out
}
