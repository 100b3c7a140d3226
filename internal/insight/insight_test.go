package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.AddDate(0, 0, -d)
}

func TestChurnRiskDetector(t *testing.T) {
	snap := Snapshot{
		Now: now,
		Customers: []Customer{
			{ID: "c1", GivenName: "Jane", Email: "jane@example.com"},
			{ID: "c2", GivenName: "Bob"},
			{ID: "c3"},
		},
		Transactions: []Transaction{
			{CustomerID: "c1", AmountCents: 5000, OccurredAt: daysAgo(120)},
			{CustomerID: "c1", AmountCents: 5000, OccurredAt: daysAgo(45)},
			{CustomerID: "c1", AmountCents: 5000, OccurredAt: daysAgo(80)},
			// inactive but not valuable enough
			{CustomerID: "c2", AmountCents: 10000, OccurredAt: daysAgo(90)},
			// valuable but recent
			{CustomerID: "c3", AmountCents: 50000, OccurredAt: daysAgo(30)},
		},
	}

	got := ChurnRiskDetector{}.Detect(snap)
	require.Len(t, got, 1)

	in := got[0]
	assert.Equal(t, CategoryChurnRisk, in.Category)
	assert.Equal(t, 0.85, in.Confidence)
	assert.InDelta(t, 600.0, in.Value, 1e-9)
	assert.Equal(t, "High-value customer Jane hasn't visited in 45 days", in.Description)
	assert.Equal(t, "c1", in.Evidence["customer_id"])
	assert.Equal(t, 45, in.Evidence["last_visit_days"])
	require.Len(t, in.Actions, 4)
	assert.Equal(t, "Send personalized win-back offer to jane@example.com", in.Actions[0])
	assert.Contains(t, in.Actions[1], "15% discount")
	assert.Contains(t, in.Actions[1], "avg $50.00")
	assert.Contains(t, in.Actions[2], "48 hours")
}

func TestChurnRiskDetector_Fallbacks(t *testing.T) {
	snap := Snapshot{
		Now:          now,
		Customers:    []Customer{{ID: "c1"}},
		Transactions: []Transaction{{CustomerID: "c1", AmountCents: 20000, OccurredAt: daysAgo(60)}},
	}
	got := ChurnRiskDetector{}.Detect(snap)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Description, "Customer hasn't visited")
	assert.Equal(t, "Send personalized win-back offer to customer", got[0].Actions[0])
}

func tipSnapshot(n, tipped int) Snapshot {
	s := Snapshot{Now: now}
	for i := 0; i < n; i++ {
		t := Transaction{AmountCents: 5000, OccurredAt: daysAgo(i)}
		if i < tipped {
			t.TipCents = 500
		}
		s.Transactions = append(s.Transactions, t)
	}
	return s
}

func TestTipRateDetector(t *testing.T) {
	got := TipRateDetector{}.Detect(tipSnapshot(20, 5))
	require.Len(t, got, 1)

	in := got[0]
	assert.Equal(t, CategoryTipOptimization, in.Category)
	assert.Equal(t, 0.88, in.Confidence)
	// potential 20*0.18*50 = 180, current 25, delta 155
	assert.InDelta(t, 155.0*12, in.Value, 1e-9)
	assert.Equal(t, "Only 25.0% of transactions include tips - industry average is 65%", in.Description)
	assert.Equal(t, "Target: Increase tip rate from 25.0% to 65%", in.Actions[3])
}

func TestTipRateDetector_NoInsight(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"ten transactions is not enough", tipSnapshot(10, 0)},
		{"half tipped", tipSnapshot(20, 10)},
		{"small delta", tipSnapshot(12, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, TipRateDetector{}.Detect(tt.snap))
		})
	}
}

func visits(customer string, amount int64, ages ...int) []Transaction {
	var out []Transaction
	for _, a := range ages {
		out = append(out, Transaction{CustomerID: customer, AmountCents: amount, OccurredAt: daysAgo(a)})
	}
	return out
}

func TestFrequencyDeclineDetector(t *testing.T) {
	var txns []Transaction
	// gaps 10 then 40
	txns = append(txns, visits("slowing", 3000, 0, 40, 50)...)
	// gaps 10 then 15, exactly 1.5x is not a decline
	txns = append(txns, visits("steady", 3000, 0, 15, 25)...)
	// declining but lifetime 4500 cents
	txns = append(txns, visits("small", 1500, 0, 40, 50)...)
	// too few visits
	txns = append(txns, visits("new", 9000, 0, 40)...)

	got := FrequencyDeclineDetector{}.Detect(Snapshot{Now: now, Transactions: txns})
	require.Len(t, got, 1)

	in := got[0]
	assert.Equal(t, CategoryFrequencyDecline, in.Category)
	assert.Equal(t, 0.78, in.Confidence)
	assert.InDelta(t, 180.0, in.Value, 1e-9)
	assert.Equal(t, "slowing", in.Evidence["customer_id"])
	assert.Equal(t, 10, in.Evidence["first_gap_days"])
	assert.Equal(t, 40, in.Evidence["last_gap_days"])
}

type panicDetector struct{}

func (panicDetector) Name() string { return "broken" }
func (panicDetector) Detect(Snapshot) []Insight {
	panic("boom")
}

func TestRunDetectors(t *testing.T) {
	snap := tipSnapshot(20, 5)
	run := RunDetectors(snap, []Detector{panicDetector{}, TipRateDetector{}}, zap.NewNop())

	require.Len(t, run.Insights, 1)
	assert.Equal(t, "tip_rate", run.Insights[0].Source)
	assert.Equal(t, 0, run.ByDetector["broken"])
	assert.Equal(t, 1, run.ByDetector["tip_rate"])
}

func TestDetectorsDoNotMutateSnapshot(t *testing.T) {
	txns := visits("c1", 3000, 50, 0, 40)
	snap := Snapshot{Now: now, Customers: []Customer{{ID: "c1"}}, Transactions: txns}
	before := append([]Transaction(nil), txns...)

	RunDetectors(snap, DefaultDetectors(), zap.NewNop())
	assert.Equal(t, before, snap.Transactions)
}

func TestFilter(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())

	tests := []struct {
		name   string
		in     Insight
		reason RejectReason
	}{
		{"explained tip insight", Insight{Description: "Tip rate is low because X", Confidence: 0.80, Value: 150}, Accepted},
		{"banned phrase", Insight{Description: "Weekends are busier than weekdays", Confidence: 0.99, Value: 10000}, RejectBanned},
		{"low confidence", Insight{Description: "Upsell gift cards", Confidence: 0.74, Value: 500}, RejectConfidence},
		{"low value", Insight{Description: "Upsell gift cards", Confidence: 0.9, Value: 99.99}, RejectValue},
		{"thresholds inclusive", Insight{Description: "Upsell gift cards", Confidence: 0.75, Value: 100}, Accepted},
		{"obvious pattern", Insight{Description: "Fridays see higher sales", Confidence: 0.9, Value: 500}, RejectObvious},
		{"obvious pattern with why", Insight{Description: "Why Fridays see Higher Sales: payday", Confidence: 0.9, Value: 500}, Accepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, f.Reason(tt.in))
			assert.Equal(t, tt.reason == Accepted, f.Accept(tt.in))
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	in := []Insight{
		{Description: "a", Confidence: 0.9, Value: 200},
		{Description: "b", Confidence: 0.1, Value: 200},
		{Description: "c", Confidence: 0.9, Value: 300},
	}
	accepted, rejected := f.Apply(in)
	require.Len(t, accepted, 2)
	assert.Equal(t, "a", accepted[0].Description)
	assert.Equal(t, "c", accepted[1].Description)
	require.Len(t, rejected, 1)
	assert.Equal(t, "b", rejected[0].Description)
}

type funcSource struct {
	name string
	fn   func(ctx context.Context) ([]Insight, error)
}

func (s funcSource) Name() string { return s.name }

func (s funcSource) Insights(ctx context.Context, _ BusinessSummary) ([]Insight, error) {
	return s.fn(ctx)
}

func returning(ins ...Insight) func(context.Context) ([]Insight, error) {
	return func(context.Context) ([]Insight, error) { return ins, nil }
}

func newTestAggregator(sources ...Source) *Aggregator {
	return NewAggregator(sources, NewFilter(DefaultFilterConfig()), AggregatorOptions{
		Target:        3000,
		SourceTimeout: 50 * time.Millisecond,
	}, zap.NewNop())
}

func TestAggregator_FailingSourceDegrades(t *testing.T) {
	agg := newTestAggregator(
		funcSource{"openai", func(context.Context) ([]Insight, error) { return nil, errors.New("api down") }},
		funcSource{"anthropic", returning(Insight{Description: "Bundle services", Confidence: 0.8, Value: 600})},
		funcSource{"gemini", returning(Insight{Description: "Launch memberships", Confidence: 0.8, Value: 600})},
	)

	res := agg.Run(context.Background(), BusinessSummary{})
	assert.Len(t, res.Insights, 2)
	assert.InDelta(t, 1200.0, res.TotalValue, 1e-9)
	assert.False(t, res.Successful)
	assert.Equal(t, 3000.0, res.Target)
	assert.Equal(t, []string{"anthropic", "gemini"}, res.SourcesSucceeded)
	assert.Contains(t, res.SourcesFailed, "openai")
	assert.Equal(t, 1, res.AcceptedBySource["anthropic"])
	assert.Equal(t, "anthropic", res.Insights[0].Source)
	assert.Equal(t, "gemini", res.Insights[1].Source)
}

func TestAggregator_TimeoutAndPanic(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	agg := newTestAggregator(
		funcSource{"stuck", func(context.Context) ([]Insight, error) {
			<-block
			return nil, nil
		}},
		funcSource{"broken", func(context.Context) ([]Insight, error) { panic("bad payload") }},
		funcSource{"local", returning(Insight{Description: "Raise prices 5%", Confidence: 0.9, Value: 3000})},
	)

	start := time.Now()
	res := agg.Run(context.Background(), BusinessSummary{})
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, res.Insights, 1)
	assert.True(t, res.Successful)
	assert.Contains(t, res.SourcesFailed["stuck"], ErrSourceTimeout.Error())
	assert.Contains(t, res.SourcesFailed["broken"], "panicked")
}

func TestAggregator_FiltersAndDedups(t *testing.T) {
	dup := Insight{Category: "pricing", Description: "Raise prices 5%", Confidence: 0.9, Value: 800}
	agg := newTestAggregator(
		funcSource{"a", returning(dup, dup, Insight{Description: "weekends are busier", Confidence: 1, Value: 5000})},
		funcSource{"b", returning(dup)},
	)

	res := agg.Run(context.Background(), BusinessSummary{})
	assert.Len(t, res.Insights, 2)
	assert.Equal(t, 3, res.BySource["a"])
	assert.Equal(t, 1, res.AcceptedBySource["a"])
	assert.Equal(t, 1, res.AcceptedBySource["b"])
	assert.InDelta(t, 1600.0, res.TotalValue, 1e-9)
}

func TestAggregator_NoSources(t *testing.T) {
	res := newTestAggregator().Run(context.Background(), BusinessSummary{})
	assert.Empty(t, res.Insights)
	assert.Zero(t, res.TotalValue)
	assert.False(t, res.Successful)
}

func TestLocalSource(t *testing.T) {
	src := NewLocalSource(tipSnapshot(20, 5), nil, zap.NewNop())
	assert.Equal(t, "local", src.Name())

	ins, err := src.Insights(context.Background(), BusinessSummary{})
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, CategoryTipOptimization, ins[0].Category)
}

func TestSummarizeSnapshot(t *testing.T) {
	t.Run("short window is stretched to a month", func(t *testing.T) {
		s := Snapshot{
			Customers: []Customer{{ID: "a"}, {ID: "b"}},
			Transactions: []Transaction{
				{AmountCents: 10000, TipCents: 1000, OccurredAt: daysAgo(10)},
				{AmountCents: 20000, OccurredAt: daysAgo(0)},
			},
		}
		sum := SummarizeSnapshot(s)
		assert.Equal(t, 2, sum.CustomerCount)
		assert.Equal(t, 2, sum.TransactionCount)
		assert.InDelta(t, 150.0, sum.AvgTransaction, 1e-9)
		assert.InDelta(t, 0.5, sum.TipRate, 1e-9)
		assert.InDelta(t, 300.0, sum.MonthlyRevenue, 1e-9)
	})

	t.Run("long window is normalized", func(t *testing.T) {
		s := Snapshot{Transactions: []Transaction{
			{AmountCents: 30000, OccurredAt: daysAgo(60)},
			{AmountCents: 30000, OccurredAt: daysAgo(0)},
		}}
		assert.InDelta(t, 300.0, SummarizeSnapshot(s).MonthlyRevenue, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, BusinessSummary{}, SummarizeSnapshot(Snapshot{}))
	})
}
