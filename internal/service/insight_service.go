package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"keeper/internal/insight"
	"keeper/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	highConfidenceThreshold = 0.85
	defaultExpiryDays       = 30
)

type InsightOptions struct {
	ExpiryDays  int
	TargetValue float64
}

// InsightService runs the local detectors over an account's history and
// stores what survives the filter.
type InsightService struct {
	accounts     AccountStore
	customers    CustomerStore
	transactions TransactionStore
	insights     InsightStore
	detectors    []insight.Detector
	filter       *insight.Filter
	opts         InsightOptions
	now          func() time.Time
	logger       *zap.Logger
}

func NewInsightService(
	accounts AccountStore,
	customers CustomerStore,
	transactions TransactionStore,
	insights InsightStore,
	detectors []insight.Detector,
	filter *insight.Filter,
	opts InsightOptions,
	logger *zap.Logger,
) *InsightService {
	if len(detectors) == 0 {
		detectors = insight.DefaultDetectors()
	}
	if opts.ExpiryDays <= 0 {
		opts.ExpiryDays = defaultExpiryDays
	}
	if opts.TargetValue <= 0 {
		opts.TargetValue = insight.DefaultTargetValue
	}
	return &InsightService{
		accounts:     accounts,
		customers:    customers,
		transactions: transactions,
		insights:     insights,
		detectors:    detectors,
		filter:       filter,
		opts:         opts,
		now:          time.Now,
		logger:       logger,
	}
}

// GenerationReport summarizes one detector run.
type GenerationReport struct {
	Insights       []insight.Insight `json:"insights"`
	Total          int               `json:"total_insights"`
	HighConfidence int               `json:"high_confidence_insights"`
	Rejected       int               `json:"rejected_insights"`
	TotalValue     float64           `json:"total_potential_value"`
	ByDetector     map[string]int    `json:"insights_by_detector"`
	Stored         int               `json:"stored"`
	TargetMet      bool              `json:"target_met"`
	Seconds        float64           `json:"generation_time_seconds"`
}

// Snapshot loads the account's customers and payments into memory.
func (s *InsightService) Snapshot(ctx context.Context, accountID uuid.UUID) (insight.Snapshot, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return insight.Snapshot{}, err
	}

	customers, err := s.customers.ListByAccount(ctx, accountID)
	if err != nil {
		return insight.Snapshot{}, fmt.Errorf("failed to load customers: %w", err)
	}
	transactions, err := s.transactions.ListByAccount(ctx, accountID, time.Time{})
	if err != nil {
		return insight.Snapshot{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	snap := insight.Snapshot{
		AccountID:    accountID.String(),
		Customers:    make([]insight.Customer, 0, len(customers)),
		Transactions: make([]insight.Transaction, 0, len(transactions)),
		Now:          s.now().UTC(),
	}
	for _, c := range customers {
		snap.Customers = append(snap.Customers, insight.Customer{
			ID:        c.ID.String(),
			GivenName: c.GivenName,
			Email:     c.Email,
		})
	}
	for _, t := range transactions {
		tx := insight.Transaction{
			ID:          t.ID.String(),
			AmountCents: t.AmountCents,
			TipCents:    t.TipCents,
			OccurredAt:  t.OccurredAt,
		}
		if t.CustomerID != nil {
			tx.CustomerID = t.CustomerID.String()
		}
		snap.Transactions = append(snap.Transactions, tx)
	}
	return snap, nil
}

// Generate runs every detector, filters the findings and, when persist is
// set, stores the accepted ones.
func (s *InsightService) Generate(ctx context.Context, accountID uuid.UUID, persist bool) (*GenerationReport, error) {
	start := s.now()

	snap, err := s.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	run := insight.RunDetectors(snap, s.detectors, s.logger)
	accepted, rejected := s.filter.Apply(run.Insights)

	report := &GenerationReport{
		Insights:   accepted,
		Total:      len(accepted),
		Rejected:   len(rejected),
		ByDetector: run.ByDetector,
	}
	if report.Insights == nil {
		report.Insights = []insight.Insight{}
	}
	for _, in := range accepted {
		report.TotalValue += in.Value
		if in.Confidence >= highConfidenceThreshold {
			report.HighConfidence++
		}
	}
	report.TargetMet = report.TotalValue >= s.opts.TargetValue

	if persist {
		stored, err := s.Persist(ctx, accountID, accepted)
		if err != nil {
			return nil, err
		}
		report.Stored = stored
	}
	elapsed := s.now().Sub(start)
	report.Seconds = elapsed.Seconds()

	s.logger.Info("Insights generated",
		zap.String("account_id", accountID.String()),
		zap.Int("total", report.Total),
		zap.Int("high_confidence", report.HighConfidence),
		zap.Int("rejected", report.Rejected),
		zap.Float64("total_value", report.TotalValue),
		zap.Duration("duration", elapsed),
	)
	return report, nil
}

// Persist stores insights with status "new" and the configured expiry.
func (s *InsightService) Persist(ctx context.Context, accountID uuid.UUID, insights []insight.Insight) (int, error) {
	if len(insights) == 0 {
		return 0, nil
	}

	now := s.now().UTC()
	records := make([]*models.Insight, 0, len(insights))
	for _, in := range insights {
		rec, err := s.toRecord(accountID, in, now)
		if err != nil {
			return 0, err
		}
		records = append(records, rec)
	}

	if err := s.insights.CreateBatch(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *InsightService) ListActive(ctx context.Context, accountID uuid.UUID) ([]*models.Insight, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.insights.ListActive(ctx, accountID, s.now().UTC())
}

func (s *InsightService) toRecord(accountID uuid.UUID, in insight.Insight, now time.Time) (*models.Insight, error) {
	evidence := make(map[string]any, len(in.Evidence)+1)
	for k, v := range in.Evidence {
		evidence[k] = v
	}
	if in.Reasoning != "" {
		evidence["reasoning"] = in.Reasoning
	}
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evidence: %w", err)
	}

	actions := in.Actions
	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action items: %w", err)
	}

	description := sanitizeUTF8(in.Description)
	return &models.Insight{
		ID:              uuid.New(),
		AccountID:       accountID,
		Type:            in.Category,
		Title:           truncateRunes(description, maxTitleRunes),
		Description:     description,
		Source:          in.Source,
		ConfidenceScore: in.Confidence,
		PotentialValue:  in.Value,
		Evidence:        evidenceJSON,
		ActionItems:     actionsJSON,
		Status:          models.InsightStatusNew,
		CreatedAt:       now,
		ExpiresAt:       now.AddDate(0, 0, s.opts.ExpiryDays),
	}, nil
}
