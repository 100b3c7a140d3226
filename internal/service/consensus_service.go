package service

import (
	"context"

	"keeper/internal/insight"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ConsensusOptions struct {
	IncludeLocal bool
	Aggregator   insight.AggregatorOptions
}

// ConsensusService asks every configured provider, plus optionally the
// local detectors, for insights on the same business summary.
type ConsensusService struct {
	insights  *InsightService
	providers []insight.Source
	filter    *insight.Filter
	opts      ConsensusOptions
	logger    *zap.Logger
}

func NewConsensusService(insights *InsightService, providers []insight.Source, filter *insight.Filter, opts ConsensusOptions, logger *zap.Logger) *ConsensusService {
	return &ConsensusService{
		insights:  insights,
		providers: providers,
		filter:    filter,
		opts:      opts,
		logger:    logger,
	}
}

type ConsensusReport struct {
	Summary insight.BusinessSummary `json:"summary"`
	Result  insight.ConsensusResult `json:"result"`
	Stored  int                     `json:"stored"`
}

// Run derives the summary from stored data unless override is given. A
// source failing never fails the run; only loading data or persisting does.
func (s *ConsensusService) Run(ctx context.Context, accountID uuid.UUID, override *insight.BusinessSummary, persist bool) (*ConsensusReport, error) {
	snap, err := s.insights.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	summary := insight.SummarizeSnapshot(snap)
	if override != nil {
		summary = *override
	}

	sources := make([]insight.Source, 0, len(s.providers)+1)
	sources = append(sources, s.providers...)
	if s.opts.IncludeLocal {
		sources = append(sources, insight.NewLocalSource(snap, s.insights.detectors, s.logger))
	}

	agg := insight.NewAggregator(sources, s.filter, s.opts.Aggregator, s.logger)
	report := &ConsensusReport{
		Summary: summary,
		Result:  agg.Run(ctx, summary),
	}

	if persist {
		stored, err := s.insights.Persist(ctx, accountID, report.Result.Insights)
		if err != nil {
			return nil, err
		}
		report.Stored = stored
	}
	return report, nil
}
