package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"keeper/internal/embedding"
	"keeper/internal/matching"
	"keeper/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type MatchingOptions struct {
	TopK            int
	ExternalTopK    int
	BackfillWorkers int
}

// MatchingService embeds stored customers and finds likely duplicates of an
// incoming identity. All embedding calls go through one paced provider.
type MatchingService struct {
	accounts  AccountStore
	customers CustomerStore
	embedder  embedding.Provider
	ranker    *matching.Ranker
	opts      MatchingOptions
	logger    *zap.Logger
}

func NewMatchingService(
	accounts AccountStore,
	customers CustomerStore,
	embedder embedding.Provider,
	ranker *matching.Ranker,
	opts MatchingOptions,
	logger *zap.Logger,
) *MatchingService {
	if opts.TopK <= 0 {
		opts.TopK = matching.DefaultTopK
	}
	if opts.ExternalTopK <= 0 {
		opts.ExternalTopK = 3
	}
	if opts.BackfillWorkers <= 0 {
		opts.BackfillWorkers = 1
	}
	return &MatchingService{
		accounts:  accounts,
		customers: customers,
		embedder:  embedder,
		ranker:    ranker,
		opts:      opts,
		logger:    logger,
	}
}

type BackfillResult struct {
	Processed int `json:"processed"`
	Embedded  int `json:"embedded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// BackfillEmbeddings computes vectors for customers that have none. Customers
// with nothing to embed are skipped; provider or storage failures are counted
// and do not stop the run.
func (s *MatchingService) BackfillEmbeddings(ctx context.Context, accountID uuid.UUID, limit int) (BackfillResult, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return BackfillResult{}, err
	}

	pending, err := s.customers.ListWithoutEmbedding(ctx, accountID, limit)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("failed to list customers: %w", err)
	}

	var embedded, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BackfillWorkers)

	for _, c := range pending {
		g.Go(func() error {
			text := matching.Normalize(identityOf(c))
			if text == "" {
				skipped.Add(1)
				return nil
			}

			vec, ok := embedding.TryEmbed(gctx, s.embedder, text, s.logger)
			if !ok {
				failed.Add(1)
				return nil
			}

			if err := s.customers.UpdateEmbedding(gctx, c.ID, vec, text); err != nil {
				s.logger.Error("Failed to store embedding", zap.String("customer_id", c.ID.String()), zap.Error(err))
				failed.Add(1)
				return nil
			}
			embedded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := BackfillResult{
		Processed: len(pending),
		Embedded:  int(embedded.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
	s.logger.Info("Embedding backfill complete",
		zap.String("account_id", accountID.String()),
		zap.Int("processed", res.Processed),
		zap.Int("embedded", res.Embedded),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, ctx.Err()
}

// FindMatches ranks the account's embedded customers against query. An
// identity with nothing to embed, or whose embedding fails, has no matches.
func (s *MatchingService) FindMatches(ctx context.Context, accountID uuid.UUID, query matching.Identity, maxMatches int) ([]matching.Match, error) {
	if maxMatches <= 0 {
		maxMatches = s.opts.TopK
	}
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	candidates, err := s.loadCandidates(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.match(ctx, query, candidates, maxMatches), nil
}

type ExternalMatch struct {
	Input     matching.Identity `json:"-"`
	Matches   []matching.Match  `json:"matches"`
	BestMatch *matching.Match   `json:"best_match"`
}

type ExternalMatchReport struct {
	TotalProcessed int             `json:"total_processed"`
	HighMatches    int             `json:"high_confidence_matches"`
	MediumMatches  int             `json:"medium_confidence_matches"`
	LowMatches     int             `json:"low_confidence_matches"`
	NoMatches      int             `json:"no_matches"`
	MatchRate      float64         `json:"match_rate"`
	HighRate       float64         `json:"high_confidence_rate"`
	Results        []ExternalMatch `json:"results"`
}

// MatchExternal matches a list of identities from another system and buckets
// each by the tier of its best match.
func (s *MatchingService) MatchExternal(ctx context.Context, accountID uuid.UUID, queries []matching.Identity) (*ExternalMatchReport, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	candidates, err := s.loadCandidates(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report := &ExternalMatchReport{
		TotalProcessed: len(queries),
		Results:        make([]ExternalMatch, 0, len(queries)),
	}
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches := s.match(ctx, q, candidates, s.opts.ExternalTopK)
		result := ExternalMatch{Input: q, Matches: matches}
		if len(matches) == 0 {
			report.NoMatches++
		} else {
			best := matches[0]
			result.BestMatch = &best
			switch best.Tier {
			case matching.TierHigh:
				report.HighMatches++
			case matching.TierMedium:
				report.MediumMatches++
			default:
				report.LowMatches++
			}
		}
		report.Results = append(report.Results, result)
	}

	if n := len(queries); n > 0 {
		matched := report.HighMatches + report.MediumMatches + report.LowMatches
		report.MatchRate = float64(matched) / float64(n) * 100
		report.HighRate = float64(report.HighMatches) / float64(n) * 100
	}

	s.logger.Info("External matching complete",
		zap.String("account_id", accountID.String()),
		zap.Int("total", report.TotalProcessed),
		zap.Int("high", report.HighMatches),
		zap.Int("medium", report.MediumMatches),
		zap.Int("low", report.LowMatches),
		zap.Int("none", report.NoMatches),
		zap.Float64("match_rate", report.MatchRate),
	)
	return report, nil
}

func (s *MatchingService) match(ctx context.Context, query matching.Identity, candidates []matching.Candidate, k int) []matching.Match {
	text := matching.Normalize(query)
	if text == "" || len(candidates) == 0 {
		return []matching.Match{}
	}

	vec, ok := embedding.TryEmbed(ctx, s.embedder, text, s.logger)
	if !ok {
		return []matching.Match{}
	}
	return s.ranker.Rank(query, vec, candidates, k)
}

func (s *MatchingService) loadCandidates(ctx context.Context, accountID uuid.UUID) ([]matching.Candidate, error) {
	customers, err := s.customers.ListWithEmbedding(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	return toCandidates(customers), nil
}

func toCandidates(customers []*models.Customer) []matching.Candidate {
	out := make([]matching.Candidate, 0, len(customers))
	for _, c := range customers {
		if len(c.Embedding) == 0 {
			continue
		}
		out = append(out, matching.Candidate{
			ID:       c.ID.String(),
			Vector:   c.Embedding,
			Identity: identityOf(c),
		})
	}
	return out
}
