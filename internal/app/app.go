// Package app wires repositories, providers and services from configuration.
// Both the HTTP server and the CLI build on it.
package app

import (
	"context"
	"fmt"

	"keeper/internal/embedding"
	"keeper/internal/insight"
	"keeper/internal/llm"
	"keeper/internal/matching"
	"keeper/internal/repository"
	"keeper/internal/service"
	"keeper/pkg/auth"
	"keeper/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type App struct {
	JWT       *auth.JWTManager
	Ingest    *service.IngestService
	Matching  *service.MatchingService
	Insights  *service.InsightService
	Consensus *service.ConsensusService

	cleanup func()
}

// New builds every service on top of db. Close releases provider clients;
// the pool stays owned by the caller.
func New(ctx context.Context, cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	accountRepo := repository.NewAccountRepository(db, logger)
	customerRepo := repository.NewCustomerRepository(db, logger)
	txRepo := repository.NewTransactionRepository(db, logger)
	insightRepo := repository.NewInsightRepository(db, logger)

	ranker, err := matching.NewRanker(matching.Thresholds{
		Low:    cfg.Matching.LowThreshold,
		Medium: cfg.Matching.MediumThreshold,
		High:   cfg.Matching.HighThreshold,
	})
	if err != nil {
		return nil, err
	}

	embedder := embedding.NewPaced(
		embedding.NewOpenAIClient(embedding.OpenAIOptions{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.EmbeddingModel,
			Dimensions:   cfg.OpenAI.EmbeddingDimensions,
			RetryBackoff: cfg.Matching.RetryBackoff,
		}, logger.Named("embedding")),
		embedding.NewPacer(cfg.Matching.PacingInterval),
	)

	filter := insight.NewFilter(insight.FilterConfig{
		BannedPhrases:   insight.DefaultFilterConfig().BannedPhrases,
		ObviousPatterns: insight.DefaultFilterConfig().ObviousPatterns,
		MinConfidence:   cfg.Insights.MinConfidence,
		MinValue:        cfg.Insights.MinValue,
	})

	providers, cleanup, err := llm.BuildSources(ctx, cfg, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to build insight providers: %w", err)
	}

	insightSvc := service.NewInsightService(accountRepo, customerRepo, txRepo, insightRepo,
		insight.DefaultDetectors(), filter,
		service.InsightOptions{
			ExpiryDays:  cfg.Insights.ExpiryDays,
			TargetValue: cfg.Insights.TargetValue,
		}, logger.Named("insights"))

	return &App{
		JWT:    auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration),
		Ingest: service.NewIngestService(accountRepo, customerRepo, txRepo, logger.Named("ingest")),
		Matching: service.NewMatchingService(accountRepo, customerRepo, embedder, ranker,
			service.MatchingOptions{
				TopK:            cfg.Matching.TopK,
				ExternalTopK:    cfg.Matching.ExternalTopK,
				BackfillWorkers: cfg.Matching.BackfillWorkers,
			}, logger.Named("matching")),
		Insights: insightSvc,
		Consensus: service.NewConsensusService(insightSvc, providers, filter,
			service.ConsensusOptions{
				IncludeLocal: cfg.Insights.IncludeLocal,
				Aggregator: insight.AggregatorOptions{
					Target:        cfg.Insights.TargetValue,
					SourceTimeout: cfg.Insights.SourceTimeout,
				},
			}, logger.Named("consensus")),
		cleanup: cleanup,
	}, nil
}

func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}
