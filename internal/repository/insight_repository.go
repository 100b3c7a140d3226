package repository

import (
	"context"
	"fmt"
	"time"

	"keeper/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var insightColumns = []string{
	"id", "account_id", "insight_type", "title", "description", "source", "confidence_score",
	"potential_value", "evidence", "action_items", "status", "created_at", "expires_at",
}

type InsightRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInsightRepository(db *pgxpool.Pool, logger *zap.Logger) *InsightRepository {
	return &InsightRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch appends insights; stored insights are never updated.
func (r *InsightRepository) CreateBatch(ctx context.Context, insights []*models.Insight) error {
	if len(insights) == 0 {
		return nil
	}

	sql, args, err := createInsightsQuery(insights).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to store insights: %w", err)
	}
	return nil
}

func createInsightsQuery(insights []*models.Insight) squirrel.InsertBuilder {
	builder := squirrel.Insert("insights").
		Columns(insightColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, in := range insights {
		builder = builder.Values(
			in.ID, in.AccountID, in.Type, in.Title, in.Description, in.Source, in.ConfidenceScore,
			in.PotentialValue, in.Evidence, in.ActionItems, in.Status, in.CreatedAt, in.ExpiresAt,
		)
	}
	return builder
}

// ListActive returns unexpired insights, most valuable first.
func (r *InsightRepository) ListActive(ctx context.Context, accountID uuid.UUID, now time.Time) ([]*models.Insight, error) {
	sql, args, err := activeInsightsQuery(accountID, now).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insights []*models.Insight
	for rows.Next() {
		var in models.Insight
		if err := rows.Scan(
			&in.ID, &in.AccountID, &in.Type, &in.Title, &in.Description, &in.Source, &in.ConfidenceScore,
			&in.PotentialValue, &in.Evidence, &in.ActionItems, &in.Status, &in.CreatedAt, &in.ExpiresAt,
		); err != nil {
			return nil, err
		}
		insights = append(insights, &in)
	}

	return insights, rows.Err()
}

func activeInsightsQuery(accountID uuid.UUID, now time.Time) squirrel.SelectBuilder {
	return squirrel.Select(insightColumns...).
		From("insights").
		Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.Gt{"expires_at": now}).
		OrderBy("potential_value DESC", "created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
}
